package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gderossilive/devShopDemo/configs"
	"github.com/gderossilive/devShopDemo/internal/security"
)

type TokenHandler struct {
	cfg     configs.Config
	clients *security.ClientRegistry
	now     func() time.Time
}

func NewTokenHandler(cfg configs.Config, clients *security.ClientRegistry) *TokenHandler {
	return &TokenHandler{cfg: cfg, clients: clients, now: time.Now}
}

type tokenReq struct {
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// POST /v1/token (form or JSON)
// Accepts: client_id, client_secret
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req tokenReq
	if err := c.ShouldBind(&req); err != nil || req.ClientID == "" || req.ClientSecret == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}

	cl, ok := h.clients.Authenticate(req.ClientID, req.ClientSecret)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_client"})
		return
	}

	now := h.now()
	ttl := h.cfg.Security.TTL
	claims := jwt.MapClaims{
		"iss":      h.cfg.Security.Issuer,   // issuer
		"aud":      h.cfg.Security.Audience, // audience
		"iat":      now.Unix(),              // issued at
		"nbf":      now.Unix(),              // not before
		"exp":      now.Add(ttl).Unix(),     // expire
		"clientID": cl.ID,
		"perms":    cl.Perms,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.Security.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(ttl.Seconds()),
	})
}
