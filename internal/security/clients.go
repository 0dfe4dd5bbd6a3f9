package security

import (
	"crypto/subtle"
	"slices"

	"github.com/gderossilive/devShopDemo/configs"
)

// Permissions understood by the storefront API.
const (
	PermCatalogRead    = "catalog.read"
	PermPurchasesWrite = "purchases.write"
	PermOrdersRead     = "orders.read"
)

type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"catalog.read","purchases.write"}
	Enabled bool
}

func (c Client) Has(perm string) bool { return slices.Contains(c.Perms, perm) }

// ClientRegistry holds the API clients allowed to request tokens.
type ClientRegistry struct {
	clients map[string]Client
}

func NewClientRegistry(cfg []configs.ClientConfig) *ClientRegistry {
	r := &ClientRegistry{clients: make(map[string]Client, len(cfg))}
	for _, c := range cfg {
		if c.ID == "" {
			continue
		}
		r.clients[c.ID] = Client{ID: c.ID, Secret: c.Secret, Perms: slices.Clone(c.Perms), Enabled: c.Enabled}
	}
	return r
}

// Authenticate returns the client when id and secret match an enabled entry.
func (r *ClientRegistry) Authenticate(id, secret string) (Client, bool) {
	cl, ok := r.clients[id]
	if !ok || !cl.Enabled || cl.Secret == "" {
		return Client{}, false
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(cl.Secret)) != 1 {
		return Client{}, false
	}
	return cl, true
}

func (r *ClientRegistry) Len() int { return len(r.clients) }
