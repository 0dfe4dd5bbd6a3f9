package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

const IdempotencyKeyHeader = "X-Idempotency-Key"

// Purchaser is the purchase workflow as seen by the HTTP layer.
type Purchaser interface {
	Execute(ctx context.Context, in usecase.PurchaseInput) (usecase.OrderConfirmation, error)
}

type PurchaseHandler struct {
	purchase Purchaser
	timeout  time.Duration
}

func NewPurchaseHandler(p Purchaser, timeout time.Duration) *PurchaseHandler {
	return &PurchaseHandler{purchase: p, timeout: timeout}
}

// purchaseReq accepts the storefront form post as well as JSON.
type purchaseReq struct {
	ProductID     int64  `json:"productId" form:"productId" binding:"required,gt=0"`
	CustomerEmail string `json:"customerEmail" form:"customerEmail" binding:"required"`
	Quantity      *int   `json:"quantity" form:"quantity"`
}

type purchaseResp struct {
	OrderID       int64     `json:"orderId"`
	CustomerEmail string    `json:"customerEmail"`
	ProductName   string    `json:"productName"`
	Quantity      int       `json:"quantity"`
	TotalAmount   string    `json:"totalAmount"`
	OrderDate     time.Time `json:"orderDate"`
}

// Purchase handler: translate to use case input
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	var req purchaseReq
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, bindError(err))
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	out, err := h.purchase.Execute(ctx, usecase.PurchaseInput{
		ProductID:      req.ProductID,
		CustomerEmail:  req.CustomerEmail,
		Quantity:       qty,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, purchaseResp{
		OrderID:       out.OrderID,
		CustomerEmail: out.CustomerEmail,
		ProductName:   out.ProductName,
		Quantity:      out.Quantity,
		TotalAmount:   out.TotalAmount.StringFixed(2),
		OrderDate:     out.OrderDate,
	})
}

// bindError turns a binding failure into the matching invalid-input kind.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "ProductID":
			return entity.ErrInvalidProduct
		case "CustomerEmail":
			return entity.ErrInvalidEmail
		}
	}
	return entity.ErrInvalidInput
}
