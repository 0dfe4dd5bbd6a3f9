package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gderossilive/devShopDemo/internal/entity"
)

type OrderReader interface {
	GetByID(ctx context.Context, id int64) (*entity.Order, []entity.OrderDetail, error)
}

type OrderHandler struct {
	query   OrderReader
	timeout time.Duration
}

func NewOrderHandler(query OrderReader, timeout time.Duration) *OrderHandler {
	return &OrderHandler{query: query, timeout: timeout}
}

type orderLineResp struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Discount  string `json:"discount"`
	LineTotal string `json:"lineTotal"`
}

type orderResp struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customerId"`
	OrderDate     time.Time       `json:"orderDate"`
	TotalAmount   string          `json:"totalAmount"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	Lines         []orderLineResp `json:"lines"`
}

// GET /v1/orders/:id
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, entity.ErrInvalidInput)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	o, lines, err := h.query.GetByID(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := orderResp{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		OrderDate:     o.OrderDate,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Lines:         make([]orderLineResp, 0, len(lines)),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, orderLineResp{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Discount:  l.Discount.StringFixed(2),
			LineTotal: l.LineTotal.StringFixed(2),
		})
	}
	c.JSON(http.StatusOK, resp)
}
