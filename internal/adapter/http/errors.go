package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gderossilive/devShopDemo/internal/entity"
	"github.com/gderossilive/devShopDemo/internal/logging"
	"github.com/gderossilive/devShopDemo/internal/usecase"
)

const retryAfterSeconds = 1

type errorResp struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Requested *int   `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// writeError maps a failure kind onto a status code and a message that is
// safe to show to a shopper. Driver details only reach the log.
func writeError(c *gin.Context, err error) {
	var stock *entity.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, errorResp{
			Error:     "insufficient_stock",
			Message:   "Not enough stock is available for this product.",
			Requested: &stock.Requested,
			Available: &stock.Available,
		})
	case errors.Is(err, entity.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResp{Error: "invalid_input", Message: invalidInputMessage(err)})
	case errors.Is(err, entity.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResp{Error: "not_found", Message: "The requested item was not found or is no longer available."})
	case errors.Is(err, usecase.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, errorResp{Error: "duplicate_request", Message: "This purchase is already being processed."})
	case entity.Retryable(err), errors.Is(err, context.DeadlineExceeded):
		logging.From(c).Warn("request failed, retryable", "err", err)
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		c.JSON(http.StatusServiceUnavailable, errorResp{Error: "temporarily_unavailable", Message: "The store is busy. Please try again shortly."})
	default:
		logging.From(c).Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, errorResp{Error: "internal_error", Message: "An unexpected error occurred."})
	}
}

func invalidInputMessage(err error) string {
	switch {
	case errors.Is(err, entity.ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, entity.ErrInvalidQuantity):
		return "Quantity must be at least 1."
	case errors.Is(err, entity.ErrInvalidProduct):
		return "A product must be selected."
	default:
		return "The request is invalid."
	}
}
