package usecase

import "time"

// Published after a purchase commits; consumed by the mail sender.
type OrderPlacedMsg struct {
	OrderID           int64     `json:"orderId"`
	CustomerEmail     string    `json:"customerEmail"`
	CustomerFirstName string    `json:"customerFirstName"`
	CustomerLastName  string    `json:"customerLastName"`
	ProductID         int64     `json:"productId"`
	ProductName       string    `json:"productName"`
	Quantity          int       `json:"quantity"`
	TotalAmount       string    `json:"totalAmount"` // fixed 2 decimals
	OrderDate         time.Time `json:"orderDate"`
}

// Sent by catalog management on Kafka when products or categories change.
type CatalogChangedMsg struct {
	ProductID  int64  `json:"productId,omitempty"`
	CategoryID int64  `json:"categoryId,omitempty"`
	Change     string `json:"change"` // e.g. "price", "stock", "deactivated"
}
