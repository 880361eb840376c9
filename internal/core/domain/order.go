package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderLine struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID               string
	UserID           int64
	Lines            []OrderLine
	Total            Money
	Status           OrderStatus
	ProviderChargeID string
	TelegramChargeID string
	ShippingOptionID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ShippingOption is a delivery choice offered during a flexible checkout.
type ShippingOption struct {
	ID    string
	Title string
	Price int64
}

// Payment is a completed payment reported by the messaging platform.
type Payment struct {
	UserID           int64
	Currency         string
	TotalAmount      int64
	InvoicePayload   string
	ShippingOptionID string
	ProviderChargeID string
	TelegramChargeID string
}
