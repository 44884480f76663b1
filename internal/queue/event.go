// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderPlacedEvent is published after a checkout commits. It carries
// enough detail for downstream consumers to log, notify, or feed
// analytics without querying the primary database.
type OrderPlacedEvent struct {
	OrderID       uint64           `json:"order_id"`
	UserID        uint64           `json:"user_id"`
	Items         []OrderEventItem `json:"items"`
	SubtotalCents int64            `json:"subtotal_cents"`
	TaxCents      int64            `json:"tax_cents"`
	ShippingCents int64            `json:"shipping_cents"`
	TotalCents    int64            `json:"total_cents"`
	PaymentMethod string           `json:"payment_method"`
	ShipCity      string           `json:"ship_city"`
	ShipCountry   string           `json:"ship_country"`
	PlacedAt      string           `json:"placed_at"`
}

// OrderEventItem is one line of the order snapshot inside the event.
type OrderEventItem struct {
	BookID     uint64 `json:"book_id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
}
