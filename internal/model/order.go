package model

import "time"

// Order status values. The lifecycle is
// PENDING -> PROCESSING -> SHIPPED -> DELIVERED, with CANCELLED reachable
// from any non-terminal state. DELIVERED and CANCELLED are terminal.
const (
	OrderPending    = "PENDING"
	OrderProcessing = "PROCESSING"
	OrderShipped    = "SHIPPED"
	OrderDelivered  = "DELIVERED"
	OrderCancelled  = "CANCELLED"
)

// Payment methods accepted at checkout. The method is recorded, not
// processed; there is no gateway integration.
const (
	PayCreditCard = "CREDIT_CARD"
	PayDebitCard  = "DEBIT_CARD"
	PayUPI        = "UPI"
	PayNetBanking = "NET_BANKING"
	PayCOD        = "COD"
)

// Payment status values.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// TaxRateBP is the flat goods-and-services tax applied to every order,
// in basis points (18%). Single jurisdiction, not configurable per item.
const TaxRateBP = 1800

// orderTransitions maps each order status to its legal successors.
var orderTransitions = map[string][]string{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to
// another. Terminal states have no successors.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PayCreditCard, PayDebitCard, PayUPI, PayNetBanking, PayCOD:
		return true
	}
	return false
}

// OrderItem is one line of an order: a frozen snapshot of the book's id,
// title and unit price at purchase time plus the ordered quantity. Later
// edits to the book must never change it.
type OrderItem struct {
	BookID     uint64 `json:"book_id"`
	Title      string `json:"title"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
}

// Order mirrors the `orders` table plus its order_items rows. All money
// amounts are integer cents.
type Order struct {
	ID            uint64      // orders.id
	UserID        uint64      // orders.user_id
	Items         []OrderItem // order_items rows
	SubtotalCents int64       // orders.subtotal_cents
	TaxCents      int64       // orders.tax_cents
	ShippingCents int64       // orders.shipping_cents
	TotalCents    int64       // orders.total_cents
	Status        string      // orders.status
	PaymentMethod string      // orders.payment_method
	PaymentStatus string      // orders.payment_status
	TransactionID string      // orders.transaction_id (set when marked paid)
	ShippingAddr  Address     // orders.ship_* columns (snapshot)
	CreatedAt     time.Time   // orders.created_at
	UpdatedAt     time.Time   // orders.updated_at
}

// Totals holds the server-computed pricing of a cart.
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
}

// ComputeTotals prices a set of line items: subtotal is the sum of
// price*quantity, tax is 18% of the subtotal rounded to the nearest cent,
// shipping is the flat charge, total is the sum of the three. Client-side
// prices never enter this computation.
func ComputeTotals(items []OrderItem, shippingCents int64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.PriceCents * it.Quantity
	}
	tax := (subtotal*TaxRateBP + 5000) / 10000
	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shippingCents,
		TotalCents:    subtotal + tax + shippingCents,
	}
}
