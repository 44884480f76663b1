package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatOrderLine(t *testing.T) {
	ev := OrderPlacedEvent{
		OrderID: 101,
		UserID:  7,
		Items: []OrderEventItem{
			{BookID: 1, Title: "First", PriceCents: 5000, Quantity: 2},
			{BookID: 2, Title: "Second", PriceCents: 10000, Quantity: 1},
		},
		SubtotalCents: 20000,
		TaxCents:      3600,
		ShippingCents: 5000,
		TotalCents:    28600,
		PaymentMethod: "UPI",
		ShipCity:      "Bengaluru",
		ShipCountry:   "IN",
		PlacedAt:      "2026-08-28T10:00:00Z",
	}
	line := FormatOrderLine(ev)
	assert.Contains(t, line, "order_id=101")
	assert.Contains(t, line, "user_id=7")
	assert.Contains(t, line, "lines=2")
	assert.Contains(t, line, "units=3")
	assert.Contains(t, line, "total=28600 cents")
	assert.Contains(t, line, "method=UPI")
	assert.Contains(t, line, `ship_to="Bengaluru, IN"`)
	assert.Contains(t, line, "[2026-08-28T10:00:00Z]")
	assert.Equal(t, uint8('\n'), line[len(line)-1])
}
