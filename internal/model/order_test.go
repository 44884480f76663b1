package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []OrderItem
		shipping int64
		want     Totals
	}{
		{
			name: "two books with flat shipping",
			items: []OrderItem{
				{BookID: 1, PriceCents: 5000, Quantity: 2},
				{BookID: 2, PriceCents: 10000, Quantity: 1},
			},
			shipping: 5000,
			want: Totals{
				SubtotalCents: 20000,
				TaxCents:      3600, // 18% of 200.00
				ShippingCents: 5000,
				TotalCents:    28600,
			},
		},
		{
			name:     "empty cart still pays shipping",
			items:    nil,
			shipping: 5000,
			want:     Totals{ShippingCents: 5000, TotalCents: 5000},
		},
		{
			name: "tax rounds to nearest cent",
			items: []OrderItem{
				{BookID: 1, PriceCents: 97, Quantity: 1}, // 17.46 cents tax -> 17
			},
			shipping: 0,
			want:     Totals{SubtotalCents: 97, TaxCents: 17, TotalCents: 114},
		},
		{
			name: "tax rounds up at half cent",
			items: []OrderItem{
				{BookID: 1, PriceCents: 25, Quantity: 1}, // 4.5 cents tax -> 5
			},
			shipping: 0,
			want:     Totals{SubtotalCents: 25, TaxCents: 5, TotalCents: 30},
		},
		{
			name: "free shipping",
			items: []OrderItem{
				{BookID: 3, PriceCents: 1000, Quantity: 3},
			},
			shipping: 0,
			want:     Totals{SubtotalCents: 3000, TaxCents: 540, TotalCents: 3540},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTotals(tc.items, tc.shipping)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeTotalsIdentity(t *testing.T) {
	items := []OrderItem{
		{PriceCents: 1299, Quantity: 4},
		{PriceCents: 45000, Quantity: 1},
		{PriceCents: 350, Quantity: 7},
	}
	got := ComputeTotals(items, 5000)
	assert.Equal(t, got.SubtotalCents+got.TaxCents+got.ShippingCents, got.TotalCents)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipped, false},
		{OrderPending, OrderDelivered, false},
		{OrderProcessing, OrderShipped, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderProcessing, OrderPending, false},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderCancelled, true},
		{OrderShipped, OrderProcessing, false},
		{OrderDelivered, OrderCancelled, false},
		{OrderDelivered, OrderPending, false},
		{OrderCancelled, OrderPending, false},
		{OrderCancelled, OrderProcessing, false},
		{"BOGUS", OrderPending, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled} {
		assert.True(t, ValidOrderStatus(s), s)
	}
	assert.False(t, ValidOrderStatus("REFUNDED"))
	assert.False(t, ValidOrderStatus("pending"))
}

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range []string{PayCreditCard, PayDebitCard, PayUPI, PayNetBanking, PayCOD} {
		assert.True(t, ValidPaymentMethod(m), m)
	}
	assert.False(t, ValidPaymentMethod("BITCOIN"))
	assert.False(t, ValidPaymentMethod(""))
}
