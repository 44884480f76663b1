package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidAvailability(t *testing.T) {
	for _, a := range []string{AvailabilityInStock, AvailabilityOutOfStock, AvailabilityPreOrder, AvailabilityComingSoon} {
		assert.True(t, ValidAvailability(a), a)
	}
	assert.False(t, ValidAvailability("BACKORDER"))
	assert.False(t, ValidAvailability("in_stock"))
}

func TestAddressComplete(t *testing.T) {
	full := Address{Street: "12 MG Road", City: "Bengaluru", State: "KA", ZipCode: "560001", Country: "IN"}
	assert.True(t, full.Complete())

	partial := full
	partial.ZipCode = ""
	assert.False(t, partial.Complete())

	assert.False(t, Address{}.Complete())
}
