package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ListOrderedByID(t *testing.T) {
	c := New(
		ServiceType{ID: "rescue", BaseFee: 250},
		ServiceType{ID: "ambulance", BaseFee: 150},
		ServiceType{ID: "fire-response", BaseFee: 200},
	)

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "ambulance", list[0].ID)
	assert.Equal(t, "fire-response", list[1].ID)
	assert.Equal(t, "rescue", list[2].ID)
}

func TestCatalog_GetReturnsCopy(t *testing.T) {
	c := New(ServiceType{
		ID:      "ambulance",
		BaseFee: 150,
		AddOns:  []AddOnService{{ID: "medical-escort", Fee: 25}},
	})

	svc, ok := c.Get("ambulance")
	require.True(t, ok)
	svc.BaseFee = 999
	svc.AddOns[0].Fee = 999

	again, ok := c.Get("ambulance")
	require.True(t, ok)
	assert.Equal(t, 150.0, again.BaseFee)
	assert.Equal(t, 25.0, again.AddOns[0].Fee)
}

func TestCatalog_GetUnknown(t *testing.T) {
	c := Default("USD")
	_, ok := c.Get("helicopter")
	assert.False(t, ok)
}

func TestServiceType_AddOnLookup(t *testing.T) {
	c := Default("USD")
	svc, ok := c.Get("ambulance")
	require.True(t, ok)

	addOn, ok := svc.AddOn("medical-escort")
	require.True(t, ok)
	assert.Equal(t, 25.00, addOn.Fee)

	_, ok = svc.AddOn("hazmat-containment")
	assert.False(t, ok)
}

func TestDefault_CurrencyAppliedToAllServices(t *testing.T) {
	for _, svc := range Default("EUR").List() {
		assert.Equal(t, "EUR", svc.Currency, "service %s", svc.ID)
		assert.Greater(t, svc.BaseFee, 0.0, "service %s", svc.ID)
	}
}
