package invoice

import (
	"bytes"
	"testing"
	"time"

	"evo-store/internal/config"
	"evo-store/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer(config.StoreConfig{
		Name:        "Evo Peptides",
		TrackingURL: "https://shop.test/track",
		Currency:    "MYR",
	})

	tracking := "JT112233"
	courier := "J&T"
	productID := "bpc-157"
	order := &model.AdminOrder{
		Order: model.Order{
			ID:             uuid.New(),
			OrderNumber:    "EVO-ABCD1234",
			Status:         model.OrderStatusShipped,
			Total:          decimal.RequireFromString("240.00"),
			ShippingName:   "Ali",
			ShippingCity:   "Kuala Lumpur",
			TrackingNumber: &tracking,
			Courier:        &courier,
			CreatedAt:      time.Now(),
		},
		ShippingPhone:    "0123456789",
		ShippingAddress:  "1 Jalan Test",
		ShippingPostcode: "50000",
		Items: []model.OrderItem{
			{
				ProductID:   &productID,
				ProductName: "BPC-157 5mg",
				Quantity:    2,
				UnitPrice:   decimal.RequireFromString("120.00"),
				LineTotal:   decimal.RequireFromString("240.00"),
			},
		},
	}

	pdf, err := r.Render(order)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	assert.Greater(t, len(pdf), 1000)
}

func TestRenderer_TrackingLink(t *testing.T) {
	r := NewRenderer(config.StoreConfig{TrackingURL: "https://shop.test/track"})

	assert.Equal(t, "https://shop.test/track?order=EVO-AB+CD", r.TrackingLink("EVO-AB CD"))
}
