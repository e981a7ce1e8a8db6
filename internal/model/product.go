package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue entry.
type Product struct {
	ID                string          `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Slug              string          `json:"slug" db:"slug"`
	Description       string          `json:"description" db:"description"`
	Price             decimal.Decimal `json:"price" db:"price"`
	Category          string          `json:"category" db:"category"`
	StockQuantity     int             `json:"stockQuantity" db:"stock_quantity"`
	LowStockThreshold int             `json:"-" db:"low_stock_threshold"`
	IsPublished       bool            `json:"-" db:"is_published"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time       `json:"updatedAt" db:"updated_at"`
}

// InStock reports whether qty units can be sold.
func (p *Product) InStock(qty int) bool {
	return p.StockQuantity >= qty
}

// ProductFilter narrows a catalogue listing.
type ProductFilter struct {
	Category string
	Limit    int
	Offset   int
}
