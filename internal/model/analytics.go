package model

import "github.com/shopspring/decimal"

// Analytics aggregates store-wide counters for the admin dashboard.
type Analytics struct {
	TotalOrders      int                 `json:"totalOrders"`
	OrdersByStatus   map[OrderStatus]int `json:"ordersByStatus"`
	Revenue          decimal.Decimal     `json:"revenue"`
	TotalUsers       int                 `json:"totalUsers"`
	TotalProducts    int                 `json:"totalProducts"`
	LowStockProducts int                 `json:"lowStockProducts"`
}

// DebugInfo is returned by the development diagnostics endpoint.
type DebugInfo struct {
	Database     string         `json:"database"`
	TotalConns   int32          `json:"totalConns"`
	IdleConns    int32          `json:"idleConns"`
	AcquireCount int64          `json:"acquireCount"`
	TableCounts  map[string]int `json:"tableCounts"`
}
