package catalog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// WriteFile writes records as a gzipped JSON-lines catalog file, creating the
// parent directory when needed.
func WriteFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	enc := json.NewEncoder(gzipWriter)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			gzipWriter.Close()
			return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return file.Close()
}

// SampleRecords is a small catalog for local development.
func SampleRecords() []Record {
	hidden := false
	return []Record{
		{ID: "bpc-157-5mg", Name: "BPC-157 5mg", Price: decimal.RequireFromString("120.00"), Category: "peptides", StockQuantity: 40},
		{ID: "tb-500-5mg", Name: "TB-500 5mg", Price: decimal.RequireFromString("150.00"), Category: "peptides", StockQuantity: 25},
		{ID: "ipamorelin-2mg", Name: "Ipamorelin 2mg", Price: decimal.RequireFromString("95.50"), Category: "peptides", StockQuantity: 3},
		{ID: "bac-water-10ml", Name: "Bacteriostatic Water 10ml", Price: decimal.RequireFromString("18.90"), Category: "supplies", StockQuantity: 200},
		{ID: "ghk-cu-50mg", Name: "GHK-Cu 50mg", Price: decimal.RequireFromString("89.00"), Category: "peptides", StockQuantity: 0, Published: &hidden},
	}
}
