package catalog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"evo-store/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Loader reads a catalog file and returns its product records.
type Loader interface {
	// Load reads a gzipped JSON-lines catalog file.
	Load(ctx context.Context, name string) ([]model.Product, error)
}

// Record is one line of a catalog file.
type Record struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Category          string          `json:"category"`
	StockQuantity     int             `json:"stockQuantity"`
	LowStockThreshold *int            `json:"lowStockThreshold"`
	Published         *bool           `json:"published"`
}

const defaultLowStockThreshold = 5

func (r Record) validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return errors.New("id is required")
	case strings.TrimSpace(r.Name) == "":
		return errors.New("name is required")
	case r.Price.IsNegative():
		return errors.New("price must not be negative")
	case r.StockQuantity < 0:
		return errors.New("stock quantity must not be negative")
	}
	return nil
}

// Product converts the record, applying defaults for optional fields.
func (r Record) Product() model.Product {
	p := model.Product{
		ID:                strings.TrimSpace(r.ID),
		Name:              strings.TrimSpace(r.Name),
		Slug:              r.Slug,
		Description:       r.Description,
		Price:             r.Price.Round(2),
		Category:          r.Category,
		StockQuantity:     r.StockQuantity,
		LowStockThreshold: defaultLowStockThreshold,
		IsPublished:       true,
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	if r.LowStockThreshold != nil {
		p.LowStockThreshold = *r.LowStockThreshold
	}
	if r.Published != nil {
		p.IsPublished = *r.Published
	}
	return p
}

// decode reads gzipped JSON lines. Blank lines are ignored; malformed or
// invalid records are logged and skipped so one bad line does not abort an
// import.
func decode(ctx context.Context, r io.Reader, source string, logger zerolog.Logger) ([]model.Product, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	products := []model.Product{}
	seen := make(map[string]int)
	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				logger.Warn().Str("source", source).Msg("catalog loading cancelled")
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			logger.Warn().Err(err).Str("source", source).Int("line", lineNo).Msg("skipping malformed catalog line")
			skipped++
			continue
		}
		if err := rec.validate(); err != nil {
			logger.Warn().Err(err).Str("source", source).Int("line", lineNo).Msg("skipping invalid catalog record")
			skipped++
			continue
		}

		p := rec.Product()
		// Last occurrence of an id wins.
		if i, ok := seen[p.ID]; ok {
			products[i] = p
			continue
		}
		seen[p.ID] = len(products)
		products = append(products, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading catalog %s: %w", source, err)
	}

	logger.Info().
		Str("source", source).
		Int("products", len(products)).
		Int("skipped", skipped).
		Msg("catalog file loaded")

	return products, nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
