// Package csvtable reads and writes the comma-separated product, weight and
// report tables.
package csvtable

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/palmlens/scorer/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store implements the product, weight and report repositories on CSV files
type Store struct{}

// NewStore creates a CSV-backed store
func NewStore() *Store {
	return &Store{}
}

// LoadProducts reads the full product table into memory
func (s *Store) LoadProducts(ctx context.Context, path string) (*domain.Table, error) {
	table, err := readTable(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return table, nil
}

// LoadWeights reads the ingredient weight table, keeping file order
func (s *Store) LoadWeights(ctx context.Context, path string) ([]domain.IngredientWeight, error) {
	table, err := readTable(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredient weights: %w", err)
	}
	return MapWeightTable(table)
}

func readTable(ctx context.Context, path string) (*domain.Table, error) {
	if path == "" {
		return nil, &domain.MissingInputError{Field: "path"}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseTable(ctx, b)
}

func parseTable(ctx context.Context, b []byte) (*domain.Table, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty table: no header row")
	}
	if err != nil {
		return nil, err
	}

	table := &domain.Table{Columns: headers}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		line, _ := r.FieldPos(0)
		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				values[h] = rec[i]
			} else {
				values[h] = ""
			}
		}
		table.Rows = append(table.Rows, domain.Row{Line: line, Values: values})
	}

	return table, nil
}
