package csvtable

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/palmlens/scorer/internal/domain"
)

// WriteReport writes the table with a header row and no index column
func (s *Store) WriteReport(ctx context.Context, path string, table *domain.Table) error {
	if path == "" {
		return &domain.MissingInputError{Field: "output path"}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	if err := WriteTable(ctx, f, table); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// WriteTable encodes the table as CSV
func WriteTable(ctx context.Context, w io.Writer, table *domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for i, col := range table.Columns {
			record[i] = row.Values[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
