package csvtable

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palmlens/scorer/internal/domain"
)

var (
	_ domain.ProductRepository = (*Store)(nil)
	_ domain.WeightRepository  = (*Store)(nil)
	_ domain.ReportWriter      = (*Store)(nil)
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("reads header and rows", func(t *testing.T) {
		path := writeFile(t, "products.csv",
			"\xEF\xBB\xBFName,Ingredients,Weight\n"+
				"Cookie,\"flour, palm oil, sugar\",200\n"+
				"Bread,flour\n")

		table, err := NewStore().LoadProducts(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, []string{"Name", "Ingredients", "Weight"}, table.Columns)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "flour, palm oil, sugar", table.Rows[0].Values["Ingredients"])
		assert.Equal(t, 2, table.Rows[0].Line)
		assert.Equal(t, "", table.Rows[1].Values["Weight"], "short records are padded")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewStore().LoadProducts(ctx, filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewStore().LoadProducts(ctx, "")
		assert.True(t, errors.Is(err, domain.ErrMissingRequiredInput))
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewStore().LoadProducts(ctx, writeFile(t, "empty.csv", ""))
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewStore().LoadProducts(cctx, writeFile(t, "p.csv", "a\n1\n"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadWeights(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps file order", func(t *testing.T) {
		path := writeFile(t, "weights.csv",
			"ingredient,weight,use_for_consumption\n"+
				"palm kernel,2,True\n"+
				"palm,1.5,true\n"+
				"glycerin,0.5,False\n"+
				",,\n"+
				"lecithin,1,\n")

		weights, err := NewStore().LoadWeights(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, []domain.IngredientWeight{
			{Pattern: "palm kernel", Weight: 2, UseForConsumption: true},
			{Pattern: "palm", Weight: 1.5, UseForConsumption: true},
			{Pattern: "glycerin", Weight: 0.5, UseForConsumption: false},
			{Pattern: "lecithin", Weight: 1, UseForConsumption: false},
		}, weights)
	})

	t.Run("missing column", func(t *testing.T) {
		path := writeFile(t, "weights.csv", "ingredient,weight\npalm,1\n")
		_, err := NewStore().LoadWeights(ctx, path)
		assert.ErrorIs(t, err, domain.ErrMissingRequiredInput)
		assert.Contains(t, err.Error(), "use_for_consumption")
	})

	t.Run("bad weight", func(t *testing.T) {
		path := writeFile(t, "weights.csv", "ingredient,weight,use_for_consumption\npalm,lots,true\n")
		_, err := NewStore().LoadWeights(ctx, path)
		assert.ErrorIs(t, err, domain.ErrInvalidWeightTable)
	})

	t.Run("bad flag", func(t *testing.T) {
		path := writeFile(t, "weights.csv", "ingredient,weight,use_for_consumption\npalm,1,maybe\n")
		_, err := NewStore().LoadWeights(ctx, path)
		assert.ErrorIs(t, err, domain.ErrInvalidWeightTable)
	})
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"True", true, false},
		{"FALSE", false, false},
		{"1", true, false},
		{" yes ", true, false},
		{"n", false, false},
		{"perhaps", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBool(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteReport(t *testing.T) {
	ctx := context.Background()
	table := &domain.Table{
		Columns: []string{"Name", "score"},
		Rows: []domain.Row{
			{Values: map[string]string{"Name": "Cookie, large", "score": "1.000000"}},
			{Values: map[string]string{"Name": "Bread"}},
		},
	}

	t.Run("round trips through the reader", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		require.NoError(t, NewStore().WriteReport(ctx, path, table))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Name,score\n\"Cookie, large\",1.000000\nBread,\n", string(data))

		back, err := NewStore().LoadProducts(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, table.Columns, back.Columns)
		assert.Equal(t, "Cookie, large", back.Rows[0].Values["Name"])
	})

	t.Run("empty path", func(t *testing.T) {
		err := NewStore().WriteReport(ctx, "", table)
		assert.ErrorIs(t, err, domain.ErrMissingRequiredInput)
	})

	t.Run("writer", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteTable(ctx, &buf, &domain.Table{Columns: []string{"a"}}))
		assert.Equal(t, "a\n", buf.String())
	})
}
