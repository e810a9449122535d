package csvtable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/palmlens/scorer/internal/domain"
)

// Weight table column names
const (
	ColumnIngredient        = "ingredient"
	ColumnWeight            = "weight"
	ColumnUseForConsumption = "use_for_consumption"
)

// MapWeightTable converts weight table rows to domain weights. Rows with a
// blank ingredient are skipped.
func MapWeightTable(table *domain.Table) ([]domain.IngredientWeight, error) {
	for _, col := range []string{ColumnIngredient, ColumnWeight, ColumnUseForConsumption} {
		if !table.HasColumn(col) {
			return nil, &domain.MissingInputError{Field: "weight table column " + col}
		}
	}

	weights := make([]domain.IngredientWeight, 0, len(table.Rows))
	for _, row := range table.Rows {
		pattern := row.Values[ColumnIngredient]
		if strings.TrimSpace(pattern) == "" {
			continue
		}

		w, err := mapWeightRow(row)
		if err != nil {
			return nil, err
		}
		weights = append(weights, w)
	}

	return weights, nil
}

func mapWeightRow(row domain.Row) (domain.IngredientWeight, error) {
	pattern := row.Values[ColumnIngredient]

	weight, err := strconv.ParseFloat(strings.TrimSpace(row.Values[ColumnWeight]), 64)
	if err != nil {
		return domain.IngredientWeight{}, fmt.Errorf("%w: line %d: weight %q for %q",
			domain.ErrInvalidWeightTable, row.Line, row.Values[ColumnWeight], pattern)
	}

	use, err := ParseBool(row.Values[ColumnUseForConsumption])
	if err != nil {
		return domain.IngredientWeight{}, fmt.Errorf("%w: line %d: use_for_consumption %q for %q",
			domain.ErrInvalidWeightTable, row.Line, row.Values[ColumnUseForConsumption], pattern)
	}

	return domain.IngredientWeight{
		Pattern:           pattern,
		Weight:            weight,
		UseForConsumption: use,
	}, nil
}

// ParseBool accepts strconv.ParseBool forms plus yes/no in any case. An empty
// value is false.
func ParseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return false, nil
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(s))
}
