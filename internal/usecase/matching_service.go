package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/palmlens/scorer/internal/domain"
)

// compiledPattern is a weight-table row with its pattern compiled once
type compiledPattern struct {
	weight domain.IngredientWeight
	re     *regexp.Regexp
	lower  string
}

// IngredientMatcher matches declaration tokens against the ingredient
// weight table. It is read-only after construction and safe to share
// across rows.
type IngredientMatcher struct {
	patterns []compiledPattern
}

// NewIngredientMatcher compiles every pattern case-insensitively, keeping
// table order.
func NewIngredientMatcher(weights []domain.IngredientWeight) (*IngredientMatcher, error) {
	patterns := make([]compiledPattern, 0, len(weights))
	for i, w := range weights {
		if strings.TrimSpace(w.Pattern) == "" {
			return nil, fmt.Errorf("%w: row %d has an empty pattern", domain.ErrInvalidWeightTable, i+1)
		}
		if w.Weight < 0 {
			return nil, fmt.Errorf("%w: pattern %q has negative weight %v", domain.ErrInvalidWeightTable, w.Pattern, w.Weight)
		}
		re, err := regexp.Compile("(?i)" + w.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidPattern, w.Pattern, err)
		}
		patterns = append(patterns, compiledPattern{
			weight: w,
			re:     re,
			lower:  strings.ToLower(w.Pattern),
		})
	}
	return &IngredientMatcher{patterns: patterns}, nil
}

// Len returns the number of patterns in the table
func (m *IngredientMatcher) Len() int {
	return len(m.patterns)
}

// FindWeight returns the first pattern, in table order, found anywhere in
// the token. The boolean is false when nothing matches.
func (m *IngredientMatcher) FindWeight(token string) (domain.Match, bool) {
	for _, p := range m.patterns {
		if p.re.MatchString(token) {
			return domain.Match{
				Pattern:           p.weight.Pattern,
				Weight:            p.weight.Weight,
				UseForConsumption: p.weight.UseForConsumption,
			}, true
		}
	}
	return domain.Match{}, false
}

// SumContained adds the weights of every pattern whose literal text is a
// case-insensitive substring of the token.
func (m *IngredientMatcher) SumContained(token string) float64 {
	lower := strings.ToLower(token)
	total := 0.0
	for _, p := range m.patterns {
		if strings.Contains(lower, p.lower) {
			total += p.weight.Weight
		}
	}
	return total
}

// MatchesConsumption reports whether any consumption-flagged pattern occurs
// in the declaration text.
func (m *IngredientMatcher) MatchesConsumption(declaration string) bool {
	for _, p := range m.patterns {
		if p.weight.UseForConsumption && p.re.MatchString(declaration) {
			return true
		}
	}
	return false
}
