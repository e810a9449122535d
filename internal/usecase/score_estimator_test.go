package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palmlens/scorer/internal/domain"
)

func TestScoreEstimator(t *testing.T) {
	s := NewScoreEstimator(mustMatcher(t,
		domain.IngredientWeight{Pattern: "palm", Weight: 2},
		domain.IngredientWeight{Pattern: "kernel", Weight: 1},
	))

	t.Run("linear position decay", func(t *testing.T) {
		// palm oil: 2 * 3/3, sugar: 0, palm kernel oil: 3 * 1/3
		got := s.Score([]string{"Palm Oil", "sugar", "palm kernel oil"})
		assert.InDelta(t, 3.0, got, 1e-12)
	})

	t.Run("fractional weights are not truncated", func(t *testing.T) {
		half := NewScoreEstimator(mustMatcher(t, domain.IngredientWeight{Pattern: "palm", Weight: 0.5}))
		assert.InDelta(t, 0.5, half.Score([]string{"palm oil"}), 1e-12)
	})

	t.Run("no tokens", func(t *testing.T) {
		assert.Equal(t, 0.0, s.Score(nil))
	})

	t.Run("declaration is flattened on separators", func(t *testing.T) {
		// tokens: "margarine (palm oil", "water)"
		got := s.ScoreDeclaration("margarine (palm oil, water)")
		assert.InDelta(t, 2.0, got, 1e-12)
	})
}
