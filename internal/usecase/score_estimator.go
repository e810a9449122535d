package usecase

// ScoreEstimator computes the flat position-weighted ingredient score
type ScoreEstimator struct {
	matcher *IngredientMatcher
}

// NewScoreEstimator creates a score estimator over the given matcher
func NewScoreEstimator(matcher *IngredientMatcher) *ScoreEstimator {
	return &ScoreEstimator{matcher: matcher}
}

// Score sums, for each token, the weights of every pattern it contains,
// scaled by (n-i)/n so earlier tokens count more.
func (s *ScoreEstimator) Score(tokens []string) float64 {
	n := float64(len(tokens))
	total := 0.0
	for i, token := range tokens {
		weight := s.matcher.SumContained(token)
		if weight == 0 {
			continue
		}
		total += weight * (n - float64(i)) / n
	}
	return total
}

// ScoreDeclaration flattens the declaration and scores its tokens
func (s *ScoreEstimator) ScoreDeclaration(declaration string) float64 {
	return s.Score(FlattenDeclaration(declaration))
}
