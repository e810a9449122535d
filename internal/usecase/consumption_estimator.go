package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/palmlens/scorer/internal/domain"
)

const (
	defaultMayContainPattern      = `(?i)may contain`
	defaultPercentPattern         = `(\d+(?:\.\d+)?)\s*%`
	defaultGroupCollapseThreshold = 0.99
	defaultPositionDecay          = 0.5
)

// EstimatorConfig holds configuration for the consumption estimator
type EstimatorConfig struct {
	MayContainPattern      string
	PercentPattern         string
	GroupCollapseThreshold float64
	PositionDecay          float64
}

// ConsumptionEstimator estimates the mass fraction of a declaration made up
// of consumption-flagged ingredients.
type ConsumptionEstimator struct {
	matcher           *IngredientMatcher
	mayContain        *regexp.Regexp
	percent           *regexp.Regexp
	collapseThreshold float64
	positionDecay     float64
}

// NewConsumptionEstimator creates an estimator, filling unset config fields
// with defaults.
func NewConsumptionEstimator(matcher *IngredientMatcher, config EstimatorConfig) (*ConsumptionEstimator, error) {
	if matcher == nil {
		return nil, fmt.Errorf("consumption estimator requires a matcher")
	}

	mayContainPattern := config.MayContainPattern
	if mayContainPattern == "" {
		mayContainPattern = defaultMayContainPattern
	}
	mayContain, err := regexp.Compile(mayContainPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: may contain pattern %q: %v", domain.ErrInvalidPattern, mayContainPattern, err)
	}

	percentPattern := config.PercentPattern
	if percentPattern == "" {
		percentPattern = defaultPercentPattern
	}
	percent, err := regexp.Compile(percentPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: percent pattern %q: %v", domain.ErrInvalidPattern, percentPattern, err)
	}

	threshold := config.GroupCollapseThreshold
	if threshold <= 0 {
		threshold = defaultGroupCollapseThreshold
	}

	decay := config.PositionDecay
	if decay <= 0 {
		decay = defaultPositionDecay
	}

	return &ConsumptionEstimator{
		matcher:           matcher,
		mayContain:        mayContain,
		percent:           percent,
		collapseThreshold: threshold,
		positionDecay:     decay,
	}, nil
}

// EstimateGrams returns the estimated grams of target ingredient in a
// product of the given total weight, rounded to 3 decimal places.
func (e *ConsumptionEstimator) EstimateGrams(nodes []domain.Node, totalWeight float64) float64 {
	return roundTo(e.Fraction(nodes)*totalWeight, 3)
}

// Fraction returns the estimated fraction in [0,1] of the declaration that
// consists of consumption-flagged ingredients. Earlier siblings count more,
// a percent qualifier scales it and every later sibling, and a "may contain"
// clause ends the level.
func (e *ConsumptionEstimator) Fraction(nodes []domain.Node) float64 {
	n := float64(len(nodes))
	numerator := 0.0
	denominator := 0.0
	reweight := 1.0

	for i, node := range nodes {
		text := node.Text
		if e.mayContain.MatchString(text) {
			break
		}

		if pct, ok := e.percentOf(text); ok {
			reweight = pct
		}
		score := math.Exp(-float64(i)/(n*e.positionDecay)) * reweight

		weight := 1.0
		if match, ok := e.matcher.FindWeight(text); ok {
			weight = match.Weight
			if match.UseForConsumption {
				numerator += score * weight
			}
		} else if node.IsGroup() {
			sub := e.Fraction(node.Children)
			// a group that is essentially one ingredient takes that ingredient's weight
			if sub >= e.collapseThreshold {
				if first, ok := e.matcher.FindWeight(node.Children[0].Text); ok {
					weight = first.Weight
				}
			}
			numerator += score * weight * sub
		}

		denominator += score * weight
	}

	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// percentOf extracts the first percentage in text as a fraction of 1
func (e *ConsumptionEstimator) percentOf(text string) (float64, bool) {
	m := e.percent.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	raw := m[0]
	if len(m) > 1 && m[1] != "" {
		raw = m[1]
	}
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
