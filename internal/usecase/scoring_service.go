package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/palmlens/scorer/internal/domain"
	"github.com/palmlens/scorer/internal/infrastructure/logging"
)

// Pipeline stages reported to the RunRecorder
const (
	StageLoad     = "load"
	StageFilter   = "filter"
	StageEstimate = "estimate"
	StageScore    = "score"
	StageWrite    = "write"
)

const (
	defaultFloatPrecision       = 6
	defaultConsumptionColumn    = "Estimated Ingredient Consumption (g)"
	defaultScoreColumn          = "score"
	defaultGramsPerDollarColumn = "g/$"
	progressInterval            = 2 * time.Second
)

// ScoringServiceConfig holds configuration for the scoring pipeline
type ScoringServiceConfig struct {
	Columns              domain.Columns
	ActiveValue          string
	OnlyMatching         bool
	ScoreEnabled         bool
	NormalizeWeight      bool
	Strict               bool
	FloatPrecision       int
	ConsumptionColumn    string
	ScoreColumn          string
	GramsPerDollarColumn string
	Estimator            EstimatorConfig
}

// RunRequest names the files of one batch run
type RunRequest struct {
	ProductsPath string
	WeightsPath  string
	OutputPath   string
}

// ScoringService runs the load, filter, estimate, score and write pipeline
type ScoringService struct {
	products domain.ProductRepository
	weights  domain.WeightRepository
	reports  domain.ReportWriter
	recorder domain.RunRecorder
	logger   logging.Logger
	config   ScoringServiceConfig
}

// NewScoringService creates a scoring service. recorder and logger may be nil.
func NewScoringService(
	products domain.ProductRepository,
	weights domain.WeightRepository,
	reports domain.ReportWriter,
	recorder domain.RunRecorder,
	logger logging.Logger,
	config ScoringServiceConfig,
) *ScoringService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if config.FloatPrecision < 0 {
		config.FloatPrecision = defaultFloatPrecision
	}
	if config.ConsumptionColumn == "" {
		config.ConsumptionColumn = defaultConsumptionColumn
	}
	if config.ScoreColumn == "" {
		config.ScoreColumn = defaultScoreColumn
	}
	if config.GramsPerDollarColumn == "" {
		config.GramsPerDollarColumn = defaultGramsPerDollarColumn
	}

	return &ScoringService{
		products: products,
		weights:  weights,
		reports:  reports,
		recorder: recorder,
		logger:   logger,
		config:   config,
	}
}

// Run scores every product in the request and writes the report.
// Rows that fail are logged and written with empty derived columns unless
// Strict is set, in which case the first failure aborts the run before
// anything is written.
func (s *ScoringService) Run(ctx context.Context, req RunRequest) (*domain.RunSummary, error) {
	summary := &domain.RunSummary{RunID: uuid.NewString()}
	log := s.logger.With(logging.String("run_id", summary.RunID))

	// load
	start := time.Now()
	log.Info("loading inputs",
		logging.String("products", req.ProductsPath),
		logging.String("weights", req.WeightsPath))

	table, err := s.products.LoadProducts(ctx, req.ProductsPath)
	if err != nil {
		return nil, err
	}
	weights, err := s.weights.LoadWeights(ctx, req.WeightsPath)
	if err != nil {
		return nil, err
	}
	if err := s.checkColumns(table); err != nil {
		return nil, err
	}

	matcher, err := NewIngredientMatcher(weights)
	if err != nil {
		return nil, err
	}
	estimator, err := NewConsumptionEstimator(matcher, s.config.Estimator)
	if err != nil {
		return nil, err
	}
	scorer := NewScoreEstimator(matcher)

	summary.RowsRead = len(table.Rows)
	s.finishStage(log, StageLoad, start, logging.Int("rows", summary.RowsRead), logging.Int("patterns", matcher.Len()))

	// filter
	start = time.Now()
	rows := s.filterRows(table, matcher)
	summary.Filtered = summary.RowsRead - len(rows)
	for i := 0; i < summary.Filtered; i++ {
		s.recorder.ObserveRow(domain.OutcomeFiltered)
	}
	s.finishStage(log, StageFilter, start, logging.Int("kept", len(rows)), logging.Int("filtered", summary.Filtered))

	// estimate
	start = time.Now()
	log.Info("calculating estimated consumption")
	progress := rate.Sometimes{Interval: progressInterval}
	results := make([]domain.ScoreResult, 0, len(rows))
	for i, row := range rows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result := s.scoreRow(row, estimator, scorer)
		if result.Err != nil {
			if s.config.Strict {
				return nil, fmt.Errorf("line %d: %w", row.Line, result.Err)
			}
			log.Warn("row failed, writing it without derived values",
				logging.Int("line", row.Line),
				logging.Err(result.Err))
			summary.Failed++
			s.recorder.ObserveRow(domain.OutcomeFailed)
		} else {
			summary.Scored++
			s.recorder.ObserveRow(domain.OutcomeScored)
		}
		results = append(results, result)

		progress.Do(func() {
			log.Info("estimating", logging.Int("done", i+1), logging.Int("total", len(rows)))
		})
	}
	s.finishStage(log, StageEstimate, start, logging.Int("scored", summary.Scored), logging.Int("failed", summary.Failed))

	// score
	if s.config.ScoreEnabled {
		start = time.Now()
		log.Info("calculating scores")
		s.applyWeightFactor(results)
		sortByScore(results)
		s.finishStage(log, StageScore, start)
	}

	// write
	start = time.Now()
	log.Info("writing report", logging.String("path", req.OutputPath))
	if err := s.reports.WriteReport(ctx, req.OutputPath, s.buildReport(results)); err != nil {
		return nil, err
	}
	s.finishStage(log, StageWrite, start)

	s.recorder.MarkCompleted(time.Now())
	return summary, nil
}

func (s *ScoringService) finishStage(log logging.Logger, stage string, start time.Time, fields ...logging.Field) {
	elapsed := time.Since(start)
	s.recorder.ObserveStage(stage, elapsed)
	log.Info("stage finished", append([]logging.Field{
		logging.String("stage", stage),
		logging.Duration("elapsed", elapsed),
	}, fields...)...)
}

// checkColumns fails fast when a configured column is absent from the table
func (s *ScoringService) checkColumns(table *domain.Table) error {
	cols := s.config.Columns
	required := []string{cols.Declaration, cols.Weight}
	if cols.Cost != "" {
		required = append(required, cols.Cost)
	}
	required = append(required, cols.Retain...)

	for _, name := range required {
		if name == "" {
			continue
		}
		if !table.HasColumn(name) {
			return &domain.MissingInputError{Field: "column " + strconv.Quote(name)}
		}
	}
	if cols.Declaration == "" {
		return &domain.MissingInputError{Field: "declaration column"}
	}
	if cols.Weight == "" {
		return &domain.MissingInputError{Field: "weight column"}
	}
	return nil
}

// filterRows keeps active rows and, when OnlyMatching is set, rows that
// mention a consumption-flagged ingredient
func (s *ScoringService) filterRows(table *domain.Table, matcher *IngredientMatcher) []domain.Row {
	status := s.config.Columns.Status
	filterStatus := status != "" && s.config.ActiveValue != "" && table.HasColumn(status)

	rows := make([]domain.Row, 0, len(table.Rows))
	for _, row := range table.Rows {
		if filterStatus && !strings.Contains(row.Values[status], s.config.ActiveValue) {
			continue
		}
		if s.config.OnlyMatching && !matcher.MatchesConsumption(row.Values[s.config.Columns.Declaration]) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *ScoringService) scoreRow(row domain.Row, estimator *ConsumptionEstimator, scorer *ScoreEstimator) domain.ScoreResult {
	result := domain.ScoreResult{Row: row}

	product, err := s.mapProduct(row)
	if err != nil {
		result.Err = err
		return result
	}
	result.Product = product

	nodes, err := ParseDeclaration(product.Declaration)
	if err != nil {
		result.Err = err
		return result
	}

	result.EstimatedConsumptionGrams = estimator.EstimateGrams(nodes, product.Weight)
	result.HasConsumption = true

	if s.config.ScoreEnabled {
		result.Score = scorer.ScoreDeclaration(product.Declaration)
		result.HasScore = true
	}

	if product.HasCost && product.Cost != 0 {
		result.GramsPerDollar = roundTo(product.Weight/product.Cost, 3)
		result.HasGramsPerDollar = true
	}

	return result
}

func (s *ScoringService) mapProduct(row domain.Row) (*domain.Product, error) {
	cols := s.config.Columns
	product := &domain.Product{
		Row:         row,
		Declaration: row.Values[cols.Declaration],
	}

	weight, err := parseNumber(row.Values[cols.Weight])
	if err != nil {
		return nil, fmt.Errorf("%w: weight %q", domain.ErrInvalidNumber, row.Values[cols.Weight])
	}
	product.Weight = weight

	if cols.Cost != "" {
		raw := strings.TrimSpace(row.Values[cols.Cost])
		if raw != "" {
			cost, err := parseNumber(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: cost %q", domain.ErrInvalidNumber, raw)
			}
			product.Cost = cost
			product.HasCost = true
		}
	}

	return product, nil
}

// parseNumber accepts plain decimals, tolerating a leading dollar sign
func parseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if raw == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(raw, 64)
}

// applyWeightFactor multiplies each score by the product weight, or by
// weight divided by the heaviest product when NormalizeWeight is set
func (s *ScoringService) applyWeightFactor(results []domain.ScoreResult) {
	maxWeight := 0.0
	for _, r := range results {
		if r.HasScore && r.Product.Weight > maxWeight {
			maxWeight = r.Product.Weight
		}
	}

	for i := range results {
		r := &results[i]
		if !r.HasScore {
			continue
		}
		factor := r.Product.Weight
		if s.config.NormalizeWeight {
			factor = 0
			if maxWeight > 0 {
				factor = r.Product.Weight / maxWeight
			}
		}
		r.Score *= factor
	}
}

// sortByScore orders by ascending score with failed rows last, keeping
// input order among ties
func sortByScore(results []domain.ScoreResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.HasScore != b.HasScore {
			return a.HasScore
		}
		return a.Score < b.Score
	})
}

func (s *ScoringService) buildReport(results []domain.ScoreResult) *domain.Table {
	derived := []string{s.config.ConsumptionColumn}
	if s.config.ScoreEnabled {
		derived = append(derived, s.config.ScoreColumn)
	}
	if s.config.Columns.Cost != "" {
		derived = append(derived, s.config.GramsPerDollarColumn)
	}

	isDerived := make(map[string]bool, len(derived))
	for _, d := range derived {
		isDerived[d] = true
	}

	columns := make([]string, 0, len(s.config.Columns.Retain)+len(derived))
	for _, c := range s.config.Columns.Retain {
		if !isDerived[c] {
			columns = append(columns, c)
		}
	}
	columns = append(columns, derived...)

	report := &domain.Table{Columns: columns, Rows: make([]domain.Row, 0, len(results))}
	for _, r := range results {
		values := make(map[string]string, len(columns))
		for _, c := range s.config.Columns.Retain {
			values[c] = r.Row.Values[c]
		}
		values[s.config.ConsumptionColumn] = s.formatFloat(r.EstimatedConsumptionGrams, r.HasConsumption)
		if s.config.ScoreEnabled {
			values[s.config.ScoreColumn] = s.formatFloat(r.Score, r.HasScore)
		}
		if s.config.Columns.Cost != "" {
			values[s.config.GramsPerDollarColumn] = s.formatFloat(r.GramsPerDollar, r.HasGramsPerDollar)
		}
		report.Rows = append(report.Rows, domain.Row{Line: r.Row.Line, Values: values})
	}
	return report
}

func (s *ScoringService) formatFloat(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', s.config.FloatPrecision, 64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRow(string)                  {}
func (nopRecorder) ObserveStage(string, time.Duration) {}
func (nopRecorder) MarkCompleted(time.Time)            {}
