package domain

import (
	"context"
	"time"
)

// ProductRepository loads the product table
type ProductRepository interface {
	LoadProducts(ctx context.Context, path string) (*Table, error)
}

// WeightRepository loads the ingredient weight table in file order
type WeightRepository interface {
	LoadWeights(ctx context.Context, path string) ([]IngredientWeight, error)
}

// ReportWriter writes the scored product table
type ReportWriter interface {
	WriteReport(ctx context.Context, path string, table *Table) error
}

// RunRecorder receives batch progress for metrics
type RunRecorder interface {
	ObserveRow(outcome string)
	ObserveStage(stage string, d time.Duration)
	MarkCompleted(at time.Time)
}

// Row outcomes reported to a RunRecorder
const (
	OutcomeScored   = "scored"
	OutcomeFailed   = "failed"
	OutcomeFiltered = "filtered"
)
