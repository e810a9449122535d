package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/palmlens/scorer/config"
	"github.com/palmlens/scorer/internal/domain"
	"github.com/palmlens/scorer/internal/infrastructure/csvtable"
	"github.com/palmlens/scorer/internal/infrastructure/logging"
	"github.com/palmlens/scorer/internal/infrastructure/metrics"
	"github.com/palmlens/scorer/internal/usecase"
)

// positionalFlags lists the flags that may also be given positionally, in order
var positionalFlags = []string{"data", "out", "weights", "cols", "icol", "wcol"}

const scoreExample = `  palmlens score products.csv out.csv weights.csv "Name,Ingredients,Weight" Ingredients Weight --ccol Price -s
  palmlens score --data products.csv --out out.csv --weights weights.csv --cols Name --icol Ingredients --wcol Weight`

func newScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "score [data out weights cols icol wcol]",
		Short:   "Score a product table and write the report",
		Example: scoreExample,
		Args:    cobra.MaximumNArgs(len(positionalFlags)),
		RunE:    runScore,
	}

	f := cmd.Flags()
	f.String("data", "", "CSV file with the product data")
	f.String("out", "", "CSV file the report is written to")
	f.String("weights", "", "CSV file with the ingredient weights (ingredient, weight, use_for_consumption)")
	f.String("cols", "", "comma separated product columns to keep in the report")
	f.String("icol", "", "ingredient declaration column")
	f.String("wcol", "", "product weight column")
	f.String("ccol", "", "product cost column; adds g/$ to the report")
	f.BoolP("score", "s", false, "also calculate the position-weighted score and sort by it")
	f.BoolP("verbose", "v", false, "log progress for each pipeline stage")
	f.Bool("strict", false, "abort on the first row that fails instead of skipping it")
	f.String("metrics-file", "", "write run metrics in Prometheus text format to this file")

	return cmd
}

// applyPositional copies positional arguments into flags not set explicitly
func applyPositional(flags *pflag.FlagSet, args []string) error {
	for i, arg := range args {
		name := positionalFlags[i]
		if flags.Changed(name) {
			return fmt.Errorf("%s given both positionally and as --%s", name, name)
		}
		if err := flags.Set(name, arg); err != nil {
			return err
		}
	}
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	if err := applyPositional(cmd.Flags(), args); err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.RequireScoreInputs(); err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return &ExitError{Code: ExitUsage, Err: err}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store := csvtable.NewStore()
	batchMetrics := metrics.NewBatchMetrics()
	service := usecase.NewScoringService(store, store, store, batchMetrics, logger, scoringConfig(cfg))

	summary, runErr := service.Run(cmd.Context(), usecase.RunRequest{
		ProductsPath: cfg.Input.Products,
		WeightsPath:  cfg.Input.Weights,
		OutputPath:   cfg.Output.Path,
	})

	if cfg.Run.MetricsFile != "" {
		if err := batchMetrics.WriteTextfile(cfg.Run.MetricsFile); err != nil {
			logger.Warn("could not write metrics file", logging.Err(err))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, domain.ErrMissingRequiredInput) {
			return &ExitError{Code: ExitUsage, Err: runErr}
		}
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Scores written to %q: %d rows read, %d filtered, %d scored, %d failed\n",
		cfg.Output.Path, summary.RowsRead, summary.Filtered, summary.Scored, summary.Failed)
	return nil
}

func scoringConfig(cfg *config.Config) usecase.ScoringServiceConfig {
	return usecase.ScoringServiceConfig{
		Columns:              cfg.ProductColumns(),
		ActiveValue:          cfg.Filter.ActiveValue,
		OnlyMatching:         cfg.Filter.OnlyMatching,
		ScoreEnabled:         cfg.Score.Enabled,
		NormalizeWeight:      cfg.Score.NormalizeWeight,
		Strict:               cfg.Run.Strict,
		FloatPrecision:       cfg.Output.FloatPrecision,
		ConsumptionColumn:    cfg.Output.ConsumptionColumn,
		ScoreColumn:          cfg.Output.ScoreColumn,
		GramsPerDollarColumn: cfg.Output.GramsPerDollarColumn,
		Estimator:            estimatorConfig(cfg),
	}
}

func estimatorConfig(cfg *config.Config) usecase.EstimatorConfig {
	return usecase.EstimatorConfig{
		MayContainPattern:      cfg.Matching.MayContainPattern,
		PercentPattern:         cfg.Matching.PercentPattern,
		GroupCollapseThreshold: cfg.Matching.GroupCollapseThreshold,
		PositionDecay:          cfg.Matching.PositionDecay,
	}
}
