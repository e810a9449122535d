package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palmlens/scorer/internal/domain"
	"github.com/palmlens/scorer/internal/infrastructure/csvtable"
	"github.com/palmlens/scorer/internal/usecase"
)

const parseLong = `parse shows how a declaration is split into ingredients and groups.
With --weights it also shows the matched pattern of every node and the
estimated consumption fraction.`

func newParseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "parse <declaration>",
		Short:   "Print the parsed tree of one ingredient declaration",
		Long:    parseLong,
		Example: `  palmlens parse "cocoa (sugar, cocoa butter), palm oil" --weights weights.csv`,
		Args:    cobra.ExactArgs(1),
		RunE:    runParse,
	}

	cmd.Flags().String("weights", "", "CSV file with the ingredient weights")
	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	nodes, err := usecase.ParseDeclaration(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Input.Weights == "" {
		printTree(out, nodes, nil, 0)
		return nil
	}

	weights, err := csvtable.NewStore().LoadWeights(cmd.Context(), cfg.Input.Weights)
	if err != nil {
		return err
	}
	matcher, err := usecase.NewIngredientMatcher(weights)
	if err != nil {
		return err
	}
	estimator, err := usecase.NewConsumptionEstimator(matcher, estimatorConfig(cfg))
	if err != nil {
		return err
	}

	printTree(out, nodes, matcher, 0)
	fmt.Fprintf(out, "fraction: %.*f\n", cfg.Output.FloatPrecision, estimator.Fraction(nodes))
	return nil
}

func printTree(w io.Writer, nodes []domain.Node, matcher *usecase.IngredientMatcher, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		text := n.Text
		if n.IsGroup() && text == "" {
			text = "(group)"
		}

		line := indent + text
		if matcher != nil {
			if m, ok := matcher.FindWeight(n.Text); ok {
				line += fmt.Sprintf("  [%s weight=%g consumption=%t]", m.Pattern, m.Weight, m.UseForConsumption)
			}
		}
		fmt.Fprintln(w, line)

		if n.IsGroup() {
			printTree(w, n.Children, matcher, depth+1)
		}
	}
}
