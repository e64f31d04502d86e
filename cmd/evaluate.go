package main

import (
	"encoding/json"
	"fmt"

	"bistro/internal/evaluation"
	"bistro/internal/monitoring"

	"github.com/spf13/cobra"
)

var (
	evaluateJSON bool
	evaluateMin  float64
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [scenario...]",
	Short: "Run the scripted evaluation scenarios",
	Long: `Run scripted conversations against the agents and score the replies.

Examples:
  bistro evaluate --offline
  bistro evaluate pickup_order delivery_order
  bistro evaluate --json | jq '.[].score'`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "Output results as JSON")
	evaluateCmd.Flags().Float64Var(&evaluateMin, "min-score", 0, "Fail when any scenario scores below this value")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	factory, err := a.factory()
	if err != nil {
		return err
	}

	modelName := "offline"
	if a.model != nil {
		modelName = a.cfg.LLM.Model
	}
	evaluator, err := evaluation.NewEvaluator(factory,
		evaluation.WithModelName(modelName),
		evaluation.WithLogger(a.logger),
		evaluation.WithRecorder(monitoring.NewMonitor(a.collector, monitoring.WithMonitorLogger(a.logger))),
	)
	if err != nil {
		return err
	}

	var results []*evaluation.EvaluationResult
	if len(args) == 0 {
		results, err = evaluator.EvaluateAll(ctx)
		if err != nil {
			return err
		}
	} else {
		for _, id := range args {
			r, err := evaluator.Evaluate(ctx, id)
			if err != nil {
				return err
			}
			results = append(results, r)
		}
	}

	out := cmd.OutOrStdout()
	if evaluateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			status := "PASS"
			if !r.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(out, "%-4s %-16s score=%.2f turns=%d\n", status, r.Scenario, r.Score, len(r.Events))
			for _, f := range r.Failures() {
				fmt.Fprintf(out, "     %s: expected %q, got %q\n", f.Name, f.Expected, f.Actual)
			}
		}
	}

	for _, r := range results {
		if r.Score < evaluateMin {
			return fmt.Errorf("scenario %s scored %.2f, below %.2f", r.Scenario, r.Score, evaluateMin)
		}
	}
	return nil
}
