package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rahul/tasksmith/internal/decompose"
	"github.com/rahul/tasksmith/internal/observability"
	"github.com/rahul/tasksmith/internal/plan"
	"github.com/rahul/tasksmith/pkg/config"
	"github.com/spf13/cobra"
)

var (
	description string
	category    string
	goal        string
	jsonOutput  bool
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose [title]",
	Short: "Decompose one task and print its steps",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDecompose,
}

func init() {
	decomposeCmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	decomposeCmd.Flags().StringVar(&category, "category", string(plan.DefaultCategory), "Timeframe: short-term, mid-term or long-term")
	decomposeCmd.Flags().StringVar(&goal, "goal", "", "Optional goal that replaces the description")
	decomposeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
}

func runDecompose(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	// events go to stderr so stdout stays parseable
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), "")
	eng, err := buildEngine(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	tc := plan.TaskContext{
		Title:       strings.Join(args, " "),
		Description: description,
		Category:    plan.ParseCategory(category),
		Goal:        goal,
	}
	res := eng.Decomposer.Decompose(ctx, tc)
	return printResult(cmd.OutOrStdout(), tc, res)
}

func printResult(w io.Writer, tc plan.TaskContext, res decompose.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(w, "%s [%s] (%s after %d attempts)\n", tc.Title, tc.Category, res.Source, res.Attempts)
	for i, s := range res.Steps {
		flag := "required"
		if !s.Mandatory {
			flag = "optional"
		}
		fmt.Fprintf(w, "%d. %s (%s, %s)\n", i+1, s.Title, s.Deadline, flag)
	}
	return nil
}
