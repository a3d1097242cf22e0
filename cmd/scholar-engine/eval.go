// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholar-engine/internal/evaluate"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate retrieval and answer quality against a labeled question set",
	Long: `Eval runs every labeled test question through retrieval and the answer
pipeline, then reports recall@k, precision@k, and MRR per retrieval depth,
plus concept coverage, citation rate, and mean answer length for the
generated answers. Questions with missing or unknown ground truth are
skipped and listed, never fatal.

Generated answers go through the response cache, so re-running an evaluation
against a warm cache reproduces the generation metrics without new API calls.`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().String("questions", "", "labeled question file, YAML or JSON (default from config)")
	evalCmd.Flags().IntSlice("k", nil, "retrieval depths to evaluate (default 3,5,10)")
	evalCmd.Flags().Int("workers", 0, "concurrent question workers (default 4)")
	evalCmd.Flags().Bool("json", false, "output the report as JSON instead of YAML")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if path, _ := cmd.Flags().GetString("questions"); path != "" {
		cfg.Eval.QuestionsPath = path
	}
	if ks, _ := cmd.Flags().GetIntSlice("k"); len(ks) > 0 {
		cfg.Eval.KValues = ks
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Eval.Workers = workers
	}
	if cfg.Eval.QuestionsPath == "" {
		return fmt.Errorf("no question file: set --questions or eval.questions_path")
	}

	questions, err := evaluate.LoadQuestions(cfg.Eval.QuestionsPath)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("question file %s is empty", cfg.Eval.QuestionsPath)
	}

	ctx := cmd.Context()
	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	knownPapers, err := comps.store.PaperIDSet(ctx)
	if err != nil {
		return err
	}

	harness := evaluate.New(comps.engine, comps.pipe, cfg.Eval)
	fmt.Fprintf(os.Stderr, "evaluating %d questions\n", len(questions))

	report, err := harness.Run(ctx, questions, knownPapers, os.Stderr)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return yaml.NewEncoder(os.Stdout).Encode(report)
}
