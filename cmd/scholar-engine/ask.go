// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/scholar-engine/internal/pipeline"
)

// suggestedQuestions seed the interactive session.
var suggestedQuestions = []string{
	"What is ridge regression and how does it work?",
	"What is the difference between ridge regression and LASSO?",
	"Why does the LASSO produce sparse solutions?",
	"How is the ridge penalty parameter chosen?",
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the paper corpus",
	Long: `Ask answers a question from the indexed paper corpus. The question is
embedded, matched against stored chunks, and answered by the language model
grounded on the retrieved passages. Answers cite their sources and are cached,
so repeating a question is free.

With a question argument the command answers once and exits. Without one it
starts an interactive session.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int("top-k", 0, "number of passages to retrieve (default from config)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if topK, _ := cmd.Flags().GetInt("top-k"); topK > 0 {
		cfg.Retrieval.TopK = topK
	}

	ctx := cmd.Context()
	comps, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	if len(args) > 0 {
		return askOnce(ctx, comps.pipe, strings.Join(args, " "))
	}
	return askInteractive(ctx, comps.pipe)
}

func askOnce(ctx context.Context, pipe *pipeline.Pipeline, question string) error {
	answer, err := pipe.Ask(ctx, question)
	if err != nil {
		return describeAskError(err)
	}
	printAnswer(answer)
	return nil
}

func askInteractive(ctx context.Context, pipe *pipeline.Pipeline) error {
	fmt.Println("Ask questions about the paper corpus. Type 'quit' to exit.")
	fmt.Println("\nSuggested questions:")
	for i, q := range suggestedQuestions {
		fmt.Printf("  %d. %s\n", i+1, q)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "quit" || question == "exit" {
			break
		}

		answer, err := pipe.Ask(ctx, question)
		if err != nil {
			fmt.Fprintln(os.Stderr, describeAskError(err))
			continue
		}
		printAnswer(answer)
	}
	return scanner.Err()
}

func printAnswer(answer pipeline.Answer) {
	if answer.CacheHit {
		fmt.Println("(cached)")
	}
	fmt.Println(answer.Text)

	if len(answer.Sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, s := range answer.Sources {
		line := fmt.Sprintf("  [%d] %s", i+1, s.Title)
		if s.Section != "" {
			line += " (" + s.Section + ")"
		}
		if s.ArxivURL != "" {
			line += " " + s.ArxivURL
		}
		fmt.Println(line)
	}
}

// describeAskError maps pipeline failures to messages naming the stage that
// failed, mirroring the HTTP error payloads.
func describeAskError(err error) error {
	var genErr *pipeline.GenerationError
	if errors.As(err, &genErr) {
		return fmt.Errorf("answer generation failed (retrieval succeeded): %w", genErr.Err)
	}
	var retErr *pipeline.RetrievalError
	if errors.As(err, &retErr) {
		return fmt.Errorf("retrieval failed: %w", retErr.Err)
	}
	return err
}
