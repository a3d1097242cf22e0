// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate batch-drives the pipeline over labeled test questions and
// computes retrieval and generation quality metrics. Retrieval metrics are
// always recomputed live; generation metrics go through the response cache,
// so re-running against a warm cache reproduces them exactly.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/scholar-engine/internal/citation"
	"github.com/pdiddy/scholar-engine/internal/pipeline"
	"github.com/pdiddy/scholar-engine/internal/retrieval"
	"github.com/pdiddy/scholar-engine/pkg/types"
)

const (
	defaultWorkers = 4
)

var defaultKValues = []int{3, 5, 10}

// SkippedQuestion records one question excluded from the aggregates and why.
// Data errors on a single question never abort the run.
type SkippedQuestion struct {
	ID       int    `json:"id" yaml:"id"`
	Question string `json:"question" yaml:"question"`
	Reason   string `json:"reason" yaml:"reason"`
}

// Report is the full evaluation output: one retrieval metrics record per k,
// the generation aggregate, and the skipped questions.
type Report struct {
	Retrieval  []types.EvaluationMetrics `json:"retrieval" yaml:"retrieval"`
	Generation types.GenerationMetrics   `json:"generation" yaml:"generation"`
	Skipped    []SkippedQuestion         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// LoadQuestions reads a labeled question file, YAML or JSON by extension.
func LoadQuestions(path string) ([]types.TestQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question file %s: %w", path, err)
	}

	var questions []types.TestQuestion
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &questions)
	default:
		err = yaml.Unmarshal(data, &questions)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing question file %s: %w", path, err)
	}
	return questions, nil
}

// Harness runs the evaluation.
type Harness struct {
	engine  *retrieval.Engine
	pipe    *pipeline.Pipeline
	kValues []int
	workers int
}

// New creates a harness. Zero-valued config fields take the documented
// defaults (k in {3, 5, 10}, 4 workers).
func New(engine *retrieval.Engine, pipe *pipeline.Pipeline, cfg types.EvalConfig) *Harness {
	kValues := cfg.KValues
	if len(kValues) == 0 {
		kValues = defaultKValues
	}
	kValues = append([]int(nil), kValues...)
	sort.Ints(kValues)

	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Harness{engine: engine, pipe: pipe, kValues: kValues, workers: workers}
}

// questionResult holds one question's contribution to the aggregates. The
// reduction over results is commutative, so worker completion order does not
// affect the report.
type questionResult struct {
	skip *SkippedQuestion

	// perK maps k → {recall, precision, reciprocal rank}.
	perK map[int][3]float64

	genOK    bool
	coverage float64
	cited    bool
	words    int
}

// Run evaluates all questions with a bounded worker pool. knownPapers, when
// non-nil, validates ground-truth references; questions naming unknown papers
// are recorded and skipped. Progress notes go to w.
func (h *Harness) Run(ctx context.Context, questions []types.TestQuestion, knownPapers map[string]bool, w io.Writer) (Report, error) {
	results := make([]questionResult, len(questions))
	sem := make(chan struct{}, h.workers)
	var wg sync.WaitGroup

	for i, q := range questions {
		wg.Add(1)
		go func(i int, q types.TestQuestion) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = h.evaluateQuestion(ctx, q, knownPapers)
		}(i, q)
	}
	wg.Wait()

	return h.reduce(results, w), nil
}

func (h *Harness) evaluateQuestion(ctx context.Context, q types.TestQuestion, knownPapers map[string]bool) questionResult {
	if strings.TrimSpace(q.Question) == "" {
		return skipResult(q, "empty question")
	}
	if len(q.RelevantPapers) == 0 {
		return skipResult(q, "no ground truth papers")
	}
	if knownPapers != nil {
		for _, paperID := range q.RelevantPapers {
			if !knownPapers[paperID] {
				return skipResult(q, fmt.Sprintf("unknown paper id %q in ground truth", paperID))
			}
		}
	}

	relevant := make(map[string]bool, len(q.RelevantPapers))
	for _, paperID := range q.RelevantPapers {
		relevant[paperID] = true
	}

	res := questionResult{perK: make(map[int][3]float64, len(h.kValues))}

	for _, k := range h.kValues {
		cands, err := h.engine.Retrieve(ctx, q.Question, k)
		if err != nil {
			return skipResult(q, fmt.Sprintf("retrieval at k=%d: %v", k, err))
		}
		retrieved := make([]string, 0, len(cands))
		for _, c := range cands {
			retrieved = append(retrieved, c.Paper.ID)
		}
		recall, precision, rr := rankingMetrics(retrieved, relevant, k)
		res.perK[k] = [3]float64{recall, precision, rr}
	}

	answer, err := h.pipe.Ask(ctx, q.Question)
	if err != nil {
		// Retrieval metrics stand; only the generation aggregate loses this
		// question.
		return res
	}
	res.genOK = true
	res.coverage = conceptCoverage(answer.Text, q.ExpectedConcepts)
	res.cited = citation.HasCitation(answer.Text)
	res.words = wordCount(answer.Text)
	return res
}

func skipResult(q types.TestQuestion, reason string) questionResult {
	return questionResult{skip: &SkippedQuestion{ID: q.ID, Question: q.Question, Reason: reason}}
}

// reduce folds per-question results into the report with commutative sums.
func (h *Harness) reduce(results []questionResult, w io.Writer) Report {
	var report Report

	sums := make(map[int]*types.EvaluationMetrics, len(h.kValues))
	for _, k := range h.kValues {
		sums[k] = &types.EvaluationMetrics{K: k}
	}

	var gen types.GenerationMetrics

	for _, res := range results {
		if res.skip != nil {
			report.Skipped = append(report.Skipped, *res.skip)
			fmt.Fprintf(w, "skipped q%d: %s\n", res.skip.ID, res.skip.Reason)
			continue
		}
		for k, m := range res.perK {
			s := sums[k]
			s.RecallAtK += m[0]
			s.PrecisionAtK += m[1]
			s.MRR += m[2]
			s.Questions++
		}
		if res.genOK {
			gen.ConceptCoverage += res.coverage
			if res.cited {
				gen.CitationRate++
			}
			gen.MeanAnswerLength += float64(res.words)
			gen.Questions++
		}
	}

	for _, k := range h.kValues {
		s := sums[k]
		if s.Questions > 0 {
			n := float64(s.Questions)
			s.RecallAtK /= n
			s.PrecisionAtK /= n
			s.MRR /= n
		}
		report.Retrieval = append(report.Retrieval, *s)
	}

	if gen.Questions > 0 {
		n := float64(gen.Questions)
		gen.ConceptCoverage /= n
		gen.CitationRate /= n
		gen.MeanAnswerLength /= n
	}
	report.Generation = gen

	sort.Slice(report.Skipped, func(i, j int) bool { return report.Skipped[i].ID < report.Skipped[j].ID })
	return report
}
