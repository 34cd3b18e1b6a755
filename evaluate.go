package pnideval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/swdee/go-pnideval/apeval"
	"github.com/swdee/go-pnideval/filter"
	"github.com/swdee/go-pnideval/match"
	"github.com/swdee/go-pnideval/region"
	"github.com/swdee/go-pnideval/report"
	"github.com/swdee/go-pnideval/stats"
)

// Evaluation compares ground truth with detections drawing by drawing
type Evaluation struct {
	Policy match.ThresholdPolicy
	Filter filter.Params
	Stats  stats.Options
	// AP is run on the unfiltered detections, nil skips AP
	AP apeval.Evaluator
	// SymbolOnly additionally runs AP with the text classes removed
	SymbolOnly bool
	// Workers bounds the drawings evaluated concurrently
	Workers int
	Logger  *slog.Logger
}

// DrawingResult is the outcome for one drawing
type DrawingResult struct {
	Stats stats.Drawing
	// Matched holds the filtered set and its matching
	Matched report.Matched
}

// EvaluationResult is the outcome of a run in drawing id order
type EvaluationResult struct {
	Drawings []DrawingResult
	Corpus   stats.Corpus
	AP       *apeval.Summary
	SymbolAP *apeval.Summary
}

// Matched returns the matched sets of every drawing
func (r *EvaluationResult) Matched() []report.Matched {

	res := make([]report.Matched, len(r.Drawings))

	for i, d := range r.Drawings {
		res[i] = d.Matched
	}

	return res
}

// Drawing evaluates a single region set.  Detections are score filtered and
// NMS suppressed before matching.
func (e *Evaluation) Drawing(set region.Set) DrawingResult {

	filtered := set.WithDetections(filter.Apply(set.Detections, e.Filter))
	m := match.Match(filtered.GroundTruth, filtered.Detections, e.Policy)

	return DrawingResult{
		Stats:   stats.Compute(filtered, m, e.Stats),
		Matched: report.Matched{Set: filtered, Mapping: m},
	}
}

// Run evaluates every set.  progress, if not nil, is called once per
// drawing and may be called from several goroutines.
func (e *Evaluation) Run(ctx context.Context, sets []region.Set, progress func()) (*EvaluationResult, error) {

	log := e.Logger

	if log == nil {
		log = slog.Default()
	}

	pool := NewPool(e.Workers, log)
	defer pool.Close()

	res := &EvaluationResult{
		Drawings: make([]DrawingResult, len(sets)),
	}

	err := pool.Run(ctx, len(sets), func(w *Worker, i int) {

		// results are stored by index so the order does not depend on
		// scheduling
		res.Drawings[i] = e.Drawing(sets[i])

		d := res.Drawings[i].Stats
		w.log.Debug("drawing evaluated", "drawing", d.DrawingID,
			"detected", d.Detected, "predictions", d.Predictions, "ground_truth", d.GroundTruth)

		if progress != nil {
			progress()
		}
	})

	if err != nil {
		return nil, err
	}

	for _, d := range res.Drawings {
		res.Corpus.Add(d.Stats)
	}

	if e.AP != nil {
		res.AP = e.runAP(log, "all", sets)

		if e.SymbolOnly {
			symbols := make([]region.Set, len(sets))

			for i, s := range sets {
				symbols[i] = s.Filter(func(c region.ClassID) bool {
					return !e.Stats.TextClasses[c]
				})
			}

			res.SymbolAP = e.runAP(log, "symbols", symbols)
		}
	}

	return res, nil
}

// runAP evaluates AP, a corpus without ground truth leaves AP unset
func (e *Evaluation) runAP(log *slog.Logger, scope string, sets []region.Set) *apeval.Summary {

	sum, err := e.AP.Evaluate(sets)

	if err != nil {
		if errors.Is(err, apeval.ErrNoGroundTruth) {
			log.Warn("average precision skipped", "scope", scope, "err", err)
		} else {
			log.Error("average precision failed", "scope", scope, "err", err)
		}

		return nil
	}

	return &sum
}
