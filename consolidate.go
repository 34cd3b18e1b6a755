package pnideval

import (
	"context"
	"log/slog"

	"github.com/swdee/go-pnideval/annotation"
	"github.com/swdee/go-pnideval/merge"
)

// Consolidation merges overlapping text fragments in annotation documents
type Consolidation struct {
	Params  merge.Params
	Workers int
	Logger  *slog.Logger
}

// ConsolidationResult holds the merged documents in input order
type ConsolidationResult struct {
	Documents []*annotation.Document
	// Stats are summed over every document
	Stats merge.Stats
}

// Run consolidates the regions of every document.  Input documents are not
// modified.  progress, if not nil, is called once per document and may be
// called from several goroutines.
func (c *Consolidation) Run(ctx context.Context, docs []*annotation.Document,
	progress func()) (*ConsolidationResult, error) {

	log := c.Logger

	if log == nil {
		log = slog.Default()
	}

	pool := NewPool(c.Workers, log)
	defer pool.Close()

	out := make([]*annotation.Document, len(docs))
	perDoc := make([]merge.Stats, len(docs))

	err := pool.Run(ctx, len(docs), func(w *Worker, i int) {

		doc := *docs[i]
		doc.Regions, perDoc[i] = merge.ConsolidateWithStats(docs[i].Regions, c.Params, nil)
		out[i] = &doc

		w.log.Debug("drawing consolidated", "drawing", doc.DrawingID,
			"regions", len(docs[i].Regions), "merged", len(doc.Regions),
			"passes", perDoc[i].Passes)

		if progress != nil {
			progress()
		}
	})

	if err != nil {
		return nil, err
	}

	res := &ConsolidationResult{Documents: out}

	for _, st := range perDoc {
		res.Stats.Passes += st.Passes
		res.Stats.Merges += st.Merges
	}

	return res, nil
}
