package extract

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/tracedat/lib/stats"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// Result is the fully materialized output of Collect.
type Result struct {
	Rows  []Row
	Stats []stats.Summary
}

// Collect computes the same output as Run, but splits the sample range into
// contiguous, disjoint chunks which are read by up to `workers` goroutines.
// Every sample position belongs to exactly one chunk, so no two workers
// ever touch the same accumulator. Results are returned in sample order.
//
// src must be safe for concurrent use. *trsfile.File is, because it only
// does positional reads.
func Collect(
	ctx context.Context, src Source, w trsfile.Window,
	workers int, wantRows, wantStats bool,
) (*Result, error) {
	n := w.Samples()
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	res := &Result{}
	if wantRows {
		res.Rows = make([]Row, n)
	}
	if wantStats {
		res.Stats = make([]stats.Summary, n)
	}
	if !wantRows && !wantStats {
		return res, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		lo := w.XMin + i*n/workers
		hi := w.XMin + (i+1)*n/workers
		chunk := w
		chunk.XMin, chunk.XMax = lo, hi

		g.Go(func() error {
			h := Handler{}
			if wantRows {
				h.Row = func(row Row) error {
					vals := make([]float64, len(row.Values))
					copy(vals, row.Values)
					res.Rows[row.Sample-w.XMin] = Row{row.Sample, vals}
					return nil
				}
			}
			if wantStats {
				h.Stat = func(s stats.Summary) error {
					res.Stats[s.Sample-w.XMin] = s
					return nil
				}
			}
			return Run(ctx, src, chunk, h)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
