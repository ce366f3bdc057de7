/*package extract pulls windows of samples out of a trace capture. Iteration
is always sample-major and trace-minor: every selected trace is read at one
sample position before moving on to the next. This is the layout of the
output tables (one row per sample, one column per trace), so rows can be
streamed to disk without holding the whole window in memory.
*/
package extract

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/phil-mansfield/tracedat/lib/stats"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// Source is anything that can read individual samples out of a capture.
// *trsfile.File implements it.
type Source interface {
	ReadSample(trace, sample int) (float64, error)
}

var _ Source = &trsfile.File{}

// Row is the value of one sample position in every selected trace.
type Row struct {
	Sample int
	Values []float64
}

// RowIter is a lazy sequence of Rows. It works like bufio.Scanner:
//
//   it := extract.Rows(f, w)
//   for it.Next() {
//       row := it.Row()
//       ...
//   }
//   if err := it.Err(); err != nil { ... }
//
// The slice in Row().Values is reused by the next call to Next.
type RowIter struct {
	src    Source
	traces []int
	sample int
	xMax   int
	row    Row
	err    error
}

// Rows returns an iterator over the rows of a clamped window. The sequence
// can only be restarted by calling Rows again.
func Rows(src Source, w trsfile.Window) *RowIter {
	traces := w.TraceIndices()
	return &RowIter{
		src: src, traces: traces, sample: w.XMin, xMax: w.XMax,
		row: Row{Sample: w.XMin - 1, Values: make([]float64, len(traces))},
	}
}

// Next reads the next row. It returns false at the end of the window or
// after the first error.
func (it *RowIter) Next() bool {
	if it.err != nil || it.sample >= it.xMax {
		return false
	}

	it.row.Sample = it.sample
	for i, trace := range it.traces {
		x, err := it.src.ReadSample(trace, it.sample)
		if err != nil {
			it.err = err
			return false
		}
		it.row.Values[i] = x
	}

	it.sample++
	return true
}

// Row returns the row read by the last call to Next.
func (it *RowIter) Row() Row { return it.row }

// Err returns the first error encountered during iteration.
func (it *RowIter) Err() error { return it.err }

// Handler receives the output of Run. Either field may be nil, in which case
// that output isn't produced.
type Handler struct {
	Row  func(Row) error
	Stat func(stats.Summary) error
}

// Run makes a single pass over a clamped window, handing every row to
// h.Row and the mean and variance of every sample position to h.Stat. Raw
// rows and statistics come from the same reads, so requesting both doesn't
// cost a second scan of the file.
//
// ctx is checked before every row. A cancelled Run returns ctx.Err() and
// hands nothing more to h.
func Run(ctx context.Context, src Source, w trsfile.Window, h Handler) error {
	if h.Row == nil && h.Stat == nil {
		return nil
	}

	var red *stats.Reducer
	if h.Stat != nil {
		red = stats.NewReducer(w.XMin, w.XMax)
	}

	it := Rows(src, w)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := it.Row()
		if h.Row != nil {
			if err := h.Row(row); err != nil {
				return err
			}
		}
		if red != nil {
			for _, x := range row.Values {
				red.Add(row.Sample, x)
			}
			if err := h.Stat(red.Summary(row.Sample)); err != nil {
				return err
			}
		}
	}
	return it.Err()
}

// Matrix reads a clamped window into a (sample x trace) matrix. Row i of the
// matrix is sample w.XMin + i and column j is the j-th selected trace.
func Matrix(
	ctx context.Context, src Source, w trsfile.Window,
) (*mat.Dense, error) {
	traces := w.TraceIndices()
	if w.Samples() <= 0 || len(traces) == 0 {
		return nil, fmt.Errorf("Internal error: Matrix given the unclamped "+
			"window %+v", w)
	}

	m := mat.NewDense(w.Samples(), len(traces), nil)
	it := Rows(src, w)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := it.Row()
		m.SetRow(row.Sample-w.XMin, row.Values)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
