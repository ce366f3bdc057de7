package lib

/* confirm.go contains the core functions of tracedat's "confirm" mode. */

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/tracedat/lib/extract"
	"github.com/phil-mansfield/tracedat/lib/table"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// statRelTol is the tolerance for statistics, relative to the largest
// magnitude in the sample's data (squared for the variance). The tables
// store Welford's results and these are checked against a two-pass
// computation, so they won't agree to the last bit.
const statRelTol = 1e-9

// Confirm runs tracedat's "confirm" mode, which re-reads the tables written
// by "convert" and checks every value against a fresh read of the capture.
func Confirm(ctx context.Context, args *Args, env *Env) error {
	f, w, err := Check(args, env)
	if err != nil {
		return err
	}
	defer f.Close()

	con := env.Console
	con.Step("Reading %d traces", len(w.TraceIndices()))
	m, err := extract.Matrix(ctx, f, w)
	if err != nil {
		con.Fail()
		return err
	}
	con.Done()

	if args.Output != "" {
		con.Step("Confirming %s", args.Output)
		if err := confirmRaw(args.Output, m, w, f.Datatype); err != nil {
			con.Fail()
			return err
		}
		con.Done()
	}

	if args.MeanOutput != "" {
		con.Step("Confirming %s", args.MeanOutput)
		if err := confirmStats(args.MeanOutput, m, w); err != nil {
			con.Fail()
			return err
		}
		con.Done()
	}

	con.Println("No errors detected.")
	return nil
}

func checkShape(path string, tab *table.Table, rows, cols int) error {
	if tab.Rows() != rows || tab.Columns() != cols {
		return &table.MismatchError{
			Path: path, Column: -1,
			Msg: fmt.Sprintf("expected %d rows and %d columns, got %d rows "+
				"and %d columns", rows, cols, tab.Rows(), tab.Columns()),
		}
	}
	return nil
}

// checkSample compares the sample number in column 0 of row i.
func checkSample(path string, row []float64, i int, w trsfile.Window) error {
	if exp := float64(w.XMin + i); row[0] != exp {
		return &table.MismatchError{
			Path: path, Row: i, Column: 0, Expected: exp, Got: row[0],
		}
	}
	return nil
}

// rawEqual compares a value read back from a raw table with the value in
// the capture. Float32 values are printed with the shortest representation
// which round-trips at float32 precision, so they match exactly once
// rounded back to float32.
func rawEqual(dt trsfile.Datatype, exp, got float64) bool {
	if dt == trsfile.Float32 {
		return float32(exp) == float32(got)
	}
	return exp == got
}

func confirmRaw(
	path string, m *mat.Dense, w trsfile.Window, dt trsfile.Datatype,
) error {
	tab, err := table.Open(path)
	if err != nil {
		return err
	}
	nRows, nCols := m.Dims()
	if err := checkShape(path, tab, nRows, nCols+1); err != nil {
		return err
	}

	for i := 0; i < nRows; i++ {
		row := tab.Row(i)
		if err := checkSample(path, row, i, w); err != nil {
			return err
		}
		exp := m.RawRowView(i)
		for j := range exp {
			if !rawEqual(dt, exp[j], row[j+1]) {
				return &table.MismatchError{
					Path: path, Row: i, Column: j + 1,
					Expected: exp[j], Got: row[j+1],
				}
			}
		}
	}
	return nil
}

// statTolerances returns the allowed error in the mean and variance of x.
// Both scale with the data, not with the result: a mean near zero computed
// from O(1) values carries O(1e-16) rounding error, not O(1e-16*mean).
func statTolerances(x []float64) (meanTol, varTol float64) {
	scale := floats.Max(x)
	if lo := -floats.Min(x); lo > scale {
		scale = lo
	}
	return statRelTol * scale, statRelTol * scale * scale
}

func confirmStats(path string, m *mat.Dense, w trsfile.Window) error {
	tab, err := table.Open(path)
	if err != nil {
		return err
	}
	nRows, nCols := m.Dims()
	if err := checkShape(path, tab, nRows, 3); err != nil {
		return err
	}
	cols, err := tab.ReadFloat64s([]int{0, 1, 2})
	if err != nil {
		return err
	}
	samples, means, variances := cols[0], cols[1], cols[2]

	for i := 0; i < nRows; i++ {
		if err := checkSample(path, samples[i:i+1], i, w); err != nil {
			return err
		}

		x := m.RawRowView(i)
		mean, variance := stat.MeanVariance(x, nil)
		if nCols < 2 {
			variance = 0
		}
		meanTol, varTol := statTolerances(x)

		if math.Abs(mean-means[i]) > meanTol {
			return &table.MismatchError{
				Path: path, Row: i, Column: 1, Expected: mean, Got: means[i],
			}
		}
		if math.Abs(variance-variances[i]) > varTol {
			return &table.MismatchError{
				Path: path, Row: i, Column: 2,
				Expected: variance, Got: variances[i],
			}
		}
	}
	return nil
}
