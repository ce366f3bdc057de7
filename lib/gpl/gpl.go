/*package gpl builds gnuplot scripts which plot the tables written by
tracedat. Compressed tables are read through zstd's command line tool, so the
scripts work for both plain and ".zst" tables.
*/
package gpl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phil-mansfield/tracedat/lib/table"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

const (
	DefaultImage  = "power_traces.png"
	DefaultTitle  = "Power Traces"
	DefaultWidth  = 3000
	DefaultHeight = 1500
)

// Series is a single line in the plot: column Column of the table at Path.
type Series struct {
	Path   string
	Column int
	Title  string
}

// Descriptor is a gnuplot script plotting one or more table columns against
// the sample index in column 1.
type Descriptor struct {
	Image          string
	Width, Height  int
	Title          string
	XLabel, YLabel string
	XMin, XMax     int
	Key            bool
	Series         []Series
}

// New returns a Descriptor with the default image settings for the sample
// range [xMin, xMax) and no series.
func New(xMin, xMax int) *Descriptor {
	return &Descriptor{
		Image: DefaultImage, Width: DefaultWidth, Height: DefaultHeight,
		Title: DefaultTitle, XLabel: "Sample number", YLabel: "Power Trace",
		XMin: xMin, XMax: xMax,
	}
}

// AddTraces adds one series per trace column of a raw table. traces are the
// trace indices in column order; series are titled with 1-based trace
// numbers.
func (d *Descriptor) AddTraces(path string, traces []int) {
	for i, trace := range traces {
		d.Series = append(d.Series, Series{
			Path: path, Column: i + 2, Title: fmt.Sprint(trace + 1),
		})
	}
}

// AddStats adds the mean and variance series of a statistics table. Once
// statistics are plotted the legend is turned on, since the series can't
// be told apart otherwise.
func (d *Descriptor) AddStats(path string) {
	d.Series = append(d.Series,
		Series{Path: path, Column: 2, Title: "mean"},
		Series{Path: path, Column: 3, Title: "variance"},
	)
	d.Key = true
}

// source returns the gnuplot data source for a table.
func source(path string) string {
	if table.IsCompressed(path) {
		return fmt.Sprintf("< zstd -dcq %s", path)
	}
	return path
}

// quote writes s as a gnuplot double-quoted string, in which backslashes
// start escape sequences.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// WriteTo writes the script to wr.
func (d *Descriptor) WriteTo(wr io.Writer) (int64, error) {
	cw := &countWriter{w: bufio.NewWriter(wr)}
	p := func(format string, a ...interface{}) {
		fmt.Fprintf(cw, format, a...)
	}

	p("set term png size %d,%d crop;\n", d.Width, d.Height)
	p("set output %s;\n", quote(d.Image))
	p("set autoscale;\n")
	p("set xtic auto;\n")
	p("set ytic auto;\n")
	p("set xrange [%d:%d];\n", d.XMin, d.XMax)
	if d.Key {
		p("set key on;\n")
	} else {
		p("set key off;\n")
	}
	if d.Title != "" {
		p("set title %s;\n", quote(d.Title))
	}
	p("set xlabel %s;\n", quote(d.XLabel))
	p("set ylabel %s;\n\n", quote(d.YLabel))

	p("plot  ")
	for i, s := range d.Series {
		if i != 0 {
			p(", ")
		}
		p("%s u 1:%d t %s with lines", quote(source(s.Path)), s.Column,
			quote(s.Title))
	}
	p("\n")

	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

// Create writes the script to the file at path.
func (d *Descriptor) Create(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &trsfile.IOError{Op: "create", Path: path, Offset: -1, Err: err}
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return &trsfile.IOError{Op: "write", Path: path, Offset: -1, Err: err}
	}
	return f.Close()
}

type countWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (cw *countWriter) Write(b []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	cw.err = err
	return n, err
}
