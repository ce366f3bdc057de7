package table

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// TextConfig contains information neccessary for parsing tables.
type TextConfig struct {
	Separator   byte // Character used to separated fields
	Comment     byte // Character used to start comments.
	SkipLines   int  // Number of lines to skip at the start of file.
	MaxLineSize int  // Largest possible line size.
}

// DefaultConfig is a TextConfig which can read any table written by Writer.
var DefaultConfig = TextConfig{
	Separator:   ' ',
	Comment:     '#',
	SkipLines:   0,
	MaxLineSize: 1 << 26,
}

// Table is a fully parsed text table. Every row has the same number of
// columns.
type Table struct {
	rows [][]float64
	cols int
}

// Open reads the table at path, decompressing it if the name ends in ".zst".
func Open(path string, config ...TextConfig) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &trsfile.IOError{Op: "open", Path: path, Offset: -1, Err: err}
	}
	defer f.Close()

	var rd io.Reader = f
	if IsCompressed(path) {
		zr := zstd.NewReader(f)
		defer zr.Close()
		rd = zr
	}

	t, err := Read(rd, config...)
	if err != nil {
		return nil, fmt.Errorf("could not parse table %s: %w", path, err)
	}
	return t, nil
}

// Read parses a table from rd. An optional config can be provided, otherwise
// DefaultConfig will be used.
func Read(rd io.Reader, config ...TextConfig) (*Table, error) {
	c := DefaultConfig
	if len(config) > 0 {
		c = config[0]
	}

	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 1<<16), c.MaxLineSize)

	t := &Table{cols: -1}
	for line := 1; sc.Scan(); line++ {
		if line <= c.SkipLines {
			continue
		}

		text := sc.Bytes()
		if i := bytes.IndexByte(text, c.Comment); i >= 0 {
			text = text[:i]
		}
		fields := splitFields(text, c.Separator)
		if len(fields) == 0 {
			continue
		}

		if t.cols == -1 {
			t.cols = len(fields)
		} else if len(fields) != t.cols {
			return nil, fmt.Errorf("line %d has %d columns, but earlier "+
				"lines have %d", line, len(fields), t.cols)
		}

		row := make([]float64, len(fields))
		for i, field := range fields {
			x, err := strconv.ParseFloat(string(field), 64)
			if err != nil {
				return nil, fmt.Errorf("column %d of line %d, '%s', is not "+
					"a number", i, line, field)
			}
			row[i] = x
		}
		t.rows = append(t.rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if t.cols == -1 {
		t.cols = 0
	}
	return t, nil
}

// splitFields splits a line on runs of sep, dropping empty fields and
// trailing '\r's.
func splitFields(line []byte, sep byte) [][]byte {
	line = bytes.TrimRight(line, "\r")
	fields := [][]byte{}
	start := -1
	for i := 0; i <= len(line); i++ {
		if i == len(line) || line[i] == sep || line[i] == '\t' {
			if start >= 0 {
				fields = append(fields, line[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	return fields
}

// Rows returns the number of rows in the table.
func (t *Table) Rows() int { return len(t.rows) }

// Columns returns the number of columns in the table.
func (t *Table) Columns() int { return t.cols }

// Row returns row i. The slice belongs to the Table.
func (t *Table) Row(i int) []float64 { return t.rows[i] }

// ReadFloat64s returns the requested columns, one slice per column.
func (t *Table) ReadFloat64s(columns []int) ([][]float64, error) {
	out := make([][]float64, len(columns))
	for j, col := range columns {
		if col < 0 || col >= t.cols {
			return nil, fmt.Errorf("column %d was requested, but the table "+
				"only has %d columns", col, t.cols)
		}
		out[j] = make([]float64, len(t.rows))
		for i := range t.rows {
			out[j][i] = t.rows[i][col]
		}
	}
	return out, nil
}

// MismatchError is returned when a table doesn't contain the values it
// should. Row and Column are 0-indexed; Column is -1 if the table has the
// wrong shape.
type MismatchError struct {
	Path        string
	Row, Column int
	Expected    float64
	Got         float64
	Msg         string
}

func (e *MismatchError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("table %s has the wrong shape: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("table %s, row %d, column %d: expected %g, got %g",
		e.Path, e.Row, e.Column, e.Expected, e.Got)
}
