/*package table reads and writes the whitespace-separated text tables produced
by tracedat. Each line starts with the integer sample index and is followed
either by one value per trace or by a mean and a variance. Tables whose file
name ends in ".zst" are zstd-compressed.
*/
package table

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/tracedat/lib/extract"
	"github.com/phil-mansfield/tracedat/lib/stats"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

const (
	// CompressedExt is the file extension which turns on compression.
	CompressedExt = ".zst"
	// DefaultCompression is the zstd level used when none is configured.
	DefaultCompression = zstd.DefaultCompression
)

// IsCompressed returns true if a table at path will be zstd-compressed.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedExt)
}

// Writer writes rows of a table. Values are printed with the shortest
// representation which round-trips at the given bit width, so float32
// captures print as "0.1" and not "0.10000000149011612".
type Writer struct {
	bw   *bufio.Writer
	zw   *zstd.Writer
	f    *os.File
	bits int
	line []byte
}

// NewWriter creates a Writer which prints values with the given precision
// (32 or 64) to wr. wr isn't closed by Close.
func NewWriter(wr io.Writer, bits int) *Writer {
	return &Writer{bw: bufio.NewWriter(wr), bits: bits}
}

// Create creates the file at path and returns a Writer for it. If path ends
// in ".zst", the table is compressed with the given zstd level.
func Create(path string, bits, level int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &trsfile.IOError{Op: "create", Path: path, Offset: -1, Err: err}
	}

	if !IsCompressed(path) {
		w := NewWriter(f, bits)
		w.f = f
		return w, nil
	}

	zw := zstd.NewWriterLevel(f, level)
	w := NewWriter(zw, bits)
	w.zw, w.f = zw, f
	return w, nil
}

// WriteRow writes "<sample> <v0> <v1> ...".
func (w *Writer) WriteRow(row extract.Row) error {
	w.line = strconv.AppendInt(w.line[:0], int64(row.Sample), 10)
	for _, x := range row.Values {
		w.line = append(w.line, ' ')
		w.line = strconv.AppendFloat(w.line, x, 'g', -1, w.bits)
	}
	w.line = append(w.line, '\n')
	_, err := w.bw.Write(w.line)
	return err
}

// WriteStat writes "<sample> <mean> <variance>". Statistics are always
// printed at full double precision.
func (w *Writer) WriteStat(s stats.Summary) error {
	w.line = strconv.AppendInt(w.line[:0], int64(s.Sample), 10)
	w.line = append(w.line, ' ')
	w.line = strconv.AppendFloat(w.line, s.Mean, 'g', -1, 64)
	w.line = append(w.line, ' ')
	w.line = strconv.AppendFloat(w.line, s.Variance, 'g', -1, 64)
	w.line = append(w.line, '\n')
	_, err := w.bw.Write(w.line)
	return err
}

// Close flushes all buffered output and closes the file if Create opened
// it.
func (w *Writer) Close() error {
	err := w.bw.Flush()
	if w.zw != nil {
		if zerr := w.zw.Close(); err == nil {
			err = zerr
		}
	}
	if w.f != nil {
		if ferr := w.f.Close(); err == nil {
			err = ferr
		}
	}
	return err
}
