package trsfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// File is an open trace capture. Samples are read with positional reads, so
// a File can be shared between goroutines.
type File struct {
	Geometry
	Name  string
	Order binary.ByteOrder
	// Size is the actual size of the underlying data in bytes, or -1 if it
	// isn't known.
	Size int64

	rd     io.ReaderAt
	closer io.Closer
}

// Open opens the named capture and decodes its header.
func Open(fname string, order binary.ByteOrder) (*File, error) {
	info, err := os.Stat(fname)
	if err != nil {
		return nil, &IOError{Op: "open", Path: fname, Offset: -1, Err: err}
	} else if info.IsDir() {
		return nil, &IOError{
			Op: "open", Path: fname, Offset: -1,
			Err: errors.New("is a directory, not a trace file"),
		}
	}

	f, err := os.Open(fname)
	if err != nil {
		return nil, &IOError{Op: "open", Path: fname, Offset: -1, Err: err}
	}

	file, err := newFile(fname, f, info.Size(), order)
	if err != nil {
		f.Close()
		return nil, err
	}
	file.closer = f
	return file, nil
}

// NewFile wraps an in-memory or otherwise already-open capture. size may be
// -1 if it isn't known.
func NewFile(name string, rd io.ReaderAt, size int64, order binary.ByteOrder) (*File, error) {
	return newFile(name, rd, size, order)
}

func newFile(name string, rd io.ReaderAt, size int64, order binary.ByteOrder) (*File, error) {
	g, err := ReadHeader(io.NewSectionReader(rd, 0, HeaderSize), order)
	if err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			ioErr.Path = name
		}
		return nil, err
	}
	return &File{Geometry: g, Name: name, Order: order, Size: size, rd: rd}, nil
}

// CheckSize compares the size implied by the header to the actual size of
// the file. A file that is shorter than the header implies is an error, since
// some samples can't be read. Trailing bytes are allowed.
func (f *File) CheckSize() error {
	if f.Size < 0 || f.Size >= f.TotalFileSize() {
		return nil
	}
	return &FormatError{
		Kind: SizeMismatch, Field: "trace_count",
		Msg: fmt.Sprintf("the header of %s describes %d traces of %d "+
			"samples with %d bytes of known data each, which would take "+
			"%d bytes, but the file only has %d bytes", f.Name,
			f.TraceCount, f.SamplesPerTrace, f.KnownDataLength,
			f.TotalFileSize(), f.Size),
	}
}

// ReadSample reads a single sample. It panics if trace or sample are out of
// range for the file's Geometry.
func (f *File) ReadSample(trace, sample int) (float64, error) {
	var buf [8]byte
	b := buf[:f.Datatype.Size()]
	off := f.Offset(trace, sample)

	// ReaderAt may report io.EOF alongside a complete read of the last sample.
	if n, err := f.rd.ReadAt(b, off); n < len(b) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, &IOError{
			Op: fmt.Sprintf("read trace %d sample %d of", trace, sample),
			Path: f.Name, Offset: off, Err: err,
		}
	}
	return f.Datatype.Decode(f.Order, b), nil
}

// Close closes the underlying file if Open created it.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
