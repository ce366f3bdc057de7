package trsfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestParseDatatype(t *testing.T) {
	tests := []struct {
		tag  byte
		size int
		ok   bool
	}{
		{'f', 4, true},
		{'d', 8, true},
		{'F', 0, false},
		{'i', 0, false},
		{0, 0, false},
		{0xff, 0, false},
	}

	for i := range tests {
		dt, err := ParseDatatype(tests[i].tag)
		if tests[i].ok {
			if err != nil {
				t.Errorf("%d) Expected tag %q to be valid, got error '%s'.",
					i, tests[i].tag, err.Error())
			} else if dt.Size() != tests[i].size {
				t.Errorf("%d) Expected tag %q to have size %d, got %d.",
					i, tests[i].tag, tests[i].size, dt.Size())
			}
			continue
		}

		var fe *FormatError
		if !errors.As(err, &fe) || fe.Kind != UnknownDatatype {
			t.Errorf("%d) Expected tag %q to give an UnknownDatatype "+
				"FormatError, got %v.", i, tests[i].tag, err)
		}
	}
}

func TestReadHeader(t *testing.T) {
	orders := []binary.ByteOrder{binary.LittleEndian, binary.BigEndian}
	for _, order := range orders {
		g := Geometry{
			TraceCount: 1000, SamplesPerTrace: 5000, Datatype: Float64,
			KnownDataLength: 16,
		}
		buf := &bytes.Buffer{}
		if err := WriteHeader(buf, order, g); err != nil {
			t.Fatalf("Error in WriteHeader(): %s", err.Error())
		}
		if buf.Len() != HeaderSize {
			t.Errorf("Expected %d header bytes, got %d.", HeaderSize, buf.Len())
		}

		// Extra bytes after the header shouldn't be touched.
		buf.Write([]byte{1, 2, 3})
		rd := bytes.NewReader(buf.Bytes())
		read, err := ReadHeader(rd, order)
		if err != nil {
			t.Fatalf("Error in ReadHeader(): %s", err.Error())
		}
		if read != g {
			t.Errorf("Wrote header %+v, but read %+v.", g, read)
		}
		if rd.Len() != 3 {
			t.Errorf("Expected ReadHeader to leave 3 bytes, left %d.",
				rd.Len())
		}
	}
}

func TestReadHeaderErrors(t *testing.T) {
	good := &bytes.Buffer{}
	WriteHeader(good, binary.LittleEndian, Geometry{
		TraceCount: 2, SamplesPerTrace: 3, Datatype: Float32,
	})
	badTag := append([]byte{}, good.Bytes()...)
	badTag[8] = 'x'

	tests := []struct {
		b    []byte
		kind FormatErrorKind
	}{
		{[]byte{}, Truncated},
		{good.Bytes()[:4], Truncated},
		{good.Bytes()[:HeaderSize-1], Truncated},
		{badTag, UnknownDatatype},
	}

	for i := range tests {
		_, err := ReadHeader(bytes.NewReader(tests[i].b), binary.LittleEndian)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Errorf("%d) Expected a FormatError, got %v.", i, err)
		} else if fe.Kind != tests[i].kind {
			t.Errorf("%d) Expected FormatError kind '%s', got '%s'.",
				i, tests[i].kind, fe.Kind)
		}
	}
}

func TestGeometrySizes(t *testing.T) {
	tests := []struct {
		g                  Geometry
		sample, trace, tot int64
	}{
		{Geometry{2, 3, Float32, 0}, 4, 12, 10 + 2*12},
		{Geometry{2, 3, Float64, 0}, 8, 24, 10 + 2*24},
		{Geometry{10, 100, Float32, 16}, 4, 400, 10 + 10*416},
		{Geometry{0, 100, Float64, 3}, 8, 800, 10},
	}

	for i := range tests {
		g := tests[i].g
		if g.SampleSize() != tests[i].sample {
			t.Errorf("%d) Expected sample size %d, got %d.",
				i, tests[i].sample, g.SampleSize())
		}
		if g.TraceStride() != tests[i].trace {
			t.Errorf("%d) Expected trace stride %d, got %d.",
				i, tests[i].trace, g.TraceStride())
		}
		if g.TotalFileSize() != tests[i].tot {
			t.Errorf("%d) Expected file size %d, got %d.",
				i, tests[i].tot, g.TotalFileSize())
		}
	}
}

func TestOffsetKnownData(t *testing.T) {
	g := Geometry{
		TraceCount: 3, SamplesPerTrace: 5, Datatype: Float32,
		KnownDataLength: 2,
	}
	// Trace 1's first sample sits behind two known-data blocks and one
	// full sample array.
	exp := int64(HeaderSize) + 2*2 + g.TraceStride()
	if got := g.Offset(1, 0); got != exp {
		t.Errorf("Expected Offset(1, 0) = %d, got %d.", exp, got)
	}
	if got := g.Offset(0, 0); got != HeaderSize+2 {
		t.Errorf("Expected Offset(0, 0) = %d, got %d.", HeaderSize+2, got)
	}
	if got := g.Offset(2, 4); got != HeaderSize+3*2+2*20+4*4 {
		t.Errorf("Expected Offset(2, 4) = %d, got %d.",
			HeaderSize+3*2+2*20+4*4, got)
	}
}

func TestOffsetOrdering(t *testing.T) {
	geoms := []Geometry{
		{4, 7, Float32, 0},
		{4, 7, Float64, 0},
		{5, 3, Float32, 9},
		{3, 11, Float64, 255},
	}

	for i, g := range geoms {
		prevEnd := int64(HeaderSize)
		for trace := 0; trace < int(g.TraceCount); trace++ {
			start := g.Offset(trace, 0)
			if start < prevEnd {
				t.Errorf("%d) Trace %d starts at %d, which overlaps the "+
					"previous trace ending at %d.", i, trace, start, prevEnd)
			}
			for sample := 1; sample < int(g.SamplesPerTrace); sample++ {
				if g.Offset(trace, sample) <= g.Offset(trace, sample-1) {
					t.Errorf("%d) Offset not increasing at trace %d, "+
						"sample %d.", i, trace, sample)
				}
			}
			prevEnd = g.Offset(trace, int(g.SamplesPerTrace)-1) + g.SampleSize()
		}
		if prevEnd != g.TotalFileSize() {
			t.Errorf("%d) Last sample ends at %d, but the file has %d bytes.",
				i, prevEnd, g.TotalFileSize())
		}
	}
}

func TestOffsetPanics(t *testing.T) {
	g := Geometry{2, 3, Float32, 0}
	idx := [][2]int{{-1, 0}, {2, 0}, {0, -1}, {0, 3}}
	for i := range idx {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected Offset(%d, %d) to panic.",
						idx[i][0], idx[i][1])
				}
			}()
			g.Offset(idx[i][0], idx[i][1])
		}()
	}
}

func TestFileReadSample(t *testing.T) {
	samples := [][]float64{{1, 2, 3}, {4, 5, 6}}
	for _, dt := range []Datatype{Float32, Float64} {
		for _, kd := range []uint8{0, 2, 7} {
			ff := &FakeFile{
				Datatype: dt, KnownDataLength: kd,
				KnownData: []byte{0xde, 0xad, 0xbe, 0xef}, Samples: samples,
			}
			f := ff.Open(binary.LittleEndian)

			if f.Size != f.TotalFileSize() {
				t.Errorf("%s/%d) Fake file has %d bytes, header implies %d.",
					dt, kd, f.Size, f.TotalFileSize())
			}
			for i := range samples {
				for j := range samples[i] {
					x, err := f.ReadSample(i, j)
					if err != nil {
						t.Fatalf("%s/%d) Error in ReadSample(%d, %d): %s",
							dt, kd, i, j, err.Error())
					}
					if x != samples[i][j] {
						t.Errorf("%s/%d) Expected ReadSample(%d, %d) = %g, "+
							"got %g.", dt, kd, i, j, samples[i][j], x)
					}
				}
			}
		}
	}
}

func TestFileTruncatedBody(t *testing.T) {
	ff := &FakeFile{Datatype: Float64, Samples: [][]float64{{1, 2}, {3, 4}}}
	b := ff.Bytes(binary.BigEndian)
	b = b[:len(b)-3]

	f, err := NewFile("short", bytes.NewReader(b), int64(len(b)),
		binary.BigEndian)
	if err != nil {
		t.Fatalf("Error in NewFile(): %s", err.Error())
	}

	var fe *FormatError
	if err := f.CheckSize(); !errors.As(err, &fe) || fe.Kind != SizeMismatch {
		t.Errorf("Expected CheckSize() to give a SizeMismatch, got %v.", err)
	}

	if x, err := f.ReadSample(1, 0); err != nil || x != 3 {
		t.Errorf("Expected ReadSample(1, 0) = 3, got %g, %v.", x, err)
	}

	_, err = f.ReadSample(1, 1)
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected an IOError, got %v.", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected the IOError to wrap io.ErrUnexpectedEOF, got %v.",
			ioErr.Err)
	}
	if ioErr.Offset != f.Offset(1, 1) {
		t.Errorf("Expected the IOError at offset %d, got %d.",
			f.Offset(1, 1), ioErr.Offset)
	}
}

func TestParseByteOrder(t *testing.T) {
	tests := []struct {
		name  string
		order binary.ByteOrder
	}{
		{"", binary.LittleEndian},
		{"little", binary.LittleEndian},
		{"big", binary.BigEndian},
		{"native", SystemByteOrder()},
	}
	for i := range tests {
		order, err := ParseByteOrder(tests[i].name)
		if err != nil || order != tests[i].order {
			t.Errorf("%d) Expected '%s' to give %v, got %v, %v.",
				i, tests[i].name, tests[i].order, order, err)
		}
	}

	var ce *ConfigError
	if _, err := ParseByteOrder("middle"); !errors.As(err, &ce) {
		t.Errorf("Expected a ConfigError for 'middle', got %v.", err)
	}
}
