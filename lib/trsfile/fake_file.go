package trsfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
)

// FakeFile describes a capture that can be built directly from arrays for
// testing purposes. Samples[i] is trace i. Every trace must have the same
// length. KnownData is repeated in front of every trace and is padded or
// cut to KnownDataLength bytes.
type FakeFile struct {
	Datatype        Datatype
	KnownDataLength uint8
	KnownData       []byte
	Samples         [][]float64
}

// Geometry returns the header a FakeFile will be written with.
func (ff *FakeFile) Geometry() Geometry {
	g := Geometry{
		TraceCount: uint32(len(ff.Samples)), Datatype: ff.Datatype,
		KnownDataLength: ff.KnownDataLength,
	}
	if len(ff.Samples) > 0 {
		g.SamplesPerTrace = uint32(len(ff.Samples[0]))
	}
	return g
}

// Bytes encodes the capture with the given byte order.
func (ff *FakeFile) Bytes(order binary.ByteOrder) []byte {
	g := ff.Geometry()
	for i, trace := range ff.Samples {
		if len(trace) != int(g.SamplesPerTrace) {
			panic(fmt.Sprintf("FakeFile trace %d has %d samples, but trace "+
				"0 has %d.", i, len(trace), g.SamplesPerTrace))
		}
	}

	buf := &bytes.Buffer{}
	err := WriteCapture(context.Background(), buf, order, g,
		func(int) []byte { return ff.KnownData },
		func(trace, sample int) float64 { return ff.Samples[trace][sample] },
	)
	if err != nil {
		panic(err.Error())
	}
	return buf.Bytes()
}

// Open returns a File reading the encoded capture from memory.
func (ff *FakeFile) Open(order binary.ByteOrder) *File {
	b := ff.Bytes(order)
	f, err := NewFile("fake_file", bytes.NewReader(b), int64(len(b)), order)
	if err != nil {
		panic(err.Error())
	}
	return f
}
