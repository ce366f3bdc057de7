/*package trsfile reads binary trace captures. A capture starts with a fixed
10-byte header:

   trace count        u32
   samples per trace  u32
   datatype tag       1 byte, 'f' (float32) or 'd' (float64)
   known data length  u8

and is followed by one region per trace: an opaque known-data prefix of
known-data-length bytes and then the trace's sample array. The header is
turned into a Geometry, which can locate any (trace, sample) pair in the file
without reading anything else.
*/
package trsfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unsafe"
)

const (
	// HeaderSize is the number of bytes in the fixed header.
	HeaderSize = 4 + 4 + 1 + 1
)

// Datatype is the tag byte which says how samples are stored.
type Datatype byte

const (
	Float32 Datatype = 'f'
	Float64 Datatype = 'd'
)

// ParseDatatype converts a raw tag byte into a Datatype.
func ParseDatatype(tag byte) (Datatype, error) {
	switch Datatype(tag) {
	case Float32, Float64:
		return Datatype(tag), nil
	}
	return 0, &FormatError{
		Kind: UnknownDatatype, Field: "datatype",
		Msg: fmt.Sprintf("sample datatype tag is %q (0x%02x), but it "+
			"should be 'f' <float> or 'd' <double>", rune(tag), tag),
	}
}

// Size returns the number of bytes used by a single sample.
func (dt Datatype) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	}
	panic(fmt.Sprintf("Internal error: unrecognized datatype 0x%02x", byte(dt)))
}

// Bits returns the floating point width of the stored samples. This is the
// precision at which values should be printed.
func (dt Datatype) Bits() int { return 8 * dt.Size() }

// Decode interprets b[:dt.Size()] as a single sample and upcasts it.
func (dt Datatype) Decode(order binary.ByteOrder, b []byte) float64 {
	switch dt {
	case Float32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case Float64:
		return math.Float64frombits(order.Uint64(b))
	}
	panic(fmt.Sprintf("Internal error: unrecognized datatype 0x%02x", byte(dt)))
}

// Encode is the inverse of Decode. v is rounded to float32 for Float32.
func (dt Datatype) Encode(order binary.ByteOrder, b []byte, v float64) {
	switch dt {
	case Float32:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case Float64:
		order.PutUint64(b, math.Float64bits(v))
	default:
		panic(fmt.Sprintf("Internal error: unrecognized datatype 0x%02x",
			byte(dt)))
	}
}

func (dt Datatype) String() string {
	switch dt {
	case Float32:
		return "float"
	case Float64:
		return "double"
	}
	return fmt.Sprintf("Datatype(0x%02x)", byte(dt))
}

// Geometry contains the sizes and counts decoded from a file header. It is
// computed once and never changed.
type Geometry struct {
	TraceCount      uint32
	SamplesPerTrace uint32
	Datatype        Datatype
	KnownDataLength uint8
}

// rawHeader has the same layout as the header on disk.
type rawHeader struct {
	NumTraces          uint32
	NumSamplesPerTrace uint32
	Datatype           byte
	KnownDataLength    uint8
}

// ReadHeader reads the fixed header from rd, which must be positioned at the
// start of the file. Nothing past the header is read, and the file length is
// not checked against the header.
func ReadHeader(rd io.Reader, order binary.ByteOrder) (Geometry, error) {
	b := make([]byte, HeaderSize)
	if n, err := io.ReadFull(rd, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Geometry{}, &FormatError{
				Kind: Truncated, Field: "header",
				Msg: fmt.Sprintf("only %d of the %d header bytes are "+
					"present", n, HeaderSize),
			}
		}
		return Geometry{}, &IOError{Op: "read header", Offset: -1, Err: err}
	}

	raw := rawHeader{
		NumTraces:          order.Uint32(b[0:4]),
		NumSamplesPerTrace: order.Uint32(b[4:8]),
		Datatype:           b[8],
		KnownDataLength:    b[9],
	}

	dt, err := ParseDatatype(raw.Datatype)
	if err != nil {
		return Geometry{}, err
	}

	return Geometry{
		TraceCount:      raw.NumTraces,
		SamplesPerTrace: raw.NumSamplesPerTrace,
		Datatype:        dt,
		KnownDataLength: raw.KnownDataLength,
	}, nil
}

// WriteHeader writes g to wr in the on-disk header layout.
func WriteHeader(wr io.Writer, order binary.ByteOrder, g Geometry) error {
	raw := rawHeader{
		g.TraceCount, g.SamplesPerTrace, byte(g.Datatype), g.KnownDataLength,
	}
	// binary.Write packs fields without padding, so this is HeaderSize bytes.
	return binary.Write(wr, order, &raw)
}

// SampleSize is the number of bytes in one sample.
func (g Geometry) SampleSize() int64 { return int64(g.Datatype.Size()) }

// TraceStride is the number of bytes in one trace's sample array. It does
// not include the known-data prefix.
func (g Geometry) TraceStride() int64 {
	return int64(g.SamplesPerTrace) * g.SampleSize()
}

// TotalFileSize is the file size implied by the header.
func (g Geometry) TotalFileSize() int64 {
	return HeaderSize +
		int64(g.TraceCount)*(int64(g.KnownDataLength)+g.TraceStride())
}

// Offset returns the byte offset of sample in trace. Each trace's sample
// array is preceded by its own known-data block, so reaching trace i skips
// i+1 known-data blocks and i sample arrays.
//
// Offset panics if either index is out of range.
func (g Geometry) Offset(trace, sample int) int64 {
	if trace < 0 || trace >= int(g.TraceCount) {
		panic(fmt.Sprintf("Internal error: trace index %d is outside "+
			"[0, %d).", trace, g.TraceCount))
	} else if sample < 0 || sample >= int(g.SamplesPerTrace) {
		panic(fmt.Sprintf("Internal error: sample index %d is outside "+
			"[0, %d).", sample, g.SamplesPerTrace))
	}

	t, s := int64(trace), int64(sample)
	return HeaderSize + (t+1)*int64(g.KnownDataLength) +
		t*g.TraceStride() + s*g.SampleSize()
}

// SystemByteOrder returns the byte order of the machine this is running on.
func SystemByteOrder() binary.ByteOrder {
	b := [2]byte{}
	*(*uint16)(unsafe.Pointer(&b[0])) = uint16(0x0001)
	if b[0] == 0 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// ParseByteOrder converts "little", "big", or "native" into a byte order.
func ParseByteOrder(name string) (binary.ByteOrder, error) {
	switch name {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	case "native":
		return SystemByteOrder(), nil
	}
	return nil, &ConfigError{
		Param: "ByteOrder",
		Msg: fmt.Sprintf("'%s' is not a byte order; use 'little', 'big', "+
			"or 'native'", name),
	}
}
