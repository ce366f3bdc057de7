package trsfile

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
)

// WriteCapture writes a complete capture with geometry g to wr. known is
// called once per trace and must return KnownDataLength bytes (nil means
// zeros); sample is called for every sample in trace-major order. ctx is
// checked before every trace.
func WriteCapture(
	ctx context.Context, wr io.Writer, order binary.ByteOrder, g Geometry,
	known func(trace int) []byte, sample func(trace, sample int) float64,
) error {
	bw := bufio.NewWriter(wr)
	if err := WriteHeader(bw, order, g); err != nil {
		return err
	}

	prefix := make([]byte, g.KnownDataLength)
	word := make([]byte, g.Datatype.Size())
	for i := 0; i < int(g.TraceCount); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j := range prefix {
			prefix[j] = 0
		}
		if known != nil {
			copy(prefix, known(i))
		}
		if _, err := bw.Write(prefix); err != nil {
			return err
		}

		for j := 0; j < int(g.SamplesPerTrace); j++ {
			g.Datatype.Encode(order, word, sample(i, j))
			if _, err := bw.Write(word); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}
