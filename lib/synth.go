package lib

/* synth.go contains the core functions of tracedat's "synth" mode. */

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	"math/rand"
	"os"

	"github.com/go-kit/log/level"

	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// Synthetic traces are a sine wave with Gaussian noise. One sample near the
// middle of each trace leaks the Hamming weight of the first known-data
// byte, so the mean and variance tables have something to show.
const (
	synthPeriod    = 64
	synthNoise     = 0.05
	synthLeakScale = 0.02
)

// Synth runs tracedat's "synth" mode, which writes a synthetic capture to
// args.Input. A capture which couldn't be written completely is removed.
func Synth(ctx context.Context, args *Args, env *Env) error {
	g := args.Synth.Geometry
	con := env.Console
	con.Step("Writing synthetic capture %s", args.Input)

	f, err := os.Create(args.Input)
	if err != nil {
		con.Fail()
		return &trsfile.IOError{Op: "create", Path: args.Input, Offset: -1, Err: err}
	}

	err = SynthCapture(ctx, f, args.Order, g, args.Synth.Seed)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		con.Fail()
		os.Remove(args.Input)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &trsfile.IOError{Op: "write", Path: args.Input, Offset: -1, Err: err}
	}
	con.Done()

	con.Field("Number of traces", g.TraceCount)
	con.Field("Number of samples per trace", g.SamplesPerTrace)
	con.Field("Datatype", g.Datatype)
	con.Field("Length of known data", g.KnownDataLength)
	level.Info(env.Logger).Log(
		"msg", "wrote synthetic capture", "file", args.Input,
		"bytes", g.TotalFileSize(), "seed", args.Synth.Seed,
	)
	return nil
}

// SynthCapture writes a synthetic capture with geometry g. The same seed
// always gives the same bytes.
func SynthCapture(
	ctx context.Context, wr io.Writer, order binary.ByteOrder, g trsfile.Geometry, seed int64,
) error {
	rng := rand.New(rand.NewSource(seed))
	known := make([]byte, g.KnownDataLength)
	leak := int(g.SamplesPerTrace) / 2

	return trsfile.WriteCapture(ctx, wr, order, g,
		func(trace int) []byte {
			rng.Read(known)
			return known
		},
		func(trace, sample int) float64 {
			x := math.Sin(2*math.Pi*float64(sample)/synthPeriod) +
				synthNoise*rng.NormFloat64()
			if sample == leak && len(known) > 0 {
				x += synthLeakScale * float64(bits.OnesCount8(known[0]))
			}
			return x
		},
	)
}
