package lib

/* check.go contains the core functions of tracedat's "check" mode. */

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/phil-mansfield/tracedat/lib/console"
	"github.com/phil-mansfield/tracedat/lib/format"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// Env holds the outputs shared by every mode.
type Env struct {
	Logger  log.Logger
	Console *console.Console
}

// Check opens the input capture, reports its geometry, compares its size to
// the size implied by the header, and clamps the requested window against
// it. Whether a short file is an error or a warning depends on
// args.Strictness. On success the caller owns the returned File.
func Check(args *Args, env *Env) (*trsfile.File, trsfile.Window, error) {
	con := env.Console

	con.Step("Parsing input file %s", args.Input)
	f, err := trsfile.Open(args.Input, args.Order)
	if err != nil {
		con.Fail()
		return nil, trsfile.Window{}, err
	}
	con.Done()

	g := f.Geometry
	con.Field("Number of traces", g.TraceCount)
	con.Field("Number of samples per trace", g.SamplesPerTrace)
	con.Field("Datatype", g.Datatype)
	con.Field("Length of known data", g.KnownDataLength)

	level.Debug(env.Logger).Log(
		"msg", "file size", "file", f.Name,
		"expected_bytes", g.TotalFileSize(), "actual_bytes", f.Size,
	)
	if err := f.CheckSize(); err != nil {
		if args.Strictness == CrashOnError {
			f.Close()
			return nil, trsfile.Window{}, err
		}
		level.Warn(env.Logger).Log("msg", "input file is truncated", "err", err)
	} else if f.Size > g.TotalFileSize() {
		level.Info(env.Logger).Log(
			"msg", "input file has trailing bytes", "file", f.Name,
			"trailing_bytes", f.Size-g.TotalFileSize(),
		)
	}

	w := args.Window
	if args.TraceFormat != "" {
		w.Traces, err = format.ExpandTraceFormat(
			args.TraceFormat, int(g.TraceCount),
		)
		if err != nil {
			f.Close()
			return nil, trsfile.Window{}, err
		}
	}
	if w, err = w.Clamp(g); err != nil {
		f.Close()
		return nil, trsfile.Window{}, err
	}

	con.Field("Traces extracted", len(w.TraceIndices()))
	con.Field("Sample range", fmt.Sprintf("[%d, %d)", w.XMin, w.XMax))

	return f, w, nil
}
