package lib

/* convert.go contains the core functions of tracedat's "convert" mode. */

import (
	"context"
	"os"
	"time"

	"github.com/go-kit/log/level"

	"github.com/phil-mansfield/tracedat/lib/extract"
	"github.com/phil-mansfield/tracedat/lib/gpl"
	"github.com/phil-mansfield/tracedat/lib/table"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// Convert runs tracedat's "convert" mode. The raw table and the statistics
// table are produced by a single pass over the capture.
func Convert(ctx context.Context, args *Args, env *Env) error {
	f, w, err := Check(args, env)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	con := env.Console
	con.Step("Extracting %d traces", len(w.TraceIndices()))
	if err := writeTables(ctx, args, f, w); err != nil {
		con.Fail()
		return err
	}
	con.Done()
	level.Info(env.Logger).Log(
		"msg", "extracted traces", "traces", len(w.TraceIndices()),
		"samples", w.Samples(), "threads", args.Threads,
		"elapsed", time.Since(start),
	)
	if args.Output != "" {
		con.Field("Raw table", args.Output)
	}
	if args.MeanOutput != "" {
		con.Field("Mean/variance table", args.MeanOutput)
	}

	if args.Gpl == "" {
		return nil
	}
	con.Step("Writing plot script %s", args.Gpl)
	if err := PlotDescriptor(args, w).Create(args.Gpl); err != nil {
		con.Fail()
		return err
	}
	con.Done()
	return nil
}

// writeTables extracts w from f into the tables requested by args. If
// anything fails, including cancellation of ctx, the tables are removed so
// that no partial output is left behind.
func writeTables(
	ctx context.Context, args *Args, f *trsfile.File, w trsfile.Window,
) (err error) {
	var raw, mean *table.Writer
	closeAll := func() {
		for _, tw := range []*table.Writer{raw, mean} {
			if tw == nil {
				continue
			}
			if cerr := tw.Close(); err == nil {
				err = cerr
			}
		}
		if err == nil {
			return
		}
		if raw != nil {
			os.Remove(args.Output)
		}
		if mean != nil {
			os.Remove(args.MeanOutput)
		}
	}
	defer closeAll()

	if args.Output != "" {
		raw, err = table.Create(args.Output, f.Datatype.Bits(), args.Compression)
		if err != nil {
			return err
		}
	}
	if args.MeanOutput != "" {
		mean, err = table.Create(args.MeanOutput, 64, args.Compression)
		if err != nil {
			return err
		}
	}

	if args.Threads <= 1 {
		h := extract.Handler{}
		if raw != nil {
			h.Row = raw.WriteRow
		}
		if mean != nil {
			h.Stat = mean.WriteStat
		}
		return extract.Run(ctx, f, w, h)
	}

	res, err := extract.Collect(ctx, f, w, args.Threads, raw != nil, mean != nil)
	if err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := raw.WriteRow(row); err != nil {
			return err
		}
	}
	for _, s := range res.Stats {
		if err := mean.WriteStat(s); err != nil {
			return err
		}
	}
	return nil
}

// PlotDescriptor builds the gnuplot script for the tables requested by
// args.
func PlotDescriptor(args *Args, w trsfile.Window) *gpl.Descriptor {
	d := gpl.New(w.XMin, w.XMax)
	d.Image, d.Title = args.PlotImage, args.PlotTitle
	if args.Output != "" {
		d.AddTraces(args.Output, w.TraceIndices())
	}
	if args.MeanOutput != "" {
		d.AddStats(args.MeanOutput)
	}
	return d
}
