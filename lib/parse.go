package lib

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/tracedat/lib/format"
	"github.com/phil-mansfield/tracedat/lib/gpl"
	"github.com/phil-mansfield/tracedat/lib/logging"
	"github.com/phil-mansfield/tracedat/lib/table"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// RawArgs stores the unprocessed values which the user assigned to each config
// variable. Field names are the variable names in the [tracedat] section of
// a config file.
type RawArgs struct {
	Input, Output, MeanOutput, Gpl string

	TraceLimit int
	Traces     string
	XMin, XMax int

	ByteOrder   string
	Threads     int
	StrictSize  bool
	Compression int

	PlotImage, PlotTitle string
	LogLevel             string

	SynthTraces, SynthSamples int
	SynthType                 string
	SynthKnownData            int
	SynthSeed                 int64

	// flagsSet holds the names of the flags which were given explicitly.
	flagsSet map[string]bool
}

// SynthArgs describes the capture written by "synth" mode.
type SynthArgs struct {
	Geometry trsfile.Geometry
	Seed     int64
}

// Args stores configuration information. It is a post-processed version of
// RawArgs.
type Args struct {
	Mode Mode

	Input, Output, MeanOutput, Gpl string

	// Window has not been clamped yet and its Traces are empty: the explicit
	// trace list can only be checked once the header has been read.
	Window      trsfile.Window
	TraceFormat string

	Order       binary.ByteOrder
	Threads     int
	Strictness  CheckStrictness
	Compression int

	PlotImage, PlotTitle string
	LogLevel             string

	Synth SynthArgs
}

// DefaultRawArgs returns the values used for variables which are set neither
// in the config file nor on the command line.
func DefaultRawArgs() *RawArgs {
	return &RawArgs{
		ByteOrder:    "little",
		Threads:      1,
		Compression:  table.DefaultCompression,
		PlotImage:    gpl.DefaultImage,
		PlotTitle:    gpl.DefaultTitle,
		LogLevel:     "info",
		SynthTraces:  100,
		SynthSamples: 1000,
		SynthType:    "float",
		SynthSeed:    1,
	}
}

// newFlagSet creates the command line flags for mode, bound to the fields of
// args. The returned string receives the name of the config file.
func newFlagSet(mode string, args *RawArgs) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("tracedat "+mode, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configFile := fs.String("config", "", "Config file with a [tracedat] section.")
	fs.StringVar(&args.Input, "in", args.Input, "Input trace capture.")
	fs.StringVar(&args.Output, "out", args.Output, "Output table of raw trace values. Ends in .zst for compression.")
	fs.StringVar(&args.MeanOutput, "mean", args.MeanOutput, "Output table of per-sample means and variances.")
	fs.StringVar(&args.Gpl, "gpl", args.Gpl, "Output gnuplot script.")
	fs.IntVar(&args.TraceLimit, "n", args.TraceLimit, "Number of traces to extract. 0 means all.")
	fs.StringVar(&args.Traces, "traces", args.Traces, "Explicit traces to extract, e.g. '0..99 - 63'. Overrides -n.")
	fs.IntVar(&args.XMin, "min", args.XMin, "First sample to extract.")
	fs.IntVar(&args.XMax, "max", args.XMax, "One past the last sample to extract. 0 means the end of the trace.")
	fs.StringVar(&args.ByteOrder, "order", args.ByteOrder, "Byte order of the capture: little, big, or native.")
	fs.IntVar(&args.Threads, "threads", args.Threads, "Number of worker threads. -1 means one per core.")
	fs.BoolVar(&args.StrictSize, "strict", args.StrictSize, "Fail if the capture is shorter than its header says.")
	fs.IntVar(&args.Compression, "compression", args.Compression, "zstd level for .zst tables.")
	fs.StringVar(&args.PlotImage, "plot-image", args.PlotImage, "Image written by the gnuplot script.")
	fs.StringVar(&args.PlotTitle, "plot-title", args.PlotTitle, "Title of the plot.")
	fs.StringVar(&args.LogLevel, "log-level", args.LogLevel, "Log level: debug, info, warn, or error.")
	fs.IntVar(&args.SynthTraces, "synth-traces", args.SynthTraces, "Traces in a synthetic capture.")
	fs.IntVar(&args.SynthSamples, "synth-samples", args.SynthSamples, "Samples per trace in a synthetic capture.")
	fs.StringVar(&args.SynthType, "synth-type", args.SynthType, "Datatype of a synthetic capture: float or double.")
	fs.IntVar(&args.SynthKnownData, "synth-known", args.SynthKnownData, "Bytes of known data per trace in a synthetic capture.")
	fs.Int64Var(&args.SynthSeed, "synth-seed", args.SynthSeed, "Random seed for a synthetic capture.")

	return fs, configFile
}

// ParseCommandLine parses the command line arguments and returns the mode
// tracedat is being run in, the name of the config file, and any arguments
// which were set. Expects that the arguments are presented in the order:
// $ tracedat <mode> [-config <file>] [-<Arg1> <Value1>] [-<Arg2> <Value2>]
func ParseCommandLine(argv []string) (
	mode Mode, configFile string, args *RawArgs, err error,
) {
	if len(argv) == 0 {
		return HelpMode, "", DefaultRawArgs(), nil
	}

	mode, err = ParseMode(argv[0])
	if err != nil {
		return mode, "", nil, err
	}

	args = DefaultRawArgs()
	fs, configPtr := newFlagSet(argv[0], args)
	if err := fs.Parse(argv[1:]); err != nil {
		return mode, "", nil, &trsfile.ConfigError{
			Param: "command line", Msg: err.Error(),
		}
	}
	if fs.NArg() > 0 {
		return mode, "", nil, &trsfile.ConfigError{
			Param: "command line",
			Msg:   fmt.Sprintf("unexpected argument '%s'", fs.Arg(0)),
		}
	}

	args.flagsSet = map[string]bool{}
	fs.Visit(func(f *flag.Flag) { args.flagsSet[f.Name] = true })

	return mode, *configPtr, args, nil
}

type configFile struct {
	Tracedat RawArgs
}

// ParseConfigFile parses arguments from a config file. An empty fileName
// gives the defaults.
func ParseConfigFile(fileName string) (*RawArgs, error) {
	conf := &configFile{Tracedat: *DefaultRawArgs()}
	if fileName == "" {
		return &conf.Tracedat, nil
	}

	if err := gcfg.ReadFileInto(conf, fileName); err != nil {
		return nil, &trsfile.ConfigError{
			Param: "config",
			Msg: fmt.Sprintf("could not read config file '%s': %s",
				fileName, err.Error()),
		}
	}
	return &conf.Tracedat, nil
}

// ParseConfigString is ParseConfigFile for config text held in memory.
func ParseConfigString(text string) (*RawArgs, error) {
	conf := &configFile{Tracedat: *DefaultRawArgs()}
	if err := gcfg.ReadStringInto(conf, text); err != nil {
		return nil, &trsfile.ConfigError{Param: "config", Msg: err.Error()}
	}
	return &conf.Tracedat, nil
}

// Overwrite arguments in arg1 which were set explicitly on the command line
// in arg2.
func (arg1 *RawArgs) Overwrite(arg2 *RawArgs) {
	for name := range arg2.flagsSet {
		switch name {
		case "in":
			arg1.Input = arg2.Input
		case "out":
			arg1.Output = arg2.Output
		case "mean":
			arg1.MeanOutput = arg2.MeanOutput
		case "gpl":
			arg1.Gpl = arg2.Gpl
		case "n":
			arg1.TraceLimit = arg2.TraceLimit
		case "traces":
			arg1.Traces = arg2.Traces
		case "min":
			arg1.XMin = arg2.XMin
		case "max":
			arg1.XMax = arg2.XMax
		case "order":
			arg1.ByteOrder = arg2.ByteOrder
		case "threads":
			arg1.Threads = arg2.Threads
		case "strict":
			arg1.StrictSize = arg2.StrictSize
		case "compression":
			arg1.Compression = arg2.Compression
		case "plot-image":
			arg1.PlotImage = arg2.PlotImage
		case "plot-title":
			arg1.PlotTitle = arg2.PlotTitle
		case "log-level":
			arg1.LogLevel = arg2.LogLevel
		case "synth-traces":
			arg1.SynthTraces = arg2.SynthTraces
		case "synth-samples":
			arg1.SynthSamples = arg2.SynthSamples
		case "synth-type":
			arg1.SynthType = arg2.SynthType
		case "synth-known":
			arg1.SynthKnownData = arg2.SynthKnownData
		case "synth-seed":
			arg1.SynthSeed = arg2.SynthSeed
		}
	}
}

// Process converts the raw user input to a format which is more useful for
// internal functions. Very simple validation will be done here, but nothing
// which requires interacting with external files.
func (args *RawArgs) Process(mode Mode) (*Args, error) {
	out := &Args{
		Mode: mode, Input: args.Input, Output: args.Output,
		MeanOutput: args.MeanOutput, Gpl: args.Gpl,
		Window: trsfile.Window{
			TraceLimit: args.TraceLimit, XMin: args.XMin, XMax: args.XMax,
		},
		TraceFormat: strings.TrimSpace(args.Traces),
		Compression: args.Compression,
		PlotImage:   args.PlotImage, PlotTitle: args.PlotTitle,
		LogLevel: args.LogLevel,
	}
	if args.StrictSize {
		out.Strictness = CrashOnError
	}

	if mode == HelpMode || mode == ExampleConfigMode {
		return out, nil
	}

	var err error
	if out.Order, err = trsfile.ParseByteOrder(args.ByteOrder); err != nil {
		return nil, err
	}
	if _, err = logging.ParseLevel(args.LogLevel); err != nil {
		return nil, &trsfile.ConfigError{Param: "LogLevel", Msg: err.Error()}
	}
	if out.Threads, err = Threads(args.Threads); err != nil {
		return nil, err
	}

	if args.Input == "" {
		return nil, &trsfile.ConfigError{
			Param: "Input", Msg: "no input trace file was given",
		}
	}

	if mode == SynthMode {
		return out, args.processSynth(out)
	}

	if out.TraceFormat != "" {
		if _, err := format.ExpandSequenceFormat(out.TraceFormat); err != nil {
			return nil, &trsfile.ConfigError{
				Param: "Traces",
				Msg: fmt.Sprintf("the format string '%s' is not valid. %s",
					out.TraceFormat, err.Error()),
			}
		}
	}
	if args.XMax < 0 {
		return nil, &trsfile.ConfigError{
			Param: "XMax",
			Msg:   fmt.Sprintf("%d is negative. Use 0 for the end of the trace.", args.XMax),
		}
	}

	if mode == CheckMode {
		return out, nil
	}

	if args.Output == "" && args.MeanOutput == "" {
		return nil, &trsfile.ConfigError{
			Param: "Output",
			Msg:   "neither Output nor MeanOutput was set, so there is nothing to write",
		}
	}
	if args.Output != "" && args.Output == args.MeanOutput {
		return nil, &trsfile.ConfigError{
			Param: "MeanOutput",
			Msg:   fmt.Sprintf("Output and MeanOutput are both '%s'", args.Output),
		}
	}
	if args.Compression < 1 || args.Compression > 22 {
		return nil, &trsfile.ConfigError{
			Param: "Compression",
			Msg:   fmt.Sprintf("zstd levels run from 1 to 22, not %d", args.Compression),
		}
	}

	return out, nil
}

func (args *RawArgs) processSynth(out *Args) error {
	dt, err := parseDatatypeName(args.SynthType)
	if err != nil {
		return err
	}
	if args.SynthTraces < 1 || args.SynthSamples < 1 {
		return &trsfile.ConfigError{
			Param: "SynthTraces",
			Msg: fmt.Sprintf("a synthetic capture needs at least one trace "+
				"and one sample, not %d traces of %d samples",
				args.SynthTraces, args.SynthSamples),
		}
	}
	if args.SynthKnownData < 0 || args.SynthKnownData > 255 {
		return &trsfile.ConfigError{
			Param: "SynthKnownData",
			Msg:   fmt.Sprintf("known data must be 0 to 255 bytes, not %d", args.SynthKnownData),
		}
	}

	out.Synth = SynthArgs{
		Geometry: trsfile.Geometry{
			TraceCount:      uint32(args.SynthTraces),
			SamplesPerTrace: uint32(args.SynthSamples),
			Datatype:        dt,
			KnownDataLength: uint8(args.SynthKnownData),
		},
		Seed: args.SynthSeed,
	}
	return nil
}

func parseDatatypeName(name string) (trsfile.Datatype, error) {
	switch strings.ToLower(name) {
	case "float", "f", "float32":
		return trsfile.Float32, nil
	case "double", "d", "float64":
		return trsfile.Float64, nil
	}
	return 0, &trsfile.ConfigError{
		Param: "SynthType",
		Msg:   fmt.Sprintf("'%s' isn't a datatype. Use 'float' or 'double'.", name),
	}
}

// PrintHelp writes the usage of every mode and the description of every flag
// to wr.
func PrintHelp(wr io.Writer) {
	fmt.Fprint(wr, `Expected usage:
tracedat convert [-config <file>] [flags]
tracedat check [-config <file>] [flags]
tracedat confirm [-config <file>] [flags]
tracedat synth [-config <file>] [flags]
tracedat example_config
tracedat help

- "convert" reads a trace capture and writes a table of raw trace values, a
  table of per-sample means and variances, and a gnuplot script.
- "check" reads the header of a capture and checks the configuration against
  it without writing anything.
- "confirm" checks tables written by "convert" against the capture.
- "synth" writes a synthetic capture to the Input path.
- "example_config" prints an example config file.

Flags override values in the config file:
`)
	fs, _ := newFlagSet("help", DefaultRawArgs())
	fs.SetOutput(wr)
	fs.PrintDefaults()
}

// ExampleConfig returns the text of an example config file.
func ExampleConfig() string {
	return `[tracedat]

#######################################
## Variables needed by every mode    ##
#######################################

# Input is the trace capture. In synth mode, this is where the synthetic
# capture is written.
Input = path/to/capture.trs

# ByteOrder is the byte order of the header and samples: little, big, or
# native.
ByteOrder = little

# Threads is the number of threads used to extract traces. If set to -1, one
# thread will be used for each core.
Threads = 1

# LogLevel is one of debug, info, warn, or error.
LogLevel = info

#######################################
## Variables needed by the check,    ##
## convert, and confirm modes        ##
#######################################

# TraceLimit is the number of traces to extract, starting from the first. 0
# means every trace.
TraceLimit = 0

# Traces lists the traces to extract explicitly and overrides TraceLimit.
# Traces are numbered from 0. You can remove individual traces or ranges of
# traces with "-", and you can add them in the same way with "+". The example
# below takes the first 100 traces, except for trace 63.
# Traces = 0..99 - 63

# XMin and XMax give the sample range [XMin, XMax) to extract. XMax = 0 means
# the end of the trace.
XMin = 0
XMax = 0

# StrictSize makes a capture which is shorter than its header says an error
# instead of a warning.
StrictSize = false

#######################################
## Variables needed by the convert   ##
## and confirm modes                 ##
#######################################

# Output is the table of raw values: one line per sample, with the sample
# number followed by one column per trace. Names ending in .zst are
# compressed.
Output = traces.dat

# MeanOutput is the table of per-sample means and variances.
MeanOutput = mean.dat

# Compression is the zstd level used for .zst tables.
Compression = 5

# Gpl is a gnuplot script plotting the tables. Leave it empty to skip it.
Gpl = traces.gpl
PlotImage = power_traces.png
PlotTitle = Power Traces

#######################################
## Variables needed by synth mode    ##
#######################################

SynthTraces = 100
SynthSamples = 1000
SynthType = float
SynthKnownData = 16
SynthSeed = 1
`
}
