package lib

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/tracedat/lib/console"
	"github.com/phil-mansfield/tracedat/lib/table"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

func testEnv() (*Env, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Env{Logger: log.NewNopLogger(), Console: console.New(buf)}, buf
}

// writeFake writes a 2 trace, 3 sample float capture to dir.
func writeFake(t *testing.T, dir string) string {
	ff := &trsfile.FakeFile{
		Datatype: trsfile.Float32, KnownDataLength: 2,
		KnownData: []byte{0xaa, 0xbb},
		Samples:   [][]float64{{1, 2, 3}, {4, 5, 6}},
	}
	path := filepath.Join(dir, "capture.trs")
	require.NoError(t, os.WriteFile(path, ff.Bytes(binary.LittleEndian), 0644))
	return path
}

func processArgs(t *testing.T, mode Mode, argv ...string) *Args {
	_, _, cmd, err := ParseCommandLine(append([]string{mode.String()}, argv...))
	require.NoError(t, err)
	raw := DefaultRawArgs()
	raw.Overwrite(cmd)
	args, err := raw.Process(mode)
	require.NoError(t, err)
	return args
}

func TestParseMode(t *testing.T) {
	for i, name := range modeNames {
		mode, err := ParseMode(name)
		require.NoError(t, err)
		require.Equal(t, Mode(i), mode)
		require.Equal(t, name, mode.String())
	}
	_, err := ParseMode("compress")
	require.Error(t, err)
}

func TestParseCommandLine(t *testing.T) {
	mode, conf, args, err := ParseCommandLine([]string{
		"convert", "-config", "a.ini", "-in", "x.trs", "-n", "5", "-strict",
	})
	require.NoError(t, err)
	require.Equal(t, ConvertMode, mode)
	require.Equal(t, "a.ini", conf)
	require.Equal(t, "x.trs", args.Input)
	require.Equal(t, 5, args.TraceLimit)
	require.True(t, args.StrictSize)

	mode, _, _, err = ParseCommandLine(nil)
	require.NoError(t, err)
	require.Equal(t, HelpMode, mode)

	_, _, _, err = ParseCommandLine([]string{"convert", "-nope"})
	require.Error(t, err)
	_, _, _, err = ParseCommandLine([]string{"convert", "stray"})
	require.Error(t, err)
}

func TestOverwrite(t *testing.T) {
	fileArgs, err := ParseConfigString(`[tracedat]
Input = from_file.trs
Output = file.dat
XMax = 100
Threads = 1
`)
	require.NoError(t, err)
	require.Equal(t, 100, fileArgs.XMax)
	require.Equal(t, "little", fileArgs.ByteOrder)

	// -max is set to its default value, but explicitly, so it still wins.
	_, _, cmd, err := ParseCommandLine([]string{
		"convert", "-in", "from_flag.trs", "-max", "0",
	})
	require.NoError(t, err)
	fileArgs.Overwrite(cmd)

	require.Equal(t, "from_flag.trs", fileArgs.Input)
	require.Equal(t, "file.dat", fileArgs.Output)
	require.Equal(t, 0, fileArgs.XMax)
}

func TestParseConfigFile(t *testing.T) {
	args, err := ParseConfigFile("")
	require.NoError(t, err)
	require.Equal(t, DefaultRawArgs(), args)

	path := filepath.Join(t.TempDir(), "tracedat.ini")
	require.NoError(t, os.WriteFile(path, []byte(ExampleConfig()), 0644))
	args, err = ParseConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "path/to/capture.trs", args.Input)
	require.Equal(t, "Power Traces", args.PlotTitle)
	require.Equal(t, 16, args.SynthKnownData)
	require.Equal(t, "", args.Traces)

	_, err = ParseConfigFile(filepath.Join(t.TempDir(), "missing.ini"))
	require.Error(t, err)
	_, err = ParseConfigString("[tracedat]\nNotAVariable = 1\n")
	require.Error(t, err)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		mode  Mode
		argv  []string
		param string
	}{
		{ConvertMode, []string{"-out", "a.dat"}, "Input"},
		{ConvertMode, []string{"-in", "a.trs"}, "Output"},
		{ConvertMode, []string{"-in", "a.trs", "-out", "a", "-mean", "a"}, "MeanOutput"},
		{ConvertMode, []string{"-in", "a.trs", "-out", "a", "-order", "middle"}, "ByteOrder"},
		{ConvertMode, []string{"-in", "a.trs", "-out", "a", "-traces", "1 +"}, "Traces"},
		{ConvertMode, []string{"-in", "a.trs", "-out", "a", "-max", "-3"}, "XMax"},
		{ConvertMode, []string{"-in", "a.trs", "-out", "a", "-threads", "0"}, "Threads"},
		{ConvertMode, []string{"-in", "a.trs", "-out", "a", "-compression", "30"}, "Compression"},
		{ConvertMode, []string{"-in", "a.trs", "-out", "a", "-log-level", "loud"}, "LogLevel"},
		{SynthMode, []string{"-in", "a.trs", "-synth-type", "int"}, "SynthType"},
		{SynthMode, []string{"-in", "a.trs", "-synth-traces", "0"}, "SynthTraces"},
		{SynthMode, []string{"-in", "a.trs", "-synth-known", "300"}, "SynthKnownData"},
	}

	for i := range tests {
		_, _, cmd, err := ParseCommandLine(
			append([]string{tests[i].mode.String()}, tests[i].argv...),
		)
		require.NoError(t, err, "%d", i)
		raw := DefaultRawArgs()
		raw.Overwrite(cmd)

		_, err = raw.Process(tests[i].mode)
		var ce *trsfile.ConfigError
		require.True(t, errors.As(err, &ce), "%d) got %v", i, err)
		require.Equal(t, tests[i].param, ce.Param, "%d", i)
	}

	// Check mode doesn't need any outputs.
	processArgs(t, CheckMode, "-in", "a.trs")
}

func TestThreads(t *testing.T) {
	numCPU = func() int { return 4 }
	defer func() { numCPU = defaultNumCPU }()

	n, err := Threads(-1)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	n, err = Threads(3)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for _, bad := range []int{0, -2, 5} {
		_, err = Threads(bad)
		require.Error(t, err, "%d", bad)
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := writeFake(t, dir)

	for _, threads := range []string{"1", "2"} {
		out := filepath.Join(dir, "traces"+threads+".dat")
		mean := filepath.Join(dir, "mean"+threads+".dat")
		gplPath := filepath.Join(dir, "plot"+threads+".gpl")

		numCPU = func() int { return 2 }
		args := processArgs(t, ConvertMode, "-in", in, "-out", out,
			"-mean", mean, "-gpl", gplPath, "-threads", threads)
		numCPU = defaultNumCPU

		env, _ := testEnv()
		require.NoError(t, Run(context.Background(), ConvertMode, args, env))

		b, err := os.ReadFile(out)
		require.NoError(t, err)
		require.Equal(t, "0 1 4\n1 2 5\n2 3 6\n", string(b))

		b, err = os.ReadFile(mean)
		require.NoError(t, err)
		require.Equal(t, "0 2.5 4.5\n1 3.5 4.5\n2 4.5 4.5\n", string(b))

		b, err = os.ReadFile(gplPath)
		require.NoError(t, err)
		require.Contains(t, string(b), "set xrange [0:3];")
		require.Contains(t, string(b), `u 1:3 t "2" with lines`)
		require.Contains(t, string(b), `u 1:3 t "variance" with lines`)
	}
}

func TestConvertWindow(t *testing.T) {
	dir := t.TempDir()
	in := writeFake(t, dir)
	out := filepath.Join(dir, "traces.dat.zst")

	args := processArgs(t, ConvertMode, "-in", in, "-out", out,
		"-traces", "1", "-min", "1", "-max", "10")
	env, _ := testEnv()
	require.NoError(t, Run(context.Background(), ConvertMode, args, env))

	tab, err := table.Open(out)
	require.NoError(t, err)
	require.Equal(t, 2, tab.Rows())
	require.Equal(t, []float64{1, 5}, tab.Row(0))
	require.Equal(t, []float64{2, 6}, tab.Row(1))

	args = processArgs(t, ConvertMode, "-in", in, "-out", out, "-min", "3")
	err = Run(context.Background(), ConvertMode, args, env)
	var ce *trsfile.ConfigError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "XMin", ce.Param)

	args = processArgs(t, ConvertMode, "-in", in, "-out", out, "-traces", "2")
	err = Run(context.Background(), ConvertMode, args, env)
	require.True(t, errors.As(err, &ce))
	require.Equal(t, "Traces", ce.Param)
}

func TestCheckTruncated(t *testing.T) {
	dir := t.TempDir()
	in := writeFake(t, dir)
	b, err := os.ReadFile(in)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, b[:len(b)-1], 0644))

	env, buf := testEnv()
	args := processArgs(t, CheckMode, "-in", in)
	require.NoError(t, Run(context.Background(), CheckMode, args, env))
	require.Contains(t, buf.String(), "| Number of traces: 2\n")
	require.Contains(t, buf.String(), "No errors detected.")

	args = processArgs(t, CheckMode, "-in", in, "-strict")
	err = Run(context.Background(), CheckMode, args, env)
	var fe *trsfile.FormatError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, trsfile.SizeMismatch, fe.Kind)

	// Without -strict, the short read is only found during extraction.
	args = processArgs(t, ConvertMode, "-in", in,
		"-out", filepath.Join(dir, "out.dat"))
	err = Run(context.Background(), ConvertMode, args, env)
	var ie *trsfile.IOError
	require.True(t, errors.As(err, &ie))
}

func TestSynthConfirm(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "synth.trs")
	out := filepath.Join(dir, "traces.dat.zst")
	mean := filepath.Join(dir, "mean.dat")
	env, _ := testEnv()

	for _, dt := range []string{"float", "double"} {
		args := processArgs(t, SynthMode, "-in", in, "-synth-traces", "7",
			"-synth-samples", "50", "-synth-known", "4", "-synth-type", dt,
			"-order", "big")
		require.NoError(t, Run(context.Background(), SynthMode, args, env))

		f, err := trsfile.Open(in, binary.BigEndian)
		require.NoError(t, err)
		require.Equal(t, uint32(7), f.TraceCount)
		require.Equal(t, uint32(50), f.SamplesPerTrace)
		require.Equal(t, f.TotalFileSize(), f.Size)
		require.NoError(t, f.Close())

		args = processArgs(t, ConvertMode, "-in", in, "-out", out,
			"-mean", mean, "-order", "big", "-n", "5")
		require.NoError(t, Run(context.Background(), ConvertMode, args, env))

		args = processArgs(t, ConfirmMode, "-in", in, "-out", out,
			"-mean", mean, "-order", "big", "-n", "5")
		require.NoError(t, Run(context.Background(), ConfirmMode, args, env))

		// A capture read with more traces than were written doesn't match.
		args = processArgs(t, ConfirmMode, "-in", in, "-out", out,
			"-order", "big")
		err = Run(context.Background(), ConfirmMode, args, env)
		var me *table.MismatchError
		require.True(t, errors.As(err, &me), "%v", err)
		require.Equal(t, -1, me.Column)
	}
}

func TestConfirmMismatch(t *testing.T) {
	dir := t.TempDir()
	in := writeFake(t, dir)
	mean := filepath.Join(dir, "mean.dat")
	require.NoError(t, os.WriteFile(mean,
		[]byte("0 2.5 4.5\n1 3.5 4.5\n2 4.5 4.6\n"), 0644))

	env, _ := testEnv()
	args := processArgs(t, ConfirmMode, "-in", in, "-mean", mean)
	err := Run(context.Background(), ConfirmMode, args, env)
	var me *table.MismatchError
	require.True(t, errors.As(err, &me), "%v", err)
	require.Equal(t, 2, me.Row)
	require.Equal(t, 2, me.Column)
}

func TestConvertCancelled(t *testing.T) {
	dir := t.TempDir()
	in := writeFake(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, threads := range []string{"1", "2"} {
		out := filepath.Join(dir, "traces"+threads+".dat.zst")
		mean := filepath.Join(dir, "mean"+threads+".dat")
		gplPath := filepath.Join(dir, "plot"+threads+".gpl")

		numCPU = func() int { return 2 }
		args := processArgs(t, ConvertMode, "-in", in, "-out", out,
			"-mean", mean, "-gpl", gplPath, "-threads", threads)
		numCPU = defaultNumCPU

		env, _ := testEnv()
		err := Run(ctx, ConvertMode, args, env)
		require.True(t, errors.Is(err, context.Canceled), "%v", err)
		for _, path := range []string{out, mean, gplPath} {
			_, err := os.Stat(path)
			require.True(t, os.IsNotExist(err), "%s was left behind", path)
		}
	}

	in = filepath.Join(dir, "synth.trs")
	args := processArgs(t, SynthMode, "-in", in)
	env, _ := testEnv()
	err := Run(ctx, SynthMode, args, env)
	require.True(t, errors.Is(err, context.Canceled), "%v", err)
	_, err = os.Stat(in)
	require.True(t, os.IsNotExist(err))

	args = processArgs(t, ConfirmMode, "-in", writeFake(t, dir))
	err = Run(ctx, ConfirmMode, args, env)
	require.True(t, errors.Is(err, context.Canceled), "%v", err)
}

// convertConfirm writes ff to a capture, converts it, and confirms the
// resulting tables.
func convertConfirm(t *testing.T, ff *trsfile.FakeFile) error {
	dir := t.TempDir()
	in := filepath.Join(dir, "capture.trs")
	require.NoError(t, os.WriteFile(in, ff.Bytes(binary.LittleEndian), 0644))
	out := filepath.Join(dir, "traces.dat")
	mean := filepath.Join(dir, "mean.dat.zst")

	env, _ := testEnv()
	args := processArgs(t, ConvertMode, "-in", in, "-out", out, "-mean", mean)
	require.NoError(t, Run(context.Background(), ConvertMode, args, env))
	args = processArgs(t, ConfirmMode, "-in", in, "-out", out, "-mean", mean)
	return Run(context.Background(), ConfirmMode, args, env)
}

func TestConfirmNearZeroMean(t *testing.T) {
	const nTraces, nSamples = 50, 20
	rng := rand.New(rand.NewSource(7))

	samples := make([][]float64, nTraces)
	for i := range samples {
		samples[i] = make([]float64, nSamples)
		for j := range samples[i] {
			samples[i][j] = 2*rng.Float64() - 1
		}
	}
	// Centre every sample so the means are rounding noise around zero.
	for j := 0; j < nSamples; j++ {
		sum := 0.0
		for i := range samples {
			sum += samples[i][j]
		}
		for i := range samples {
			samples[i][j] -= sum / nTraces
		}
	}

	ff := &trsfile.FakeFile{Datatype: trsfile.Float64, Samples: samples}
	require.NoError(t, convertConfirm(t, ff))
}

func TestConfirmSubnormal(t *testing.T) {
	tiny := float64(math.Float32frombits(1))
	ff := &trsfile.FakeFile{
		Datatype: trsfile.Float32,
		Samples:  [][]float64{{tiny, -tiny, 0}, {tiny, 1, -tiny}},
	}
	require.NoError(t, convertConfirm(t, ff))
}

func TestStatTolerances(t *testing.T) {
	tests := []struct {
		x               []float64
		meanTol, varTol float64
	}{
		{[]float64{1, -2}, 2e-9, 4e-9},
		{[]float64{-3, 0.5}, 3e-9, 9e-9},
		{[]float64{1e-9, -1e-9}, 1e-18, 1e-27},
		{[]float64{0, 0}, 0, 0},
	}

	for i := range tests {
		meanTol, varTol := statTolerances(tests[i].x)
		if math.Abs(meanTol-tests[i].meanTol) > 1e-12*tests[i].meanTol ||
			math.Abs(varTol-tests[i].varTol) > 1e-12*tests[i].varTol {
			t.Errorf("%d) Expected tolerances %g, %g, got %g, %g.", i,
				tests[i].meanTol, tests[i].varTol, meanTol, varTol)
		}
	}
}

func TestRawEqual(t *testing.T) {
	tiny := float64(math.Float32frombits(1))
	tests := []struct {
		dt       trsfile.Datatype
		exp, got float64
		eq       bool
	}{
		{trsfile.Float32, tiny, 1e-45, true},
		{trsfile.Float32, float64(float32(0.1)), 0.1, true},
		{trsfile.Float32, 1, 1.0000001, false},
		{trsfile.Float64, 0.1, 0.1, true},
		{trsfile.Float64, 0.1, 0.10000000000000002, false},
	}

	for i := range tests {
		if eq := rawEqual(tests[i].dt, tests[i].exp, tests[i].got); eq != tests[i].eq {
			t.Errorf("%d) Expected rawEqual(%g, %g) = %v, got %v.",
				i, tests[i].exp, tests[i].got, tests[i].eq, eq)
		}
	}
}

func TestHelpAndExampleConfig(t *testing.T) {
	env, buf := testEnv()
	require.NoError(t, Run(context.Background(), HelpMode, &Args{}, env))
	require.True(t, strings.HasPrefix(buf.String(), "Expected usage:"))
	require.Contains(t, buf.String(), "-traces")

	env, buf = testEnv()
	require.NoError(t, Run(context.Background(), ExampleConfigMode, &Args{}, env))
	require.Equal(t, ExampleConfig(), buf.String())
}
