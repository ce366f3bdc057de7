package trsfile

import (
	"fmt"
)

// Window is the part of a file the user wants to extract: a set of traces
// and the half-open sample range [XMin, XMax).
//
// A Window built from user input is clamped against a Geometry with Clamp
// before use. TraceLimit <= 0 and TraceLimit > TraceCount both mean "all
// traces", and XMax == 0 and XMax > SamplesPerTrace both mean "up to the last
// sample". If Traces is non-empty it lists the trace indices explicitly and
// TraceLimit is ignored.
type Window struct {
	TraceLimit int
	Traces     []int
	XMin, XMax int
}

// Clamp returns a copy of w which is valid for g. Clamping an already-clamped
// window against the same Geometry returns an identical window. An empty
// sample range or an explicit trace index outside the file is a ConfigError.
func (w Window) Clamp(g Geometry) (Window, error) {
	out := Window{TraceLimit: w.TraceLimit, XMin: w.XMin, XMax: w.XMax}
	nTraces, nSamples := int(g.TraceCount), int(g.SamplesPerTrace)

	if nTraces == 0 {
		return Window{}, &ConfigError{
			Param: "Traces",
			Msg:   "the file header says it contains no traces",
		}
	}

	if len(w.Traces) > 0 {
		out.Traces = make([]int, len(w.Traces))
		for i, trace := range w.Traces {
			if trace < 0 || trace >= nTraces {
				return Window{}, &ConfigError{
					Param: "Traces",
					Msg: fmt.Sprintf("trace %d was requested, but the file "+
						"only contains traces 0 to %d", trace, nTraces-1),
				}
			}
			out.Traces[i] = trace
		}
		out.TraceLimit = len(out.Traces)
	} else if out.TraceLimit <= 0 || out.TraceLimit > nTraces {
		out.TraceLimit = nTraces
	}

	if out.XMax <= 0 || out.XMax > nSamples {
		out.XMax = nSamples
	}
	if out.XMin < 0 {
		out.XMin = 0
	}
	if out.XMin >= out.XMax {
		return Window{}, &ConfigError{
			Param: "XMin",
			Msg: fmt.Sprintf("the sample range [%d, %d) is empty; the file "+
				"has %d samples per trace", out.XMin, out.XMax, nSamples),
		}
	}

	return out, nil
}

// TraceIndices returns the traces covered by a clamped window in the order
// they should be read.
func (w Window) TraceIndices() []int {
	if len(w.Traces) > 0 {
		return w.Traces
	}
	idx := make([]int, w.TraceLimit)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Samples returns the number of sample positions in a clamped window.
func (w Window) Samples() int { return w.XMax - w.XMin }
