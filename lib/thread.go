package lib

/* thread.go contains functions useful for multi-threading. */

import (
	"fmt"
	"runtime"

	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// numCPU is replaced in tests.
var (
	defaultNumCPU = runtime.NumCPU
	numCPU        = defaultNumCPU
)

// Threads converts the Threads parameter into a worker count. -1 means one
// worker per core.
func Threads(n int) (int, error) {
	switch {
	case n == -1:
		return numCPU(), nil
	case n < 1:
		return 0, &trsfile.ConfigError{
			Param: "Threads",
			Msg: fmt.Sprintf("%d threads requested. Threads must be "+
				"positive, or -1 to use every core.", n),
		}
	case n > numCPU():
		return 0, &trsfile.ConfigError{
			Param: "Threads",
			Msg: fmt.Sprintf("%d threads requested, but your system only "+
				"has %d cores. If you want tracedat to use every core, set "+
				"Threads = -1.", n, numCPU()),
		}
	}
	return n, nil
}
