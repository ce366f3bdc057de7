/*package error contains simple functions for reporting tracedat errors and
ending the process.
*/
package error

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/phil-mansfield/tracedat/lib/table"
	"github.com/phil-mansfield/tracedat/lib/trsfile"
)

// exit is replaced in tests.
var (
	defaultExit = os.Exit
	exit        = defaultExit
)

// IsExternal returns true if err is something a user could reasonably be
// expected to fix through changes in configuration/data/environment. An
// interrupted run counts as external.
func IsExternal(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var (
		fe *trsfile.FormatError
		ce *trsfile.ConfigError
		ie *trsfile.IOError
		me *table.MismatchError
	)
	return errors.As(err, &fe) || errors.As(err, &ce) ||
		errors.As(err, &ie) || errors.As(err, &me)
}

// External reports an error and kills the process. It should be used when an
// error is something a user could reasonably be expected to fix. It has the
// same signature as the standard fmt.*printf() functions, after the logger.
func External(logger log.Logger, format string, a ...interface{}) {
	level.Error(logger).Log(
		"msg", "tracedat exited early", "err", fmt.Sprintf(format, a...),
	)
	exit(1)
}

// Internal reports an error along with a stack trace and kills the process.
// It should be used when the error requires a code dive to fix.
func Internal(logger log.Logger, format string, a ...interface{}) {
	level.Error(logger).Log(
		"msg", "tracedat exited early with an internal error",
		"err", fmt.Sprintf(format, a...), "stack", string(debug.Stack()),
	)
	exit(2)
}

// Fatal passes err to External or Internal depending on its type.
func Fatal(logger log.Logger, err error) {
	if IsExternal(err) {
		External(logger, "%s", err.Error())
	} else {
		Internal(logger, "%s", err.Error())
	}
}
