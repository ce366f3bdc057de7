/*package logging builds the go-kit logger used by tracedat. Log lines are
logfmt on stderr with a UTC timestamp.
*/
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Levels lists the accepted values of the LogLevel parameter.
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel converts a LogLevel parameter into a go-kit filter option.
func ParseLevel(name string) (level.Option, error) {
	switch strings.ToLower(name) {
	case "debug":
		return level.AllowDebug(), nil
	case "", "info":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, fmt.Errorf("'%s' isn't a log level. Valid levels are %s",
		name, strings.Join(Levels, ", "))
}

// New returns a logger which writes to wr and drops everything below the
// named level.
func New(wr io.Writer, levelName string) (log.Logger, error) {
	opt, err := ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(wr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, opt), nil
}
