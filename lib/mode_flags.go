package lib

import (
	"fmt"
	"strings"
)

// Mode is the command tracedat is being run with.
type Mode int

const (
	ConvertMode Mode = iota
	CheckMode
	ConfirmMode
	SynthMode
	ExampleConfigMode
	HelpMode
)

var modeNames = []string{
	"convert", "check", "confirm", "synth", "example_config", "help",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts the first command line argument into a Mode.
func ParseMode(name string) (Mode, error) {
	for i := range modeNames {
		if name == modeNames[i] {
			return Mode(i), nil
		}
	}
	return -1, fmt.Errorf("You attempted to run tracedat in the mode '%s', "+
		"but the only valid modes are '%s'.", name,
		strings.Join(modeNames, "', '"))
}

// CheckStrictness indicates how the "check" logic should behave when the
// input file is shorter than its header says.
type CheckStrictness int

const (
	WarnOnError CheckStrictness = iota
	CrashOnError
)
