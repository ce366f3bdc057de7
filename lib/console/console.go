/*package console prints the human-facing progress report of tracedat:

   Parsing input file ... [OK]
   | Number of traces: 2
   | Number of samples per trace: 3

Status tags are coloured when the output is a terminal.
*/
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console writes progress lines to an io.Writer.
type Console struct {
	wr   io.Writer
	ok   func(format string, a ...interface{}) string
	fail func(format string, a ...interface{}) string
	open bool
}

// New returns a Console writing to wr. Colour is used only if wr is a
// terminal.
func New(wr io.Writer) *Console {
	c := &Console{wr: wr, ok: fmt.Sprintf, fail: fmt.Sprintf}
	if f, ok := wr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		green, red := color.New(color.FgGreen), color.New(color.FgRed)
		green.EnableColor()
		red.EnableColor()
		c.ok, c.fail = green.SprintfFunc(), red.SprintfFunc()
	}
	return c
}

// Step starts a step line, "<msg> ...". The line is finished by Done or
// Fail.
func (c *Console) Step(format string, a ...interface{}) {
	c.finish()
	fmt.Fprintf(c.wr, format+" ...", a...)
	c.open = true
}

// Done finishes the current step with "[OK]".
func (c *Console) Done() {
	if c.open {
		fmt.Fprintf(c.wr, " %s\n", c.ok("[OK]"))
		c.open = false
	}
}

// Fail finishes the current step with "[FAILED]".
func (c *Console) Fail() {
	if c.open {
		fmt.Fprintf(c.wr, " %s\n", c.fail("[FAILED]"))
		c.open = false
	}
}

// Field prints a "| <name>: <value>" detail line.
func (c *Console) Field(name string, value interface{}) {
	c.finish()
	fmt.Fprintf(c.wr, "| %s: %v\n", name, value)
}

// Println prints a plain line.
func (c *Console) Println(a ...interface{}) {
	c.finish()
	fmt.Fprintln(c.wr, a...)
}

func (c *Console) finish() {
	if c.open {
		fmt.Fprintln(c.wr)
		c.open = false
	}
}

// Writer returns the underlying io.Writer, for output which isn't a progress
// line.
func (c *Console) Writer() io.Writer {
	c.finish()
	return c.wr
}
