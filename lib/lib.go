/*package lib contains the modes run by tracedat and the parsing of its
configuration. The functions in this particular package mainly glue together
the heavy lifting done by lib/'s subpackages.
*/
package lib

import (
	"context"
	"fmt"
)

// Version is the version of the software.
const Version = "0.1.0"

// Run runs a processed configuration in the given mode. Help and
// example_config output goes to env.Console.
func Run(ctx context.Context, mode Mode, args *Args, env *Env) error {
	switch mode {
	case HelpMode:
		PrintHelp(env.Console.Writer())
		return nil
	case ExampleConfigMode:
		fmt.Fprint(env.Console.Writer(), ExampleConfig())
		return nil
	case CheckMode:
		f, _, err := Check(args, env)
		if err != nil {
			return err
		}
		env.Console.Println("No errors detected.")
		return f.Close()
	case ConvertMode:
		return Convert(ctx, args, env)
	case ConfirmMode:
		return Confirm(ctx, args, env)
	case SynthMode:
		return Synth(ctx, args, env)
	}
	panic(fmt.Sprintf("Internal error: unknown mode %d", int(mode)))
}
