package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/eq"
	"github.com/jfmyers9/adaptive-eq/internal/logging"
)

var (
	applyForce   bool
	applyRestart bool
)

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply <preset>",
	Short: "Apply an EasyEffects output preset",
	Long: `Apply an EasyEffects output preset by name.

The preset must exist in the catalog (see 'adaptive-eq presets'). The
property, bus and file methods are tried in order; with --force the full
resync always runs as well.

Exit codes:
  0 - Preset applied
  1 - Preset not found or every method failed`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "Always run the full resync")
	applyCmd.Flags().BoolVar(&applyRestart, "restart", false, "Restart a running EasyEffects during the resync")
}

func runApply(cmd *cobra.Command, args []string) error {
	a, err := newApp(logging.New("", cliLogLevel), applyRestart)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout(a))
	defer cancel()

	res := a.applier.Apply(ctx, args[0], applyForce)
	printResult(cmd.OutOrStdout(), res)

	return res.Err()
}

// presetApplier is the part of eq.Applier the commands drive
type presetApplier interface {
	Apply(ctx context.Context, preset string, force bool) eq.Result
}

// printResult writes a short per-method report
func printResult(out io.Writer, res eq.Result) {
	for _, mr := range res.Methods {
		status := mr.Outcome.String()
		if mr.Err != nil {
			status = "error: " + mr.Err.Error()
		}
		fmt.Fprintf(out, "  %-8s %s\n", mr.Method, status)
	}
	fmt.Fprintf(out, "%s: %s\n", res.Preset, res.Outcome)
}
