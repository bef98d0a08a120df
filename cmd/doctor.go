package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/doctor"
	"github.com/jfmyers9/adaptive-eq/internal/eq"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that EasyEffects can be controlled",
	Long: `Check each EasyEffects control surface the preset chain relies on: the
running processes, the GSettings schema, the D-Bus interface, the preset
files and the configuration directory.

With --preset the given preset is applied after the checks. With --all
every preset in the catalog is applied in turn, waiting --delay between
them, to hear each one.

Exit codes:
  0 - No check failed and every requested preset was applied
  1 - A check failed or a preset could not be applied`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("preset", "", "Apply this preset after the checks")
	doctorCmd.Flags().Bool("all", false, "Apply every preset in the catalog in turn")
	doctorCmd.Flags().Duration("delay", 3*time.Second, "Pause between presets with --all")
	doctorCmd.Flags().BoolP("force", "f", false, "Always run the full resync with --preset")
	doctorCmd.MarkFlagsMutuallyExclusive("preset", "all")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := newCLIApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	checks := doctor.New(a.controller, a.catalog, a.files, a.cfg.CallTimeout).Run(ctx)

	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		rows = append(rows, []string{c.Status.String(), c.Name, c.Detail})
	}
	out := cmd.OutOrStdout()
	if err := writeTable(out, rows); err != nil {
		return err
	}

	if n := doctor.Failed(checks); n > 0 {
		return fmt.Errorf("%d checks failed", n)
	}

	preset, _ := cmd.Flags().GetString("preset")
	all, _ := cmd.Flags().GetBool("all")

	switch {
	case preset != "":
		force, _ := cmd.Flags().GetBool("force")
		applyCtx, cancel := context.WithTimeout(ctx, commandTimeout(a))
		defer cancel()

		fmt.Fprintln(out)
		res := a.applier.Apply(applyCtx, preset, force)
		printResult(out, res)
		return res.Err()

	case all:
		delay, _ := cmd.Flags().GetDuration("delay")
		presets := a.catalog.List(ctx)

		fmt.Fprintf(out, "\nCycling %d presets, %s apart (Ctrl-C to stop)\n", len(presets), delay)
		failed := doctor.Cycle(ctx, a.applier, presets, delay, func(res eq.Result) {
			printResult(out, res)
		})
		if failed > 0 {
			return fmt.Errorf("%d of %d presets were not applied", failed, len(presets))
		}
	}

	return nil
}
