package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/adaptive-eq/internal/profiles"
)

// profilesCmd groups the artist profile commands
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage artist to preset mappings",
	Long: `Manage the artist to preset mappings used by the daemon.

Artist names are matched exactly, including case. Artists without a
mapping get the default preset. A running daemon must be restarted to see
changes.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List artist profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

var profilesSetCmd = &cobra.Command{
	Use:   "set <artist> <preset>",
	Short: "Map an artist to a preset",
	Args:  cobra.ExactArgs(2),
	RunE:  runProfilesSet,
}

var profilesRemoveCmd = &cobra.Command{
	Use:     "remove <artist>",
	Aliases: []string{"rm"},
	Short:   "Remove an artist mapping",
	Args:    cobra.ExactArgs(1),
	RunE:    runProfilesRemove,
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import mappings from a JSON file",
	Long: `Import mappings from a flat JSON object of artist to preset, e.g.

  {"Daft Punk": "electronic", "Miles Davis": "jazz"}

Existing mappings for the same artists are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesImport,
}

var profilesTestCmd = &cobra.Command{
	Use:   "test <artist>",
	Short: "Resolve an artist and apply its preset",
	Long: `Resolve an artist to a preset and apply it through the same chain the
daemon uses, printing the result of each method.

With --dry-run only the resolution is shown and nothing is applied.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesTest,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd, profilesSetCmd, profilesRemoveCmd, profilesImportCmd, profilesTestCmd)

	profilesListCmd.Flags().BoolP("by-preset", "p", false, "Group artists by preset")
	profilesSetCmd.Flags().Bool("allow-missing", false, "Save even if the preset is not in the catalog")
	profilesTestCmd.Flags().Bool("dry-run", false, "Only show which preset would be applied")
	profilesTestCmd.Flags().BoolP("force", "f", false, "Always run the full resync")
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	a, err := newCLIApp()
	if err != nil {
		return err
	}
	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	list, err := store.List(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintf(out, "No profiles. Every artist gets %q.\n", a.cfg.DefaultPreset)
		return nil
	}

	byPreset, _ := cmd.Flags().GetBool("by-preset")
	if byPreset {
		groups := profiles.GroupByPreset(list)
		presets := make([]string, 0, len(groups))
		for p := range groups {
			presets = append(presets, p)
		}
		sort.Strings(presets)
		for _, p := range presets {
			fmt.Fprintf(out, "%s (%d)\n", p, len(groups[p]))
			for _, artist := range groups[p] {
				fmt.Fprintf(out, "  %s\n", artist)
			}
		}
		return nil
	}

	return writeTable(out, profileRows(list))
}

// profileRows builds the list table, newest timestamps shown relative to now
func profileRows(list []profiles.Profile) [][]string {
	rows := [][]string{{"ARTIST", "PRESET", "UPDATED"}}
	for _, p := range list {
		rows = append(rows, []string{p.Artist, p.Preset, humanize.Time(p.UpdatedAt)})
	}
	return rows
}

func runProfilesSet(cmd *cobra.Command, args []string) error {
	artist, preset := args[0], args[1]

	a, err := newCLIApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	allowMissing, _ := cmd.Flags().GetBool("allow-missing")
	if !allowMissing && !a.catalog.Contains(ctx, preset) {
		return fmt.Errorf("preset %q not found (use --allow-missing to save anyway)", preset)
	}

	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Set(ctx, artist, preset); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s → %s\n", artist, preset)
	return nil
}

func runProfilesRemove(cmd *cobra.Command, args []string) error {
	a, err := newCLIApp()
	if err != nil {
		return err
	}
	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	removed, err := store.Remove(ctx, args[0])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no profile for %q", args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", args[0])
	return nil
}

func runProfilesImport(cmd *cobra.Command, args []string) error {
	mappings, err := profiles.LoadJSON(args[0])
	if err != nil {
		return err
	}

	a, err := newCLIApp()
	if err != nil {
		return err
	}
	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Unknown presets are imported but reported
	available := a.catalog.List(ctx)
	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}
	for artist, preset := range mappings {
		if !known[preset] {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s → %s: preset not in catalog\n", artist, preset)
		}
	}

	n, err := store.Import(ctx, mappings)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d profiles\n", n)
	return nil
}

func runProfilesTest(cmd *cobra.Command, args []string) error {
	a, err := newCLIApp()
	if err != nil {
		return err
	}
	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout(a))
	defer cancel()

	resolver, err := profiles.NewResolver(ctx, store, a.cfg.DefaultPreset)
	store.Close()
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")

	pt := profileTest{
		resolver: resolver,
		catalog:  a.catalog,
		applier:  a.applier,
		dryRun:   dryRun,
		force:    force,
	}
	return pt.run(ctx, cmd.OutOrStdout(), args[0])
}

// presetChecker reports whether a preset is in the catalog
type presetChecker interface {
	Contains(ctx context.Context, name string) bool
}

// profileTest resolves one artist and optionally applies the result
type profileTest struct {
	resolver *profiles.Resolver
	catalog  presetChecker
	applier  presetApplier
	dryRun   bool
	force    bool
}

func (pt profileTest) run(ctx context.Context, out io.Writer, artist string) error {
	preset, matched := pt.resolver.Lookup(artist)
	source := "default"
	if matched {
		source = "profile"
	}
	fmt.Fprintf(out, "%s → %s (%s)\n", artist, preset, source)

	if pt.dryRun {
		if !pt.catalog.Contains(ctx, preset) {
			fmt.Fprintf(out, "Warning: preset %q is not in the catalog and would be rejected\n", preset)
		}
		return nil
	}

	res := pt.applier.Apply(ctx, preset, pt.force)
	printResult(out, res)
	return res.Err()
}
