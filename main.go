// l10npatch repairs quoting and backfills missing keys in the language
// blocks of a generated Dart localization table.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minios-linux/l10npatch/arbfile"
	"github.com/minios-linux/l10npatch/artifact"
	"github.com/minios-linux/l10npatch/config"
	"github.com/minios-linux/l10npatch/dartmap"
	"github.com/minios-linux/l10npatch/i18n"
	"github.com/minios-linux/l10npatch/langmeta"
	"github.com/minios-linux/l10npatch/lockfile"
	"github.com/minios-linux/l10npatch/merge"
	"github.com/minios-linux/l10npatch/quotefix"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
)

func loadConfig() (*config.Config, error) {
	return config.Load(rootDir, configPath)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "l10npatch",
		Short: "Repair and complete the language blocks of a Dart localization table",
		Long: `l10npatch repairs and completes the language blocks of a generated
Dart localization table (lib/utils/localization_helper.dart by default).

The table is configured in .l10npatch.yaml in the project root; without
one, the built-in key tables are used.

Commands:
  fix-quotes  Rewrite single-quoted entry values to double quotes
  patch       Append canonical keys missing from each language block
  run         fix-quotes, then patch
  status      Show per-language key coverage without writing
  export-arb  Write one language block as a Flutter ARB file`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/"+config.FileName+")")

	root.AddCommand(
		newFixQuotesCmd(),
		newPatchCmd(),
		newRunCmd(),
		newStatusCmd(),
		newExportARBCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "l10npatch version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
			fmt.Fprintf(out, "  catalogs:  %s\n", strings.Join(i18n.Available(), ", "))
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// fix-quotes
// ---------------------------------------------------------------------------

func newFixQuotesCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "fix-quotes",
		Short: "Rewrite single-quoted entry values to double quotes",
		Long: `Rewrite every entry line of the form

  'key': 'value',

to

  'key': "value",

escaping double quotes inside the value. Lines in any other shape are left
untouched, so running it again changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runFixQuotes(cfg, cmd.OutOrStdout(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print a diff instead of writing the artifact")

	return cmd
}

func runFixQuotes(cfg *config.Config, out io.Writer, dryRun bool) error {
	rel := cfg.ArtifactRel()

	text, err := artifact.Read(cfg.Artifact)
	if err != nil {
		return err
	}

	fixed, rep := quotefix.Normalize(text)
	logQuoteReport(rel, rep)

	if dryRun {
		return printDiff(out, rel, text, fixed)
	}

	if rep.Changed() > 0 {
		if err := artifact.Write(cfg.Artifact, fixed); err != nil {
			return err
		}
		if err := updateLock(cfg, fixed, nil); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, i18n.T("Fixed quotes."))
	return nil
}

func logQuoteReport(rel string, rep quotefix.Report) {
	if rep.Changed() == 0 {
		logInfo("%s: no single-quoted values", rel)
		return
	}
	for i, line := range rep.Lines {
		logInfo("%s:%d: %s", rel, line, rep.Keys[i])
	}
	logInfo(i18n.N("%s: rewrote %d line", "%s: rewrote %d lines", rep.Changed()), rel, rep.Changed())
}

// ---------------------------------------------------------------------------
// patch
// ---------------------------------------------------------------------------

func newPatchCmd() *cobra.Command {
	var (
		langs  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Append canonical keys missing from each language block",
		Long: `For every configured group, locate its 'lang': { ... } block and append
each canonical key that does not occur in it, using the configured default
value. Existing entries are never changed or reordered. Groups without a
block in the artifact are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runPatch(cfg, cmd.OutOrStdout(), parseLangs(langs), dryRun)
		},
	}

	cmd.Flags().StringVar(&langs, "langs", "", "Groups to patch (comma-separated, default: all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print a diff instead of writing the artifact")

	return cmd
}

func runPatch(cfg *config.Config, out io.Writer, langs []string, dryRun bool) error {
	rel := cfg.ArtifactRel()

	groups, err := cfg.Select(langs)
	if err != nil {
		return err
	}

	text, err := artifact.Read(cfg.Artifact)
	if err != nil {
		return err
	}

	patched, rep := merge.Reconcile(text, groups, merge.OptionsFrom(cfg))
	logPatchReport(rep)

	if dryRun {
		return printDiff(out, rel, text, patched)
	}

	if rep.Inserted() > 0 {
		if err := artifact.Write(cfg.Artifact, patched); err != nil {
			return err
		}
		err := updateLock(cfg, patched, func(lf *lockfile.LockFile) {
			recordInserted(lf, rel, groups, rep)
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(out, i18n.T("Done patching L10n"))
	return nil
}

func logPatchReport(rep merge.Report) {
	for _, g := range rep.Groups {
		switch {
		case !g.Found:
			logInfo("%s: no block, skipped", g.Lang)
		case len(g.Inserted) == 0:
			logInfo("%s: all %d keys present", g.Lang, g.Present)
		default:
			logInfo(i18n.N("%s: inserted %d key (%s)", "%s: inserted %d keys (%s)", len(g.Inserted)),
				g.Lang, len(g.Inserted), strings.Join(g.Inserted, ", "))
		}
	}
}

// recordInserted stores the defaults written for every inserted key.
// rep.Groups is parallel to groups.
func recordInserted(lf *lockfile.LockFile, rel string, groups []config.Group, rep merge.Report) {
	for i, res := range rep.Groups {
		target := lockfile.GroupTarget(rel, res.Lang)
		lf.Clean(target, groups[i].Keys())
		if len(res.Inserted) == 0 {
			continue
		}
		defaults := firstValues(groups[i])
		for _, key := range res.Inserted {
			lf.Record(target, key, defaults[key])
		}
	}
}

// firstValues maps each key of g to its first canonical value.
func firstValues(g config.Group) map[string]string {
	values := make(map[string]string, len(g.Entries))
	for _, kv := range g.Entries {
		if _, ok := values[kv.Key]; !ok {
			values[kv.Key] = kv.Value
		}
	}
	return values
}

// ---------------------------------------------------------------------------
// run (fix-quotes + patch)
// ---------------------------------------------------------------------------

func newRunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run fix-quotes, then patch",
		Long: `Run fix-quotes and then patch on the artifact, each as its own
read-modify-write. With --dry-run both passes are applied in memory and a
single diff is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runAll(cfg, cmd.OutOrStdout(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print a diff instead of writing the artifact")

	return cmd
}

func runAll(cfg *config.Config, out io.Writer, dryRun bool) error {
	if !dryRun {
		if err := runFixQuotes(cfg, out, false); err != nil {
			return err
		}
		return runPatch(cfg, out, nil, false)
	}

	rel := cfg.ArtifactRel()
	text, err := artifact.Read(cfg.Artifact)
	if err != nil {
		return err
	}

	fixed, qrep := quotefix.Normalize(text)
	logQuoteReport(rel, qrep)
	patched, prep := merge.Reconcile(fixed, cfg.Groups, merge.OptionsFrom(cfg))
	logPatchReport(prep)

	return printDiff(out, rel, text, patched)
}

// ---------------------------------------------------------------------------
// status (read-only: per-group coverage)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-language key coverage without writing",
		Long: `Show the configuration in use and, for every group, whether its block
exists in the artifact, how many canonical keys it has and lacks, and which
inserted defaults have changed in the configuration since. Does not modify
any files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runStatus(cfg, cmd.ErrOrStderr())
		},
	}

	return cmd
}

func runStatus(cfg *config.Config, w io.Writer) error {
	rel := cfg.ArtifactRel()

	text, err := artifact.Read(cfg.Artifact)
	if err != nil {
		return err
	}
	lf, err := lockfile.Load(cfg.Dir())
	if err != nil {
		return err
	}

	source := cfg.Path
	if source == "" {
		source = "built-in defaults"
	}

	fmt.Fprintf(w, "\n%sProject%s\n", colorBlue, colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  Root:       %s\n", cfg.Root)
	fmt.Fprintf(w, "  Config:     %s\n", source)
	fmt.Fprintf(w, "  Artifact:   %s\n", rel)
	fmt.Fprintf(w, "  Escape:     %s\n", cfg.Escape)
	fmt.Fprintf(w, "  Matching:   %s\n", cfg.BlockMatch)
	fmt.Fprintf(w, "  Lock:       %s\n", lf.Summary())
	fmt.Fprintln(w)

	_, rep := merge.Reconcile(text, cfg.Groups, merge.OptionsFrom(cfg))

	fmt.Fprintf(w, "%sGroups%s\n", colorBlue, colorReset)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "%-8s %-8s %-8s %-8s %-8s %s\n", "Group", "Block", "Present", "Missing", "Stale", "Language")
	fmt.Fprintln(w, strings.Repeat("─", 60))

	var stale []string
	for i, res := range rep.Groups {
		g := cfg.Groups[i]
		label := langmeta.Label(g.Lang)
		if g.CopyOf != "" {
			label += " = " + g.CopyOf
		}
		if !res.Found {
			fmt.Fprintf(w, "%-8s %-8s %-8s %-8s %-8s %s\n", g.Lang, "missing", "-", "-", "-", label)
			continue
		}
		keys := lf.FilterStale(lockfile.GroupTarget(rel, g.Lang), firstValues(g))
		fmt.Fprintf(w, "%-8s %-8s %-8d %-8d %-8d %s\n", g.Lang, "found", res.Present, len(res.Inserted), len(keys), label)
		for _, k := range keys {
			stale = append(stale, g.Lang+"."+k)
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if _, qrep := quotefix.Normalize(text); qrep.Changed() > 0 {
		logInfo(i18n.N("%d line needs quote normalization (run 'l10npatch fix-quotes')",
			"%d lines need quote normalization (run 'l10npatch fix-quotes')", qrep.Changed()), qrep.Changed())
	}
	if n := rep.Inserted(); n > 0 {
		logInfo(i18n.N("%d key is missing (run 'l10npatch patch')",
			"%d keys are missing (run 'l10npatch patch')", n), n)
	}
	if len(stale) > 0 {
		logWarning("Defaults changed since insertion: %s", strings.Join(stale, ", "))
	}
	if changed, known := lf.ArtifactChanged(rel, text); known && changed {
		logWarning("%s was modified since l10npatch last wrote it", rel)
	}

	fmt.Fprintln(w)
	return nil
}

// ---------------------------------------------------------------------------
// export-arb
// ---------------------------------------------------------------------------

func newExportARBCmd() *cobra.Command {
	var (
		lang string
		out  string
	)

	cmd := &cobra.Command{
		Use:   "export-arb",
		Short: "Write one language block as a Flutter ARB file",
		Long: `Read the entries of one language block from the artifact and write them,
in order, to a Flutter ARB file with @@locale set to the language.

Only single-line 'key': 'value', and 'key': "value", entries are exported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runExportARB(cfg, lang, out)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Language block to export (required)")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: <root>/app_<lang>.arb)")
	_ = cmd.MarkFlagRequired("lang")

	return cmd
}

func runExportARB(cfg *config.Config, lang, out string) error {
	rel := cfg.ArtifactRel()

	text, err := artifact.Read(cfg.Artifact)
	if err != nil {
		return err
	}

	blk, ok := dartmap.FindBlock(text, lang, dartmap.MatchMode(cfg.BlockMatch))
	if !ok {
		return fmt.Errorf("%s: no block for group %q", rel, lang)
	}

	f := arbfile.New(lang)
	for _, e := range dartmap.Entries(blk.Interior(text)) {
		if err := f.Add(e.Key, e.Value); err != nil {
			return err
		}
	}

	if out == "" {
		out = filepath.Join(cfg.Root, "app_"+lang+".arb")
	}
	if err := f.WriteFile(out); err != nil {
		return err
	}

	logSuccess("Exported %d %s entries to %s", len(f.Keys()), f.Locale(), out)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// updateLock records content as the last written artifact, applies record
// and saves the lock file.
func updateLock(cfg *config.Config, content string, record func(lf *lockfile.LockFile)) error {
	lf, err := lockfile.Load(cfg.Dir())
	if err != nil {
		return err
	}
	if record != nil {
		record(lf)
	}
	lf.RecordArtifact(cfg.ArtifactRel(), content)
	return lf.Save()
}

// printDiff writes a unified diff of before and after to w.
func printDiff(w io.Writer, name, before, after string) error {
	if before == after {
		logInfo("%s: no changes", name)
		return nil
	}

	name = filepath.ToSlash(name)
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("diffing %s: %w", name, err)
	}

	fmt.Fprint(w, diff)
	logInfo("Dry run: %s not written", name)
	return nil
}

// parseLangs splits a comma-separated --langs value, dropping blanks.
func parseLangs(s string) []string {
	var langs []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}
