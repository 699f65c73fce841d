package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/pronocloud/internal/detail"
	"github.com/verte-zerg/pronocloud/internal/importer"
	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/logging"
	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/paint"
	"github.com/verte-zerg/pronocloud/internal/practice"
	"github.com/verte-zerg/pronocloud/internal/prefs"
	"github.com/verte-zerg/pronocloud/internal/render"
	"github.com/verte-zerg/pronocloud/internal/stats"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

var (
	topLimit  int
	topSearch string

	renderOut    string
	renderWidth  int
	renderHeight int

	planFormat string
	planOut    string
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Import attempts from YAML or JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logLevel)
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	total := 0
	for _, path := range args {
		records, err := importer.Load(path)
		if err != nil {
			return err
		}
		n, err := importer.Import(cmd.Context(), st, cfg.User, records)
		total += n
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("imported attempts", "file", filepath.Base(path), "count", n)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %s attempts for %s\n", humanize.Comma(int64(total)), cfg.User)
	return err
}

func newTopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print ranked targets",
		Args:  cobra.NoArgs,
		RunE:  runTopCmd,
	}
	cmd.Flags().IntVar(&topLimit, "limit", 0, "rows to print (default: fit the terminal)")
	cmd.Flags().StringVar(&topSearch, "search", "", "move matching targets to the top")
	return cmd
}

func runTopCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logLevel)
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	attempts, err := st.FetchHistory(cmd.Context(), cfg.User)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	now := time.Now()
	report := stats.BuildReport(attempts, stats.ReportConfig{
		Range:    cfg.Range,
		Rank:     cfg.Rank,
		Search:   topSearch,
		PoolSize: cfg.PoolSize,
		Now:      now,
	})

	out := cmd.OutOrStdout()
	limit := topLimit
	if limit <= 0 {
		limit = terminalRows(out)
	}
	top := report.TopWords
	if cfg.Taxonomy == model.TaxonomyPhonemes {
		top = report.TopPhonemes
	}
	if len(top) > 0 {
		ids := make([]string, 0, len(top))
		for _, t := range top {
			ids = append(ids, t.ID)
		}
		if _, err := fmt.Fprintf(out, "Practice next: %s\n\n", strings.Join(ids, ", ")); err != nil {
			return err
		}
	}
	title := fmt.Sprintf("%s by %s (%s, %d attempts)", cfg.Taxonomy, cfg.Rank, cfg.Range, report.Attempts)
	return stats.RenderTargetTable(out, title, report.Ranked(cfg.Taxonomy), limit, now)
}

// terminalRows fits the table to the terminal when out is one.
func terminalRows(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return render.DefaultMaxItems
	}
	_, rows, err := term.GetSize(int(f.Fd()))
	if err != nil || rows < 10 {
		return render.DefaultMaxItems
	}
	return rows - 6
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the cloud to a PNG file",
		Args:  cobra.NoArgs,
		RunE:  runRenderCmd,
	}
	cmd.Flags().StringVar(&renderOut, "out", "cloud.png", "output PNG path")
	cmd.Flags().IntVar(&renderWidth, "width", 1200, "image width in pixels")
	cmd.Flags().IntVar(&renderHeight, "height", 800, "image height in pixels")
	cmd.Flags().StringVar(&viewArg, "view", "", "view state query, e.g. 'tax=phonemes&rank=recency'")
	return cmd
}

func runRenderCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if renderWidth < 64 || renderHeight < 64 {
		return fmt.Errorf("--width and --height must be >= 64")
	}
	logger := logging.New(os.Stderr, logLevel)
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx := cmd.Context()
	saved := prefs.New(st, logger)
	view := viewstate.New(nil, logger)
	view.Boot(ctx, baseView(cfg), viewQuery(viewArg))

	loader := paint.NewFontLoader()
	surface := paint.NewRasterSurface(loader, renderWidth, renderHeight)
	pe := paint.NewEngine(surface, paint.Options{
		Theme:     view.Get().Theme,
		Cluster:   view.Get().Cluster,
		Scheduler: &paint.ImmediateScheduler{},
		Logger:    logger,
	})
	le := layout.NewEngine(layout.NewSpiral(surface), surface)
	orch := render.New(st, loader, view, saved, le, pe, renderOptions(cfg, logger))
	if err := orch.Draw(ctx, render.DrawOptions{}); err != nil {
		if errors.Is(err, render.ErrDependencyUnavailable) {
			return errors.New(render.MessageDependencyUnavailable)
		}
		return err
	}
	status := orch.Status()
	if status.Message != "" {
		return errors.New(status.Message)
	}

	file, err := os.Create(renderOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", renderOut, err)
	}
	if err := surface.WritePNG(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", renderOut, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	logger.Info("cloud rendered", "out", renderOut, "items", status.Items, "attempts", status.Attempts)
	return nil
}

// snapshotSource serves a precomputed snapshot to the detail controller.
type snapshotSource struct {
	snap render.Snapshot
}

func (s snapshotSource) Snapshot() render.Snapshot { return s.snap }

func newDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <id>",
		Short: "Show details for a word or phoneme (prefix with word: or phoneme: to disambiguate)",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetailCmd,
	}
}

func runDetailCmd(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logLevel)
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx := cmd.Context()
	attempts, err := st.FetchHistory(ctx, cfg.User)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	inRange := stats.FilterRange(attempts, cfg.Range, time.Now())
	source := snapshotSource{snap: render.Snapshot{
		History: attempts,
		InRange: inRange,
		Pools:   stats.Aggregate(inRange, stats.AggregateOptions{PoolSize: cfg.PoolSize}),
	}}
	vm, err := detail.New(source, prefs.New(st, logger), nil).Open(ctx, "", args[0])
	if err != nil {
		return err
	}
	return writeDetail(cmd.OutOrStdout(), vm)
}

func writeDetail(w io.Writer, vm detail.ViewModel) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", vm.Title, vm.Taxonomy)
	fmt.Fprintf(&b, "  average   %.1f (%s)\n", vm.Avg, vm.Band)
	fmt.Fprintf(&b, "  seen      %d times on %d days\n", vm.Count, vm.Days)
	fmt.Fprintf(&b, "  last seen %s\n", vm.LastSeenLabel)
	fmt.Fprintf(&b, "  priority  %.3f\n", vm.Priority)
	if vm.Favorite || vm.Pinned {
		fmt.Fprintf(&b, "  saved     favorite=%t pinned=%t\n", vm.Favorite, vm.Pinned)
	}
	if vm.Trend != "" {
		fmt.Fprintf(&b, "  trend     [%s]\n", vm.Trend)
	}
	if len(vm.Examples) > 0 {
		fmt.Fprintf(&b, "  examples  %s\n", strings.Join(vm.Examples, ", "))
	}
	if len(vm.Recents) > 0 {
		b.WriteString("  recent attempts:\n")
		for _, r := range vm.Recents {
			fmt.Fprintf(&b, "    %-14s %5.1f  %s\n", humanize.Time(r.When), r.Score, r.Text)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build the next practice plan",
		Args:  cobra.NoArgs,
		RunE:  runPlanCmd,
	}
	cmd.Flags().StringVar(&planFormat, "format", practice.FormatJSON, "json or yaml")
	cmd.Flags().StringVar(&planOut, "out", "", "write the plan to a file instead of stdout")
	cmd.Flags().StringVar(&practiceMix, "mix", viewstate.MixAuto, "auto, words, phonemes or both")
	cmd.Flags().IntVar(&practiceDrillWords, "drill-words", practice.DefaultDrillWords, "words per drill")
	cmd.Flags().StringVar(&practiceWordlist, "wordlist", "", "extra drill words, one per line")
	return cmd
}

func runPlanCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logLevel)
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	attempts, err := st.FetchHistory(cmd.Context(), cfg.User)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	inRange := stats.FilterRange(attempts, cfg.Range, time.Now())
	pools := stats.Aggregate(inRange, stats.AggregateOptions{PoolSize: cfg.PoolSize})
	plan, err := practice.BuildPlan(pools, practice.Options{
		Mix:        cfg.Mix,
		DrillWords: cfg.DrillWords,
		Wordlist:   loadDrillWords(cfg, logger),
	})
	if err != nil {
		return err
	}
	if planOut != "" {
		if err := practice.WriteFile(planOut, plan); err != nil {
			return err
		}
		logger.Info("practice plan written", "path", planOut)
		return nil
	}
	return practice.Encode(cmd.OutOrStdout(), plan, planFormat)
}

func newSavedCmd(use, kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short + " (uses --taxonomy)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSavedCmd(cmd, kind, args[0])
		},
	}
}

func runSavedCmd(cmd *cobra.Command, kind, id string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, logLevel)
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	id = stats.NormalizeID(cfg.Taxonomy, id)
	on, err := prefs.New(st, logger).Toggle(ctx, kind, cfg.Taxonomy, id)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	state := "removed from"
	if on {
		state = "added to"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n", id, state, cfg.Taxonomy, kind)
	return err
}
