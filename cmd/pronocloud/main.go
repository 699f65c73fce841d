// Package main provides the CLI entrypoint for pronocloud.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/pronocloud/internal/config"
	"github.com/verte-zerg/pronocloud/internal/detail"
	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/logging"
	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/paint"
	"github.com/verte-zerg/pronocloud/internal/practice"
	"github.com/verte-zerg/pronocloud/internal/prefs"
	"github.com/verte-zerg/pronocloud/internal/render"
	"github.com/verte-zerg/pronocloud/internal/stats"
	"github.com/verte-zerg/pronocloud/internal/store"
	"github.com/verte-zerg/pronocloud/internal/timeline"
	"github.com/verte-zerg/pronocloud/internal/tui"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
	"github.com/verte-zerg/pronocloud/internal/wordlist"
)

const (
	defaultUser        = "local"
	defaultSlowAfterMs = 1500
	defaultWindowDays  = 7
	defaultStep        = 1
	defaultIntervalMs  = 700
	defaultLogLevel    = "info"
)

var (
	cloudUser        string
	cloudTaxonomy    string
	cloudRank        string
	cloudRange       string
	cloudMaxItems    int
	cloudPoolSize    int
	cloudMinSize     float64
	cloudMaxSize     float64
	cloudTheme       string
	cloudCluster     bool
	cloudSlowAfterMs int

	timelineWindow   int
	timelineStep     int
	timelineInterval int

	practiceMix        string
	practiceDrillWords int
	practiceWordlist   string

	dbPath   string
	logLevel string
	logFile  string
	viewArg  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pronocloud",
		Short:         "Explore the words and phonemes you struggle with",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runExplorerCmd,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cloudUser, "user", defaultUser, "user whose history is shown")
	pf.StringVar(&cloudTaxonomy, "taxonomy", string(model.TaxonomyWords), "words or phonemes")
	pf.StringVar(&cloudRank, "rank", string(model.RankPriority), "priority, frequency, difficulty, recency or persistence")
	pf.StringVar(&cloudRange, "range", model.RangeAll, "all, 7d, 30d, 90d or timeline")
	pf.IntVar(&cloudMaxItems, "max-items", render.DefaultMaxItems, "targets shown in the cloud")
	pf.IntVar(&cloudPoolSize, "pool-size", stats.DefaultPoolSize, "candidate pool size per taxonomy")
	pf.Float64Var(&cloudMinSize, "min-size", layout.DefaultMinSize, "smallest item size")
	pf.Float64Var(&cloudMaxSize, "max-size", layout.DefaultMaxSize, "largest item size")
	pf.StringVar(&cloudTheme, "theme", paint.ThemeDark, "dark or light")
	pf.BoolVar(&cloudCluster, "cluster", false, "group targets by score band")
	pf.StringVar(&dbPath, "db", "", "database path (default: XDG data dir)")
	pf.StringVar(&logLevel, "log-level", defaultLogLevel, "debug, info, warn or error")

	rootCmd.Flags().IntVar(&cloudSlowAfterMs, "slow-after-ms", defaultSlowAfterMs, "delay before the busy indicator explains a slow layout")
	rootCmd.Flags().IntVar(&timelineWindow, "window-days", defaultWindowDays, "timeline window in days")
	rootCmd.Flags().IntVar(&timelineStep, "step", defaultStep, "timeline step in days")
	rootCmd.Flags().IntVar(&timelineInterval, "interval-ms", defaultIntervalMs, "timeline replay interval")
	rootCmd.Flags().StringVar(&practiceMix, "mix", viewstate.MixAuto, "practice mix: auto, words, phonemes or both")
	rootCmd.Flags().IntVar(&practiceDrillWords, "drill-words", practice.DefaultDrillWords, "words per practice drill")
	rootCmd.Flags().StringVar(&practiceWordlist, "wordlist", "", "extra drill words, one per line")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "log file while the explorer runs (default: XDG data dir)")
	rootCmd.Flags().StringVar(&viewArg, "view", "", "view state query, e.g. 'tax=phonemes&rank=recency'")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newTopCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newDetailCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newSavedCmd("favorite", prefs.KindFavorite, "Toggle a favorite target"))
	rootCmd.AddCommand(newSavedCmd("pin", prefs.KindPinned, "Toggle a pinned target"))

	return rootCmd
}

// loadConfig merges the config file into unchanged flags and validates.
func loadConfig(cmd *cobra.Command) (model.Config, config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fileCfg, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "user", &cloudUser, fileCfg.Cloud.User)
	applyStringConfig(cmd, "taxonomy", &cloudTaxonomy, fileCfg.Cloud.Taxonomy)
	applyStringConfig(cmd, "rank", &cloudRank, fileCfg.Cloud.Rank)
	applyStringConfig(cmd, "range", &cloudRange, fileCfg.Cloud.Range)
	applyIntConfig(cmd, "max-items", &cloudMaxItems, fileCfg.Cloud.MaxItems)
	applyIntConfig(cmd, "pool-size", &cloudPoolSize, fileCfg.Cloud.PoolSize)
	applyFloatConfig(cmd, "min-size", &cloudMinSize, fileCfg.Cloud.MinSize)
	applyFloatConfig(cmd, "max-size", &cloudMaxSize, fileCfg.Cloud.MaxSize)
	applyStringConfig(cmd, "theme", &cloudTheme, fileCfg.Cloud.Theme)
	applyBoolConfig(cmd, "cluster", &cloudCluster, fileCfg.Cloud.Cluster)
	applyIntConfig(cmd, "slow-after-ms", &cloudSlowAfterMs, fileCfg.Cloud.SlowAfterMs)
	applyIntConfig(cmd, "window-days", &timelineWindow, fileCfg.Timeline.WindowDays)
	applyIntConfig(cmd, "step", &timelineStep, fileCfg.Timeline.Step)
	applyIntConfig(cmd, "interval-ms", &timelineInterval, fileCfg.Timeline.IntervalMs)
	applyStringConfig(cmd, "mix", &practiceMix, fileCfg.Practice.Mix)
	applyIntConfig(cmd, "drill-words", &practiceDrillWords, fileCfg.Practice.DrillWords)
	applyStringConfig(cmd, "wordlist", &practiceWordlist, fileCfg.Practice.Wordlist)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)

	cfg := model.Config{
		User:             strings.TrimSpace(cloudUser),
		Taxonomy:         model.Taxonomy(cloudTaxonomy),
		Rank:             model.RankMode(cloudRank),
		Range:            cloudRange,
		MaxItems:         cloudMaxItems,
		PoolSize:         cloudPoolSize,
		MinSize:          cloudMinSize,
		MaxSize:          cloudMaxSize,
		Theme:            cloudTheme,
		Cluster:          cloudCluster,
		SlowAfterMs:      cloudSlowAfterMs,
		TimelineWindow:   timelineWindow,
		TimelineStep:     timelineStep,
		TimelineInterval: timelineInterval,
		Mix:              practiceMix,
		DrillWords:       practiceDrillWords,
		Wordlist:         practiceWordlist,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, fileCfg, err
	}
	return cfg, fileCfg, nil
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *clog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("failed to close db", "err", err)
	}
}

// baseView is the view state implied by the merged configuration.
func baseView(cfg model.Config) viewstate.State {
	state := viewstate.Defaults()
	state.Taxonomy = cfg.Taxonomy
	state.Rank = cfg.Rank
	state.Range = cfg.Range
	state.Theme = cfg.Theme
	state.Cluster = cfg.Cluster
	state.Mix = cfg.Mix
	state.Window = cfg.TimelineWindow
	return state
}

// viewQuery accepts a bare query or a full URL.
func viewQuery(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.RawQuery != "" {
		return u.RawQuery
	}
	return strings.TrimPrefix(raw, "?")
}

func renderOptions(cfg model.Config, logger *clog.Logger) render.Options {
	return render.Options{
		User:      cfg.User,
		MaxItems:  cfg.MaxItems,
		PoolSize:  cfg.PoolSize,
		Sizes:     layout.SizeOptions{Min: cfg.MinSize, Max: cfg.MaxSize},
		SlowAfter: time.Duration(cfg.SlowAfterMs) * time.Millisecond,
		Logger:    logger,
	}
}

func loadDrillWords(cfg model.Config, logger *clog.Logger) []string {
	if cfg.Wordlist == "" {
		return nil
	}
	words, err := wordlist.LoadWords(cfg.Wordlist, wordlist.Drillable)
	if err != nil {
		logger.Warn("failed to load drill word list", "path", cfg.Wordlist, "err", err)
		return nil
	}
	return words
}

func runExplorerCmd(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logPath := logFile
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}
	logger, closeLog, err := logging.OpenFile(logPath, logLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saved := prefs.New(st, logger)
	view := viewstate.New(saved, logger)
	view.Boot(ctx, baseView(cfg), viewQuery(viewArg))

	sched := tui.NewScheduler()
	surface := paint.NewCellSurface(80, 24)
	pe := paint.NewEngine(surface, paint.Options{
		Theme:     view.Get().Theme,
		Cluster:   view.Get().Cluster,
		Scheduler: sched,
		Logger:    logger,
	})
	le := layout.NewEngine(layout.NewSpiral(surface), surface)
	orch := render.New(st, nil, view, saved, le, pe, renderOptions(cfg, logger))

	tl := timeline.New(view,
		func(ctx context.Context) error {
			return orch.Draw(ctx, render.DrawOptions{ReuseLayoutOnly: true})
		},
		func(ctx context.Context) int {
			return stats.TimelineMaxPosition(orch.History(ctx), view.Get().Window, time.Local)
		},
		timeline.Options{
			Interval: time.Duration(cfg.TimelineInterval) * time.Millisecond,
			Step:     cfg.TimelineStep,
			Logger:   logger,
		})
	orch.SetHealer(tl)

	det := detail.New(orch, saved, nil)
	det.OnOpen(tl.Stop)

	drill := loadDrillWords(cfg, logger)
	planPath := config.DefaultPlanPath()
	m := tui.NewModel(tui.Deps{
		Ctx:       ctx,
		View:      view,
		Render:    orch,
		Paint:     pe,
		Surface:   surface,
		Timeline:  tl,
		Detail:    det,
		Scheduler: sched,
		Logger:    logger,
		Plan: func(ctx context.Context) (string, error) {
			plan, err := practice.BuildPlan(orch.Snapshot().Pools, practice.Options{
				Mix:        view.Get().Mix,
				DrillWords: cfg.DrillWords,
				Wordlist:   drill,
			})
			if err != nil {
				return "", err
			}
			if err := practice.WriteFile(planPath, plan); err != nil {
				return "", err
			}
			logger.Info("practice plan handed off", "path", planPath, "taxonomy", plan.Taxonomy)
			return planPath, nil
		},
	})
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	m.Attach(program.Send)
	defer m.Close()

	logger.Info("explorer started", "user", cfg.User, "view", view.Query())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run explorer: %w", err)
	}
	logErrf("Resume this view with: pronocloud --view '%s'\n", view.Query())
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
