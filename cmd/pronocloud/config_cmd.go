package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	clog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/pronocloud/internal/config"
	"github.com/verte-zerg/pronocloud/internal/layout"
	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/paint"
	"github.com/verte-zerg/pronocloud/internal/practice"
	"github.com/verte-zerg/pronocloud/internal/render"
	"github.com/verte-zerg/pronocloud/internal/stats"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# pronocloud configuration
# Uncomment a value to enable it. CLI flags override config values.

[cloud]
# user = %q             # Whose history is shown
# taxonomy = "words"      # words or phonemes
# rank = "priority"       # priority, frequency, difficulty, recency or persistence
# range = "all"           # all, 7d, 30d, 90d or timeline
# max-items = %d          # Targets shown in the cloud
# pool-size = %d         # Candidate pool per taxonomy
# min-size = %.0f           # Smallest item size
# max-size = %.0f           # Largest item size
# theme = %q          # dark or light
# cluster = false         # Group targets by score band
# slow-after-ms = %d    # Delay before the slow layout notice

[timeline]
# window-days = %d         # Days per replay window
# step = %d                # Days advanced per tick
# interval-ms = %d       # Delay between ticks

[practice]
# mix = %q            # auto, words, phonemes or both
# drill-words = %d        # Words per drill
# wordlist = ""           # Extra drill words, one per line

[log]
# level = %q           # debug, info, warn or error
# file = ""               # Explorer log file
`,
		defaultUser,
		render.DefaultMaxItems,
		stats.DefaultPoolSize,
		float64(layout.DefaultMinSize),
		float64(layout.DefaultMaxSize),
		paint.ThemeDark,
		defaultSlowAfterMs,
		defaultWindowDays,
		defaultStep,
		defaultIntervalMs,
		viewstate.MixAuto,
		practice.DefaultDrillWords,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.User == "" {
		return fmt.Errorf("--user must not be empty")
	}
	if !cfg.Taxonomy.Valid() {
		return fmt.Errorf("--taxonomy must be words or phonemes")
	}
	if !cfg.Rank.Valid() {
		return fmt.Errorf("--rank must be one of priority, frequency, difficulty, recency, persistence")
	}
	if !slices.Contains(model.Ranges, cfg.Range) {
		return fmt.Errorf("--range must be one of %s", strings.Join(model.Ranges, ", "))
	}
	if cfg.MaxItems <= 0 {
		return fmt.Errorf("--max-items must be > 0")
	}
	if cfg.PoolSize < cfg.MaxItems {
		return fmt.Errorf("--pool-size must be >= --max-items")
	}
	if cfg.MinSize <= 0 {
		return fmt.Errorf("--min-size must be > 0")
	}
	if cfg.MaxSize < cfg.MinSize {
		return fmt.Errorf("--max-size must be >= --min-size")
	}
	if cfg.Theme != paint.ThemeDark && cfg.Theme != paint.ThemeLight {
		return fmt.Errorf("--theme must be dark or light")
	}
	if cfg.SlowAfterMs <= 0 {
		return fmt.Errorf("--slow-after-ms must be > 0")
	}
	if cfg.TimelineWindow < 1 {
		return fmt.Errorf("--window-days must be >= 1")
	}
	if cfg.TimelineStep < 1 {
		return fmt.Errorf("--step must be >= 1")
	}
	if cfg.TimelineInterval <= 0 {
		return fmt.Errorf("--interval-ms must be > 0")
	}
	if !slices.Contains(viewstate.Mixes, cfg.Mix) {
		return fmt.Errorf("--mix must be one of %s", strings.Join(viewstate.Mixes, ", "))
	}
	if cfg.DrillWords <= 0 {
		return fmt.Errorf("--drill-words must be > 0")
	}
	if _, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(logLevel))); err != nil {
		return fmt.Errorf("--log-level must be one of debug, info, warn, error")
	}
	return nil
}
