package main

import (
	"strings"
	"testing"

	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/viewstate"
)

func validTestConfig() model.Config {
	return model.Config{
		User:             "local",
		Taxonomy:         model.TaxonomyWords,
		Rank:             model.RankPriority,
		Range:            model.RangeAll,
		MaxItems:         60,
		PoolSize:         140,
		MinSize:          14,
		MaxSize:          64,
		Theme:            "dark",
		SlowAfterMs:      1500,
		TimelineWindow:   7,
		TimelineStep:     1,
		TimelineInterval: 700,
		Mix:              viewstate.MixAuto,
		DrillWords:       12,
	}
}

func TestValidateConfig(t *testing.T) {
	logLevel = "info"
	if err := validateConfig(validTestConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := []struct {
		flag   string
		mutate func(*model.Config)
	}{
		{"--taxonomy", func(c *model.Config) { c.Taxonomy = "letters" }},
		{"--rank", func(c *model.Config) { c.Rank = "random" }},
		{"--range", func(c *model.Config) { c.Range = "1y" }},
		{"--pool-size", func(c *model.Config) { c.PoolSize = 10 }},
		{"--max-size", func(c *model.Config) { c.MaxSize = 10 }},
		{"--theme", func(c *model.Config) { c.Theme = "neon" }},
		{"--window-days", func(c *model.Config) { c.TimelineWindow = 0 }},
		{"--mix", func(c *model.Config) { c.Mix = "random" }},
		{"--drill-words", func(c *model.Config) { c.DrillWords = 0 }},
	}
	for _, tc := range cases {
		cfg := validTestConfig()
		tc.mutate(&cfg)
		err := validateConfig(cfg)
		if err == nil || !strings.HasPrefix(err.Error(), tc.flag) {
			t.Fatalf("expected %s error, got %v", tc.flag, err)
		}
	}
}

func TestViewQuery(t *testing.T) {
	cases := map[string]string{
		"":                                "",
		"tax=phonemes":                    "tax=phonemes",
		"?tax=phonemes&rank=recency":      "tax=phonemes&rank=recency",
		"pronocloud://cloud?tax=phonemes": "tax=phonemes",
		"  tax=words&range=7d  ":          "tax=words&range=7d",
	}
	for in, want := range cases {
		if got := viewQuery(in); got != want {
			t.Fatalf("viewQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultConfigTemplateSections(t *testing.T) {
	tmpl := defaultConfigTemplate()
	for _, section := range []string{"[cloud]", "[timeline]", "[practice]", "[log]"} {
		if !strings.Contains(tmpl, section) {
			t.Fatalf("template missing %s", section)
		}
	}
}
