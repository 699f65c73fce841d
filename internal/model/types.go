// Package model defines shared data structures.
package model

import "time"

// Taxonomy selects which target universe is active.
type Taxonomy string

const (
	TaxonomyWords    Taxonomy = "words"
	TaxonomyPhonemes Taxonomy = "phonemes"
)

// Valid reports whether t is a known taxonomy.
func (t Taxonomy) Valid() bool {
	return t == TaxonomyWords || t == TaxonomyPhonemes
}

// RankMode selects the ranking policy.
type RankMode string

const (
	RankPriority    RankMode = "priority"
	RankFrequency   RankMode = "frequency"
	RankDifficulty  RankMode = "difficulty"
	RankRecency     RankMode = "recency"
	RankPersistence RankMode = "persistence"
)

// RankModes lists ranking policies in cycling order.
var RankModes = []RankMode{RankPriority, RankFrequency, RankDifficulty, RankRecency, RankPersistence}

// Valid reports whether m is a known ranking policy.
func (m RankMode) Valid() bool {
	for _, known := range RankModes {
		if m == known {
			return true
		}
	}
	return false
}

// Range selectors for the active time range.
const (
	RangeAll      = "all"
	Range7d       = "7d"
	Range30d      = "30d"
	Range90d      = "90d"
	RangeTimeline = "timeline"
)

// Ranges lists range selectors in cycling order.
var Ranges = []string{RangeAll, Range7d, Range30d, Range90d, RangeTimeline}

// PhonemeScore is the assessed accuracy of a single phoneme.
type PhonemeScore struct {
	Phoneme  string  `yaml:"phoneme" json:"phoneme"`
	Accuracy float64 `yaml:"accuracy" json:"accuracy"`
}

// WordScore is the assessed accuracy of a word and its phonemes.
type WordScore struct {
	Word     string         `yaml:"word" json:"word"`
	Accuracy float64        `yaml:"accuracy" json:"accuracy"`
	Phonemes []PhonemeScore `yaml:"phonemes" json:"phonemes"`
}

// AttemptRecord is one historical practice attempt. Records are read-only
// once fetched.
type AttemptRecord struct {
	ID        string      `yaml:"id" json:"id"`
	UserID    string      `yaml:"user" json:"user"`
	Timestamp time.Time   `yaml:"timestamp" json:"timestamp"`
	Text      string      `yaml:"text" json:"text"`
	Score     float64     `yaml:"score" json:"score"`
	Words     []WordScore `yaml:"words" json:"words"`
}

// TargetStat aggregates one word or phoneme across attempts. It is
// recomputed wholesale on every aggregation pass.
type TargetStat struct {
	ID       string
	Taxonomy Taxonomy
	Count    int
	Avg      float64
	Days     int
	LastSeen time.Time
	Priority float64
	Examples []string
}

// Pools holds the bounded candidate pools for both taxonomies.
type Pools struct {
	Words    []TargetStat
	Phonemes []TargetStat
}

// For returns the pool of the given taxonomy.
func (p Pools) For(t Taxonomy) []TargetStat {
	if t == TaxonomyPhonemes {
		return p.Phonemes
	}
	return p.Words
}

// Empty reports whether both pools are empty.
func (p Pools) Empty() bool {
	return len(p.Words) == 0 && len(p.Phonemes) == 0
}

// Config defines cloud settings merged from flags and the config file.
type Config struct {
	User        string
	Taxonomy    Taxonomy
	Rank        RankMode
	Range       string
	MaxItems    int
	PoolSize    int
	MinSize     float64
	MaxSize     float64
	Theme       string
	Cluster     bool
	SlowAfterMs int

	TimelineWindow   int
	TimelineStep     int
	TimelineInterval int

	Mix        string
	DrillWords int
	Wordlist   string
}

// PhonemeFocus describes the phoneme a practice plan concentrates on.
type PhonemeFocus struct {
	Symbol   string   `yaml:"symbol" json:"symbol"`
	Avg      float64  `yaml:"avg" json:"avg"`
	Count    int      `yaml:"count" json:"count"`
	Examples []string `yaml:"examples" json:"examples"`
}

// PracticePlan is handed off to a practice session. It is one-way.
type PracticePlan struct {
	Taxonomy     Taxonomy      `yaml:"taxonomy" json:"taxonomy"`
	FocusWords   []string      `yaml:"focus_words,omitempty" json:"focus_words,omitempty"`
	FocusPhoneme *PhonemeFocus `yaml:"focus_phoneme,omitempty" json:"focus_phoneme,omitempty"`
	Drill        []string      `yaml:"drill" json:"drill"`
	CreatedAt    time.Time     `yaml:"created_at" json:"created_at"`
}
