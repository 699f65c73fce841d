// Package importer reads practice attempts exported as YAML or JSON.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/pronocloud/internal/model"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type rawAttempt struct {
	ID        string            `yaml:"id"`
	User      string            `yaml:"user"`
	Timestamp string            `yaml:"timestamp"`
	Text      string            `yaml:"text"`
	Score     *float64          `yaml:"score"`
	Words     []model.WordScore `yaml:"words"`
}

type rawFile struct {
	Attempts []rawAttempt `yaml:"attempts"`
}

// Load reads attempts from a YAML or JSON file.
func Load(path string) ([]model.AttemptRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Decode reads either a top-level list of attempts or a document with an
// "attempts" list. JSON input is accepted as YAML.
func Decode(r io.Reader) ([]model.AttemptRecord, error) {
	var node yaml.Node
	if err := yaml.NewDecoder(r).Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse attempts: %w", err)
	}
	var raw []rawAttempt
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse attempts: %w", err)
		}
	case yaml.MappingNode:
		var file rawFile
		if err := root.Decode(&file); err != nil {
			return nil, fmt.Errorf("parse attempts: %w", err)
		}
		raw = file.Attempts
	default:
		return nil, errors.New("expected a list of attempts")
	}

	out := make([]model.AttemptRecord, 0, len(raw))
	for i, r := range raw {
		rec, err := r.record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r rawAttempt) record() (model.AttemptRecord, error) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return model.AttemptRecord{}, err
	}
	if len(r.Words) == 0 {
		return model.AttemptRecord{}, errors.New("no words")
	}
	sum := 0.0
	for wi, w := range r.Words {
		if strings.TrimSpace(w.Word) == "" {
			return model.AttemptRecord{}, fmt.Errorf("word %d: empty word", wi)
		}
		if err := checkScore(w.Accuracy); err != nil {
			return model.AttemptRecord{}, fmt.Errorf("word %d: %w", wi, err)
		}
		for pi, p := range w.Phonemes {
			if strings.TrimSpace(p.Phoneme) == "" {
				return model.AttemptRecord{}, fmt.Errorf("word %d phoneme %d: empty symbol", wi, pi)
			}
			if err := checkScore(p.Accuracy); err != nil {
				return model.AttemptRecord{}, fmt.Errorf("word %d phoneme %d: %w", wi, pi, err)
			}
		}
		sum += w.Accuracy
	}
	score := sum / float64(len(r.Words))
	if r.Score != nil {
		if err := checkScore(*r.Score); err != nil {
			return model.AttemptRecord{}, fmt.Errorf("score: %w", err)
		}
		score = *r.Score
	}
	text := r.Text
	if text == "" {
		parts := make([]string, 0, len(r.Words))
		for _, w := range r.Words {
			parts = append(parts, w.Word)
		}
		text = strings.Join(parts, " ")
	}
	return model.AttemptRecord{
		ID:        r.ID,
		UserID:    r.User,
		Timestamp: ts,
		Text:      text,
		Score:     score,
		Words:     r.Words,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

func checkScore(v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("accuracy %.1f out of range 0-100", v)
	}
	return nil
}

// Sink stores imported attempts.
type Sink interface {
	InsertAttempt(ctx context.Context, rec model.AttemptRecord) (string, error)
}

// Import stores records for user, overriding any per-record user when user
// is set. It returns how many records were stored before an error.
func Import(ctx context.Context, sink Sink, user string, records []model.AttemptRecord) (int, error) {
	for i, rec := range records {
		if user != "" {
			rec.UserID = user
		}
		if _, err := sink.InsertAttempt(ctx, rec); err != nil {
			return i, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return len(records), nil
}
