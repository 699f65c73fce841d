// Package prefs stores view preferences and saved-id lists in the local
// settings table. Reads never fail: corrupt or missing values fall back to
// defaults.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	clog "github.com/charmbracelet/log"

	"github.com/verte-zerg/pronocloud/internal/model"
	"github.com/verte-zerg/pronocloud/internal/store"
)

// DefaultSavedLimit bounds each saved-id list to its most recent entries.
const DefaultSavedLimit = 200

// Saved-id list kinds.
const (
	KindFavorite = "favorite"
	KindPinned   = "pinned"
)

// KV is the key/value contract the preferences need from storage.
type KV interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Prefs reads and writes JSON-encoded preferences.
type Prefs struct {
	kv     KV
	limit  int
	logger *clog.Logger
}

// New returns Prefs backed by kv.
func New(kv KV, logger *clog.Logger) *Prefs {
	return &Prefs{kv: kv, limit: DefaultSavedLimit, logger: logger}
}

// SetLimit overrides the saved-list bound.
func (p *Prefs) SetLimit(n int) {
	if n > 0 {
		p.limit = n
	}
}

// Load decodes key into out. It reports false and leaves out untouched when
// the key is missing or its value is corrupt.
func (p *Prefs) Load(ctx context.Context, key string, out any) bool {
	raw, err := p.kv.GetSetting(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.warn("failed to read preference", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		p.warn("ignoring corrupt preference", "key", key, "err", err)
		return false
	}
	return true
}

// Save encodes value under key.
func (p *Prefs) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return p.kv.PutSetting(ctx, key, string(data))
}

// SavedIDs returns the saved ids of a kind and taxonomy, most recent last.
func (p *Prefs) SavedIDs(ctx context.Context, kind string, tax model.Taxonomy) []string {
	var ids []string
	if !p.Load(ctx, savedKey(kind, tax), &ids) {
		return nil
	}
	return ids
}

// SavedSet returns the saved ids as a lookup set.
func (p *Prefs) SavedSet(ctx context.Context, kind string, tax model.Taxonomy) map[string]struct{} {
	ids := p.SavedIDs(ctx, kind, tax)
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IsSaved reports whether id is in the saved list.
func (p *Prefs) IsSaved(ctx context.Context, kind string, tax model.Taxonomy, id string) bool {
	_, ok := p.SavedSet(ctx, kind, tax)[normalizeID(id)]
	return ok
}

// Toggle adds or removes id from the saved list and returns the new state.
// Added ids go to the end; the list keeps only the most recent entries.
func (p *Prefs) Toggle(ctx context.Context, kind string, tax model.Taxonomy, id string) (bool, error) {
	id = normalizeID(id)
	if id == "" {
		return false, errors.New("empty id")
	}
	ids := p.SavedIDs(ctx, kind, tax)
	out := make([]string, 0, len(ids)+1)
	removed := false
	for _, existing := range ids {
		if existing == id {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	if !removed {
		out = append(out, id)
	}
	if len(out) > p.limit {
		out = out[len(out)-p.limit:]
	}
	if err := p.Save(ctx, savedKey(kind, tax), out); err != nil {
		return false, err
	}
	return !removed, nil
}

func savedKey(kind string, tax model.Taxonomy) string {
	return "saved." + kind + "." + string(tax)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (p *Prefs) warn(msg string, keyvals ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, keyvals...)
	}
}
