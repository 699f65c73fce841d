// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/pronocloud/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a setting key does not exist.
var ErrNotFound = errors.New("not found")

// Fixed-width timestamps keep lexical order chronological.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Store wraps SQLite access for attempt history and local settings.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			ts TEXT NOT NULL,
			text TEXT NOT NULL,
			score REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_words (
			attempt_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			word TEXT NOT NULL,
			accuracy REAL NOT NULL,
			PRIMARY KEY (attempt_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_phonemes (
			attempt_id TEXT NOT NULL,
			word_idx INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			phoneme TEXT NOT NULL,
			accuracy REAL NOT NULL,
			PRIMARY KEY (attempt_id, word_idx, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user_ts ON attempts(user_id, ts);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores an attempt with its word and phoneme scores. A missing
// ID is replaced with a fresh UUID, which is returned.
func (s *Store) InsertAttempt(ctx context.Context, rec model.AttemptRecord) (id string, err error) {
	id = rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (id, user_id, ts, text, score) VALUES (?, ?, ?, ?, ?)`,
		id,
		rec.UserID,
		rec.Timestamp.UTC().Format(tsLayout),
		rec.Text,
		rec.Score,
	); err != nil {
		return "", err
	}

	for wi, w := range rec.Words {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO attempt_words (attempt_id, idx, word, accuracy) VALUES (?, ?, ?, ?)`,
			id, wi, w.Word, w.Accuracy,
		); err != nil {
			return "", err
		}
		for pi, p := range w.Phonemes {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO attempt_phonemes (attempt_id, word_idx, idx, phoneme, accuracy) VALUES (?, ?, ?, ?, ?)`,
				id, wi, pi, p.Phoneme, p.Accuracy,
			); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// FetchHistory returns every attempt of a user ordered oldest first. An empty
// uid selects all users.
func (s *Store) FetchHistory(ctx context.Context, uid string) ([]model.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, ts, text, score FROM attempts
		 WHERE (? = '' OR user_id = ?)
		 ORDER BY ts ASC, id ASC`, uid, uid)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.AttemptRecord
	index := map[string]int{}
	for rows.Next() {
		var rec model.AttemptRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.UserID, &ts, &rec.Text, &rec.Score); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(tsLayout, ts)
		if err != nil {
			return nil, err
		}
		rec.Timestamp = parsed
		index[rec.ID] = len(attempts)
		attempts = append(attempts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, nil
	}
	if err := s.attachWords(ctx, attempts, index); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (s *Store) attachWords(ctx context.Context, attempts []model.AttemptRecord, index map[string]int) error {
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	for start := 0; start < len(ids); start += 500 {
		end := start + 500
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.attachWordsChunk(ctx, attempts, index, ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) attachWordsChunk(ctx context.Context, attempts []model.AttemptRecord, index map[string]int, ids []string) error {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	in := strings.Join(placeholders, ",")

	wordRows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT attempt_id, idx, word, accuracy FROM attempt_words
		 WHERE attempt_id IN (%s) ORDER BY attempt_id, idx`, in), args...)
	if err != nil {
		return err
	}
	for wordRows.Next() {
		var attemptID string
		var idx int
		var w model.WordScore
		if err := wordRows.Scan(&attemptID, &idx, &w.Word, &w.Accuracy); err != nil {
			_ = wordRows.Close()
			return err
		}
		rec := &attempts[index[attemptID]]
		for len(rec.Words) <= idx {
			rec.Words = append(rec.Words, model.WordScore{})
		}
		rec.Words[idx].Word = w.Word
		rec.Words[idx].Accuracy = w.Accuracy
	}
	if err := wordRows.Err(); err != nil {
		_ = wordRows.Close()
		return err
	}
	if err := wordRows.Close(); err != nil {
		return err
	}

	phonemeRows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT attempt_id, word_idx, phoneme, accuracy FROM attempt_phonemes
		 WHERE attempt_id IN (%s) ORDER BY attempt_id, word_idx, idx`, in), args...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := phonemeRows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for phonemeRows.Next() {
		var attemptID string
		var wordIdx int
		var p model.PhonemeScore
		if err := phonemeRows.Scan(&attemptID, &wordIdx, &p.Phoneme, &p.Accuracy); err != nil {
			return err
		}
		rec := &attempts[index[attemptID]]
		if wordIdx >= len(rec.Words) {
			continue
		}
		rec.Words[wordIdx].Phonemes = append(rec.Words[wordIdx].Phonemes, p)
	}
	return phonemeRows.Err()
}

// CountAttempts returns the number of stored attempts for a user.
func (s *Store) CountAttempts(ctx context.Context, uid string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attempts WHERE (? = '' OR user_id = ?)`, uid, uid).Scan(&n)
	return n, err
}

// GetSetting returns a raw setting value or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// PutSetting upserts a raw setting value.
func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
