// Package record persists diagnosis records. JSON files under the outputs
// directory are the canonical records; a sqlite index answers history
// queries without re-reading every file.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/proofbyoutput/proofcoach/internal/diagnose"
)

// AppName is written into every record payload, matching the records the
// original tool produced.
const AppName = "Proof by Output"

// Record is one saved diagnosis.
type Record struct {
	App         string           `json:"app"`
	CreatedAt   time.Time        `json:"created_at"`
	Topic       string           `json:"topic"`
	Explanation string           `json:"explanation"`
	CharCount   int              `json:"char_count"`
	Score       int              `json:"score"`
	Rank        diagnose.Rank    `json:"rank"`
	Result      *diagnose.Result `json:"result"`

	// ID is the file base name without extension. Not part of the payload.
	ID string `json:"-"`
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// SafeFilename turns a topic into a file-name-safe slug: lowercased, runs of
// characters outside [a-z0-9_-] collapsed to "_", trimmed, at most 40
// characters, never empty.
func SafeFilename(topic string) string {
	name := strings.ToLower(strings.TrimSpace(topic))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" {
		name = "topic"
	}
	return name
}

// Store writes and reads record files.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create outputs directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the outputs directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a new record file. Record files are never mutated; a second
// diagnosis of the same topic in the same second gets a random suffix
// instead of overwriting.
func (s *Store) Save(topic, explanation string, result *diagnose.Result, now time.Time) (*Record, error) {
	rec := &Record{
		App:         AppName,
		CreatedAt:   now,
		Topic:       topic,
		Explanation: explanation,
		CharCount:   diagnose.CharCount(explanation),
		Score:       result.Score,
		Rank:        result.Rank(),
		Result:      result,
	}

	id := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), SafeFilename(topic))
	path := filepath.Join(s.dir, id+".json")
	if _, err := os.Stat(path); err == nil {
		id = fmt.Sprintf("%s_%s", id, uuid.NewString()[:8])
		path = filepath.Join(s.dir, id+".json")
	}
	rec.ID = id

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write record file: %w", err)
	}

	s.logger.Info("record saved",
		zap.String("id", id),
		zap.Int("score", rec.Score),
		zap.String("rank", string(rec.Rank)))
	return rec, nil
}

// Load reads one record by id.
func (s *Store) Load(id string) (*Record, error) {
	if id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("invalid record id: %q", id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	rec.ID = id
	return rec, nil
}

// List returns up to limit records, newest first. Unreadable or corrupt
// files are skipped. limit <= 0 means no limit.
func (s *Store) List(limit int) ([]*Record, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list record files: %w", err)
	}

	// File names start with a sortable timestamp, so reverse-lexicographic
	// order is newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	records := make([]*Record, 0, len(paths))
	for _, path := range paths {
		if limit > 0 && len(records) >= limit {
			break
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable record file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		rec, err := decodeRecord(data)
		if err != nil {
			s.logger.Warn("skipping corrupt record file",
				zap.String("path", path), zap.Error(err))
			continue
		}
		rec.ID = strings.TrimSuffix(filepath.Base(path), ".json")
		records = append(records, rec)
	}
	return records, nil
}

// decodeRecord parses a record payload. Files written by older versions of
// the tool may lack the top-level score and rank fields, which are then
// backfilled from the embedded result, and may carry naive ISO 8601
// timestamps without a timezone offset.
func decodeRecord(data []byte) (*Record, error) {
	var raw struct {
		Record
		CreatedAt string         `json:"created_at"`
		Score     *int           `json:"score"`
		Rank      *diagnose.Rank `json:"rank"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	rec := raw.Record
	if raw.CreatedAt != "" {
		createdAt, err := parseRecordTime(raw.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid created_at: %w", err)
		}
		rec.CreatedAt = createdAt
	}
	switch {
	case raw.Score != nil:
		rec.Score = *raw.Score
	case raw.Result != nil:
		rec.Score = raw.Result.Score
	}
	if raw.Rank != nil && *raw.Rank != "" {
		rec.Rank = *raw.Rank
	} else {
		rec.Rank = diagnose.RankForScore(rec.Score)
	}
	return &rec, nil
}

// parseRecordTime accepts both our RFC3339 timestamps and the naive
// microsecond-precision ones older records carry. Naive timestamps were
// written in local time, so they are read back the same way.
func parseRecordTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.Local)
}
