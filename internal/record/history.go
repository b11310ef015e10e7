package record

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/proofbyoutput/proofcoach/internal/diagnose"
)

// Entry is the indexed metadata for one record file.
type Entry struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	// RecordedAt is the record's own timestamp, distinct from when the
	// index row was created (rows may be backfilled long after the fact).
	RecordedAt time.Time `gorm:"index"`
	Topic      string    `gorm:"index"`
	Score      int
	Rank       string
	CharCount  int
	File       string `gorm:"uniqueIndex"`
}

// History is the sqlite index over record files.
type History struct {
	db *gorm.DB
}

const historySchemaVersion = 1

// NewHistory opens (or creates) the index database at dbFilePath.
func NewHistory(dbFilePath string) (*History, error) {
	dbFileExists := true
	if _, err := os.Stat(dbFilePath); errors.Is(err, os.ErrNotExist) {
		dbFileExists = false
	} else if err != nil {
		return nil, fmt.Errorf("error checking history db: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening history db: %w", err)
	}

	if needsMigration(dbFileExists, dbFilePath, db) {
		if err := db.AutoMigrate(&Entry{}); err != nil {
			return nil, fmt.Errorf("error migrating history schema: %w", err)
		}
		if err := writeSchemaVersion(dbFilePath, historySchemaVersion); err != nil {
			return nil, fmt.Errorf("error writing history schema version: %w", err)
		}
	}

	return &History{db: db}, nil
}

func needsMigration(dbFileExists bool, dbFilePath string, db *gorm.DB) bool {
	if !dbFileExists {
		return true
	}

	versionMatches, err := schemaVersionMatches(dbFilePath)
	if err != nil || !versionMatches {
		return true
	}

	// If the version marker is present but the table is missing (corruption or
	// manual deletion), re-run migrations to restore the schema.
	return !db.Migrator().HasTable(&Entry{})
}

func schemaVersionPath(dbFilePath string) string {
	return dbFilePath + ".schema"
}

func writeSchemaVersion(dbFilePath string, version int) error {
	return os.WriteFile(schemaVersionPath(dbFilePath), []byte(strconv.Itoa(version)), 0644)
}

func schemaVersionMatches(dbFilePath string) (bool, error) {
	data, err := os.ReadFile(schemaVersionPath(dbFilePath))
	if err != nil {
		return false, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, err
	}
	if version != historySchemaVersion {
		return false, fmt.Errorf("history schema version mismatch: got %d, want %d", version, historySchemaVersion)
	}
	return true, nil
}

// Index upserts the metadata row for a record.
func (h *History) Index(rec *Record) error {
	entry := Entry{
		RecordedAt: rec.CreatedAt,
		Topic:      rec.Topic,
		Score:      rec.Score,
		Rank:       string(rec.Rank),
		CharCount:  rec.CharCount,
		File:       rec.ID,
	}
	result := h.db.Where(Entry{File: rec.ID}).FirstOrCreate(&entry)
	return result.Error
}

// Recent returns up to limit entries, newest record first.
func (h *History) Recent(limit int) ([]Entry, error) {
	var entries []Entry
	result := h.db.Order("recorded_at desc").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// RecentByTopic returns up to limit entries for one topic, newest first.
func (h *History) RecentByTopic(topic string, limit int) ([]Entry, error) {
	var entries []Entry
	result := h.db.Where("topic = ?", topic).
		Order("recorded_at desc").
		Limit(limit).
		Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}

// PreviousScore returns the score of the most recent entry for topic that is
// strictly older than before. The second return is false when no such entry
// exists.
func (h *History) PreviousScore(topic string, before time.Time) (int, bool, error) {
	var entry Entry
	result := h.db.Where("topic = ? AND recorded_at < ?", topic, before).
		Order("recorded_at desc").
		First(&entry)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if result.Error != nil {
		return 0, false, result.Error
	}
	return entry.Score, true, nil
}

// Reindex backfills index rows for record files the index has not seen.
// Called on startup so a deleted or corrupt index never loses history.
func (h *History) Reindex(store *Store) error {
	records, err := store.List(0)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := h.Index(rec); err != nil {
			return err
		}
	}
	return nil
}

// RankValue returns the entry's rank, recomputing it from the score for rows
// indexed from records that predate the rank field.
func (e Entry) RankValue() diagnose.Rank {
	if e.Rank != "" {
		return diagnose.Rank(e.Rank)
	}
	return diagnose.RankForScore(e.Score)
}
