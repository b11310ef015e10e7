package record

import (
	"time"

	"go.uber.org/zap"

	"github.com/proofbyoutput/proofcoach/internal/diagnose"
)

// Manager ties the file store and the history index together. All surfaces
// (TUI, HTTP, CLI) go through it.
type Manager struct {
	store   *Store
	history *History
	logger  *zap.Logger
}

// NewManager opens the store at outputsDir and the index at dbFilePath, and
// backfills index rows for any record files the index has not seen yet.
func NewManager(outputsDir, dbFilePath string, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := NewStore(outputsDir, logger)
	if err != nil {
		return nil, err
	}

	history, err := NewHistory(dbFilePath)
	if err != nil {
		return nil, err
	}

	if err := history.Reindex(store); err != nil {
		// The files remain authoritative, so a failed backfill only degrades
		// delta lookups. Keep going.
		logger.Warn("failed to reindex record files", zap.Error(err))
	}

	return &Manager{store: store, history: history, logger: logger}, nil
}

// Save persists a diagnosis as a new record file and indexes it.
func (m *Manager) Save(topic, explanation string, result *diagnose.Result) (*Record, error) {
	rec, err := m.store.Save(topic, explanation, result, time.Now())
	if err != nil {
		return nil, err
	}
	if err := m.history.Index(rec); err != nil {
		m.logger.Warn("failed to index record", zap.String("id", rec.ID), zap.Error(err))
	}
	return rec, nil
}

// Get loads a full record by id.
func (m *Manager) Get(id string) (*Record, error) {
	return m.store.Load(id)
}

// Recent returns record metadata, newest first.
func (m *Manager) Recent(limit int) ([]Entry, error) {
	return m.history.Recent(limit)
}

// RecentByTopic returns record metadata for one topic, newest first.
func (m *Manager) RecentByTopic(topic string, limit int) ([]Entry, error) {
	return m.history.RecentByTopic(topic, limit)
}

// PreviousScore returns the most recent same-topic score strictly older
// than before, for the "前回比" comparison.
func (m *Manager) PreviousScore(topic string, before time.Time) (int, bool, error) {
	return m.history.PreviousScore(topic, before)
}

// OutputsDir returns where record files live.
func (m *Manager) OutputsDir() string {
	return m.store.Dir()
}
