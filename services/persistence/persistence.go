// Package persistence saves the index into the key-value store and restores it at startup.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/db/kvdb"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/metrics"
)

const stateKey = "state"

type state struct {
	FormatVersion int       `json:"format_version"`
	NextID        uint64    `json:"next_id"`
	TotalTokens   int       `json:"total_tokens"`
	Documents     int       `json:"documents"`
	SavedAt       time.Time `json:"saved_at"`
}

type Manager struct {
	logger  logger.Logger
	db      searchdb.DB
	store   kvdb.DB
	metrics *metrics.Metrics

	mu           sync.Mutex
	savedVersion uint64
}

func New(logger logger.Logger, db searchdb.DB, store kvdb.DB, metrics *metrics.Metrics) *Manager {
	return &Manager{
		logger:  logger,
		db:      db,
		store:   store,
		metrics: metrics,
	}
}

// Load restores the stored snapshot. A missing snapshot leaves the index empty
// and returns nil. A corrupt one also leaves it empty and returns an error
// wrapping apperrors.ErrPersistenceCorrupt for the caller to report.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot, err := ReadSnapshot(m.store)
	if errors.Is(err, kvdb.ErrNotFound) {
		m.logger.Info("no stored snapshot, starting with an empty index")
		m.savedVersion = m.db.Version()
		return nil
	}
	if err != nil {
		m.logger.Warn("stored snapshot is unreadable, starting with an empty index", "err", err.Error())
		return err
	}

	if err := m.db.Restore(snapshot); err != nil {
		m.logger.Warn("stored snapshot is inconsistent, starting with an empty index", "err", err.Error())
		return err
	}
	m.savedVersion = m.db.Version()

	stats := m.db.Stats()
	m.logger.Info("restored index from snapshot", "documents", stats.Documents, "terms", stats.Terms)
	m.observeStats(stats)
	return nil
}

// Save writes the full snapshot in one transaction.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saveLocked()
}

// SaveIfChanged saves only when the index mutated since the last load or save.
func (m *Manager) SaveIfChanged() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db.Version() == m.savedVersion {
		m.countSave("skipped")
		return false, nil
	}

	if err := m.saveLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) saveLocked() error {
	start := time.Now()
	version := m.db.Version()
	snapshot := m.db.Snapshot()

	contents, err := encodeSnapshot(snapshot)
	if err != nil {
		m.logger.Error("failed to encode snapshot", "err", err.Error())
		m.countSave("failure")
		return err
	}

	if err := m.store.ReplaceBuckets(contents); err != nil {
		m.logger.Error("failed to write snapshot", "err", err.Error())
		m.countSave("failure")
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	m.savedVersion = version
	m.countSave("success")
	m.logger.Info("saved snapshot", "documents", len(snapshot.Documents), "terms", len(snapshot.Postings), "duration", time.Since(start).String())
	return nil
}

// Run saves on every tick of interval until ctx is done. A non-positive
// interval disables periodic saves.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.SaveIfChanged(); err != nil {
				m.logger.Error("periodic save failed", "err", err.Error())
			}
		case <-ctx.Done():
			m.logger.Info("autosave stopped", "reason", ctx.Err())
			return
		}
	}
}

func (m *Manager) countSave(status string) {
	if m.metrics != nil {
		m.metrics.SnapshotSavesTotal.WithLabelValues(status).Inc()
	}
}

func (m *Manager) observeStats(stats searchdb.Stats) {
	if m.metrics != nil {
		m.metrics.IndexedDocuments.Set(float64(stats.Documents))
		m.metrics.IndexedTerms.Set(float64(stats.Terms))
	}
}

func documentKey(id uint64) string {
	return fmt.Sprintf("%020d", id)
}

func encodeSnapshot(snapshot *searchdb.Snapshot) (map[string]map[string][]byte, error) {
	documents := make(map[string][]byte, len(snapshot.Documents))
	for _, doc := range snapshot.Documents {
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document %d: %w", doc.ID, err)
		}
		documents[documentKey(doc.ID)] = data
	}

	postings := make(map[string][]byte, len(snapshot.Postings))
	for term, termPostings := range snapshot.Postings {
		data, err := json.Marshal(termPostings)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal postings of '%s': %w", term, err)
		}
		postings[term] = data
	}

	meta, err := json.Marshal(state{
		FormatVersion: snapshot.FormatVersion,
		NextID:        snapshot.NextID,
		TotalTokens:   snapshot.TotalTokens,
		Documents:     len(snapshot.Documents),
		SavedAt:       time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot state: %w", err)
	}

	return map[string]map[string][]byte{
		kvdb.DocumentsBucket: documents,
		kvdb.PostingsBucket:  postings,
		kvdb.MetaBucket:      {stateKey: meta},
	}, nil
}

// ReadSnapshot assembles the stored snapshot. It returns kvdb.ErrNotFound when
// nothing was ever saved and apperrors.ErrPersistenceCorrupt when the stored
// data cannot be decoded.
func ReadSnapshot(store kvdb.DB) (*searchdb.Snapshot, error) {
	rawState, err := store.Get(kvdb.MetaBucket, stateKey)
	if err != nil {
		return nil, err
	}

	var meta state
	if err := json.Unmarshal(rawState, &meta); err != nil {
		return nil, apperrors.Newf(apperrors.ErrPersistenceCorrupt, "snapshot state: %s", err.Error())
	}

	rawDocuments, err := store.GetAll(kvdb.DocumentsBucket)
	if err != nil {
		return nil, err
	}
	if len(rawDocuments) != meta.Documents {
		return nil, apperrors.Newf(apperrors.ErrPersistenceCorrupt, "snapshot lists %d documents, found %d", meta.Documents, len(rawDocuments))
	}

	snapshot := &searchdb.Snapshot{
		FormatVersion: meta.FormatVersion,
		NextID:        meta.NextID,
		TotalTokens:   meta.TotalTokens,
		Documents:     make([]searchdb.Document, 0, len(rawDocuments)),
		Postings:      make(map[string][]searchdb.Posting),
	}
	for key, data := range rawDocuments {
		var doc searchdb.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, apperrors.Newf(apperrors.ErrPersistenceCorrupt, "document %s: %s", key, err.Error())
		}
		if key != documentKey(doc.ID) {
			return nil, apperrors.Newf(apperrors.ErrPersistenceCorrupt, "document %s is stored under key %s", documentKey(doc.ID), key)
		}
		snapshot.Documents = append(snapshot.Documents, doc)
	}

	rawPostings, err := store.GetAll(kvdb.PostingsBucket)
	if err != nil {
		return nil, err
	}
	for term, data := range rawPostings {
		var termPostings []searchdb.Posting
		if err := json.Unmarshal(data, &termPostings); err != nil {
			return nil, apperrors.Newf(apperrors.ErrPersistenceCorrupt, "postings of '%s': %s", term, err.Error())
		}
		snapshot.Postings[term] = termPostings
	}

	return snapshot, nil
}
