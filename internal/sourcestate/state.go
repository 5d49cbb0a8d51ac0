// Package sourcestate persists per-source fetch health in a bbolt file.
package sourcestate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/geopulse/internal/logger"
)

var bucketHealth = []byte("source_health")

// Health is the last known fetch outcome of one provider.
type Health struct {
	ProviderID          string    `json:"providerId"`
	LastAttempt         time.Time `json:"lastAttempt"`
	LastSuccess         time.Time `json:"lastSuccess,omitempty"`
	LastItems           int       `json:"lastItems"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	TotalFetches        int       `json:"totalFetches"`
	TotalFailures       int       `json:"totalFailures"`
	LastError           string    `json:"lastError,omitempty"`
}

// Healthy reports whether the latest attempt succeeded.
func (h Health) Healthy() bool { return h.ConsecutiveFailures == 0 && !h.LastSuccess.IsZero() }

// Store records fetch outcomes keyed by provider id.
type Store struct {
	db  *bolt.DB
	log logger.Logger
	now func() time.Time
	mu  sync.Mutex
}

// Open creates or opens the state file at path.
func Open(path string, log logger.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("sourcestate: path is required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHealth)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db, log: logger.Ensure(log), now: time.Now}, nil
}

// Close releases the file lock.
func (s *Store) Close() error { return s.db.Close() }

// RecordFetch folds one fetch outcome into the provider's health. Write failures are logged only.
func (s *Store) RecordFetch(_ context.Context, providerID string, items int, fetchErr error) {
	if providerID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHealth)
		h := Health{ProviderID: providerID}
		if raw := b.Get([]byte(providerID)); raw != nil {
			if err := json.Unmarshal(raw, &h); err != nil {
				h = Health{ProviderID: providerID}
			}
		}

		h.LastAttempt = now
		h.TotalFetches++
		if fetchErr != nil {
			h.ConsecutiveFailures++
			h.TotalFailures++
			h.LastError = fetchErr.Error()
		} else {
			h.ConsecutiveFailures = 0
			h.LastSuccess = now
			h.LastItems = items
			h.LastError = ""
		}

		raw, err := json.Marshal(h)
		if err != nil {
			return err
		}
		return b.Put([]byte(providerID), raw)
	})
	if err != nil {
		s.log.WarnObj("record source health failed", "source_health_error", map[string]any{
			"provider_id": providerID,
			"error":       err,
		})
	}
}

// Get returns the health of one provider; ok is false when it was never fetched.
func (s *Store) Get(providerID string) (Health, bool, error) {
	var (
		h  Health
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketHealth).Get([]byte(providerID))
		if raw == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(raw, &h)
	})
	return h, ok, err
}

// All returns every recorded provider sorted by id.
func (s *Store) All() ([]Health, error) {
	out := []Health{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHealth).ForEach(func(_, v []byte) error {
			var h Health
			if err := json.Unmarshal(v, &h); err != nil {
				return err
			}
			out = append(out, h)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read source health: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out, nil
}
