// Package state provides the durable record shared by the incremental
// aggregator and the snapshot builder: the log watermark, the last observed
// chain height, and the three running event totals. The Store is the single
// writer for the backing file; every read-modify-write goes through one
// critical section so concurrent callers cannot clobber each other's fields.
//
// Durability is best-effort by contract: a missing or corrupt file degrades
// to defaults, and a failed write is logged and dropped. Neither condition
// may fail a request.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/supporttools/blockwatch/pkg/logger"
)

// Counters are the monotonic running totals since the last reset.
type Counters struct {
	Mined     int64 `json:"mined"`
	Processed int64 `json:"processed"`
	Sealed    int64 `json:"sealed"`
}

// PersistedState is the single durable record.
type PersistedState struct {
	// LastSeenTimestamp is the watermark: the raw timestamp of the most
	// recently consumed log line across all polls. Empty until the first
	// successful poll. It moves forward under normal operation, but a
	// regression (clock skew, log reordering) is tolerated by overwriting
	// with the newest batch value rather than erroring.
	LastSeenTimestamp string `json:"last_seen_ts"`

	// LastHeight is the most recent non-null chain height observed in any
	// window, kept as a fallback for windows with no height signal.
	LastHeight *int64 `json:"last_height"`

	// Counters only ever increase, except on explicit reset.
	Counters Counters `json:"counters"`
}

// Default returns the zero-value record written on first access and on reset.
func Default() PersistedState {
	return PersistedState{}
}

// Store owns the state file. All access is serialized through its mutex,
// which is what makes the aggregator's counter advance and the snapshot
// builder's height write safe against each other.
type Store struct {
	path string
	mu   sync.Mutex
	log  *logrus.Entry
}

// NewStore creates a store backed by the file at path. The file is created
// lazily on the first Save.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		log:  logger.WithField("component", "state"),
	}
}

// Load returns the persisted record, or defaults when the file is missing,
// unreadable, or corrupt. It never returns an error: durability is
// best-effort and a bad file must not fail the request path.
func (s *Store) Load() PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Save persists the record atomically (write temp file, then rename).
// Failures are logged and dropped.
func (s *Store) Save(st PersistedState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(st)
}

// Update applies fn to the current record inside the store's critical
// section and persists the result. It returns the updated record. This is
// the read-modify-write primitive both the aggregator and the snapshot
// builder use, so their writes to the shared record cannot interleave.
func (s *Store) Update(fn func(*PersistedState)) PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.loadLocked()
	fn(&st)
	s.saveLocked(st)
	return st
}

// Reset writes and returns a fresh default record.
func (s *Store) Reset() PersistedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Default()
	s.saveLocked(st)
	return st
}

func (s *Store) loadLocked() PersistedState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.WithError(err).Warn("Failed to read state file, using defaults")
		}
		return Default()
	}
	var st PersistedState
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.WithError(err).Warn("State file corrupt, using defaults")
		return Default()
	}
	return st
}

func (s *Store) saveLocked(st PersistedState) {
	data, err := json.Marshal(st)
	if err != nil {
		s.log.WithError(err).Error("Failed to marshal state")
		return
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.WithError(err).Warn("Failed to create state directory")
		return
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.log.WithError(err).Warn("Failed to write state temp file")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.WithError(err).Warn("Failed to replace state file")
	}
}
