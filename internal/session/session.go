// Package session persists the ordered turn log of each conversation.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rcliao/frontdesk/internal/config"
	"github.com/rcliao/frontdesk/internal/model"
)

var (
	// ErrSessionCorrupt means the persisted log for a key could not be decoded.
	ErrSessionCorrupt = errors.New("session corrupt")
	// ErrConflict is returned when a write kept losing version races.
	ErrConflict = errors.New("session modified concurrently")
)

// maxRetries bounds optimistic write attempts per Append.
const maxRetries = 10

// Store is a durable key -> []SessionTurn log.
type Store interface {
	// Load returns the turns for key in creation order. Unknown keys yield an
	// empty slice. Undecodable data yields an error wrapping ErrSessionCorrupt.
	Load(ctx context.Context, key string) ([]model.SessionTurn, error)

	// Append adds one turn and persists the whole sequence atomically. A
	// corrupt session is replaced by a sequence holding only this turn.
	Append(ctx context.Context, key string, turn model.SessionTurn) error

	// Reset empties the sequence but keeps the session.
	Reset(ctx context.Context, key string) error

	// Keys lists known session keys in ascending order.
	Keys(ctx context.Context) ([]string, error)

	Close() error
}

// Stats summarizes a store for the CLI.
type Stats struct {
	Backend  string `json:"backend"`
	Sessions int    `json:"sessions"`
	Turns    int    `json:"turns"`
	Corrupt  int    `json:"corrupt"`
}

// Open builds the configured backend.
func Open(cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLiteStore(cfg.DBPath)
	case "file":
		return NewFileStore(cfg.Dir)
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// StatsOf walks every session of s.
func StatsOf(ctx context.Context, backend string, s Store) (*Stats, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Backend: backend, Sessions: len(keys)}
	for _, k := range keys {
		turns, err := s.Load(ctx, k)
		if errors.Is(err, ErrSessionCorrupt) {
			st.Corrupt++
			continue
		}
		if err != nil {
			return nil, err
		}
		st.Turns += len(turns)
	}
	return st, nil
}

func decodeTurns(key string, data []byte) ([]model.SessionTurn, error) {
	turns := []model.SessionTurn{}
	if len(data) == 0 {
		return turns, nil
	}
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSessionCorrupt, key, err)
	}
	if turns == nil {
		turns = []model.SessionTurn{}
	}
	return turns, nil
}

func encodeTurns(turns []model.SessionTurn) ([]byte, error) {
	if turns == nil {
		turns = []model.SessionTurn{}
	}
	return json.Marshal(turns)
}

// appendTo decodes current, tolerating corruption, and appends turn.
func appendTo(key string, current []byte, turn model.SessionTurn) ([]byte, error) {
	turns, err := decodeTurns(key, current)
	if err != nil {
		turns = []model.SessionTurn{}
	}
	return encodeTurns(append(turns, turn))
}

// keyLocks hands out one mutex per key.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
