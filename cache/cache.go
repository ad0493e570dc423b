// Package cache holds short-lived read models (counts, registration lists)
// keyed per team and generation. Writers bump the team's generation after
// every mutation so a client always reads its own writes, even when a slower
// reader stores a value it loaded before the write.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Cache stores JSON-encoded values. Team read models are addressed through a
// Scope so that a writer retires every entry of its team with one Bump.
type Cache interface {
	// Get decodes the value under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Generation returns the current generation of a team's read models.
	Generation(ctx context.Context, teamID string) (int64, error)
	// Bump advances a team's generation. Entries stored under an earlier
	// generation are never read again.
	Bump(ctx context.Context, teamID string) error
}

// TeamPrefix scopes every cached read model of a team.
func TeamPrefix(teamID string) string {
	return "team:" + teamID + ":"
}

// GenerationKey holds a team's generation counter. It sits outside the team
// prefix.
func GenerationKey(teamID string) string {
	return "generation:" + teamID
}

// Scope addresses a team's read models at one generation.
type Scope struct {
	TeamID     string
	Generation int64
}

// Key builds the full key of a read model.
func (s Scope) Key(name string) string {
	return TeamPrefix(s.TeamID) + strconv.FormatInt(s.Generation, 10) + ":" + name
}

func CountsKey(eventID string) string {
	return "counts:" + eventID
}

func RegistrationsKey(eventID string) string {
	return "registrations:" + eventID
}

func NonRespondedKey(eventID string) string {
	return "non-responded:" + eventID
}

func StatsKey() string {
	return "stats"
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a process-local Cache used when Redis is disabled.
type MemoryCache struct {
	mu          sync.RWMutex
	entries     map[string]memoryEntry
	generations map[string]int64
	now         func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:     make(map[string]memoryEntry),
		generations: make(map[string]int64),
		now:         time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Generation(_ context.Context, teamID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generations[teamID], nil
}

// Bump advances the generation and drops the team's stored entries, which all
// belong to earlier generations.
func (m *MemoryCache) Bump(_ context.Context, teamID string) error {
	prefix := TeamPrefix(teamID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[teamID]++
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}
