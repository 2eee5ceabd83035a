package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const defaultMaxEntries = 10000

// Option konfiguriert einen MemoryStore.
type Option func(*MemoryStore)

// WithMaxEntries begrenzt die Anzahl der Einträge; die ältesten fliegen zuerst.
func WithMaxEntries(maxEntries int) Option {
	return func(m *MemoryStore) {
		if maxEntries > 0 {
			m.maxEntries = maxEntries
		}
	}
}

// WithClock ersetzt time.Now, z. B. in Tests.
func WithClock(clock func() time.Time) Option {
	return func(m *MemoryStore) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// MemoryStore ist ein prozesslokaler Store mit LRU-Begrenzung.
type MemoryStore struct {
	maxEntries int
	clock      func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
	lru     *list.List
	index   map[string]*list.Element
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore erstellt einen leeren MemoryStore.
func NewMemoryStore(options ...Option) *MemoryStore {
	m := &MemoryStore{
		maxEntries: defaultMaxEntries,
		clock:      time.Now,
		entries:    make(map[string]*memoryEntry),
		lru:        list.New(),
		index:      make(map[string]*list.Element),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Get implementiert Store.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.isExpired(entry, m.clock()) {
		m.deleteLocked(key)
		return nil, false, nil
	}
	m.touchLocked(key)

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set implementiert Store. ttl <= 0 bedeutet ohne Ablauf.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.clock().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok {
		entry.value = stored
		entry.expiresAt = expiresAt
		m.touchLocked(key)
		return nil
	}

	m.entries[key] = &memoryEntry{value: stored, expiresAt: expiresAt}
	m.index[key] = m.lru.PushFront(key)
	m.trimToCapacityLocked()
	return nil
}

// Delete implementiert Store.
func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		m.deleteLocked(key)
	}
	return nil
}

// Flush implementiert Store.
func (m *MemoryStore) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*memoryEntry)
	m.index = make(map[string]*list.Element)
	m.lru.Init()
	return nil
}

// Len liefert die Anzahl der Einträge inklusive abgelaufener, noch nicht entfernter.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) trimToCapacityLocked() {
	for len(m.entries) > m.maxEntries {
		back := m.lru.Back()
		if back == nil {
			break
		}
		oldest, ok := back.Value.(string)
		if !ok {
			m.lru.Remove(back)
			continue
		}
		m.deleteLocked(oldest)
	}
}

func (m *MemoryStore) touchLocked(key string) {
	if element, ok := m.index[key]; ok {
		m.lru.MoveToFront(element)
	}
}

func (m *MemoryStore) deleteLocked(key string) {
	if element, ok := m.index[key]; ok {
		m.lru.Remove(element)
		delete(m.index, key)
	}
	delete(m.entries, key)
}

func (m *MemoryStore) isExpired(entry *memoryEntry, now time.Time) bool {
	if entry.expiresAt.IsZero() {
		return false
	}
	return !now.Before(entry.expiresAt)
}
