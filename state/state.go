package state

import "sync"

// KeyedLocks serializes work per string key. The quota services take the
// (device, app) lock around consume retries so concurrent double-taps from
// the same device queue up instead of hammering SQLite's busy handler.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Global is the shared lock registry instance
var Global = NewKeyedLocks()

// NewKeyedLocks creates an empty lock registry
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*keyLock)}
}

// Lock acquires the lock for key and returns the release function. Entries
// are reference counted and removed once the last holder releases, so the
// registry does not grow with the device population.
func (k *KeyedLocks) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyLock{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len reports the number of live lock entries
func (k *KeyedLocks) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
