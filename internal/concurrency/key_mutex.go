package concurrency

import "sync"

// KeyMutex serializes work per key. The store offers no cross-operation
// atomicity, so every read-modify-write against the same cart key must hold
// that key's lock. Entries are reference counted and removed when the last
// holder unlocks, so the map does not grow with the identity space.
type KeyMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the key's lock is held and returns the unlock func.
func (k *KeyMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
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
