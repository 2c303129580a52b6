package session

import "sync"

// keyedLock provides one mutex per key. Mutexes are created lazily and
// never removed; the key space is bounded by the active user population.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its unlock func.
func (k *keyedLock) acquire(key string) func() {
	k.mu.Lock()
	m, exists := k.locks[key]
	if !exists {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
