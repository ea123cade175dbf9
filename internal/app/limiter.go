package app

import "sync"

// KeyLimiter serialises work per key (an order or a withdrawal id) inside one process.
// Entries are dropped once no goroutine holds or waits for them.
type KeyLimiter struct {
	mu    sync.Mutex
	byKey map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyLimiter() *KeyLimiter {
	return &KeyLimiter{byKey: make(map[string]*keyLock)}
}

// Lock blocks until key is free and returns the unlock function.
func (l *KeyLimiter) Lock(key string) func() {
	l.mu.Lock()
	k, ok := l.byKey[key]
	if !ok {
		k = &keyLock{}
		l.byKey[key] = k
	}
	k.refs++
	l.mu.Unlock()

	k.mu.Lock()
	return func() {
		k.mu.Unlock()
		l.mu.Lock()
		k.refs--
		if k.refs == 0 {
			delete(l.byKey, key)
		}
		l.mu.Unlock()
	}
}

func (l *KeyLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}
