package ledger

import "sync"

// KeyedMutex serializes operations on the same (portfolioID, symbol) holding.
// A buy and a concurrent sell racing against one holding must not interleave
// their read-modify-write of quantity and cost; operations on different
// holdings proceed fully in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for the given holding key and returns its unlock
// function. Entries are reference-counted and removed once unused, so the
// map does not grow with the number of holdings ever touched.
func (k *KeyedMutex) Lock(portfolioID, symbol string) func() {
	key := portfolioID + "\x00" + symbol

	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
