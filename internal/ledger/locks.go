package ledger

import (
	"sort"
	"sync"
)

// lockset hands out one mutex per account owner.
// Multiple owners are always locked in sorted order so two pairs that name
// the same accounts in opposite roles cannot deadlock. An owner's entry lives
// only while some caller holds or waits on it.
type lockset struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sync.Mutex
	refs int
}

func newLockset() *lockset {
	return &lockset{locks: make(map[string]*ownerLock)}
}

func (l *lockset) acquire(owner string) *ownerLock {
	l.mu.Lock()
	m, ok := l.locks[owner]
	if !ok {
		m = &ownerLock{}
		l.locks[owner] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
	return m
}

func (l *lockset) release(owner string, m *ownerLock) {
	m.Unlock()

	l.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, owner)
	}
	l.mu.Unlock()
}

// size reports how many owners currently have an entry.
func (l *lockset) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// lock acquires the mutex of every distinct owner and returns the release func.
func (l *lockset) lock(owners ...string) (unlock func()) {
	unique := make([]string, 0, len(owners))
	seen := make(map[string]bool, len(owners))
	for _, o := range owners {
		if !seen[o] {
			seen[o] = true
			unique = append(unique, o)
		}
	}
	sort.Strings(unique)

	held := make([]*ownerLock, 0, len(unique))
	for _, o := range unique {
		held = append(held, l.acquire(o))
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(unique[i], held[i])
		}
	}
}
