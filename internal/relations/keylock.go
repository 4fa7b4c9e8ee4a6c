package relations

import (
	"sort"
	"sync"
)

// keyedLock serializes writes per entity id. The duplicate guards in Manager
// are check-then-write over embedded JSON lists, which would race under
// concurrent requests touching the same entity; holding both ends' locks for
// the duration of an operation closes that window. Locks are taken in sorted
// key order so two operations over the same pair cannot deadlock.
type keyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLock() *keyedLock {
	return &keyedLock{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// lock acquires the mutexes for every distinct key and returns the unlock
// function. Keys may repeat; each distinct key is locked once.
func (k *keyedLock) lock(keys ...string) func() {
	distinct := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			distinct = append(distinct, key)
		}
	}
	sort.Strings(distinct)

	held := make([]*sync.Mutex, 0, len(distinct))
	for _, key := range distinct {
		m := k.get(key)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
