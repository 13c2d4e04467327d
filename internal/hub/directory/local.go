// Package directory holds the hub's name indexes: a per-worker index of
// locally connected users and the shared directory that enforces global
// nick uniqueness and listening-socket ownership across all workers.
package directory

import (
	"strings"
	"sync"
)

// LocalIndex maps display names to locally connected users, exact
// case-insensitive match only. Each worker owns one; entries for users on
// other workers never appear here.
type LocalIndex[T any] struct {
	mu     sync.RWMutex
	byNick map[string]T
}

func NewLocalIndex[T any]() *LocalIndex[T] {
	return &LocalIndex[T]{byNick: make(map[string]T)}
}

func (l *LocalIndex[T]) Register(nick string, v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byNick[strings.ToLower(nick)] = v
}

func (l *LocalIndex[T]) Unregister(nick string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byNick, strings.ToLower(nick))
}

func (l *LocalIndex[T]) Lookup(nick string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.byNick[strings.ToLower(nick)]
	return v, ok
}

func (l *LocalIndex[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byNick)
}

// Each visits every entry. The callback runs under the read lock; it must
// not call back into the index.
func (l *LocalIndex[T]) Each(fn func(nick string, v T)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for nick, v := range l.byNick {
		fn(nick, v)
	}
}
