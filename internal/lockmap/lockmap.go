// Package lockmap hands out one mutex per key.
package lockmap

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type Map struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

func New() *Map {
	return &Map{locks: xsync.NewMapOf[string, *sync.Mutex]()}
}

// Lock blocks until the mutex for key is held and returns its unlock func.
func (m *Map) Lock(key string) func() {
	mu, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
