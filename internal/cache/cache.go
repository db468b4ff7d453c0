// Package cache provides the in-memory caches used by the HTTP server and a
// manager that sweeps expired entries out of them on a shared ticker.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the read side exposed to handlers.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by anything the Manager can sweep: the LRU caches
// and the wizard session store both qualify.
type Cleaner interface {
	// CleanExpired removes expired entries and returns how many were dropped.
	CleanExpired() int
}

// Manager owns the cleanup goroutine for all registered Cleaners.
type Manager struct {
	cleaners []Cleaner
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewManager creates an empty manager. Register cleaners before calling
// StartCleanup; Register is not safe to call concurrently with the sweep.
func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cleaner to the sweep rotation.
func (m *Manager) Register(c Cleaner) {
	m.cleaners = append(m.cleaners, c)
}

// StartCleanup begins the periodic sweep of all registered cleaners.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.sweepLoop(interval)
}

func (m *Manager) sweepLoop(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := 0
			for _, c := range m.cleaners {
				removed += c.CleanExpired()
			}
			if removed > 0 {
				slog.Debug("Cache sweep removed expired entries", "removed", removed)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop halts the sweep and waits for it to finish. Safe to call more than
// once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}
