package cache

import (
	"context"
	"sync"

	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/metrics"
)

// MemoryHandleDirectory is a process-local repository.HandleDirectory.
// It is lost on restart, which only costs one sequential resolution per handle.
type MemoryHandleDirectory struct {
	mu  sync.RWMutex
	ids map[string]string
}

// NewMemoryHandleDirectory returns an empty in-process handle directory.
func NewMemoryHandleDirectory() *MemoryHandleDirectory {
	return &MemoryHandleDirectory{ids: make(map[string]string)}
}

// Lookup returns the stable ID remembered for handleKey, or "" when unknown.
func (d *MemoryHandleDirectory) Lookup(_ context.Context, handleKey string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.ids[handleKey]
	status := metrics.CacheStatusMiss
	if ok {
		status = metrics.CacheStatusHit
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, status, metrics.CacheTypeMemory).Inc()
	return id, nil
}

// Remember records the stable ID a handle resolved to, replacing any earlier one.
func (d *MemoryHandleDirectory) Remember(_ context.Context, handleKey, stableID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ids[handleKey] = stableID
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeMemory).Inc()
	return nil
}

var _ repository.HandleDirectory = (*MemoryHandleDirectory)(nil)
