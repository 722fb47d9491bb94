package dumper

import (
	"Go2NetBandwidth/internal/model"
	"sync"
)

// MemoryDumper keeps the most recent snapshot for readers such as the API.
// It is not configured through the dumper list; the manager always installs it.
type MemoryDumper struct {
	mu     sync.RWMutex
	latest *model.Snapshot
}

func NewMemoryDumper() *MemoryDumper {
	return &MemoryDumper{}
}

func (d *MemoryDumper) Name() string {
	return "memory"
}

func (d *MemoryDumper) Emit(snapshot *model.Snapshot) error {
	d.mu.Lock()
	d.latest = snapshot
	d.mu.Unlock()
	return nil
}

// Latest returns the last emitted snapshot, or nil before the first flush.
// Callers must treat the result as read-only.
func (d *MemoryDumper) Latest() *model.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}
