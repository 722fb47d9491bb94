package aggregator

import (
	"Go2NetBandwidth/internal/engine/classifier"
	"Go2NetBandwidth/internal/model"
	"sort"
	"sync"
	"time"
)

// Aggregator accumulates per-host traffic for the internal networks known to its classifier.
// A single mutex covers AddPacket, Snapshot, Reset and Flush so that a flush never
// loses or double-counts a packet.
type Aggregator struct {
	classifier *classifier.Classifier

	mu    sync.Mutex
	hosts map[model.Addr]*model.HostRecord
}

// New creates an aggregator that classifies addresses with c.
func New(c *classifier.Classifier) *Aggregator {
	return &Aggregator{
		classifier: c,
		hosts:      make(map[model.Addr]*model.HostRecord),
	}
}

// AddPacket accounts a decoded IPv4 header against the internal hosts it involves.
// Packets between two internal hosts are credited to both; packets between two
// external addresses are ignored.
func (a *Aggregator) AddPacket(h *model.IPHeader) {
	srcInternal := a.classifier.IsInternal(h.Src)
	dstInternal := a.classifier.IsInternal(h.Dst)
	if !srcInternal && !dstInternal {
		return
	}
	length := uint64(h.Length)

	a.mu.Lock()
	defer a.mu.Unlock()

	if srcInternal {
		summary := a.summaryFor(h.Src, dstInternal)
		summary.Record(true, h.Src == h.Dst, length, h.Protocol)
	}
	if dstInternal {
		summary := a.summaryFor(h.Dst, srcInternal)
		summary.Record(h.Src == h.Dst, true, length, h.Protocol)
	}
}

// summaryFor returns the internal or external summary of addr's record.
// Callers must hold a.mu.
func (a *Aggregator) summaryFor(addr model.Addr, peerInternal bool) *model.TrafficSummary {
	host := a.getOrCreate(addr)
	if peerInternal {
		return &host.Internal
	}
	return &host.External
}

// getOrCreate returns the record for addr, inserting a zeroed one if needed.
// Callers must hold a.mu.
func (a *Aggregator) getOrCreate(addr model.Addr) *model.HostRecord {
	host, ok := a.hosts[addr]
	if !ok {
		host = &model.HostRecord{Address: addr}
		a.hosts[addr] = host
	}
	return host
}

// Snapshot returns a copy of all host records, ordered by address.
func (a *Aggregator) Snapshot(now time.Time) *model.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked(now)
}

// Reset discards every host record and starts a new accounting interval.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hosts = make(map[model.Addr]*model.HostRecord)
}

// Flush takes a snapshot and resets the table under one lock acquisition.
func (a *Aggregator) Flush(now time.Time) *model.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snapshot := a.snapshotLocked(now)
	a.hosts = make(map[model.Addr]*model.HostRecord)
	return snapshot
}

// Host returns a copy of a single host's record for the current interval.
func (a *Aggregator) Host(addr model.Addr) (model.HostRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	host, ok := a.hosts[addr]
	if !ok {
		return model.HostRecord{}, false
	}
	return *host, true
}

// Len returns the number of hosts seen in the current interval.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.hosts)
}

func (a *Aggregator) snapshotLocked(now time.Time) *model.Snapshot {
	hosts := make([]model.HostRecord, 0, len(a.hosts))
	for _, host := range a.hosts {
		hosts = append(hosts, *host)
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Address < hosts[j].Address })
	return &model.Snapshot{Timestamp: now, Hosts: hosts}
}
