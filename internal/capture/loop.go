package capture

import (
	"Go2NetBandwidth/internal/engine/aggregator"
	"Go2NetBandwidth/internal/engine/protocol"
	"Go2NetBandwidth/internal/model"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"
	"time"
)

// LoopStats are the counters maintained by the capture loop.
type LoopStats struct {
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
	Flushes   uint64 `json:"flushes"`
}

// LoopOption is a functional option for Loop.
type LoopOption func(*Loop)

// WithClock overrides the wall clock used for flush decisions.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		l.now = now
	}
}

// WithRecorder records every accepted IPv4 frame.
func WithRecorder(r *Recorder) LoopOption {
	return func(l *Loop) {
		l.recorder = r
	}
}

// Loop pulls frames from a Source, feeds them to the aggregator and flushes
// the aggregator to the dumpers once the dump interval has elapsed.
//
// The flush check runs when a frame arrives. While no traffic is captured the
// flush is deferred until the next frame, read timeouts only re-check ctx.
type Loop struct {
	source        Source
	aggregator    *aggregator.Aggregator
	dumpers       []model.Dumper
	interval      time.Duration
	linkHeaderLen int
	recorder      *Recorder
	now           func() time.Time

	lastFlush time.Time
	processed atomic.Uint64
	skipped   atomic.Uint64
	flushes   atomic.Uint64
}

// NewLoop creates a capture loop. linkHeaderLen is the fixed link-layer header stripped from each frame.
func NewLoop(source Source, agg *aggregator.Aggregator, dumpers []model.Dumper, interval time.Duration, linkHeaderLen int, opts ...LoopOption) *Loop {
	l := &Loop{
		source:        source,
		aggregator:    agg,
		dumpers:       dumpers,
		interval:      interval,
		linkHeaderLen: linkHeaderLen,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes frames until ctx is cancelled, the source is exhausted or a read fails.
// A final flush is performed before returning in every case.
func (l *Loop) Run(ctx context.Context) error {
	l.lastFlush = l.now()
	log.Printf("Capture loop started, dump interval %s, link header %d bytes", l.interval, l.linkHeaderLen)

	for {
		select {
		case <-ctx.Done():
			l.flush(l.now())
			return nil
		default:
		}

		data, ci, err := l.source.ZeroCopyReadPacketData()
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if errors.Is(err, io.EOF) {
			l.flush(l.now())
			return nil
		}
		if err != nil {
			l.flush(l.now())
			return fmt.Errorf("failed to read packet: %w", err)
		}

		if now := l.now(); now.Sub(l.lastFlush) > l.interval {
			l.flush(now)
		}

		hdr, err := protocol.ParseIPv4(data, l.linkHeaderLen)
		if err != nil {
			l.skipped.Add(1)
			continue
		}
		l.aggregator.AddPacket(hdr)
		l.processed.Add(1)

		if l.recorder != nil {
			l.recorder.Enqueue(ci, data)
		}
	}
}

// flush hands the current interval to every dumper and starts a new one.
// A failing dumper is logged and does not prevent the reset.
func (l *Loop) flush(now time.Time) {
	snapshot := l.aggregator.Flush(now)
	l.lastFlush = now
	l.flushes.Add(1)

	for _, d := range l.dumpers {
		if err := d.Emit(snapshot); err != nil {
			log.Printf("Error emitting snapshot to dumper '%s': %v", d.Name(), err)
		}
	}

	if s, ok := l.source.(StatsSource); ok {
		if stats, err := s.Stats(); err == nil && (stats.PacketsDropped > 0 || stats.PacketsIfDropped > 0) {
			log.Printf("Capture drops so far: %d dropped, %d dropped by interface", stats.PacketsDropped, stats.PacketsIfDropped)
		}
	}
	log.Printf("Flushed %d hosts at %s", len(snapshot.Hosts), now.Format("2006-01-02_15-04-05"))
}

// Stats returns the loop counters. Safe to call from other goroutines.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Processed: l.processed.Load(),
		Skipped:   l.skipped.Load(),
		Flushes:   l.flushes.Load(),
	}
}
