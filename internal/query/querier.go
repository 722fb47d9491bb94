package query

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/model"
	"context"
	"errors"
	"time"
)

// ErrNoBackend is returned when no history store is configured.
var ErrNoBackend = errors.New("no query backend configured")

// HistoryPoint is one flushed interval for a single host.
type HistoryPoint struct {
	Timestamp time.Time            `json:"timestamp"`
	Internal  model.TrafficSummary `json:"internal"`
	External  model.TrafficSummary `json:"external"`
}

// Querier defines the interface for reading stored snapshots back.
type Querier interface {
	// HostHistory returns the intervals recorded for ip at or after since, oldest first.
	HostHistory(ctx context.Context, ip model.Addr, since time.Time) ([]HistoryPoint, error)
	// HostTotals sums every interval at or after since per host, ordered by address.
	HostTotals(ctx context.Context, since time.Time) ([]model.HostRecord, error)
	Close() error
}

// FromConfig opens a querier on the first enabled ClickHouse dumper, falling
// back to the first enabled SQLite dumper. It returns nil when neither is configured.
func FromConfig(cfg *config.Config) (Querier, error) {
	for _, def := range cfg.Dumpers {
		if def.Enabled && def.Type == "clickhouse" {
			return NewClickHouseQuerier(def.ClickHouse)
		}
	}
	for _, def := range cfg.Dumpers {
		if def.Enabled && def.Type == "sqlite" {
			return NewSQLiteQuerier(def.SQLite.DatabasePath())
		}
	}
	return nil, nil
}
