package query

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/internal/storage"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := storage.ConnectClickHouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func (q *clickhouseQuerier) HostHistory(ctx context.Context, ip model.Addr, since time.Time) ([]HistoryPoint, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT
			Timestamp,
			IntSent, IntRecv, IntPackets, IntTCP, IntUDP, IntICMP,
			ExtSent, ExtRecv, ExtPackets, ExtTCP, ExtUDP, ExtICMP
		FROM `+storage.HostTrafficTable+`
		WHERE IP = ? AND Timestamp >= ?
		ORDER BY Timestamp
	`, ip.String(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(append([]interface{}{&p.Timestamp}, summaryDest(&p.Internal, &p.External)...)...); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (q *clickhouseQuerier) HostTotals(ctx context.Context, since time.Time) ([]model.HostRecord, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT
			IP,
			SUM(IntSent), SUM(IntRecv), SUM(IntPackets), SUM(IntTCP), SUM(IntUDP), SUM(IntICMP),
			SUM(ExtSent), SUM(ExtRecv), SUM(ExtPackets), SUM(ExtTCP), SUM(ExtUDP), SUM(ExtICMP)
		FROM `+storage.HostTrafficTable+`
		WHERE Timestamp >= ?
		GROUP BY IP
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var hosts []model.HostRecord
	for rows.Next() {
		var ip string
		var h model.HostRecord
		if err := rows.Scan(append([]interface{}{&ip}, summaryDest(&h.Internal, &h.External)...)...); err != nil {
			return nil, fmt.Errorf("failed to scan totals row: %w", err)
		}
		if h.Address, err = model.ParseAddr(ip); err != nil {
			return nil, fmt.Errorf("stored row has invalid ip %q: %w", ip, err)
		}
		hosts = append(hosts, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortHosts(hosts)
	return hosts, nil
}

func (q *clickhouseQuerier) Close() error {
	return q.conn.Close()
}

// summaryDest lists scan targets in the column order shared by both stores.
func summaryDest(internal, external *model.TrafficSummary) []interface{} {
	return []interface{}{
		&internal.BytesSent, &internal.BytesReceived, &internal.PacketCount,
		&internal.TCPBytes, &internal.UDPBytes, &internal.ICMPBytes,
		&external.BytesSent, &external.BytesReceived, &external.PacketCount,
		&external.TCPBytes, &external.UDPBytes, &external.ICMPBytes,
	}
}

func sortHosts(hosts []model.HostRecord) {
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Address < hosts[j].Address })
}
