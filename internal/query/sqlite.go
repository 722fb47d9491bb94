package query

import (
	"Go2NetBandwidth/internal/model"
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteQuerier reads the host_traffic table written by the sqlite dumper.
type sqliteQuerier struct {
	db *sql.DB
}

// NewSQLiteQuerier opens the database at path for reading.
func NewSQLiteQuerier(path string) (Querier, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &sqliteQuerier{db: db}, nil
}

func (q *sqliteQuerier) HostHistory(ctx context.Context, ip model.Addr, since time.Time) ([]HistoryPoint, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT
			timestamp,
			int_sent, int_recv, int_packets, int_tcp, int_udp, int_icmp,
			ext_sent, ext_recv, ext_packets, ext_tcp, ext_udp, ext_icmp
		FROM host_traffic
		WHERE ip = ? AND timestamp >= ?
		ORDER BY timestamp
	`, ip.String(), since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var ts int64
		var p HistoryPoint
		if err := rows.Scan(append([]interface{}{&ts}, summaryDest(&p.Internal, &p.External)...)...); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		p.Timestamp = time.Unix(ts, 0)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (q *sqliteQuerier) HostTotals(ctx context.Context, since time.Time) ([]model.HostRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT
			ip,
			SUM(int_sent), SUM(int_recv), SUM(int_packets), SUM(int_tcp), SUM(int_udp), SUM(int_icmp),
			SUM(ext_sent), SUM(ext_recv), SUM(ext_packets), SUM(ext_tcp), SUM(ext_udp), SUM(ext_icmp)
		FROM host_traffic
		WHERE timestamp >= ?
		GROUP BY ip
	`, since.Unix())
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

func (q *sqliteQuerier) Close() error {
	return q.db.Close()
}
