package storage

import (
	"Go2NetBandwidth/internal/config"
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// HostTrafficTable is the ClickHouse table holding one row per host per flush.
const HostTrafficTable = "host_traffic"

const createTableStatement = `
CREATE TABLE IF NOT EXISTS host_traffic (
    Timestamp   DateTime,
    IP          String,
    IntSent     UInt64,
    IntRecv     UInt64,
    IntPackets  UInt64,
    IntTCP      UInt64,
    IntUDP      UInt64,
    IntICMP     UInt64,
    ExtSent     UInt64,
    ExtRecv     UInt64,
    ExtPackets  UInt64,
    ExtTCP      UInt64,
    ExtUDP      UInt64,
    ExtICMP     UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (IP, Timestamp);
`

// ConnectClickHouse opens and pings a ClickHouse connection.
func ConnectClickHouse(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// EnsureSchema creates the host_traffic table if it does not exist.
func EnsureSchema(ctx context.Context, conn driver.Conn) error {
	if err := conn.Exec(ctx, createTableStatement); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}
