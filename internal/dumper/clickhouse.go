package dumper

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/internal/storage"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

func init() {
	factory.RegisterDumper("clickhouse", func(_ *config.Config, def config.DumperDef) (model.Dumper, error) {
		return NewClickHouseDumper(def.ClickHouse)
	})
}

// ClickHouseDumper batch-inserts every snapshot into the host_traffic table.
type ClickHouseDumper struct {
	conn    driver.Conn
	timeout time.Duration
}

// NewClickHouseDumper connects to ClickHouse and ensures the table exists.
func NewClickHouseDumper(cfg config.ClickHouseConfig) (*ClickHouseDumper, error) {
	conn, err := storage.ConnectClickHouse(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := storage.EnsureSchema(context.Background(), conn); err != nil {
		conn.Close()
		return nil, err
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseDumper{conn: conn, timeout: 30 * time.Second}, nil
}

func (d *ClickHouseDumper) Name() string {
	return "clickhouse"
}

// Emit inserts one row per host.
func (d *ClickHouseDumper) Emit(snapshot *model.Snapshot) error {
	if len(snapshot.Hosts) == 0 {
		return nil // Nothing to write
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	batch, err := d.conn.PrepareBatch(ctx, "INSERT INTO "+storage.HostTrafficTable)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, h := range snapshot.Hosts {
		if err := batch.Append(clickHouseRow(snapshot.Timestamp, h)...); err != nil {
			return fmt.Errorf("failed to append host to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d hosts to ClickHouse", len(snapshot.Hosts))
	return nil
}

// clickHouseRow orders a host's values to match the host_traffic columns.
func clickHouseRow(ts time.Time, h model.HostRecord) []interface{} {
	return []interface{}{
		ts,
		h.Address.String(),
		h.Internal.BytesSent, h.Internal.BytesReceived, h.Internal.PacketCount,
		h.Internal.TCPBytes, h.Internal.UDPBytes, h.Internal.ICMPBytes,
		h.External.BytesSent, h.External.BytesReceived, h.External.PacketCount,
		h.External.TCPBytes, h.External.UDPBytes, h.External.ICMPBytes,
	}
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDumper) Close() error {
	return d.conn.Close()
}
