package dumper

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS host_traffic (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp INTEGER NOT NULL,
    ip TEXT NOT NULL,
    int_sent INTEGER, int_recv INTEGER, int_packets INTEGER,
    int_tcp INTEGER, int_udp INTEGER, int_icmp INTEGER,
    ext_sent INTEGER, ext_recv INTEGER, ext_packets INTEGER,
    ext_tcp INTEGER, ext_udp INTEGER, ext_icmp INTEGER
);
CREATE INDEX IF NOT EXISTS host_traffic_ip_ts ON host_traffic (ip, timestamp);
`

func init() {
	factory.RegisterDumper("sqlite", func(_ *config.Config, def config.DumperDef) (model.Dumper, error) {
		return NewSQLiteDumper(def.SQLite.DatabasePath())
	})
}

// SQLiteDumper appends one row per host per flush to a local SQLite database.
type SQLiteDumper struct {
	db *sql.DB
}

// NewSQLiteDumper opens (or creates) the database at path and ensures the schema exists.
func NewSQLiteDumper(path string) (*SQLiteDumper, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	log.Printf("SQLite dumper writing to %s", path)
	return &SQLiteDumper{db: db}, nil
}

func (d *SQLiteDumper) Name() string {
	return "sqlite"
}

// Emit inserts the whole snapshot in a single transaction.
func (d *SQLiteDumper) Emit(snapshot *model.Snapshot) error {
	if len(snapshot.Hosts) == 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO host_traffic (
            timestamp, ip,
            int_sent, int_recv, int_packets, int_tcp, int_udp, int_icmp,
            ext_sent, ext_recv, ext_packets, ext_tcp, ext_udp, ext_icmp
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	ts := snapshot.Timestamp.Unix()
	for _, h := range snapshot.Hosts {
		_, err = stmt.Exec(
			ts, h.Address.String(),
			int64(h.Internal.BytesSent), int64(h.Internal.BytesReceived), int64(h.Internal.PacketCount),
			int64(h.Internal.TCPBytes), int64(h.Internal.UDPBytes), int64(h.Internal.ICMPBytes),
			int64(h.External.BytesSent), int64(h.External.BytesReceived), int64(h.External.PacketCount),
			int64(h.External.TCPBytes), int64(h.External.UDPBytes), int64(h.External.ICMPBytes),
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Close closes the database.
func (d *SQLiteDumper) Close() error {
	return d.db.Close()
}
