package dumper

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/appwrite/sdk-for-go/appwrite"
	"github.com/appwrite/sdk-for-go/tablesdb"
)

const dayLayout = "2006-01-02"

func init() {
	factory.RegisterDumper("appwrite", func(_ *config.Config, def config.DumperDef) (model.Dumper, error) {
		return NewAppwriteDumper(def.Appwrite)
	})
}

// rowUpserter is the subset of the Appwrite tables API used by the dumper.
type rowUpserter func(rowID string, data map[string]interface{}) error

// AppwriteDumper keeps per-host daily totals and upserts them into an Appwrite table
// after every flush, one row per (hostname, ip, day).
type AppwriteDumper struct {
	hostname string
	upsert   rowUpserter

	day    string
	totals map[model.Addr]*model.HostRecord
}

// NewAppwriteDumper creates the Appwrite client from the config block.
func NewAppwriteDumper(cfg config.AppwriteConfig) (*AppwriteDumper, error) {
	if cfg.Endpoint == "" || cfg.Project == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("appwrite endpoint, project and api_key are required")
	}
	if cfg.Database == "" || cfg.Table == "" {
		return nil, fmt.Errorf("appwrite database and table are required")
	}

	client := appwrite.NewClient(
		appwrite.WithEndpoint(cfg.Endpoint),
		appwrite.WithProject(cfg.Project),
		appwrite.WithKey(cfg.APIKey),
	)
	db := tablesdb.New(client)

	upsert := func(rowID string, data map[string]interface{}) error {
		_, err := db.UpsertRow(cfg.Database, cfg.Table, rowID, db.WithUpsertRowData(data))
		return err
	}
	return newAppwriteDumper(cfg.Hostname, upsert), nil
}

func newAppwriteDumper(hostname string, upsert rowUpserter) *AppwriteDumper {
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	return &AppwriteDumper{
		hostname: hostname,
		upsert:   upsert,
		totals:   make(map[model.Addr]*model.HostRecord),
	}
}

func (d *AppwriteDumper) Name() string {
	return "appwrite"
}

// Emit folds the snapshot into today's totals and upserts the touched rows.
func (d *AppwriteDumper) Emit(snapshot *model.Snapshot) error {
	day := snapshot.Timestamp.Format(dayLayout)
	if day != d.day {
		d.day = day
		d.totals = make(map[model.Addr]*model.HostRecord)
	}

	failed := 0
	for _, h := range snapshot.Hosts {
		total, ok := d.totals[h.Address]
		if !ok {
			total = &model.HostRecord{Address: h.Address}
			d.totals[h.Address] = total
		}
		addSummary(&total.Internal, h.Internal)
		addSummary(&total.External, h.External)

		rowID := makeRowID(d.hostname, h.Address.String(), day)
		if err := d.upsert(rowID, d.rowData(total, day)); err != nil {
			log.Printf("APPWRITE: failed to upsert %s: %v", rowID, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rows failed to upsert", failed, len(snapshot.Hosts))
	}
	log.Printf("APPWRITE: pushed %d rows to Appwrite", len(snapshot.Hosts))
	return nil
}

func (d *AppwriteDumper) rowData(h *model.HostRecord, day string) map[string]interface{} {
	return map[string]interface{}{
		"hostname": d.hostname,
		"ip":       h.Address.String(),
		"day":      day,
		"int_sent": h.Internal.BytesSent,
		"int_recv": h.Internal.BytesReceived,
		"int_tcp":  h.Internal.TCPBytes,
		"int_udp":  h.Internal.UDPBytes,
		"int_icmp": h.Internal.ICMPBytes,
		"ext_sent": h.External.BytesSent,
		"ext_recv": h.External.BytesReceived,
		"ext_tcp":  h.External.TCPBytes,
		"ext_udp":  h.External.UDPBytes,
		"ext_icmp": h.External.ICMPBytes,
	}
}

func addSummary(dst *model.TrafficSummary, src model.TrafficSummary) {
	dst.BytesSent += src.BytesSent
	dst.BytesReceived += src.BytesReceived
	dst.PacketCount += src.PacketCount
	dst.TCPBytes += src.TCPBytes
	dst.UDPBytes += src.UDPBytes
	dst.ICMPBytes += src.ICMPBytes
}

func makeRowID(hostname, ip, day string) string {
	h := sha1.New()
	h.Write([]byte(hostname))
	h.Write([]byte(ip))
	h.Write([]byte(day))
	sum := hex.EncodeToString(h.Sum(nil))
	return sum[:32] // Appwrite ids are limited to 36 chars
}
