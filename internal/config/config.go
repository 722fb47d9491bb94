package config

import (
	"Go2NetBandwidth/internal/model"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDumpIntervalSeconds = 600
	DefaultSnapshotLen         = 1600
	DefaultReadTimeout         = time.Second
	DefaultFilter              = "ip"
	DefaultSQLitePath          = "data/traffic.db"
)

var (
	ErrNoDevice           = errors.New("capture.device is required")
	ErrNoInternalNetworks = errors.New("at least one internal network is required")
)

// CaptureConfig describes where packets come from.
type CaptureConfig struct {
	Device        string `yaml:"device"`
	PcapFile      string `yaml:"pcap_file"`
	SnapshotLen   int32  `yaml:"snapshot_len"`
	Promiscuous   *bool  `yaml:"promiscuous"`
	ReadTimeout   string `yaml:"read_timeout"`
	LinkHeaderLen *int   `yaml:"link_header_len"` // nil: derived from the link type
	Filter        string `yaml:"filter"`
	RecordPath    string `yaml:"record_path"`
}

// NetworkDef is one internal network as written in the config file.
// Mask accepts a dotted quad ("255.255.255.0") or a prefix length ("24").
type NetworkDef struct {
	Address string `yaml:"address"`
	Mask    string `yaml:"mask"`
}

// FileConfig is shared by the file based dumpers.
type FileConfig struct {
	RootPath string `yaml:"root_path"`
}

// SQLiteConfig holds the sqlite dumper settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// DatabasePath returns the configured path, or DefaultSQLitePath when unset.
func (c SQLiteConfig) DatabasePath() string {
	if c.Path == "" {
		return DefaultSQLitePath
	}
	return c.Path
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig holds the NATS publisher/subscriber settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// AppwriteConfig holds the Appwrite tables settings.
type AppwriteConfig struct {
	Endpoint string `yaml:"endpoint"`
	Project  string `yaml:"project"`
	APIKey   string `yaml:"api_key"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
	Hostname string `yaml:"hostname"`
}

// DumperDef defines a single snapshot sink from the config file.
type DumperDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Text       FileConfig       `yaml:"text"`
	Gob        FileConfig       `yaml:"gob"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	NATS       NATSConfig       `yaml:"nats"`
	Appwrite   AppwriteConfig   `yaml:"appwrite"`
}

// AlerterRule defines a single per-host threshold.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Operator  string  `yaml:"operator"`
	Threshold float64 `yaml:"threshold"`
}

// AlerterConfig holds the rules evaluated by the alert dumper on every snapshot.
type AlerterConfig struct {
	Rules []AlerterRule `yaml:"rules"`
}

// SMTPConfig holds the email server settings for notifications.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// APIConfig holds the query API settings.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Capture                  CaptureConfig `yaml:"capture"`
	DumpIntervalSeconds      int           `yaml:"dump_interval_seconds"`
	InternalNetworks         []NetworkDef  `yaml:"internal_networks"`
	DiscoverInternalNetworks bool          `yaml:"discover_internal_networks"`
	Dumpers                  []DumperDef   `yaml:"dumpers"`
	Alerter                  AlerterConfig `yaml:"alerter"`
	SMTP                     SMTPConfig    `yaml:"smtp"`
	API                      APIConfig     `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file, applies defaults and validates it.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadNATSConfig reads only the NATS settings a subscriber needs. Capture and
// network sections are not validated. The first nats dumper block wins; a file
// without one yields the zero value, which the subscriber fills with defaults.
func LoadNATSConfig(filePath string) (NATSConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return NATSConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := decode(data)
	if err != nil {
		return NATSConfig{}, err
	}
	for _, def := range cfg.Dumpers {
		if def.Type == "nats" {
			return def.NATS, nil
		}
	}
	return NATSConfig{}, nil
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	return &cfg, nil
}

// Validate fills in defaults and checks required settings.
func (c *Config) Validate() error {
	if c.Capture.Device == "" && c.Capture.PcapFile == "" {
		return ErrNoDevice
	}
	if len(c.InternalNetworks) == 0 && !c.DiscoverInternalNetworks {
		return ErrNoInternalNetworks
	}
	for i, n := range c.InternalNetworks {
		if _, _, err := n.Parse(); err != nil {
			return fmt.Errorf("internal_networks[%d]: %w", i, err)
		}
	}

	if c.DumpIntervalSeconds <= 0 {
		c.DumpIntervalSeconds = DefaultDumpIntervalSeconds
	}
	if c.Capture.SnapshotLen <= 0 {
		c.Capture.SnapshotLen = DefaultSnapshotLen
	}
	if c.Capture.Promiscuous == nil {
		promisc := true
		c.Capture.Promiscuous = &promisc
	}
	if c.Capture.ReadTimeout == "" {
		c.Capture.ReadTimeout = DefaultReadTimeout.String()
	}
	if d, err := time.ParseDuration(c.Capture.ReadTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid capture.read_timeout %q", c.Capture.ReadTimeout)
	}
	if c.Capture.LinkHeaderLen != nil && *c.Capture.LinkHeaderLen < 0 {
		return fmt.Errorf("invalid capture.link_header_len %d", *c.Capture.LinkHeaderLen)
	}
	if c.Capture.Filter == "" {
		c.Capture.Filter = DefaultFilter
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	return nil
}

// DumpInterval returns the flush period.
func (c *Config) DumpInterval() time.Duration {
	return time.Duration(c.DumpIntervalSeconds) * time.Second
}

// Timeout returns the bounded wait for the next captured frame.
func (c *CaptureConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.ReadTimeout)
	if err != nil {
		return DefaultReadTimeout
	}
	return d
}

// Parse returns the network address and mask.
func (n NetworkDef) Parse() (addr, mask model.Addr, err error) {
	addr, err = model.ParseAddr(n.Address)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid network address: %w", err)
	}

	if bits, convErr := strconv.Atoi(strings.TrimPrefix(n.Mask, "/")); convErr == nil {
		if bits < 0 || bits > 32 {
			return 0, 0, fmt.Errorf("invalid prefix length %q", n.Mask)
		}
		if bits == 0 {
			return addr, 0, nil
		}
		return addr, model.Addr(^uint32(0) << (32 - bits)), nil
	}

	mask, err = model.ParseAddr(n.Mask)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid network mask: %w", err)
	}
	return addr, mask, nil
}
