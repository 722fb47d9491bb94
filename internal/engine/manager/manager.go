package manager

import (
	"Go2NetBandwidth/internal/capture"
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/dumper"
	"Go2NetBandwidth/internal/engine/aggregator"
	"Go2NetBandwidth/internal/engine/classifier"
	"Go2NetBandwidth/internal/engine/protocol"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"context"
	"fmt"
	"io"
	"log"
)

// Manager wires a capture source to the aggregator and the configured dumpers.
type Manager struct {
	classifier *classifier.Classifier
	aggregator *aggregator.Aggregator
	dumpers    []model.Dumper
	latest     *dumper.MemoryDumper
	source     capture.Source
	recorder   *capture.Recorder
	loop       *capture.Loop
}

// NewManager builds the pipeline for source. extra dumpers run after the configured ones.
func NewManager(cfg *config.Config, source capture.Source, extra ...model.Dumper) (*Manager, error) {
	c, err := BuildClassifier(cfg)
	if err != nil {
		return nil, err
	}
	for _, n := range c.Networks() {
		log.Printf("Internal network: %s", n)
	}

	linkHeaderLen, err := ResolveLinkHeaderLen(cfg.Capture, source)
	if err != nil {
		return nil, err
	}

	dumpers, err := factory.Create(cfg)
	if err != nil {
		return nil, err
	}
	latest := dumper.NewMemoryDumper()
	dumpers = append(dumpers, latest)
	dumpers = append(dumpers, extra...)

	m := &Manager{
		classifier: c,
		aggregator: aggregator.New(c),
		dumpers:    dumpers,
		latest:     latest,
		source:     source,
	}

	var opts []capture.LoopOption
	if cfg.Capture.RecordPath != "" {
		m.recorder, err = capture.NewRecorder(cfg.Capture.RecordPath, uint32(cfg.Capture.SnapshotLen), source.LinkType())
		if err != nil {
			m.closeDumpers()
			return nil, err
		}
		opts = append(opts, capture.WithRecorder(m.recorder))
	}

	m.loop = capture.NewLoop(source, m.aggregator, dumpers, cfg.DumpInterval(), linkHeaderLen, opts...)
	log.Printf("Manager initialized with %d dumper(s).", len(dumpers))
	return m, nil
}

// BuildClassifier loads the static internal networks and, when enabled, the
// prefixes configured on the capture device.
func BuildClassifier(cfg *config.Config) (*classifier.Classifier, error) {
	c := classifier.New()
	for i, n := range cfg.InternalNetworks {
		addr, mask, err := n.Parse()
		if err != nil {
			return nil, fmt.Errorf("internal_networks[%d]: %w", i, err)
		}
		c.AddNetwork(addr, mask)
	}

	if cfg.DiscoverInternalNetworks && cfg.Capture.Device != "" {
		prefixes, err := capture.DiscoverNetworks(cfg.Capture.Device)
		if err != nil {
			return nil, fmt.Errorf("failed to discover internal networks: %w", err)
		}
		for _, p := range prefixes {
			c.AddNetwork(p.Address, p.Mask)
		}
	}

	if len(c.Networks()) == 0 {
		return nil, config.ErrNoInternalNetworks
	}
	return c, nil
}

// ResolveLinkHeaderLen returns the configured link header size, or derives it from the source's link type.
func ResolveLinkHeaderLen(cfg config.CaptureConfig, source capture.Source) (int, error) {
	if cfg.LinkHeaderLen != nil {
		return *cfg.LinkHeaderLen, nil
	}
	n, err := protocol.LinkHeaderLen(source.LinkType())
	if err != nil {
		return 0, fmt.Errorf("%w; set capture.link_header_len explicitly", err)
	}
	return n, nil
}

// Run drives the capture loop until ctx is cancelled or the source is exhausted.
func (m *Manager) Run(ctx context.Context) error {
	log.Println("Manager started.")
	return m.loop.Run(ctx)
}

// Close stops the recorder, closes dumpers holding resources and releases the source.
func (m *Manager) Close() {
	log.Println("Manager stopping...")
	if m.recorder != nil {
		if err := m.recorder.Close(); err != nil {
			log.Printf("Error closing recorder: %v", err)
		}
	}
	m.closeDumpers()
	m.source.Close()
	log.Println("Manager stopped.")
}

func (m *Manager) closeDumpers() {
	for _, d := range m.dumpers {
		if c, ok := d.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("Error closing dumper '%s': %v", d.Name(), err)
			}
		}
	}
}

func (m *Manager) Classifier() *classifier.Classifier { return m.classifier }

func (m *Manager) Aggregator() *aggregator.Aggregator { return m.aggregator }

// Latest exposes the most recently flushed snapshot.
func (m *Manager) Latest() *dumper.MemoryDumper { return m.latest }

func (m *Manager) Stats() capture.LoopStats { return m.loop.Stats() }
