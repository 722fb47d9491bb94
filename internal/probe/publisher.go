package probe

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/model"
	"log"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "gons.bandwidth.snapshots"

// Publisher is responsible for publishing snapshots to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	url, subject := natsDefaults(cfg)
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Publisher{nc: nc, subject: subject}, nil
}

func (p *Publisher) Name() string {
	return "nats"
}

// Emit serializes the snapshot to protobuf and publishes it to the configured subject.
func (p *Publisher) Emit(snapshot *model.Snapshot) error {
	data, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			return err
		}
		log.Println("NATS connection drained and closed.")
	}
	return nil
}

func natsDefaults(cfg config.NATSConfig) (url, subject string) {
	url, subject = cfg.URL, cfg.Subject
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return url, subject
}
