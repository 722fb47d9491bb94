package probe

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/model"
	"log"

	"github.com/nats-io/nats.go"
)

// SnapshotHandler is a function that processes a received snapshot.
type SnapshotHandler func(snapshot *model.Snapshot)

// Subscriber is responsible for subscribing to a NATS subject and decoding snapshots.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	url, subject := natsDefaults(cfg)
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", url)
	return &Subscriber{nc: nc, subject: subject}, nil
}

// Start subscribes to the configured subject and passes every decoded snapshot to handler.
func (s *Subscriber) Start(handler SnapshotHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		snapshot, err := DecodeSnapshot(msg.Data)
		if err != nil {
			log.Printf("Error decoding snapshot: %v", err)
			return
		}
		handler(snapshot)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for snapshots...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
