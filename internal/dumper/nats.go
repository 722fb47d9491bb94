package dumper

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/factory"
	"Go2NetBandwidth/internal/model"
	"Go2NetBandwidth/internal/probe"
	"fmt"
)

func init() {
	factory.RegisterDumper("nats", func(_ *config.Config, def config.DumperDef) (model.Dumper, error) {
		pub, err := probe.NewPublisher(def.NATS)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		return pub, nil
	})
}
