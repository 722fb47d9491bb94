package factory

import (
	"Go2NetBandwidth/internal/config"
	"Go2NetBandwidth/internal/model"
	"fmt"
	"io"
	"log"
)

// DumperFactory builds a dumper from its config block. The full config is
// passed for dumpers that need shared sections (alerter rules, SMTP).
type DumperFactory func(cfg *config.Config, def config.DumperDef) (model.Dumper, error)

// registry holds the mapping of dumper types to their factory functions.
var registry = make(map[string]DumperFactory)

// RegisterDumper registers a new dumper type with its factory function.
func RegisterDumper(name string, factory DumperFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("dumper type '%s' already registered", name))
	}
	registry[name] = factory
}

// Create builds every enabled dumper listed in the config.
// Any construction failure is returned; start-up should not continue with a missing sink.
// Dumpers already built are closed before the error is returned.
func Create(cfg *config.Config) ([]model.Dumper, error) {
	var dumpers []model.Dumper

	for _, def := range cfg.Dumpers {
		if !def.Enabled {
			continue
		}
		log.Printf("Creating dumper of type: '%s'\n", def.Type)

		factory, ok := registry[def.Type]
		if !ok {
			closeAll(dumpers)
			return nil, fmt.Errorf("unknown dumper type: '%s'", def.Type)
		}

		d, err := factory(cfg, def)
		if err != nil {
			closeAll(dumpers)
			return nil, fmt.Errorf("error creating dumper type '%s': %w", def.Type, err)
		}
		dumpers = append(dumpers, d)
	}

	return dumpers, nil
}

func closeAll(dumpers []model.Dumper) {
	for _, d := range dumpers {
		if c, ok := d.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Printf("Error closing dumper %s: %v", d.Name(), err)
			}
		}
	}
}
