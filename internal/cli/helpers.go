package cli

import (
	"fmt"
	"time"

	"github.com/srcmirror/srcmirror/internal/pipeline"
	"github.com/srcmirror/srcmirror/internal/store"
)

// openStore opens the configured block store.
func openStore() (store.Store, error) {
	switch cfg.Store.Type {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite", "":
		return store.Open(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Workers:     cfg.Pipeline.Workers,
		FileTimeout: time.Duration(cfg.Pipeline.FileTimeout) * time.Second,
		Validate:    cfg.Pipeline.Validate,
	}
}
