package main

import (
	"fmt"
	"sort"

	"github.com/user/vidreader/pkg/adapters/mp4engine"
	"github.com/user/vidreader/pkg/adapters/smartdecoder"
	"github.com/user/vidreader/pkg/config"
	"github.com/user/vidreader/pkg/ports"
)

// engineFactory creates a fresh codec engine for one reader.
type engineFactory func(cfg config.Config) ports.CodecEngine

// engines holds the codec engines compiled into this binary.
var engines = map[string]engineFactory{
	"mp4": func(cfg config.Config) ports.CodecEngine {
		return mp4engine.New(smartdecoder.Factory(smartdecoder.Options{FFmpegPath: cfg.FFmpegPath}))
	},
}

func newEngine(name string, cfg config.Config) (ports.CodecEngine, error) {
	factory, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, engineNames())
	}
	return factory(cfg), nil
}

func engineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
