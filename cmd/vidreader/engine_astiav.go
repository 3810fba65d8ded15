//go:build astiav

package main

import (
	"github.com/user/vidreader/pkg/adapters/astiavengine"
	"github.com/user/vidreader/pkg/config"
	"github.com/user/vidreader/pkg/ports"
)

func init() {
	engines["astiav"] = func(config.Config) ports.CodecEngine {
		return astiavengine.New()
	}
}
