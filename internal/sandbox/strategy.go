// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sandboxctx/sandboxctx/pkg/platform"
)

const (
	// CapabilitySandboxedSpawn marks strategies that run spawns in a sandbox.
	CapabilitySandboxedSpawn Capability = "sandboxed-spawn"

	// LinuxStrategyName is the name of the Linux namespace strategy.
	LinuxStrategyName = "linux-sandbox"
	// DarwinStrategyName is the name of the macOS sandbox-exec strategy.
	DarwinStrategyName = "darwin-sandbox"
)

type (
	// Capability is an execution capability a strategy offers to the
	// action-execution dispatcher.
	Capability string

	// Strategy is a configured handle for one platform's isolation
	// mechanism. Implementations are immutable.
	Strategy interface {
		Name() string
		Platform() platform.Platform
		Capabilities() []Capability
		Config() Config
	}

	// Config is the configuration shared by all strategies.
	Config struct {
		VerboseFailures bool
		UnblockNetwork  bool
		ProductName     string
		InvocationID    string
		ClientEnv       map[string]string
		Directories     Directories
		Options         Options
		Workers         *errgroup.Group
		// HostSpawn is the argv prefix needed to reach the host when this
		// process itself runs in an application sandbox.
		HostSpawn []string
	}

	baseStrategy struct {
		cfg Config
	}
)

// Provides reports whether s offers c.
func Provides(s Strategy, c Capability) bool {
	return slices.Contains(s.Capabilities(), c)
}

func newBaseStrategy(req Request, unblockNetwork bool, hostSpawn []string) baseStrategy {
	return baseStrategy{cfg: Config{
		VerboseFailures: req.VerboseFailures,
		UnblockNetwork:  unblockNetwork,
		ProductName:     req.ProductName,
		InvocationID:    req.InvocationID,
		ClientEnv:       cloneEnv(req.ClientEnv),
		Directories:     req.Directories,
		Options:         req.Options.clone(),
		Workers:         req.BackgroundWorkers,
		HostSpawn:       slices.Clone(hostSpawn),
	}}
}

// Capabilities implements Strategy.
func (b *baseStrategy) Capabilities() []Capability {
	return []Capability{CapabilitySandboxedSpawn}
}

// Config returns a copy of the strategy configuration.
func (b *baseStrategy) Config() Config {
	cfg := b.cfg
	cfg.ClientEnv = cloneEnv(b.cfg.ClientEnv)
	cfg.Options = b.cfg.Options.clone()
	cfg.HostSpawn = slices.Clone(b.cfg.HostSpawn)
	return cfg
}
