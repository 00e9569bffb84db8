// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"context"
	"slices"

	"github.com/sandboxctx/sandboxctx/pkg/platform"
)

// Provider holds the sandbox strategies of one invocation. It is immutable
// after construction and safe for concurrent use.
type Provider struct {
	platform   platform.Platform
	strategies []Strategy
}

// NewProvider detects the host platform and builds its strategy. On error no
// provider is returned.
func NewProvider(ctx context.Context, req Request, deps Dependencies) (*Provider, error) {
	deps = deps.withDefaults()
	plat := deps.Detector.Current()

	s, err := Build(ctx, plat, req, deps)
	if err != nil {
		return nil, err
	}

	p := &Provider{platform: plat, strategies: []Strategy{}}
	if s != nil {
		p.strategies = append(p.strategies, s)
	}
	deps.Logger.Debug("sandbox strategies ready", "platform", plat.String(), "count", len(p.strategies))
	return p, nil
}

// Platform returns the platform detected at construction.
func (p *Provider) Platform() platform.Platform { return p.platform }

// Strategies returns the strategies in registration order. The returned
// slice is a copy.
func (p *Provider) Strategies() []Strategy {
	return slices.Clone(p.strategies)
}

// StrategyFor returns the first strategy offering c.
func (p *Provider) StrategyFor(c Capability) (Strategy, bool) {
	for _, s := range p.strategies {
		if Provides(s, c) {
			return s, true
		}
	}
	return nil, false
}
