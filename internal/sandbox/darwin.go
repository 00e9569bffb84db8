// SPDX-License-Identifier: MPL-2.0

package sandbox

import "github.com/sandboxctx/sandboxctx/pkg/platform"

// DarwinStrategy runs spawns under sandbox-exec. It has no rootfs support.
type DarwinStrategy struct {
	baseStrategy
}

var _ Strategy = (*DarwinStrategy)(nil)

// Name implements Strategy.
func (s *DarwinStrategy) Name() string { return DarwinStrategyName }

// Platform implements Strategy.
func (s *DarwinStrategy) Platform() platform.Platform { return platform.Darwin }
