// SPDX-License-Identifier: MPL-2.0

package sandbox

import (
	"context"
	"log/slog"

	"github.com/sandboxctx/sandboxctx/internal/rootfs"
	"github.com/sandboxctx/sandboxctx/internal/target"
	"github.com/sandboxctx/sandboxctx/pkg/platform"
)

// CacheOptionName is the user-facing name of the rootfs cache path option.
const CacheOptionName = "sandbox_rootfs_cache_path"

// Dependencies are the collaborators sandbox construction consumes. Zero
// fields get host defaults, except Targets and Files which are only needed
// when a rootfs is configured.
type Dependencies struct {
	// Detector reports the host platform. Defaults to platform.Host().
	Detector platform.Detector
	// Targets looks up build targets.
	Targets target.Resolver
	// Files materializes file targets on local disk.
	Files target.Fetcher
	// AppSandbox detects whether this process runs inside Flatpak or Snap.
	// Defaults to platform.DetectAppSandbox.
	AppSandbox func() platform.AppSandbox
	Logger     *slog.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Detector == nil {
		d.Detector = platform.Host()
	}
	if d.AppSandbox == nil {
		d.AppSandbox = platform.DetectAppSandbox
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Build returns the strategy for plat configured from req. It returns nil
// and no error for platforms without sandbox support.
func Build(ctx context.Context, plat platform.Platform, req Request, deps Dependencies) (Strategy, error) {
	if err := plat.Validate(); err != nil {
		return nil, err
	}
	deps = deps.withDefaults()
	logger := deps.Logger.With("platform", plat.String())
	if req.InvocationID != "" {
		logger = logger.With("invocation", req.InvocationID)
	}

	switch plat {
	case platform.Linux:
		s, err := buildLinux(ctx, req, deps, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case platform.Darwin:
		if !req.Options.Rootfs.IsZero() {
			logger.Debug("ignoring rootfs on darwin", "rootfs", req.Options.Rootfs.String())
		}
		return &DarwinStrategy{baseStrategy: newStrategyBase(req, deps)}, nil
	default:
		logger.Debug("no sandbox strategy for platform")
		return nil, nil
	}
}

func buildLinux(ctx context.Context, req Request, deps Dependencies, logger *slog.Logger) (*LinuxStrategy, error) {
	cacheDir := rootfs.CachePath(req.Options.RootfsCachePath, req.Directories.OutputBase)
	cache, err := rootfs.NewCacheManager(cacheDir, logger)
	if err != nil {
		return nil, &rootfs.ConfigurationError{Option: CacheOptionName, Reason: "unusable cache directory", Cause: err}
	}

	s := &LinuxStrategy{baseStrategy: newStrategyBase(req, deps), cache: cache}
	if req.Options.Rootfs.IsZero() {
		return s, nil
	}

	resolved, err := rootfs.Resolve(ctx, deps.Targets, deps.Files, req.Options.Rootfs, cache.Path())
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved rootfs",
		"requested", resolved.Requested.String(),
		"label", resolved.Label.String(),
		"archive", resolved.Archive.String())
	s.rootfs = resolved
	return s, nil
}

func newStrategyBase(req Request, deps Dependencies) baseStrategy {
	return newBaseStrategy(req, UnblockNetwork(req.TestArguments), deps.AppSandbox().HostSpawnPrefix())
}
