// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sandboxctx/sandboxctx/internal/config"
	"github.com/sandboxctx/sandboxctx/internal/issue"
	"github.com/sandboxctx/sandboxctx/internal/rootfs"
	"github.com/sandboxctx/sandboxctx/internal/sandbox"
	"github.com/sandboxctx/sandboxctx/internal/workspace"
	"github.com/sandboxctx/sandboxctx/pkg/fspath"
	"github.com/sandboxctx/sandboxctx/pkg/types"
)

// session is the state of one invocation: loaded configuration, workspace
// and the sandbox request derived from both.
type session struct {
	cfg        *config.Config
	logger     *slog.Logger
	ws         *workspace.Workspace
	outputBase types.FilesystemPath
	workers    *errgroup.Group
	req        sandbox.Request
}

func (a *App) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := a.Config.Load(cmd.Context(), config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(a.cfgFile),
		Flags:          cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}
	a.colorScheme = cfg.UI.ColorScheme
	return cfg, nil
}

func (a *App) newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(a.stderr, a.verbose || cfg.UI.Verbose)

	root, err := fspath.Abs(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}
	if info, statErr := os.Stat(root.String()); statErr != nil || !info.IsDir() {
		if statErr == nil {
			statErr = fmt.Errorf("%s is not a directory", root)
		}
		return nil, issue.NewErrorContext().
			WithOperation("open workspace").
			WithResource(root.String()).
			WithSuggestion("Pass --workspace with an existing directory").
			WithIssue(issue.WorkspaceNotFoundId).
			Wrap(statErr).
			BuildError()
	}

	opts := []workspace.Option{workspace.WithLogger(logger)}
	for name, dir := range cfg.Workspace.Repositories {
		if !fspath.IsAbs(dir) {
			dir = fspath.JoinStr(root, dir.String())
		}
		opts = append(opts, workspace.WithRepository(name, dir))
	}
	ws, err := workspace.New(root, opts...)
	if err != nil {
		return nil, err
	}

	outputBase := cfg.OutputBase
	if outputBase == "" {
		if outputBase, err = config.DefaultOutputBase(); err != nil {
			return nil, err
		}
	}
	if outputBase, err = fspath.Abs(outputBase); err != nil {
		return nil, err
	}

	label, err := cfg.Sandbox.RootfsLabel()
	if err != nil {
		return nil, err
	}

	workers := new(errgroup.Group)
	workers.SetLimit(runtime.NumCPU())

	s := &session{
		cfg:        cfg,
		logger:     logger,
		ws:         ws,
		outputBase: outputBase,
		workers:    workers,
		req: sandbox.Request{
			InvocationID:    uuid.NewString(),
			VerboseFailures: cfg.VerboseFailures,
			TestArguments:   cfg.TestArgs,
			Options: sandbox.Options{
				Rootfs:          label,
				RootfsCachePath: cfg.Sandbox.RootfsCachePath,
				Debug:           cfg.Sandbox.Debug,
				TmpfsDirs:       cfg.Sandbox.TmpfsDirs,
				BindMounts:      cfg.Sandbox.BindMounts,
				BlockedPaths:    cfg.Sandbox.BlockedPaths,
			},
			BackgroundWorkers: workers,
			ClientEnv:         clientEnv(os.Environ()),
			ProductName:       cfg.ProductName,
			Directories: sandbox.Directories{
				OutputBase:  outputBase,
				ExecRoot:    fspath.JoinStr(outputBase, "execroot", fspath.Base(root)),
				Workspace:   root,
				InstallBase: installBase(),
			},
		},
	}
	logger.Debug("session ready",
		"invocation", s.req.InvocationID,
		"workspace", root.String(),
		"output_base", outputBase.String(),
		"config", cfg.SourcePath.String())
	return s, nil
}

// deps returns the sandbox collaborators backed by the session workspace.
func (s *session) deps(a *App) sandbox.Dependencies {
	return sandbox.Dependencies{
		Detector: a.Detector,
		Targets:  s.ws,
		Files:    s.ws,
		Logger:   s.logger,
	}
}

// cacheDir returns the absolute rootfs cache directory of the session.
func (s *session) cacheDir() (types.FilesystemPath, error) {
	return fspath.Abs(rootfs.CachePath(s.cfg.Sandbox.RootfsCachePath, s.outputBase))
}

// close waits for background work started during the invocation.
func (s *session) close() error {
	return s.workers.Wait()
}

func clientEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

func installBase() types.FilesystemPath {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return fspath.Dir(types.FilesystemPath(exe))
}
