// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

const (
	// NoAppSandbox means the process runs directly on the host.
	NoAppSandbox AppSandbox = ""
	// Flatpak means the process runs inside a Flatpak application sandbox.
	Flatpak AppSandbox = "flatpak"
	// Snap means the process runs inside a Snap confinement.
	Snap AppSandbox = "snap"

	flatpakInfoPath = "/.flatpak-info"
	snapNameEnv     = "SNAP_NAME"
)

// appSandboxOnce caches detection for the lifetime of the process.
//
// INVARIANT: detectAppSandboxFrom MUST NOT panic; sync.OnceValue re-panics on
// every later call.
var appSandboxOnce = sync.OnceValue(func() AppSandbox {
	return detectAppSandboxFrom(os.Getenv, statFile)
})

// AppSandbox identifies the application sandbox enclosing the current
// process, if any.
type AppSandbox string

// DetectAppSandbox returns the application sandbox of the current process.
// The result is cached after the first call.
func DetectAppSandbox() AppSandbox {
	return appSandboxOnce()
}

// String returns the string representation of the AppSandbox.
func (a AppSandbox) String() string {
	if a == NoAppSandbox {
		return "none"
	}
	return string(a)
}

// HostSpawnPrefix returns the argv prefix that runs a command on the host
// from inside a. It returns nil when a is NoAppSandbox or unknown.
//
// For Flatpak, returns ["flatpak-spawn", "--host"].
// For Snap, returns ["snap", "run", "--shell"].
func (a AppSandbox) HostSpawnPrefix() []string {
	switch a {
	case Flatpak:
		return []string{"flatpak-spawn", "--host"}
	case Snap:
		return []string{"snap", "run", "--shell"}
	default:
		return nil
	}
}

// detectAppSandboxFrom performs detection using injected lookups so tests do
// not have to mutate process-wide state. Flatpak takes precedence over Snap.
func detectAppSandboxFrom(lookupEnv func(string) string, stat func(string) error) AppSandbox {
	if err := stat(flatpakInfoPath); err == nil {
		return Flatpak
	}
	if lookupEnv(snapNameEnv) != "" {
		return Snap
	}
	return NoAppSandbox
}

func statFile(path string) error {
	_, err := os.Stat(path)
	return err
}
