// SPDX-License-Identifier: MPL-2.0

// Package platform identifies the host operating system for sandbox strategy
// selection.
//
// The host is reduced to a closed set of [Platform] values: [Linux], [Darwin],
// and [Other]. Code that needs the current platform receives a [Detector]
// rather than reading runtime.GOOS directly, so strategy construction can be
// exercised under a simulated platform in tests ([Fixed]).
//
// The package also reports whether the current process already runs inside
// an application sandbox (Flatpak or Snap). Nested sandboxes need host-side
// spawn helpers, which strategies surface to their callers.
package platform
