// SPDX-License-Identifier: MPL-2.0

package sandbox

type (
	// Description is a serializable summary of a strategy.
	Description struct {
		Name            string             `json:"name" yaml:"name" toml:"name"`
		Platform        string             `json:"platform" yaml:"platform" toml:"platform"`
		Capabilities    []Capability       `json:"capabilities" yaml:"capabilities" toml:"capabilities"`
		VerboseFailures bool               `json:"verbose_failures" yaml:"verbose_failures" toml:"verbose_failures"`
		UnblockNetwork  bool               `json:"unblock_network" yaml:"unblock_network" toml:"unblock_network"`
		ProductName     string             `json:"product_name,omitempty" yaml:"product_name,omitempty" toml:"product_name,omitempty"`
		HostSpawn       []string           `json:"host_spawn,omitempty" yaml:"host_spawn,omitempty" toml:"host_spawn,omitempty"`
		RootfsCache     string             `json:"rootfs_cache,omitempty" yaml:"rootfs_cache,omitempty" toml:"rootfs_cache,omitempty"`
		Rootfs          *RootfsDescription `json:"rootfs,omitempty" yaml:"rootfs,omitempty" toml:"rootfs,omitempty"`
	}

	// RootfsDescription summarizes a resolved rootfs.
	RootfsDescription struct {
		Requested string `json:"requested" yaml:"requested" toml:"requested"`
		Label     string `json:"label" yaml:"label" toml:"label"`
		Archive   string `json:"archive" yaml:"archive" toml:"archive"`
	}
)

// Describe summarizes s.
func Describe(s Strategy) Description {
	cfg := s.Config()
	d := Description{
		Name:            s.Name(),
		Platform:        s.Platform().String(),
		Capabilities:    s.Capabilities(),
		VerboseFailures: cfg.VerboseFailures,
		UnblockNetwork:  cfg.UnblockNetwork,
		ProductName:     cfg.ProductName,
		HostSpawn:       cfg.HostSpawn,
	}
	if ls, ok := s.(*LinuxStrategy); ok {
		d.RootfsCache = ls.CacheManager().Path().String()
		if r := ls.Rootfs(); r != nil {
			d.Rootfs = &RootfsDescription{
				Requested: r.Requested.String(),
				Label:     r.Label.String(),
				Archive:   r.Archive.String(),
			}
		}
	}
	return d
}
