// SPDX-License-Identifier: MPL-2.0

// Package config loads sandboxctx configuration using Viper with CUE as the
// file format.
//
// Sources, lowest precedence first: built-in defaults, the config file
// (--config, then config.cue in the user config directory, then
// sandboxctx.cue in the working directory), SANDBOXCTX_* environment
// variables and command-line flags. Files are validated against the embedded
// config_schema.cue before they reach Viper.
package config
