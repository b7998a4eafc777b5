// Package config loads, validates, and normalizes mediaqc configuration.
//
// Configuration comes from a TOML file (default ~/.config/mediaqc/config.toml
// or ./mediaqc.toml) layered over repository defaults. Load expands ~ in all
// path fields and rejects unusable values before any subsystem starts.
package config
