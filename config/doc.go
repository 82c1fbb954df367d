// Package config provides configuration for CycleKit host processes.
//
// Configuration is loaded from a YAML file, layered with CYCLEKIT_*
// environment variable overrides, and validated before the runtime starts.
// It covers process-wide concerns only: logging, the default scheduler
// knobs, and the HTTP and NATS driver endpoints. Per-component behavior is
// declared in code through component.Config, never here.
//
// Precedence, lowest to highest: built-in defaults, file values,
// environment overrides.
package config
