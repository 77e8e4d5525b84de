// Package config defines and loads the Slate cleanup service configuration.
//
// Configuration is read from a YAML file, filled with defaults, overridden
// by SLATE_SECTION_FIELD environment variables and validated before use:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("slate.yaml")
//
// Sections cover the storage backend, the managed file tree, TTL policy
// overrides, engine behavior, the scheduler, the ops HTTP server and
// telemetry. The zero YAML file is valid: every field has a working
// default.
package config
