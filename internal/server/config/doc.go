// Package config provides the checkpoint daemon configuration.
//
//   - spec.go: DaemonConfig struct definition
//   - default.go: default values
//   - verify.go: validation
//
// Configuration is loaded via internal/infra/confloader from a YAML file
// and CHECKPOINTD_ environment variables.
package config
