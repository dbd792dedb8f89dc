// Package confloader loads layered configuration with koanf.
//
// Sources, later ones overriding earlier ones:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. Environment variables (CHECKPOINTD_ prefix)
//  4. Maps, typically built from command-line flags
//
// Watcher reports configuration file changes through fsnotify so the
// daemon can apply reloadable settings at runtime.
package confloader
