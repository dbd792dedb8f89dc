// Package buildinfo exposes build-time version information.
//
// Values are injected with ldflags:
//
//	go build -ldflags "-X github.com/kshms10904/platform-system-vold/internal/infra/buildinfo.Version=v1.0.0"
//
// Unset values fall back to the module build information embedded by the
// Go toolchain.
package buildinfo
