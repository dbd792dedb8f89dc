package bootstrap

import (
	"fmt"

	"github.com/kshms10904/platform-system-vold/internal/infra/confloader"
	"github.com/kshms10904/platform-system-vold/internal/server/config"
)

// LoadConfig layers the optional file at path and CHECKPOINTD_ environment
// variables over the defaults, then verifies the result. The loader is
// returned so the caller can reload it later.
func LoadConfig(path string) (*config.DaemonConfig, *confloader.Loader, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}
