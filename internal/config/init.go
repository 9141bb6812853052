package config

import (
	"fmt"
	"os"
)

// InitConfig writes a sample configuration file to the default location,
// refusing to overwrite an existing one unless force is set, mirroring
// pkg/config's InitConfig/InitConfigToPath pair.
func InitConfig(force bool) (string, error) {
	return GetDefaultConfigPath(), InitConfigToPath(GetDefaultConfigPath(), force)
}

// InitConfigToPath writes a sample configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}
	cfg := DefaultConfig()
	ApplyDefaults(cfg)
	return SaveConfig(cfg, path)
}
