package lib

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFilename is the optional per-tree defaults file. Values from it
// fill in settings the operator did not pass as flags; flags always
// win.
const ConfigFilename = ".dpack.yaml"

// FileConfig holds the defaults a tree can declare for itself. All
// fields are optional.
type FileConfig struct {
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`
	Level     string `yaml:"level"`
	Prefix    string `yaml:"prefix"`
}

// LoadFileConfig reads the defaults file in root. An absent file is not
// an error and yields the zero value; a present but malformed file is
// an error so a typo does not silently fall back to built-in defaults.
func LoadFileConfig(root string) (FileConfig, error) {
	var cfg FileConfig
	content, err := os.ReadFile(filepath.Join(root, ConfigFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", ConfigFilename, err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", ConfigFilename, err)
	}
	return cfg, nil
}
