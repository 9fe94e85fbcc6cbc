package lspserver

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mnshdw/squirrel-lsp/internal/format"
)

// ProjectConfig is the optional `.sqlsp.yaml` a mod project can drop next
// to its `scripts/` folder to override formatting defaults. ExtraHookNames
// is parsed but not read by any analyzer, and nothing in this module calls
// LoadProjectConfig.
type ProjectConfig struct {
	IndentStyle      string   `yaml:"indent_style"` // "tabs" or "spaces"
	SpaceWidth       int      `yaml:"space_width"`
	MaxLineWidth     int      `yaml:"max_line_width"`
	ExtraHookNames   []string `yaml:"extra_hook_names"`
}

// LoadProjectConfig reads path if it exists; a missing file yields the
// zero ProjectConfig rather than an error, since the file is optional.
func LoadProjectConfig(path string) (ProjectConfig, error) {
	var cfg ProjectConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FormatOptions builds format.Options from the config, falling back to
// format.DefaultOptions for anything left unset.
func (c ProjectConfig) FormatOptions() format.Options {
	opts := format.DefaultOptions()
	if c.IndentStyle == "spaces" {
		opts.IndentStyle = format.IndentSpaces
	}
	if c.SpaceWidth > 0 {
		opts.SpaceWidth = c.SpaceWidth
	}
	if c.MaxLineWidth > 0 {
		opts.MaxLineWidth = c.MaxLineWidth
	}
	return opts
}
