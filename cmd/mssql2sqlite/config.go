package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML config merged over CLI flags, mirroring
// the reference stack's GeneratorConfig merge shape (database/database.go's
// ParseGeneratorConfig/MergeGeneratorConfig): flags set defaults, a config
// file on disk overrides them where present.
type FileConfig struct {
	TargetTables   []string `yaml:"target_tables"`
	SkipTables     []string `yaml:"skip_tables"`
	CreateTriggers *bool    `yaml:"create_triggers"`
	CreateViews    *bool    `yaml:"create_views"`
}

// ParseFileConfig reads and parses a YAML config file.
func ParseFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Merge overlays non-zero fields of cfg onto opts, the same "file wins
// where present" precedence the reference stack's MergeGeneratorConfig
// applies to its own GeneratorConfig.
func (cfg *FileConfig) Merge(opts *Options) {
	if cfg == nil {
		return
	}
	if len(cfg.TargetTables) > 0 {
		opts.TargetTables = cfg.TargetTables
	}
	if len(cfg.SkipTables) > 0 {
		opts.SkipTables = cfg.SkipTables
	}
	if cfg.CreateTriggers != nil {
		opts.CreateTriggers = *cfg.CreateTriggers
	}
	if cfg.CreateViews != nil {
		opts.CreateViews = *cfg.CreateViews
	}
}
