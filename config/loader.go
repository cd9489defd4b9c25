package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/forksync"
)

// Load reads, decodes and validates the configuration file at path.
func Load(path string) (*forksync.Config, error) {
	return LoadWithOptions(path, LoadOptions{})
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(path string, opts LoadOptions) (*forksync.Config, error) {
	v := newViper(opts)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &forksync.ConfigurationError{
				Field:  "config",
				Reason: fmt.Sprintf("failed to read %s", path),
				Err:    err,
			}
		}
	}

	var cfg forksync.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &forksync.ConfigurationError{
			Field:  "config",
			Reason: fmt.Sprintf("failed to decode %s", path),
			Err:    err,
		}
	}
	cfg.ApplyDefaults()

	if !opts.SkipValidation {
		if err := Validate(&cfg); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func newViper(opts LoadOptions) *viper.Viper {
	v := viper.New()

	// Every scalar key needs a default for AutomaticEnv to reach it during
	// Unmarshal.
	v.SetDefault("diverged_file", forksync.DefaultDivergedFile)
	v.SetDefault("ignore_file", "")
	v.SetDefault("upstream_remote", forksync.DefaultUpstreamRemote)
	v.SetDefault("upstream_branch", forksync.DefaultUpstreamBranch)
	v.SetDefault("upstream_url", "")
	v.SetDefault("local_branch", "")

	if !opts.DisableEnv {
		prefix := opts.EnvPrefix
		if prefix == "" {
			prefix = DefaultEnvPrefix
		}
		v.SetEnvPrefix(prefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}
	return v
}
