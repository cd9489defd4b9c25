// Package config loads and validates forksync configuration files.
//
// Configuration is read with viper, so YAML, JSON and TOML files are
// supported, and every scalar key can be overridden from the environment
// with the FORKSYNC_ prefix (e.g. FORKSYNC_UPSTREAM_BRANCH). The decoded
// value is validated before it is returned.
//
// # Basic Usage
//
//	path, err := config.Discover(repoDir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// A configuration file looks like:
//
//	diverged_file: diverged.txt
//	ignore_file: .syncignore
//	ignore_list:
//	  - "*.lock"
//	upstream_branch: development
//	forks:
//	  - name: fork
//	    remote_url: git@github.com:org/fork.git
//	    branch: main
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Name is the base name of configuration files.
const Name = "forksync"

// DefaultEnvPrefix prefixes environment overrides.
const DefaultEnvPrefix = "FORKSYNC"

// ErrNotFound is returned by Discover when no configuration file exists.
var ErrNotFound = errors.New("no forksync configuration file found")

// repoCandidates are looked up in the repository root, in order.
var repoCandidates = []string{
	Name + ".yaml",
	Name + ".yml",
	Name + ".json",
	Name + ".toml",
	"." + Name + ".yaml",
}

// userConfig is looked up in the XDG config directories.
var userConfig = filepath.Join(Name, "config.yaml")

// LoadOptions controls configuration loading.
type LoadOptions struct {
	// EnvPrefix overrides DefaultEnvPrefix. Set DisableEnv to ignore the
	// environment entirely.
	EnvPrefix  string
	DisableEnv bool

	// SkipValidation returns the decoded configuration without validating it.
	SkipValidation bool
}

// Discover returns the configuration file for the repository at dir: the
// first repository-level candidate, else the user configuration under the
// XDG config directories.
func Discover(dir string) (string, error) {
	for _, name := range repoCandidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	if path, err := xdg.SearchConfigFile(userConfig); err == nil {
		return path, nil
	}
	return "", ErrNotFound
}
