package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Loader layers config sources the way the teacher's Loader does
// (defaults -> file -> env), just with this tool's own file shape and the
// bare (unprefixed) environment variables named in spec.md §6.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty configPath tries the default
// locations (myba.json, .myba.json, $HOME/.config/myba/config.json).
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath, v: viper.New()}
}

// Load reads configuration from defaults, an optional file, and spec.md §6
// environment variables, in that increasing order of priority.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.v.SetConfigType("json")
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		if err := l.v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	} else {
		for _, path := range l.defaultPaths() {
			l.v.SetConfigFile(path)
			if err := l.v.ReadInConfig(); err == nil {
				l.configPath = path
				if err := l.v.Unmarshal(cfg); err != nil {
					return nil, fmt.Errorf("parse config file %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := l.loadEnv(cfg); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (l *Loader) defaultPaths() []string {
	paths := []string{"myba.json", ".myba.json"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "myba", "config.json"))
	}
	return paths
}

// loadEnv overrides config from the spec.md §6 environment variables.
func (l *Loader) loadEnv(cfg *Config) error {
	if v := os.Getenv("WORK_TREE"); v != "" {
		cfg.WorkTree = v
	}
	if v := os.Getenv("PLAIN_REPO"); v != "" {
		cfg.PlainRepo = v
	}
	if v := os.Getenv("PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("USE_GPG"); v != "" {
		cfg.UseGPG = truthy(v)
	}
	if v := os.Getenv("KDF_ITERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse KDF_ITERS: %w", err)
		}
		cfg.KDFIters = n
	}
	if v := os.Getenv("GIT_LFS_THRESH"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse GIT_LFS_THRESH: %w", err)
		}
		cfg.LFSThreshold = n
	}
	if v := os.Getenv("N_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse N_JOBS: %w", err)
		}
		cfg.NJobs = n
	}
	if v := os.Getenv("YES_OVERWRITE"); v != "" {
		cfg.YesOverwrite = truthy(v)
	}
	if v := os.Getenv("VERBOSE"); v != "" {
		cfg.Verbose = truthy(v)
		if cfg.Verbose {
			cfg.Log.Level = "debug"
		}
	}

	// PlainRepo's default depends on WorkTree; re-derive if the caller
	// only overrode WORK_TREE and never touched PLAIN_REPO.
	if os.Getenv("PLAIN_REPO") == "" && os.Getenv("WORK_TREE") != "" {
		cfg.PlainRepo = filepath.Join(cfg.WorkTree, ".myba")
	}

	return nil
}

func truthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "y":
		return true
	default:
		return false
	}
}

// SaveExample writes an example config file.
func SaveExample(path string) error {
	cfg := DefaultConfig()
	l := viper.New()
	l.SetConfigType("json")
	for k, v := range map[string]interface{}{
		"work_tree":     cfg.WorkTree,
		"plain_repo":    cfg.PlainRepo,
		"use_gpg":       cfg.UseGPG,
		"lfs_threshold": cfg.LFSThreshold,
		"log":           cfg.Log,
	} {
		l.Set(k, v)
	}
	return l.WriteConfigAs(path)
}
