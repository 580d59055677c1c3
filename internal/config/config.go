package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds all application configuration. Fields are populated, in
// increasing priority, from DefaultConfig, an optional config file, and
// the environment variables listed in spec.md §6.
type Config struct {
	// WorkTree is the root of tracked plaintext (WORK_TREE).
	WorkTree string `json:"work_tree" mapstructure:"work_tree"`

	// PlainRepo is the path of P (PLAIN_REPO), default WorkTree/.myba.
	PlainRepo string `json:"plain_repo" mapstructure:"plain_repo"`

	// Password, if set, is used directly instead of prompting (PASSWORD).
	Password string `json:"-" mapstructure:"password"`

	// UseGPG switches the cipher primitive to GPG mode (USE_GPG).
	UseGPG bool `json:"use_gpg" mapstructure:"use_gpg"`

	// KDFIters overrides the KDF iteration count (KDF_ITERS). Zero means
	// "use the mode's default" (321731 for OpenSSL mode, 32111731 for GPG).
	KDFIters int `json:"kdf_iters" mapstructure:"kdf_iters"`

	// LFSThreshold is the byte threshold for LFS promotion (GIT_LFS_THRESH).
	LFSThreshold int64 `json:"lfs_threshold" mapstructure:"lfs_threshold"`

	// NJobs is the worker-pool size (N_JOBS); 0 means online CPU count.
	NJobs int `json:"n_jobs" mapstructure:"n_jobs"`

	// YesOverwrite suppresses overwrite prompts (YES_OVERWRITE).
	YesOverwrite bool `json:"yes_overwrite" mapstructure:"yes_overwrite"`

	// Verbose traces operations (VERBOSE).
	Verbose bool `json:"verbose" mapstructure:"verbose"`

	// Log controls the structured logger.
	Log LogConfig `json:"log" mapstructure:"log"`
}

// LogConfig controls the events.Logger.
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	File   string `json:"file" mapstructure:"file"`
	Color  bool   `json:"color" mapstructure:"color"`
}

// DefaultEncDirName is the subdirectory of PlainRepo that hosts E.
const DefaultEncDirName = "_encrypted"

// DefaultLFSThreshold is ~40 MiB, spec.md §6.
const DefaultLFSThreshold = 40 * 1024 * 1024

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		WorkTree:     home,
		PlainRepo:    filepath.Join(home, ".myba"),
		UseGPG:       false,
		KDFIters:     0,
		LFSThreshold: DefaultLFSThreshold,
		NJobs:        0,
		YesOverwrite: false,
		Verbose:      false,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Color:  true,
		},
	}
}

// EncryptedRepo returns the path of E.
func (c *Config) EncryptedRepo() string {
	return filepath.Join(c.PlainRepo, DefaultEncDirName)
}

// ManifestDir returns P's plaintext manifest mirror directory.
func (c *Config) ManifestDir() string {
	return filepath.Join(c.PlainRepo, "manifest")
}

// Workers returns the resolved worker-pool size.
func (c *Config) Workers() int {
	if c.NJobs > 0 {
		return c.NJobs
	}
	return runtime.NumCPU()
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.WorkTree == "" {
		return errors.New("work_tree is required")
	}
	if c.PlainRepo == "" {
		return errors.New("plain_repo is required")
	}
	if c.LFSThreshold <= 0 {
		return errors.New("lfs_threshold must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	return nil
}

// EnsureDirectories creates required directories under PlainRepo.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.PlainRepo, c.ManifestDir()}
	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
