package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.NotEmpty(t, cfg.WorkTree)
	assert.NotEmpty(t, cfg.PlainRepo)
	assert.Equal(t, int64(config.DefaultLFSThreshold), cfg.LFSThreshold)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr string
	}{
		{name: "valid config", modify: func(c *config.Config) {}, wantErr: ""},
		{
			name:    "missing work tree",
			modify:  func(c *config.Config) { c.WorkTree = "" },
			wantErr: "work_tree is required",
		},
		{
			name:    "invalid log level",
			modify:  func(c *config.Config) { c.Log.Level = "invalid" },
			wantErr: "invalid log level",
		},
		{
			name:    "non-positive threshold",
			modify:  func(c *config.Config) { c.LFSThreshold = 0 },
			wantErr: "lfs_threshold must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoaderEnv(t *testing.T) {
	os.Setenv("WORK_TREE", "/tmp/mywork")
	os.Setenv("USE_GPG", "1")
	os.Setenv("N_JOBS", "3")
	os.Setenv("GIT_LFS_THRESH", "1024")
	defer func() {
		os.Unsetenv("WORK_TREE")
		os.Unsetenv("USE_GPG")
		os.Unsetenv("N_JOBS")
		os.Unsetenv("GIT_LFS_THRESH")
	}()

	loader := config.NewLoader("")
	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/mywork", cfg.WorkTree)
	assert.Equal(t, filepath.Join("/tmp/mywork", ".myba"), cfg.PlainRepo)
	assert.True(t, cfg.UseGPG)
	assert.Equal(t, 3, cfg.NJobs)
	assert.Equal(t, int64(1024), cfg.LFSThreshold)
}

func TestLoaderFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.json")

	configJSON := `{
		"work_tree": "/tmp/from-file",
		"log": {
			"level": "warn",
			"format": "json"
		}
	}`

	err := os.WriteFile(configPath, []byte(configJSON), 0644)
	require.NoError(t, err)

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-file", cfg.WorkTree)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestConfigEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.PlainRepo = filepath.Join(tmpDir, "plain")
	cfg.Log.File = filepath.Join(tmpDir, "logs", "app.log")

	err := cfg.EnsureDirectories()
	require.NoError(t, err)

	assert.DirExists(t, cfg.PlainRepo)
	assert.DirExists(t, cfg.ManifestDir())
	assert.DirExists(t, filepath.Dir(cfg.Log.File))
}
