package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadApplicationConfigFromFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\ncache:\n  driver: memory\n"), 0o600))

	cfg, err := loadApplicationConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "memory", cfg.Cache.Driver)

	cfg, err = loadApplicationConfig(dir)
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestRunHelp(t *testing.T) {
	err := run(context.Background(), []string{"-h"})
	require.ErrorIs(t, err, flag.ErrHelp)
}
