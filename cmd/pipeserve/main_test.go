package main

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfig_FromPositionalArgs(t *testing.T) {
	cfg, err := resolveConfig([]string{t.TempDir(), "0.0.0.0:8080"}, "", true, "", "", "", "", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address)
	assert.True(t, cfg.UseHTTP)
}

func TestResolveConfig_RejectsNonDirectoryBasefolder(t *testing.T) {
	file := t.TempDir() + "/notadir"
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := resolveConfig([]string{file, "0.0.0.0:8080"}, "", false, "", "", "", "", time.Second)
	assert.Error(t, err)
}

func TestResolveConfig_RequiresTwoArgsWithoutConfig(t *testing.T) {
	_, err := resolveConfig(nil, "", false, "", "", "", "", time.Second)
	assert.Error(t, err)
}

func TestSplitEnv(t *testing.T) {
	name, value, ok := splitEnv("404=28")
	assert.True(t, ok)
	assert.Equal(t, "404", name)
	assert.Equal(t, "28", value)
}
