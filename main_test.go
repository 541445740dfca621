package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestBuildThenInfo(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cube.cache")
	cfg := filepath.Join(dir, "settings.toml")
	body := "[solver]\ncachePath = \"" + filepath.ToSlash(cachePath) + "\"\n\n[scene]\ndemo = \"cube\"\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	out := runCLI(t, "--config", cfg, "info")
	assert.Contains(t, out, "planes    320")
	assert.Contains(t, out, "missing")

	out = runCLI(t, "--config", cfg, "build", "-n", "2")
	assert.Contains(t, out, "cache miss")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "320 planes")

	out = runCLI(t, "--config", cfg, "info")
	assert.Contains(t, out, "0 form factors")
}

func TestUnknownDemoFails(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("scene:\n  demo: castle\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfg, "info"})
	assert.Error(t, cmd.Execute())
}

func TestBuildRejectsNonPositiveIterations(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("scene:\n  demo: cube\n"), 0o644))

	for _, n := range []string{"0", "-3"} {
		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", cfg, "build", "-n", n})
		err := cmd.Execute()
		require.Error(t, err, n)
		assert.Contains(t, err.Error(), "--iterations must be positive")
	}
}
