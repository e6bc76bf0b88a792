package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gjh.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
data_dir = "/var/lib/gjh"
log_level = "debug"

[solver]
executable = "/opt/ampl/gjh"
keep_files = true
timeout = "30s"

[solver.options]
halt_on_ampl_error = "yes"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/gjh", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "contrib.gjh", cfg.Solver.Name, "defaults survive partial files")

	opts := cfg.Solver.InvokeOptions()
	assert.Equal(t, "/opt/ampl/gjh", opts.Executable)
	assert.True(t, opts.KeepFiles)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, map[string]string{"halt_on_ampl_error": "yes"}, opts.SolverOptions)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[solver]\nexecutabel = \"gjh\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solver.executabel")
}

func TestLoadRejectsBadLevel(t *testing.T) {
	path := writeConfig(t, "log_level = \"loud\"\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "log_level")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOptionsCopiesMap(t *testing.T) {
	s := SolverConfig{Options: map[string]string{"a": "1"}}
	opts := s.InvokeOptions()
	opts.SolverOptions["a"] = "2"
	assert.Equal(t, "1", s.Options["a"])
	assert.Nil(t, SolverConfig{}.InvokeOptions().SolverOptions)
}
