package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Endpoint string `json:"endpoint"`
	Timeout  int    `json:"timeout"`
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(
		filepath.Join(dir, "service.json5"),
		[]byte(`{endpoint: "https://example.com", timeout: 30}`),
		0644,
	)
	require.NoError(t, err)
	err = os.WriteFile(
		filepath.Join(dir, "service.local.json5"),
		[]byte(`{timeout: 5}`),
		0644,
	)
	require.NoError(t, err)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "service.json5"))
	require.NoError(t, err)

	// the override only sets timeout, the base endpoint survives
	require.Equal(t, "https://example.com", config.Endpoint)
	require.Equal(t, 5, config.Timeout)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(
		filepath.Join(dir, "service.local.json5"),
		[]byte(`{endpoint: "https://local.example.com"}`),
		0644,
	)
	require.NoError(t, err)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "service.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://local.example.com", config.Endpoint)
}

func TestReadConfigMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadConfig[testConfig](filepath.Join(dir, "service.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
