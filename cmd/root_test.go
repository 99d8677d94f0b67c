package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSeedCommand(t *testing.T) {
	path := writeConfig(t, `
logging:
  development: false
fetch:
  mode: local
sources:
  - id: photobooth-net
    name: photobooth.net
    url: https://photobooth.net/map
    extractor_type: directory
    enabled: true
`)

	out, err := runCommand(t, "seed", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 sources")
}

func TestCrawlCommandWithEmptyRegistry(t *testing.T) {
	path := writeConfig(t, `
logging:
  development: false
fetch:
  mode: local
`)

	out, err := runCommand(t, "crawl", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 pages")
}

func TestRootFailsWithoutFetchEndpoint(t *testing.T) {
	path := writeConfig(t, `
fetch:
  mode: service
`)

	_, err := runCommand(t, "crawl", "--config", path)
	assert.Error(t, err)
}
