package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "mcp-server-lite")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func TestLoadClientConfig_Missing(t *testing.T) {
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoadClientConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadClientConfig(path)
	assert.Error(t, err)
}

func TestRegister_PreservesExistingEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "theme": "dark",
  "mcpServers": {"other": {"command": "/bin/other"}}
}`), 0644))

	binary := writeExecutable(t, dir)
	written, err := Register(Options{
		ConfigPath:    path,
		BinaryPath:    binary,
		DataDir:       "/var/lib/peptide",
		KnowledgeFile: "/etc/peptide/catalog.yaml",
	})
	require.NoError(t, err)
	assert.Equal(t, path, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"dark"`, string(raw["theme"]))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	require.Contains(t, cfg.MCPServers, "other")
	entry := cfg.MCPServers[ServerName]
	assert.Equal(t, binary, entry.Command)
	assert.Equal(t, "/var/lib/peptide", entry.Env["PEPTIDE_DATA_DIR"])
	assert.Equal(t, "/etc/peptide/catalog.yaml", entry.Env["PEPTIDE_KNOWLEDGE_FILE"])
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.False(t, status.Registered)
	assert.Contains(t, status.Issues, "Server is not registered")

	binary := writeExecutable(t, dir)
	_, err = Register(Options{ConfigPath: path, BinaryPath: binary, DataDir: dir})
	require.NoError(t, err)

	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Equal(t, binary, status.ServerPath)
	assert.Equal(t, dir, status.DataDir)
	assert.Empty(t, status.Issues)

	_, err = Register(Options{ConfigPath: path, BinaryPath: filepath.Join(dir, "missing")})
	require.NoError(t, err)
	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.Len(t, status.Issues, 1)
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	binary := writeExecutable(t, dir)

	var out bytes.Buffer
	cli := NewCLI(&out)

	require.NoError(t, cli.Run([]string{"register", "--config", path, "--binary", binary}))
	assert.Contains(t, out.String(), "Registered "+ServerName)

	out.Reset()
	require.NoError(t, cli.Run([]string{"status", "--config", path}))
	assert.Contains(t, out.String(), "Registered: yes")

	out.Reset()
	assert.Error(t, cli.Run([]string{"frobnicate"}))
	assert.Contains(t, out.String(), "Usage:")

	out.Reset()
	require.NoError(t, cli.Run(nil))
	assert.Contains(t, out.String(), "register")
}
