package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestKeyCommand(t *testing.T) {
	out, err := execute(t, "key", "users", "42", "[a, b]")
	require.NoError(t, err)
	assert.Contains(t, out, "key:    users#")
	assert.Contains(t, out, `prefix: "users":`)

	typed, err := execute(t, "key", "users", "42")
	require.NoError(t, err)
	raw, err := execute(t, "key", "--raw", "users", "42")
	require.NoError(t, err)
	assert.NotEqual(t, typed, raw, "42 and \"42\" are different arguments")
}

func TestKeyCommandNeedsName(t *testing.T) {
	_, err := execute(t, "key")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--virtual-time", "--log-level", "none", "../../scenario/testdata/ttl.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "get counter [] -> counter#2 (computed)")
}

func TestRunCommandFailingScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	script := strings.Join([]string{
		"steps:",
		`  - {op: get, name: k, expect: "nope"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))
	_, err := execute(t, "run", "--virtual-time", "--log-level", "none", path)
	assert.Error(t, err)
}
