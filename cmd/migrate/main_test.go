package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCreateThenValidate(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "create", "add cart ttl", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "created migration:")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasSuffix(entries[0].Name(), "_add_cart_ttl.sql"))

	out, err = execute(t, "validate", "--dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "passed")
}

func TestValidateShippedMigrations(t *testing.T) {
	_, err := execute(t, "validate", "--dir", filepath.Join("..", "..", "pkg", "migrate", "migrations"))
	require.NoError(t, err)
}

func TestValidateRejectsEmptyDir(t *testing.T) {
	_, err := execute(t, "validate", "--dir", t.TempDir())
	require.Error(t, err)
}

func TestVersionRequiresArgument(t *testing.T) {
	_, err := execute(t, "version")
	require.Error(t, err)
}
