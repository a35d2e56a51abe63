package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestKeyIsDeterministicAndContentSensitive(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "Cargo.lock", "version = 3\n")
	c := New(t.TempDir())

	k1, err := c.Key(ws, []string{"Cargo.lock"})
	require.NoError(t, err)
	k2, err := c.Key(ws, []string{"Cargo.lock"})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)

	writeFile(t, ws, "Cargo.lock", "version = 4\n")
	k3, err := c.Key(ws, []string{"Cargo.lock"})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)
}

func TestKeyOrderIndependent(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "Cargo.lock", "a")
	writeFile(t, ws, "rust-toolchain.toml", "b")
	c := New(t.TempDir())

	k1, err := c.Key(ws, []string{"Cargo.lock", "rust-toolchain.toml"})
	require.NoError(t, err)
	k2, err := c.Key(ws, []string{"rust-toolchain.toml", "Cargo.lock"})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestKeyErrors(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Key(t.TempDir(), nil)
	assert.Error(t, err)
	_, err = c.Key(t.TempDir(), []string{"missing.lock"})
	assert.Error(t, err)
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "Cargo.lock", "version = 3\n")
	writeFile(t, ws, "target/debug/libfoo.rlib", "binary")
	writeFile(t, ws, "target/doc/index.html", "<html></html>")
	c := New(t.TempDir())

	key, err := c.Key(ws, []string{"Cargo.lock"})
	require.NoError(t, err)
	assert.False(t, c.Has(key))

	require.NoError(t, c.Save(key, ws, []string{"target"}))
	assert.True(t, c.Has(key))

	fresh := t.TempDir()
	hit, err := c.Restore(key, fresh)
	require.NoError(t, err)
	assert.True(t, hit)

	data, err := os.ReadFile(filepath.Join(fresh, "target", "debug", "libfoo.rlib"))
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestRestoreMissIsNotAnError(t *testing.T) {
	c := New(t.TempDir())
	hit, err := c.Restore("deadbeef", t.TempDir())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSaveSkipsMissingPaths(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "target/out", "x")
	c := New(t.TempDir())

	require.NoError(t, c.Save("key1", ws, []string{"target", "not-built"}))
	fresh := t.TempDir()
	hit, err := c.Restore("key1", fresh)
	require.NoError(t, err)
	assert.True(t, hit)
	_, err = os.Stat(filepath.Join(fresh, "not-built"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveReplacesExistingEntry(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "target/old", "old")
	c := New(t.TempDir())
	require.NoError(t, c.Save("key1", ws, []string{"target"}))

	require.NoError(t, os.Remove(filepath.Join(ws, "target", "old")))
	writeFile(t, ws, "target/new", "new")
	require.NoError(t, c.Save("key1", ws, []string{"target"}))

	fresh := t.TempDir()
	_, err := c.Restore("key1", fresh)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(fresh, "target", "old"))
	assert.True(t, os.IsNotExist(err), "stale entry contents should be gone")
}
