// Package cache implements the content-keyed dependency cache used by cache
// steps: the key is a digest of the named lockfiles, and cached paths are
// restored before the step sequence continues and saved after a job succeeds.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/conveyor/internal/logfields"
)

// Cache stores directory trees under content-derived keys.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir.
func New(dir string) *Cache { return &Cache{dir: dir} }

// Key computes a deterministic cache key from the contents of the named
// lockfiles, resolved relative to workspace. Same lockfile bytes, same key.
func (c *Cache) Key(workspace string, keyFiles []string) (string, error) {
	if len(keyFiles) == 0 {
		return "", fmt.Errorf("no key files given")
	}
	sorted := append([]string(nil), keyFiles...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, name := range sorted {
		data, err := os.ReadFile(filepath.Join(workspace, name))
		if err != nil {
			return "", fmt.Errorf("read key file %s: %w", name, err)
		}
		fmt.Fprintf(h, "%s\x00%d\x00", name, len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Restore copies the cached trees for key into workspace. It reports whether
// the key existed; a miss is not an error.
func (c *Cache) Restore(key, workspace string) (bool, error) {
	src := filepath.Join(c.dir, key)
	if _, err := os.Stat(src); os.IsNotExist(err) {
		slog.Debug("cache miss", "key", key)
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("stat cache entry: %w", err)
	}
	if err := CopyTree(src, workspace); err != nil {
		return false, fmt.Errorf("restore cache %s: %w", key, err)
	}
	slog.Debug("cache restored", "key", key, logfields.Path(workspace))
	return true, nil
}

// Save archives the named workspace paths under key. Existing entries for the
// same key are replaced; missing paths are skipped rather than failing the
// job that produced them.
func (c *Cache) Save(key, workspace string, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no paths to save")
	}
	dst := filepath.Join(c.dir, key)
	tmp := dst + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clean staging dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	for _, p := range paths {
		src := filepath.Join(workspace, p)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			slog.Debug("cache save skipping missing path", logfields.Path(p))
			continue
		}
		if err := copyInto(src, filepath.Join(tmp, p)); err != nil {
			_ = os.RemoveAll(tmp)
			return fmt.Errorf("save path %s: %w", p, err)
		}
	}
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("replace cache entry: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("commit cache entry: %w", err)
	}
	slog.Debug("cache saved", "key", key)
	return nil
}

// Has reports whether an entry exists for key.
func (c *Cache) Has(key string) bool {
	_, err := os.Stat(filepath.Join(c.dir, key))
	return err == nil
}

// CopyTree copies every entry under src into dst, preserving structure.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

// copyInto copies a file or directory src to exactly dst.
func copyInto(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return err
		}
		return CopyTree(src, dst)
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
