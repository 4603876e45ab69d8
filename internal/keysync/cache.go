package keysync

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Cache stores downloaded key set files on local disk under a name
// derived from the key set id, so a set re-downloaded in a later cycle
// overwrites its previous file.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "keysync: create cache dir %s", dir)
	}
	return &Cache{dir: dir}, nil
}

// Path returns the cache file path for a key set id.
func (c *Cache) Path(id string) string {
	sum := sha256.Sum256([]byte(id))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".keyset")
}

// Put writes the key set body to the cache. The write goes to a temp
// file in the same directory and becomes visible via atomic rename, so
// a crash mid-download never leaves a truncated file under the final
// name.
func (c *Cache) Put(id string, body io.Reader) (string, error) {
	tmp, err := os.CreateTemp(c.dir, "keyset-*.tmp")
	if err != nil {
		return "", eris.Wrap(err, "keysync: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", eris.Wrapf(err, "keysync: write key set %s", id)
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrapf(err, "keysync: close key set %s", id)
	}

	final := c.Path(id)
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", eris.Wrapf(err, "keysync: rename key set %s", id)
	}
	return final, nil
}
