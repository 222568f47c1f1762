// internal/content/addresser.go
package content

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// racyWindow is how old a modification must be before its fingerprint is
// cached. Timestamps are coarse, so a file rewritten within the same tick
// with the same size would otherwise keep its old fingerprint.
const racyWindow = 2 * time.Second

// fileKey identifies one observed version of a file on disk.
type fileKey struct {
	path    string
	size    int64
	modTime int64
}

// Addresser fingerprints files for comparison, caching results by path, size
// and modification time.
type Addresser struct {
	cache *lru.Cache[fileKey, string]
}

// NewAddresser creates an Addresser holding up to cacheSize fingerprints.
func NewAddresser(cacheSize int) (*Addresser, error) {
	cache, err := lru.New[fileKey, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Addresser{cache: cache}, nil
}

// FingerprintFile returns the fingerprint of the comparable content of path.
func (a *Addresser) FingerprintFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("getting file info: %w", err)
	}

	key := fileKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if fp, ok := a.cache.Get(key); ok {
		return fp, nil
	}

	data, err := ReadComparable(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	fp := FingerprintBytes(data)
	if time.Since(info.ModTime()) > racyWindow {
		a.cache.Add(key, fp)
	}
	return fp, nil
}

// Len reports the number of cached fingerprints.
func (a *Addresser) Len() int {
	return a.cache.Len()
}
