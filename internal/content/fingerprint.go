// internal/content/fingerprint.go
package content

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the BLAKE2b digest size in bytes; fingerprints are twice as
// long in hex.
const DigestSize = 20

// FingerprintLength is the length of every fingerprint string.
const FingerprintLength = DigestSize * 2

// FingerprintBytes returns the lowercase hex BLAKE2b digest of content.
func FingerprintBytes(content []byte) string {
	h := newHash()
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func newHash() hash.Hash {
	// blake2b.New only fails for sizes outside 1..64 or oversized keys.
	h, err := blake2b.New(DigestSize, nil)
	if err != nil {
		panic(err)
	}
	return h
}

// IsFingerprint reports whether s has the shape of a fingerprint.
func IsFingerprint(s string) bool {
	if len(s) != FingerprintLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// ListFiles returns the slash-separated paths of every regular file under root,
// sorted lexically.
func ListFiles(root string) ([]string, error) {
	return Enumerate(root, root, nil)
}

// Enumerate lists every regular file under root as a slash-separated path
// relative to base, sorted. skip, when set, prunes paths (and whole
// directories) by their root-relative name.
func Enumerate(root, base string, skip func(rel string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && skip != nil {
			rootRel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			if skip(rootRel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing files under %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// FingerprintTree serializes every file under root into a single zip stream,
// entries in lexical path order with zeroed timestamps, and fingerprints the
// stream. Two trees with the same relative paths and bytes always agree.
func FingerprintTree(root string) (string, error) {
	files, err := ListFiles(root)
	if err != nil {
		return "", err
	}

	h := newHash()
	archive := zip.NewWriter(h)
	for _, rel := range files {
		w, err := archive.CreateHeader(&zip.FileHeader{
			Name:   rel,
			Method: zip.Store,
		})
		if err != nil {
			return "", fmt.Errorf("adding %s to archive: %w", rel, err)
		}

		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("opening %s: %w", rel, err)
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("archiving %s: %w", rel, err)
		}
	}
	if err := archive.Close(); err != nil {
		return "", fmt.Errorf("finalizing archive: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadComparable reads path the way files are compared: as text when the
// bytes are valid UTF-8, with \r\n and \r line endings folded to \n,
// otherwise as raw bytes.
func ReadComparable(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return data, nil
	}
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n")), nil
}
