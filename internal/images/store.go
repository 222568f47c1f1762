// internal/images/store.go
package images

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"wit/internal/content"
	witerrors "wit/internal/errors"
	"wit/internal/logging"
	"wit/internal/paths"
	"wit/internal/refs"

	"github.com/otiai10/copy"
	"go.uber.org/zap"
)

// NoParent is the parent recorded for a root commit.
const NoParent = "None"

// DateLayout is the timestamp format of metadata records.
const DateLayout = "Mon Jan _2 15:04:05 2006 -0700"

const (
	parentKey  = "parent="
	dateKey    = "date="
	messageKey = "message="
)

// Commit is the metadata record of one image.
type Commit struct {
	ID      string
	Parents []string
	Date    time.Time
	Message string
}

// IsRoot reports whether c has no real parent.
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 1 && c.Parents[0] == NoParent
}

// Store owns the write-once images area.
type Store struct {
	paths *paths.Paths
	refs  *refs.Store
	now   func() time.Time
}

func NewStore(p *paths.Paths, r *refs.Store) *Store {
	return &Store{
		paths: p,
		refs:  r,
		now:   time.Now,
	}
}

// SnapshotDir is where the files of commit id live.
func (s *Store) SnapshotDir(id string) string {
	return s.paths.SnapshotDir(id)
}

// Exists reports whether id names a committed image.
func (s *Store) Exists(id string) bool {
	if !content.IsFingerprint(id) {
		return false
	}
	info, err := os.Stat(s.paths.SnapshotDir(id))
	return err == nil && info.IsDir()
}

// Create snapshots the stage as a new commit and moves HEAD to it. When the
// staged content is already an image, the id is returned together with an
// error matching ErrDuplicateCommit and nothing is written.
func (s *Store) Create(ctx context.Context, message, mergeParent string) (string, error) {
	log := logging.FromContext(ctx)

	id, err := content.FingerprintTree(s.paths.Stage)
	if err != nil {
		return "", fmt.Errorf("fingerprinting stage: %w", err)
	}

	if s.Exists(id) {
		log.Warn("image already committed", zap.String("id", id))
		return id, witerrors.DuplicateCommit(id)
	}

	parents := []string{NoParent}
	head, ok, err := s.refs.Head()
	if err != nil {
		return "", err
	}
	if ok {
		parents = []string{head}
		if mergeParent != "" {
			parents = append(parents, mergeParent)
		}
	}

	commit := &Commit{
		ID:      id,
		Parents: parents,
		Date:    s.now(),
		Message: message,
	}
	if err := s.write(ctx, commit); err != nil {
		os.RemoveAll(s.paths.SnapshotDir(id))
		os.Remove(s.paths.MetadataFile(id))
		return "", err
	}

	if err := s.refs.RecordCommit(ctx, id, true); err != nil {
		return "", fmt.Errorf("recording commit: %w", err)
	}

	log.Info("created commit",
		zap.String("id", id),
		zap.Strings("parents", parents))
	return id, nil
}

func (s *Store) write(ctx context.Context, c *Commit) error {
	dir := s.paths.SnapshotDir(c.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating image: %w", err)
	}

	if err := os.WriteFile(s.paths.MetadataFile(c.ID), formatCommit(c), 0644); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	entries, err := os.ReadDir(s.paths.Stage)
	if err != nil {
		return fmt.Errorf("reading stage: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Directories are copied whole, files one at a time.
		src := filepath.Join(s.paths.Stage, entry.Name())
		if err := copy.Copy(src, filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("copying %s into image: %w", entry.Name(), err)
		}
	}
	return nil
}

func formatCommit(c *Commit) []byte {
	var buf bytes.Buffer
	buf.WriteString(parentKey + strings.Join(c.Parents, ",") + "\n")
	buf.WriteString(dateKey + c.Date.Format(DateLayout) + "\n")
	buf.WriteString(messageKey + c.Message + "\n")
	return buf.Bytes()
}

// Read loads the metadata record of id.
func (s *Store) Read(id string) (*Commit, error) {
	if !content.IsFingerprint(id) {
		return nil, witerrors.ReferenceNotFound(id)
	}
	data, err := os.ReadFile(s.paths.MetadataFile(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, witerrors.ReferenceNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata for %s: %w", id, err)
	}
	return parseCommit(id, data)
}

func parseCommit(id string, data []byte) (*Commit, error) {
	c := &Commit{ID: id}

	var message []string
	inMessage := false
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case inMessage:
			message = append(message, line)
		case strings.HasPrefix(line, parentKey):
			c.Parents = strings.Split(strings.TrimPrefix(line, parentKey), ",")
		case strings.HasPrefix(line, dateKey):
			date, err := time.Parse(DateLayout, strings.TrimPrefix(line, dateKey))
			if err != nil {
				return nil, fmt.Errorf("parsing date of %s: %w", id, err)
			}
			c.Date = date
		case strings.HasPrefix(line, messageKey):
			message = append(message, strings.TrimPrefix(line, messageKey))
			inMessage = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning metadata of %s: %w", id, err)
	}
	if len(c.Parents) == 0 {
		return nil, fmt.Errorf("metadata of %s has no parent line", id)
	}

	c.Message = strings.Join(message, "\n")
	return c, nil
}

// ParentsOf returns the ordered parents of id; a root commit yields
// []string{NoParent}.
func (s *Store) ParentsOf(id string) ([]string, error) {
	c, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	return c.Parents, nil
}

// List returns every commit id in the images area, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.paths.Images)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading images: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		id := strings.TrimSuffix(name, ".txt")
		if content.IsFingerprint(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
