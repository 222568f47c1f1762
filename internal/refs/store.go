// internal/refs/store.go
package refs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	witerrors "wit/internal/errors"
	"wit/internal/logging"
	"wit/internal/paths"

	"go.uber.org/zap"
)

const (
	Head          = "HEAD"
	DefaultBranch = "master"
)

// Binding is one name=fingerprint line of the references file.
type Binding struct {
	Name        string
	Fingerprint string
}

// Store persists branch bindings, HEAD, and the activated branch name.
type Store struct {
	refsPath      string
	activatedPath string
}

func NewStore(p *paths.Paths) *Store {
	return &Store{
		refsPath:      p.References,
		activatedPath: p.Activated,
	}
}

// ValidateName rejects names that cannot be stored as a reference line.
func ValidateName(name string) error {
	if name == "" {
		return witerrors.InvalidArgument("branch name cannot be empty", nil)
	}
	if name == Head {
		return witerrors.InvalidArgument("HEAD is reserved", nil)
	}
	if strings.Contains(name, "=") || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return witerrors.InvalidArgument(fmt.Sprintf("invalid branch name %q", name), nil)
	}
	return nil
}

// Bindings returns every line of the references file in order. A missing file
// yields no bindings.
func (s *Store) Bindings() ([]Binding, error) {
	data, err := os.ReadFile(s.refsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading references: %w", err)
	}

	var bindings []Binding
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, fp, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed reference line %q", line)
		}
		bindings = append(bindings, Binding{Name: name, Fingerprint: fp})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning references: %w", err)
	}
	return bindings, nil
}

// Names returns the reference names in file order, HEAD first.
func (s *Store) Names() ([]string, error) {
	bindings, err := s.Bindings()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(bindings))
	names := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		names = append(names, b.Name)
	}
	return names, nil
}

// Resolve returns the last binding for name. ok is false when the file or the
// name is absent.
func (s *Store) Resolve(name string) (string, bool, error) {
	bindings, err := s.Bindings()
	if err != nil {
		return "", false, err
	}

	fp, ok := "", false
	for _, b := range bindings {
		if b.Name == name {
			fp, ok = b.Fingerprint, true
		}
	}
	return fp, ok, nil
}

// Head is a shorthand for Resolve(Head).
func (s *Store) Head() (string, bool, error) {
	return s.Resolve(Head)
}

// Lookup turns a branch name or a raw fingerprint into a commit id. known
// reports whether a literal fingerprint names an existing commit.
func (s *Store) Lookup(ref string, known func(string) bool) (fp string, isBranch bool, err error) {
	if ref != Head {
		fp, ok, err := s.Resolve(ref)
		if err != nil {
			return "", false, err
		}
		if ok {
			return fp, true, nil
		}
	}
	if known(ref) {
		return ref, false, nil
	}
	return "", false, witerrors.ReferenceNotFound(ref)
}

// Bind points name at fp, replacing an existing binding in place or appending
// a new line.
func (s *Store) Bind(ctx context.Context, name, fp string) error {
	bindings, err := s.Bindings()
	if err != nil {
		return err
	}

	out := make([]Binding, 0, len(bindings)+1)
	replaced := false
	for _, b := range bindings {
		if b.Name != name {
			out = append(out, b)
			continue
		}
		if !replaced {
			out = append(out, Binding{Name: name, Fingerprint: fp})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, Binding{Name: name, Fingerprint: fp})
	}

	logging.FromContext(ctx).Debug("binding reference",
		zap.String("name", name),
		zap.String("fingerprint", fp),
		zap.Bool("replaced", replaced))
	return s.write(out)
}

// Active returns the activated branch name.
func (s *Store) Active() (string, error) {
	data, err := os.ReadFile(s.activatedPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultBranch, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading activated branch: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return DefaultBranch, nil
	}
	return name, nil
}

// Activate sets the activated branch without moving HEAD.
func (s *Store) Activate(ctx context.Context, name string) error {
	logging.FromContext(ctx).Debug("activating branch", zap.String("branch", name))
	return writeFileAtomic(s.activatedPath, []byte(name))
}

// RecordCommit moves HEAD to fp. The first commit creates HEAD and master.
// Later, when moveBranch is set and the activated branch still points at the
// previous HEAD, that branch follows HEAD to fp.
func (s *Store) RecordCommit(ctx context.Context, fp string, moveBranch bool) error {
	log := logging.FromContext(ctx)

	bindings, err := s.Bindings()
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		log.Debug("initializing references", zap.String("fingerprint", fp))
		return s.write([]Binding{
			{Name: Head, Fingerprint: fp},
			{Name: DefaultBranch, Fingerprint: fp},
		})
	}

	prevHead, _, err := s.Head()
	if err != nil {
		return err
	}
	active, err := s.Active()
	if err != nil {
		return err
	}

	out := []Binding{{Name: Head, Fingerprint: fp}}
	for _, b := range bindings {
		switch {
		case b.Name == Head:
			continue
		case moveBranch && b.Name == active && b.Fingerprint == prevHead:
			b.Fingerprint = fp
			log.Debug("advancing branch", zap.String("branch", active), zap.String("fingerprint", fp))
		}
		out = append(out, b)
	}
	return s.write(out)
}

func (s *Store) write(bindings []Binding) error {
	var buf bytes.Buffer
	for _, b := range bindings {
		fmt.Fprintf(&buf, "%s=%s\n", b.Name, b.Fingerprint)
	}
	return writeFileAtomic(s.refsPath, buf.Bytes())
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
