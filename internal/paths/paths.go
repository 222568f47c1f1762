// Package paths locates a repository root and derives its metadata layout.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	witerrors "wit/internal/errors"
)

const (
	MetaDirName    = ".wit"
	StageDirName   = "staging_area"
	ImagesDirName  = "images"
	ReferencesName = "references.txt"
	ActivatedName  = "activated.txt"
	DBDirName      = "db"
	ConfigName     = "config.yaml"
)

// Paths is the resolved layout for one invocation.
type Paths struct {
	Target     string // absolute form of the path that was resolved
	Root       string // working tree root, parent of MetaDir
	MetaDir    string
	Stage      string
	Images     string
	References string
	Activated  string
	DB         string
	ConfigFile string
}

// New derives the layout for a known root.
func New(root string) (*Paths, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	meta := filepath.Join(abs, MetaDirName)
	return &Paths{
		Target:     abs,
		Root:       abs,
		MetaDir:    meta,
		Stage:      filepath.Join(meta, StageDirName),
		Images:     filepath.Join(meta, ImagesDirName),
		References: filepath.Join(meta, ReferencesName),
		Activated:  filepath.Join(meta, ActivatedName),
		DB:         filepath.Join(meta, DBDirName),
		ConfigFile: filepath.Join(meta, ConfigName),
	}, nil
}

// Resolve finds the repository enclosing path. Relative paths are taken
// against the process working directory.
func Resolve(path string) (*Paths, error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for %s: %w", path, err)
	}

	root, err := FindRoot(target)
	if err != nil {
		return nil, err
	}

	p, err := New(root)
	if err != nil {
		return nil, err
	}
	p.Target = target
	return p, nil
}

// FindRoot walks upward from start until a directory holding MetaDirName is
// found. The search stops at the filesystem root or when crossing onto another
// mounted device.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	// Files and not-yet-existing paths are searched from their directory.
	info, err := os.Stat(dir)
	for err != nil || !info.IsDir() {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", witerrors.RepositoryNotFound(start)
		}
		dir = parent
		info, err = os.Stat(dir)
	}

	for {
		if meta, err := os.Stat(filepath.Join(dir, MetaDirName)); err == nil && meta.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		parentInfo, err := os.Stat(parent)
		if err != nil || !sameDevice(info, parentInfo) {
			break
		}
		dir, info = parent, parentInfo
	}

	return "", witerrors.RepositoryNotFound(start)
}

// Rel returns target relative to the root, failing when target lies outside it.
func (p *Paths) Rel(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", witerrors.InvalidArgument(fmt.Sprintf("%s is outside repository %s", target, p.Root), nil)
	}
	return rel, nil
}

// SnapshotDir is the images entry holding the files of commit id.
func (p *Paths) SnapshotDir(id string) string {
	return filepath.Join(p.Images, id)
}

// MetadataFile is the record describing commit id.
func (p *Paths) MetadataFile(id string) string {
	return filepath.Join(p.Images, id+".txt")
}
