// internal/stage/area.go
package stage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"wit/internal/content"
	witerrors "wit/internal/errors"
	"wit/internal/logging"
	"wit/internal/paths"

	"github.com/otiai10/copy"
	"go.uber.org/zap"
)

// Area mirrors the part of the working tree that the next commit will hold.
type Area struct {
	paths  *paths.Paths
	ignore paths.IgnoreRules
}

func New(p *paths.Paths, ignore paths.IgnoreRules) *Area {
	return &Area{paths: p, ignore: ignore}
}

// Dir is the staging directory.
func (a *Area) Dir() string {
	return a.paths.Stage
}

// Files lists the staged relative paths, sorted.
func (a *Area) Files() ([]string, error) {
	return content.ListFiles(a.paths.Stage)
}

// Add copies source, a file or a directory inside the working tree, into the
// stage at the same relative location. Existing staged files are overwritten.
func (a *Area) Add(ctx context.Context, source string) error {
	log := logging.FromContext(ctx)

	abs, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}
	rel, err := a.paths.Rel(abs)
	if err != nil {
		return err
	}
	if rel != "." && a.ignore.Match(rel) {
		return witerrors.InvalidArgument(fmt.Sprintf("%s is ignored", source), nil)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return witerrors.InvalidArgument(fmt.Sprintf("cannot add %s", source), err)
	}
	if !info.IsDir() {
		log.Debug("staging file", zap.String("path", rel))
		return a.copyIn(abs, rel)
	}

	count := 0
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fileRel, err := filepath.Rel(a.paths.Root, path)
		if err != nil {
			return err
		}
		if fileRel != "." && a.ignore.Match(fileRel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		count++
		return a.copyIn(path, fileRel)
	})
	if err != nil {
		return fmt.Errorf("staging %s: %w", source, err)
	}

	log.Debug("staged directory", zap.String("path", rel), zap.Int("files", count))
	return nil
}

func (a *Area) copyIn(src, rel string) error {
	dest := filepath.Join(a.paths.Stage, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating stage directory: %w", err)
	}
	if err := copy.Copy(src, dest); err != nil {
		return fmt.Errorf("copying %s: %w", rel, err)
	}
	return nil
}

// ResetTo replaces the whole stage with the contents of snapshotDir.
func (a *Area) ResetTo(ctx context.Context, snapshotDir string) error {
	if _, err := os.Stat(snapshotDir); err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	logging.FromContext(ctx).Debug("resetting stage", zap.String("snapshot", filepath.Base(snapshotDir)))

	if err := os.RemoveAll(a.paths.Stage); err != nil {
		return fmt.Errorf("clearing stage: %w", err)
	}
	if err := copy.Copy(snapshotDir, a.paths.Stage); err != nil {
		return fmt.Errorf("restoring stage: %w", err)
	}
	return nil
}

// Write places data at rel inside the stage.
func (a *Area) Write(ctx context.Context, rel string, data []byte) error {
	dest := filepath.Join(a.paths.Stage, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating stage directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("writing staged %s: %w", rel, err)
	}
	logging.FromContext(ctx).Debug("wrote staged file", zap.String("path", rel))
	return nil
}
