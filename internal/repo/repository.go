// internal/repo/repository.go
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"wit/internal/checkout"
	"wit/internal/config"
	"wit/internal/content"
	"wit/internal/diff"
	witerrors "wit/internal/errors"
	"wit/internal/history"
	"wit/internal/images"
	"wit/internal/logging"
	"wit/internal/merge"
	"wit/internal/paths"
	"wit/internal/reflog"
	reflogstore "wit/internal/reflog/storage"
	"wit/internal/refs"
	"wit/internal/stage"
	"wit/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Repository wires every component for one invocation against one root.
type Repository struct {
	Paths  *paths.Paths
	Config *config.Config

	ignore    paths.IgnoreRules
	refs      *refs.Store
	images    *images.Store
	stage     *stage.Area
	diff      *diff.Engine
	walker    *history.Walker
	merger    *merge.Engine
	checkouts *checkout.Engine

	db      *badger.DB
	journal reflog.Box
}

// Init creates an empty repository in dir and opens it.
func Init(ctx context.Context, dir string) (*Repository, error) {
	p, err := paths.New(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p.MetaDir); err == nil {
		return nil, witerrors.InvalidArgument(fmt.Sprintf("%s is already a repository", p.Root), nil)
	}

	for _, d := range []string{p.MetaDir, p.Images, p.Stage} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	if err := refs.NewStore(p).Activate(ctx, refs.DefaultBranch); err != nil {
		return nil, fmt.Errorf("activating %s: %w", refs.DefaultBranch, err)
	}

	logging.FromContext(ctx).Info("initialized repository", zap.String("root", p.Root))
	return Open(ctx, p.Root)
}

// Open resolves the repository enclosing path and loads its configuration.
func Open(ctx context.Context, path string) (*Repository, error) {
	p, err := paths.Resolve(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(p.MetaDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return open(ctx, p, cfg)
}

func open(ctx context.Context, p *paths.Paths, cfg *config.Config) (*Repository, error) {
	ignore, err := paths.NewIgnoreRules(cfg.Ignore)
	if err != nil {
		return nil, err
	}
	addresser, err := content.NewAddresser(cfg.Cache.Size)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.Stage, 0755); err != nil {
		return nil, fmt.Errorf("creating stage: %w", err)
	}

	r := &Repository{
		Paths:  p,
		Config: cfg,
		ignore: ignore,
	}
	r.refs = refs.NewStore(p)
	r.images = images.NewStore(p, r.refs)
	r.stage = stage.New(p, ignore)
	r.diff = diff.NewEngine(p, r.refs, addresser, ignore)
	r.walker = history.NewWalker(r.images, r.refs)
	r.merger = merge.NewEngine(r.refs, r.images, r.walker, r.diff, r.stage)
	r.checkouts = checkout.NewEngine(p, r.refs, r.images, r.diff, r.stage)

	if cfg.Journal.Enabled {
		db, err := storage.Open(p.DB)
		if err != nil {
			return nil, err
		}
		r.db = db
		r.journal = reflogstore.NewStore(db)
	}

	logging.FromContext(ctx).Debug("opened repository",
		zap.String("root", p.Root),
		zap.Bool("journal", r.journal != nil))
	return r, nil
}

// Close releases the reflog database.
func (r *Repository) Close() error {
	var err error
	if r.db != nil {
		err = multierr.Append(err, r.db.Close())
		r.db = nil
	}
	return err
}

// Abs resolves path against the directory the repository was opened from.
func (r *Repository) Abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	base := r.Paths.Target
	if info, err := os.Stat(base); err != nil || !info.IsDir() {
		base = filepath.Dir(base)
	}
	return filepath.Join(base, path)
}

// Ignore returns the ignore rules loaded from configuration.
func (r *Repository) Ignore() paths.IgnoreRules {
	return r.ignore
}
