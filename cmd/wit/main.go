// cmd/wit/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"wit/internal/config"
	witerrors "wit/internal/errors"
	"wit/internal/history"
	"wit/internal/images"
	"wit/internal/logging"
	"wit/internal/paths"
	"wit/internal/repo"
	"wit/internal/watch"
	shared "wit/shared/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
	"go.uber.org/multierr"
)

const shortID = 12

var rootCmd = &cobra.Command{
	Use:   "wit",
	Short: "Wit is a small local version control system",
	Long: `Wit snapshots a working tree into content-addressed images, tracks named
branches over them and merges line-wise edits between branches.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.FromContext(cmd.Context()).Sync()
	},
}

// setupLogging builds the logger from the enclosing repository's config, or
// from defaults outside a repository, and tags it with the command name.
func setupLogging(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if cwd, err := os.Getwd(); err == nil {
		if p, err := paths.Resolve(cwd); err == nil {
			if loaded, err := config.Load(p.MetaDir); err == nil {
				cfg = loaded
			}
		}
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	ctx := logging.WithLogger(cmd.Context(), logger.Logger)
	cmd.SetContext(logging.WithOperation(ctx, cmd.Name()))
	return nil
}

func init() {
	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create an empty repository in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			r, err := repo.Init(cmd.Context(), dir)
			if err != nil {
				return err
			}
			defer r.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty wit repository in", r.Paths.MetaDir)
			return nil
		},
	}

	var addCmd = &cobra.Command{
		Use:   "add <path>...",
		Short: "Copy files or directories into the staging area",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				for _, path := range args {
					if err := r.Add(ctx, path); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	var commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Snapshot the staging area as a new image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")
			mergeParent, _ := cmd.Flags().GetString("merge-parent")

			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				id, err := r.Commit(ctx, message, mergeParent)
				if errors.Is(err, witerrors.ErrDuplicateCommit) {
					color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "Nothing to commit, image %s already exists\n", short(id))
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", color.YellowString(short(id)), message)
				return nil
			})
		},
	}

	var statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show staged, unstaged and untracked files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			watchTree, _ := cmd.Flags().GetBool("watch")
			debounce, _ := cmd.Flags().GetDuration("debounce")

			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				out := cmd.OutOrStdout()
				if err := showStatus(ctx, out, r); err != nil {
					return err
				}
				if !watchTree {
					return nil
				}
				return watchStatus(ctx, out, r, debounce)
			})
		},
	}

	var checkoutCmd = &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Restore the working tree and staging area to a branch or commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				result, err := r.Checkout(ctx, args[0])
				var werr *witerrors.Error
				if errors.As(err, &werr) && werr.Type == witerrors.ErrorTypeUncommitted {
					printPaths(cmd.OutOrStdout(), "Commit or discard these changes first:", werr.Paths, color.FgRed)
				}
				if err != nil {
					return err
				}

				if result.Branch != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Switched to branch %s\n", color.GreenString(result.Branch))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now detached at %s\n", color.YellowString(short(result.Target)))
				}
				return nil
			})
		},
	}

	var branchCmd = &cobra.Command{
		Use:   "branch <name>",
		Short: "Point a branch at the current commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				at, err := r.Branch(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Branch %s at %s\n", color.GreenString(args[0]), color.YellowString(short(at)))
				return nil
			})
		},
	}

	var mergeCmd = &cobra.Command{
		Use:   "merge <branch|commit>",
		Short: "Merge another branch or commit into HEAD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				out := cmd.OutOrStdout()
				id, err := r.Merge(ctx, args[0])
				if errors.Is(err, witerrors.ErrDuplicateCommit) {
					fmt.Fprintln(out, "Already up to date.")
					return nil
				}
				var werr *witerrors.Error
				if errors.As(err, &werr) && werr.Type == witerrors.ErrorTypeMergeConflict {
					printPaths(out, "Conflicting files:", werr.Paths, color.FgRed)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Merged %s into %s\n", args[0], color.YellowString(short(id)))
				return nil
			})
		},
	}

	var graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Print the commit graph from HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			mode := ""
			if all {
				mode = repo.GraphAll
			}

			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				trace, err := r.Graph(ctx, mode)
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), renderTrace(trace))
				return err
			})
		},
	}

	var logCmd = &cobra.Command{
		Use:   "log",
		Short: "List commits along first parents from HEAD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				entries, err := r.Log(ctx)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No commits yet")
					return nil
				}
				for _, e := range entries {
					printLogEntry(cmd.OutOrStdout(), e)
				}
				return nil
			})
		},
	}

	var reflogCmd = &cobra.Command{
		Use:   "reflog [ref]",
		Short: "Show how references moved, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}

			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				entries, err := r.Reflog(ctx, ref, limit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s -> %s  %s: %s\n",
						e.CreatedAt.Format(time.RFC3339),
						color.GreenString(e.Ref),
						short(e.Old),
						color.YellowString(short(e.New)),
						e.Action,
						e.Message,
					)
				}
				return nil
			})
		},
	}

	var diffCmd = &cobra.Command{
		Use:   "diff [path...]",
		Short: "Show unstaged line changes",
		Long:  `Compares staged copies with the working tree. Without paths, every unstaged file is shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			contextLines, _ := cmd.Flags().GetInt("context")

			return withRepo(cmd, func(ctx context.Context, r *repo.Repository) error {
				targets := args
				if len(targets) == 0 {
					status, err := r.Status(ctx)
					if err != nil {
						return err
					}
					for _, rel := range status.Unstaged {
						targets = append(targets, filepath.Join(r.Paths.Root, filepath.FromSlash(rel)))
					}
				}

				for _, path := range targets {
					fd, err := r.FileDiff(ctx, path, contextLines)
					if err != nil {
						return err
					}
					printFileDiff(cmd.OutOrStdout(), fd)
				}
				return nil
			})
		},
	}

	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	commitCmd.MarkFlagRequired("message")
	commitCmd.Flags().String("merge-parent", "", "Branch or commit recorded as second parent")

	statusCmd.Flags().BoolP("watch", "w", false, "Keep running and reprint status when files change")
	statusCmd.Flags().Duration("debounce", 300*time.Millisecond, "Quiet period before reprinting in watch mode")

	graphCmd.Flags().Bool("all", false, "Include every commit, not only ancestors of HEAD")
	reflogCmd.Flags().IntP("limit", "n", 0, "Maximum number of entries (0 for all)")
	diffCmd.Flags().IntP("context", "U", 3, "Lines of context around each change")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(reflogCmd)
	rootCmd.AddCommand(diffCmd)
}

// withRepo opens the repository enclosing the working directory, runs fn and
// closes it, reporting close failures alongside fn's error.
func withRepo(cmd *cobra.Command, fn func(ctx context.Context, r *repo.Repository) error) (err error) {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	r, err := repo.Open(ctx, cwd)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, r.Close())
	}()

	return fn(ctx, r)
}

func showStatus(ctx context.Context, w io.Writer, r *repo.Repository) error {
	status, err := r.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(w, status)
	return nil
}

func watchStatus(ctx context.Context, w io.Writer, r *repo.Repository, debounce time.Duration) error {
	watcher, err := watch.New(r.Paths.Root, r.Ignore(), debounce)
	if err != nil {
		return err
	}
	defer watcher.Close()

	fmt.Fprintln(w, color.HiBlackString("Watching %s, press Ctrl-C to stop", r.Paths.Root))
	return watcher.Run(ctx, func(ctx context.Context, changed []string) error {
		fmt.Fprintln(w, color.HiBlackString("--- %s: %d path(s) changed", time.Now().Format(time.TimeOnly), len(changed)))
		return showStatus(ctx, w, r)
	})
}

func printStatus(w io.Writer, s *shared.Status) {
	switch {
	case s.Head == "":
		fmt.Fprintf(w, "On branch %s\n\nNo commits yet\n", color.GreenString(s.Branch))
	case s.Detached:
		fmt.Fprintf(w, "HEAD detached at %s\n", color.YellowString(short(s.Head)))
	default:
		fmt.Fprintf(w, "On branch %s at %s\n", color.GreenString(s.Branch), color.YellowString(short(s.Head)))
	}

	if s.Clean() {
		fmt.Fprintln(w, "\nnothing to commit, working tree clean")
		return
	}
	printPaths(w, "Changes to be committed:", s.ToBeCommitted, color.FgGreen)
	printPaths(w, "Changes not staged for commit:", s.Unstaged, color.FgRed)
	printPaths(w, "Untracked files:", s.Untracked, color.FgRed)
}

func printPaths(w io.Writer, title string, list []string, attr color.Attribute) {
	if len(list) == 0 {
		return
	}
	c := color.New(attr)
	fmt.Fprintf(w, "\n%s\n", title)
	for _, p := range list {
		c.Fprintf(w, "\t%s\n", p)
	}
}

func printLogEntry(w io.Writer, e shared.LogEntry) {
	header := color.YellowString("commit %s", e.ID)
	if len(e.Refs) > 0 {
		header += " (" + color.GreenString("%s", strings.Join(e.Refs, ", ")) + ")"
	}
	fmt.Fprintln(w, header)
	if len(e.Parents) > 1 {
		fmt.Fprintf(w, "Merge:  %s %s\n", short(e.Parents[0]), short(e.Parents[1]))
	}
	fmt.Fprintf(w, "Date:   %s\n\n    %s\n\n", e.Date.Format(images.DateLayout), e.Message)
}

func printFileDiff(w io.Writer, fd *shared.FileDiff) {
	header := color.New(color.Bold)
	hunkHeader := color.New(color.FgCyan)
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	header.Fprintf(w, "--- a/%s\n+++ b/%s\n", fd.Path, fd.Path)
	for _, line := range strings.Split(strings.TrimSuffix(fd.Patch, "\n"), "\n") {
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "@@"):
			hunkHeader.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			added.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			removed.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

// renderTrace prints each node with its parents beneath it.
func renderTrace(trace *history.Trace) string {
	tree := treeprint.New()
	tree.SetValue(".")
	for _, label := range trace.Keys() {
		branch := tree.AddBranch(label)
		for _, parent := range trace.Parents(label) {
			branch.AddNode(parent)
		}
	}
	return tree.String()
}

func short(id string) string {
	return history.Label(id, shortID)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
