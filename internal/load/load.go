// Package load publishes an exported docs tree to a git repository: clone
// or reuse a working copy, sync the tree into a subdirectory, commit, and
// push. A run with no content changes is a no-op.
package load

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/workspace"
)

const defaultCommitMessage = "docs: update Confluence export {date}"

// Result describes what one load run did.
type Result struct {
	CommitHash string
	Pushed     bool
	RepoPath   string
}

// Loader syncs an exported tree into a git repository.
type Loader struct {
	cfg config.LoadConfig
	ws  *workspace.Manager
	log *slog.Logger
}

// New creates a Loader. A configured workspace directory makes the clone
// persistent across runs; otherwise each run clones into a fresh temp dir.
func New(cfg config.LoadConfig) *Loader {
	var ws *workspace.Manager
	if cfg.Workspace != "" {
		ws = workspace.NewPersistentManager(cfg.Workspace, "repo-clone")
	} else {
		ws = workspace.NewManager("")
	}
	return &Loader{cfg: cfg, ws: ws, log: slog.Default()}
}

// WithLogger replaces the default logger.
func (l *Loader) WithLogger(log *slog.Logger) *Loader {
	if log != nil {
		l.log = log
	}
	return l
}

// Run syncs srcDir into the configured repository and pushes the result.
func (l *Loader) Run(ctx context.Context, srcDir string) (*Result, error) {
	if err := l.ws.Create(); err != nil {
		return nil, errors.GitError("failed to create load workspace").WithCause(err).Build()
	}
	defer func() { _ = l.ws.Cleanup() }()

	repoPath := filepath.Join(l.ws.GetPath(), "repo")
	repo, err := l.cloneOrOpen(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	target := repoPath
	if l.cfg.Subdir != "" {
		target = filepath.Join(repoPath, l.cfg.Subdir)
	}
	if err := syncTree(srcDir, target); err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.GitError("failed to open worktree").WithCause(err).Build()
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, errors.GitError("failed to stage changes").WithCause(err).Build()
	}

	status, err := wt.Status()
	if err != nil {
		return nil, errors.GitError("failed to read worktree status").WithCause(err).Build()
	}
	if status.IsClean() {
		l.log.Info("no content changes, skipping commit", logfields.URL(l.cfg.URL))
		return &Result{RepoPath: repoPath}, nil
	}

	hash, err := wt.Commit(l.commitMessage(), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "confexport",
			Email: "confexport@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, errors.GitError("failed to commit changes").WithCause(err).Build()
	}

	if err := l.push(ctx, repo); err != nil {
		return nil, err
	}

	l.log.Info("pushed export",
		logfields.URL(l.cfg.URL),
		slog.String("commit", hash.String()[:8]))
	return &Result{CommitHash: hash.String(), Pushed: true, RepoPath: repoPath}, nil
}

func (l *Loader) cloneOrOpen(ctx context.Context, repoPath string) (*git.Repository, error) {
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err == nil {
		return l.openAndPull(ctx, repoPath)
	}

	if err := os.RemoveAll(repoPath); err != nil {
		return nil, errors.GitError("failed to clear clone directory").
			WithCause(err).WithContext("path", repoPath).Build()
	}

	opts := &git.CloneOptions{URL: l.cfg.URL}
	if l.cfg.Branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + l.cfg.Branch)
		opts.SingleBranch = true
	}
	auth, err := l.auth()
	if err != nil {
		return nil, err
	}
	opts.Auth = auth

	l.log.Debug("cloning repository", logfields.URL(l.cfg.URL), logfields.Path(repoPath))
	repo, err := git.PlainCloneContext(ctx, repoPath, false, opts)
	if err != nil {
		return nil, errors.GitError("failed to clone repository").
			WithCause(err).WithContext("url", l.cfg.URL).Build()
	}
	return repo, nil
}

func (l *Loader) openAndPull(ctx context.Context, repoPath string) (*git.Repository, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, errors.GitError("failed to open repository").
			WithCause(err).WithContext("path", repoPath).Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.GitError("failed to open worktree").WithCause(err).Build()
	}
	auth, err := l.auth()
	if err != nil {
		return nil, err
	}
	pullErr := wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin", Auth: auth})
	if pullErr != nil && pullErr != git.NoErrAlreadyUpToDate {
		return nil, errors.GitError("failed to pull repository").
			WithCause(pullErr).WithContext("path", repoPath).Build()
	}
	return repo, nil
}

func (l *Loader) push(ctx context.Context, repo *git.Repository) error {
	auth, err := l.auth()
	if err != nil {
		return err
	}
	pushErr := repo.PushContext(ctx, &git.PushOptions{RemoteName: "origin", Auth: auth})
	if pushErr != nil && pushErr != git.NoErrAlreadyUpToDate {
		return errors.GitError("failed to push repository").
			WithCause(pushErr).WithContext("url", l.cfg.URL).Build()
	}
	return nil
}

// auth maps the configured auth to a go-git transport method. Token auth
// uses "token" as the username, which most git hosts accept.
func (l *Loader) auth() (transport.AuthMethod, error) {
	a := l.cfg.Auth
	if a == nil {
		return nil, nil
	}
	switch a.Type {
	case "token":
		if a.Token == "" {
			return nil, errors.ConfigError("token authentication requires a token").Build()
		}
		username := a.Username
		if username == "" {
			username = "token"
		}
		return &githttp.BasicAuth{Username: username, Password: a.Token}, nil
	case "basic":
		if a.Username == "" || a.Password == "" {
			return nil, errors.ConfigError("basic authentication requires username and password").Build()
		}
		return &githttp.BasicAuth{Username: a.Username, Password: a.Password}, nil
	default:
		return nil, errors.ConfigError("unsupported git auth type").
			WithContext("type", a.Type).Build()
	}
}

func (l *Loader) commitMessage() string {
	msg := l.cfg.CommitMessage
	if msg == "" {
		msg = defaultCommitMessage
	}
	return strings.ReplaceAll(msg, "{date}", time.Now().Format("2006-01-02"))
}

// syncTree replaces dst's contents with a copy of src. Clearing first
// guarantees files removed upstream disappear from the repository too.
// The .git directory survives when the tree syncs into the repo root.
func syncTree(src, dst string) error {
	entries, err := os.ReadDir(dst)
	if err != nil && !os.IsNotExist(err) {
		return errors.FileSystemError("failed to read sync target").
			WithCause(err).WithContext("path", dst).Build()
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dst, entry.Name())); err != nil {
			return errors.FileSystemError("failed to clear sync target").
				WithCause(err).WithContext("path", dst).Build()
		}
	}
	return copyDir(src, dst)
}

func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.FileSystemError("failed to read source directory").
			WithCause(err).WithContext("path", src).Build()
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return errors.FileSystemError("failed to create target directory").
			WithCause(err).WithContext("path", dst).Build()
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.FileSystemError("failed to open source file").
			WithCause(err).WithContext("path", src).Build()
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return errors.FileSystemError("failed to create target file").
			WithCause(err).WithContext("path", dst).Build()
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return errors.FileSystemError("failed to copy file").
			WithCause(err).WithContext("path", dst).Build()
	}
	return out.Close()
}
