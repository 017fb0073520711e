// Package git versions a notes directory by shelling out to the git binary.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrLockTimeout is returned when the repository lock stays held too long.
var ErrLockTimeout = errors.New("timed out waiting for repository lock")

// DefaultLockFile is created in the working directory while a writer holds the lock.
const DefaultLockFile = ".quire.lock"

// Client wraps git command execution with a file-based lock for process safety.
type Client struct {
	WorkDir     string
	logger      *slog.Logger
	lockPath    string
	lockTimeout time.Duration
	authorName  string
	authorEmail string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLockFile overrides the lock file name.
func WithLockFile(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.lockPath = name
		}
	}
}

// WithLockTimeout bounds how long Lock waits.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.lockTimeout = d
		}
	}
}

// WithAuthor sets the identity used for commits.
func WithAuthor(name, email string) Option {
	return func(c *Client) {
		c.authorName, c.authorEmail = name, email
	}
}

// NewClient creates a new git client for the given working directory.
func NewClient(workDir string, opts ...Option) *Client {
	c := &Client{
		WorkDir:     workDir,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		lockPath:    DefaultLockFile,
		lockTimeout: 10 * time.Second,
		authorName:  "Quire",
		authorEmail: "quire@localhost",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Installed reports whether a git binary is on the PATH.
func Installed() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Lock acquires the file-based lock, retrying until ctx is done or the
// lock timeout passes. The returned function releases it.
func (c *Client) Lock(ctx context.Context) (func(), error) {
	full := filepath.Join(c.WorkDir, c.lockPath)
	deadline := time.Now().Add(c.lockTimeout)

	for {
		f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() { os.Remove(full) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, full)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Run executes a raw git command in the working directory.
// It does not take the lock; writers call Lock first.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	c.logger.Debug("executing git", "args", args, "dir", c.WorkDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}
	return strings.TrimSpace(output), nil
}

// IsRepo reports whether the working directory is inside a work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	out, err := c.Run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Init initializes a repository; re-running it is harmless.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// Add stages files.
func (c *Client) Add(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	_, err := c.Run(ctx, append([]string{"add", "--"}, files...)...)
	return err
}

// Rm removes files from the working tree and the index.
func (c *Client) Rm(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	_, err := c.Run(ctx, append([]string{"rm", "-f", "--ignore-unmatch", "--"}, files...)...)
	return err
}

// Staged reports whether the index differs from HEAD.
func (c *Client) Staged(ctx context.Context) (bool, error) {
	out, err := c.Run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// Commit records the staged changes. It is a no-op when nothing is staged.
func (c *Client) Commit(ctx context.Context, msg string) error {
	staged, err := c.Staged(ctx)
	if err != nil || !staged {
		return err
	}
	_, err = c.Run(ctx,
		"-c", "user.name="+c.authorName,
		"-c", "user.email="+c.authorEmail,
		"commit", "--no-verify", "-m", msg)
	return err
}

// Commit is one entry of a file's history.
type Commit struct {
	Hash    string
	Subject string
	Time    time.Time
}

// Log lists the commits touching file, newest first. limit <= 0 means all.
func (c *Client) Log(ctx context.Context, file string, limit int) ([]Commit, error) {
	args := []string{"log", "--format=%H%x1f%s%x1f%ct"}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}
	out, err := c.Run(ctx, append(args, "--", file)...)
	if err != nil {
		return nil, err
	}
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\x1f")
		if len(parts) != 3 {
			continue
		}
		sec, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}
		commits = append(commits, Commit{Hash: parts[0], Subject: parts[1], Time: time.Unix(sec, 0)})
	}
	return commits, nil
}
