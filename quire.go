package quire

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/quire/internal/platform"
	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/core"
	"github.com/aretw0/quire/pkg/sidebar"
	"github.com/aretw0/quire/pkg/workspace"
)

// --- Types ---

// Note is a titled document made of blocks.
type Note = core.Note

// Block is one structural unit of a note.
type Block = core.Block

// Workspace holds the open notes and their edit sessions.
type Workspace = workspace.Workspace

// Session is the edit state of one open note.
type Session = workspace.Session

// --- Repository configuration ---

// Option configures the repository factory.
type Option = platform.Option

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterRemote = platform.AdapterRemote
)

// WithAdapter selects the storage adapter by name ("fs", "sqlite", "remote").
func WithAdapter(name string) Option { return platform.WithAdapter(name) }

// WithAutoInit creates the vault when missing.
func WithAutoInit(auto bool) Option { return platform.WithAutoInit(auto) }

// WithVersioning commits every save to git (fs only).
func WithVersioning(enabled bool) Option { return platform.WithVersioning(enabled) }

// WithReadOnly rejects writes with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option { return platform.WithReadOnly(enabled) }

// WithMustExist fails when the vault directory is missing.
func WithMustExist(must bool) Option { return platform.WithMustExist(must) }

// WithForceTemp redirects the vault into the temporary sandbox.
func WithForceTemp(force bool) Option { return platform.WithForceTemp(force) }

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option { return platform.WithDevSafety(enabled) }

// WithSystemDir names the hidden directory of an fs vault.
func WithSystemDir(name string) Option { return platform.WithSystemDir(name) }

// WithFormat sets the file extension used for new notes (fs only).
func WithFormat(ext string) Option { return platform.WithFormat(ext) }

// WithSerializer registers a serializer for an extension (fs only).
func WithSerializer(ext string, s fs.Serializer) Option { return platform.WithSerializer(ext, s) }

// WithLogger sets the logger of the repository.
func WithLogger(logger *slog.Logger) Option { return platform.WithLogger(logger) }

// WithRepository injects a custom repository.
func WithRepository(repo core.Repository) Option { return platform.WithRepository(repo) }

// --- Factory ---

// Init builds and initializes a repository.
func Init(ctx context.Context, uri string, opts ...Option) (core.Repository, error) {
	return platform.Init(ctx, uri, opts...)
}

// New builds a repository and wraps it in a core.Service.
func New(ctx context.Context, uri string, opts ...Option) (*core.Service, error) {
	return platform.New(ctx, uri, opts...)
}

// Close releases repositories that hold a connection.
func Close(repo core.Repository) error {
	return platform.Close(repo)
}

// WorkspaceConfig tunes the workspace built by Open.
type WorkspaceConfig struct {
	Images    core.ImageStore
	SyncDelay time.Duration
	Columns   int
	Logger    *slog.Logger
}

// Open builds the repository, loads every note into a new workspace and
// returns it. The caller runs it with Workspace.Start.
func Open(ctx context.Context, uri string, cfg WorkspaceConfig, opts ...Option) (*Workspace, error) {
	svc, err := New(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}

	wsOpts := []workspace.Option{workspace.WithLogger(cfg.Logger)}
	if cfg.Images != nil {
		wsOpts = append(wsOpts, workspace.WithImageStore(cfg.Images))
	}
	if cfg.SyncDelay > 0 {
		wsOpts = append(wsOpts, workspace.WithSyncDelay(cfg.SyncDelay))
	}
	if cfg.Columns > 0 {
		wsOpts = append(wsOpts, workspace.WithColumns(cfg.Columns))
	}
	if orders, ok := svc.Repository().(sidebar.OrderStore); ok {
		wsOpts = append(wsOpts, workspace.WithOrderStore(orders))
	}

	ws := workspace.New(svc, wsOpts...)
	if err := ws.Load(ctx); err != nil {
		_ = Close(svc.Repository())
		return nil, err
	}
	return ws, nil
}

// --- Utils ---

// FindVaultRoot walks up from startDir to the nearest vault directory.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// IsDevRun reports whether the process runs via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}
