package platform

import (
	"log/slog"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/core"
)

// Adapter names.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterRemote = "remote"
)

// options holds the configuration of the repository factory.
type options struct {
	repository  core.Repository
	logger      *slog.Logger
	adapter     string
	autoInit    bool
	versioning  bool
	readOnly    bool
	mustExist   bool
	forceTemp   bool
	devSafety   bool
	systemDir   string
	format      string
	serializers map[string]fs.Serializer
	onError     func(error)
}

// Option configures the factory.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter:     AdapterFS,
		devSafety:   true,
		serializers: make(map[string]fs.Serializer),
	}
}

// WithRepository injects a ready repository; the adapter is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) { o.repository = repo }
}

// WithAdapter selects the storage adapter by name. Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) { o.adapter = name }
}

// WithLogger sets the logger handed to the adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAutoInit creates the vault directory when missing (and runs git
// init when versioning).
func WithAutoInit(auto bool) Option {
	return func(o *options) { o.autoInit = auto }
}

// WithVersioning commits every save to git (fs only).
func WithVersioning(enabled bool) Option {
	return func(o *options) { o.versioning = enabled }
}

// WithReadOnly rejects writes with core.ErrReadOnly and bypasses the dev sandbox.
func WithReadOnly(enabled bool) Option {
	return func(o *options) { o.readOnly = enabled }
}

// WithMustExist fails when the vault directory is missing.
func WithMustExist(must bool) Option {
	return func(o *options) { o.mustExist = must }
}

// WithForceTemp redirects the vault into the temporary sandbox.
func WithForceTemp(force bool) Option {
	return func(o *options) { o.forceTemp = force }
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
// It is on by default.
func WithDevSafety(enabled bool) Option {
	return func(o *options) { o.devSafety = enabled }
}

// WithSystemDir names the hidden directory of an fs vault.
func WithSystemDir(name string) Option {
	return func(o *options) { o.systemDir = name }
}

// WithFormat sets the file extension used for new notes (fs only).
func WithFormat(ext string) Option {
	return func(o *options) { o.format = ext }
}

// WithSerializer registers a serializer for an extension (fs only).
func WithSerializer(ext string, s fs.Serializer) Option {
	return func(o *options) { o.serializers[ext] = s }
}

// WithWatcherErrorHandler receives runtime errors of the fs watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}
