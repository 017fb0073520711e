package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/quire/pkg/adapters/fs"
	"github.com/aretw0/quire/pkg/adapters/remote"
	"github.com/aretw0/quire/pkg/adapters/sqlite"
	"github.com/aretw0/quire/pkg/core"
)

// Init builds and initializes the repository selected by the options.
// The uri is adapter specific: a directory for fs, a database file for
// sqlite, a ws:// URL for remote.
func Init(ctx context.Context, uri string, opts ...Option) (core.Repository, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.repository != nil {
		return o.repository, nil
	}

	var (
		repo core.Repository
		err  error
	)
	switch o.adapter {
	case AdapterFS:
		repo = initFS(uri, o)
	case AdapterSQLite:
		repo, err = sqlite.Open(uri, sqlite.WithLogger(o.logger))
	case AdapterRemote:
		if !strings.HasPrefix(uri, "ws://") && !strings.HasPrefix(uri, "wss://") {
			return nil, fmt.Errorf("remote adapter needs a ws:// or wss:// url, got %q", uri)
		}
		repo, err = remote.Dial(ctx, uri, remote.WithLogger(o.logger))
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if err := repo.Initialize(ctx); err != nil {
		_ = Close(repo)
		return nil, err
	}
	return repo, nil
}

// Close releases repositories that hold a connection.
func Close(repo core.Repository) error {
	switch r := repo.(type) {
	case *sqlite.Repository:
		return r.Close()
	case *remote.Client:
		return r.Close()
	}
	return nil
}

func initFS(path string, o *options) *fs.Repository {
	bypass := o.readOnly || !o.devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypass)
	resolved := ResolveVaultPath(path, useTemp)

	if o.logger != nil && useTemp && resolved != path {
		o.logger.Warn("running in sandbox mode", "original_path", path, "resolved_path", resolved)
	}

	var serializers map[string]fs.Serializer
	if len(o.serializers) > 0 {
		serializers = fs.DefaultSerializers()
		for ext, s := range o.serializers {
			serializers[ext] = s
		}
	}

	return fs.NewRepository(fs.Config{
		Path:         resolved,
		Format:       o.format,
		AutoInit:     o.autoInit,
		MustExist:    o.mustExist || (!o.autoInit && !useTemp),
		ReadOnly:     o.readOnly,
		Versioning:   o.versioning,
		SystemDir:    o.systemDir,
		Logger:       o.logger,
		ErrorHandler: o.onError,
		Serializers:  serializers,
	})
}
