package platform

import (
	"context"

	"github.com/aretw0/quire/pkg/core"
)

// New builds the repository and wraps it in a core.Service.
func New(ctx context.Context, uri string, opts ...Option) (*core.Service, error) {
	repo, err := Init(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}
	return core.NewService(repo), nil
}
