package model

import (
	"context"

	"github.com/ccoin-network/pouw/pkg/errors"
	"github.com/ccoin-network/pouw/pkg/storage"
)

// Registry resolves model ids to executors and their configurations.
type Registry interface {
	Register(ctx context.Context, cfg Config, exec Executor) error
	Load(ctx context.Context, modelID string) (Executor, error)
	GetConfig(ctx context.Context, modelID string) (Config, error)
	List(ctx context.Context) ([]string, error)
}

type registry struct {
	execs   storage.Storage
	configs storage.Storage
}

func NewRegistry(execs, configs storage.Storage) Registry {
	return &registry{
		execs:   execs,
		configs: configs,
	}
}

func (r *registry) Register(ctx context.Context, cfg Config, exec Executor) error {
	if err := r.configs.Create(ctx, cfg.ModelID, cfg); err != nil {
		return err
	}

	return r.execs.Create(ctx, cfg.ModelID, exec)
}

func (r *registry) Load(ctx context.Context, modelID string) (Executor, error) {
	data, err := r.execs.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}
	exec, ok := data.(Executor)
	if !ok {
		return nil, errors.ErrInvalidData
	}

	return exec, nil
}

func (r *registry) GetConfig(ctx context.Context, modelID string) (Config, error) {
	data, err := r.configs.Get(ctx, modelID)
	if err != nil {
		return Config{}, err
	}
	cfg, ok := data.(Config)
	if !ok {
		return Config{}, errors.ErrInvalidData
	}

	return cfg, nil
}

func (r *registry) List(ctx context.Context) ([]string, error) {
	data, _, err := r.configs.List(ctx, 0, maxModels)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(data))
	for _, entry := range data {
		cfg, ok := entry.(Config)
		if !ok {
			return nil, errors.ErrInvalidData
		}
		ids = append(ids, cfg.ModelID)
	}

	return ids, nil
}

const maxModels = 1000
