// Package worker implements a PoUW worker: it polls the coordinator
// for claimable tasks, claims them, computes gradients locally and
// submits verifiable results.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0x6flab/namegenerator"

	"github.com/ccoin-network/pouw/compute"
	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/pkg/storage"
	"github.com/ccoin-network/pouw/task"
)

const defListLimit = 100

var namegen = namegenerator.NewGenerator()

// Coordinator is the slice of the coordinator API a worker needs. It
// is satisfied by both the in-process service and the HTTP SDK.
type Coordinator interface {
	ListTasks(ctx context.Context, offset, limit uint64) (task.TaskPage, error)
	ClaimTask(ctx context.Context, taskID string) (task.Task, error)
	ReleaseTask(ctx context.Context, taskID string) error
	SubmitResult(ctx context.Context, result gradient.ComputeResult) error
	GetModel(ctx context.Context, modelID string) (model.Config, error)
}

// Worker claims tasks and computes their gradients with a local model
// registry. Model weights are derived deterministically from the model
// id, so a worker rebuilt from the coordinator's config produces the
// same gradients the coordinator would.
type Worker struct {
	Name string

	coordinator Coordinator
	registry    model.Registry
	provider    dataset.Provider
	computer    *compute.Computer
	logger      *slog.Logger
	interval    time.Duration

	// prevLoss tracks the last observed loss per model id.
	mu       sync.Mutex
	prevLoss map[string]float64
}

func New(coordinator Coordinator, provider dataset.Provider, interval time.Duration, logger *slog.Logger) *Worker {
	registry := model.NewRegistry(storage.NewInMemoryStorage(), storage.NewInMemoryStorage())

	return &Worker{
		Name:        namegen.Generate(),
		coordinator: coordinator,
		registry:    registry,
		provider:    provider,
		computer:    compute.New(registry),
		logger:      logger,
		interval:    interval,
		prevLoss:    make(map[string]float64),
	}
}

// Run polls the coordinator until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("worker started", slog.String("name", w.Name), slog.String("interval", w.interval.String()))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", slog.String("name", w.Name))

			return ctx.Err()
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.logger.Warn("poll cycle failed", slog.String("name", w.Name), slog.Any("error", err))
			}
		}
	}
}

// runOnce claims and processes every task it can win in one listing.
// Claim races lost to other workers are skipped silently.
func (w *Worker) runOnce(ctx context.Context) error {
	page, err := w.coordinator.ListTasks(ctx, 0, defListLimit)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	for _, t := range page.Tasks {
		claimed, err := w.coordinator.ClaimTask(ctx, t.ID)
		if err != nil {
			continue
		}

		if err := w.process(ctx, claimed); err != nil {
			w.logger.Warn("task failed",
				slog.String("name", w.Name),
				slog.String("task_id", claimed.ID),
				slog.Any("error", err),
			)
			if err := w.coordinator.ReleaseTask(ctx, claimed.ID); err != nil {
				w.logger.Warn("release failed", slog.String("task_id", claimed.ID), slog.Any("error", err))
			}

			continue
		}

		w.logger.Info("task completed", slog.String("name", w.Name), slog.String("task_id", claimed.ID))
	}

	return nil
}

func (w *Worker) process(ctx context.Context, t task.Task) error {
	if err := w.ensureModel(ctx, t.ModelID); err != nil {
		return err
	}

	ds, err := w.provider.Load(ctx, t.DatasetRef)
	if err != nil {
		return fmt.Errorf("load dataset %q: %w", t.DatasetRef, err)
	}
	batch, err := ds.Slice(t.BatchStart, t.BatchEnd)
	if err != nil {
		return err
	}

	w.mu.Lock()
	prevLoss := w.prevLoss[t.ModelID]
	w.mu.Unlock()

	result, err := w.computer.Compute(ctx, t, batch, prevLoss)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.prevLoss[t.ModelID] = result.Loss
	w.mu.Unlock()

	return w.coordinator.SubmitResult(ctx, result)
}

// ensureModel lazily mirrors a coordinator model into the local
// registry.
func (w *Worker) ensureModel(ctx context.Context, modelID string) error {
	if _, err := w.registry.GetConfig(ctx, modelID); err == nil {
		return nil
	}

	cfg, err := w.coordinator.GetModel(ctx, modelID)
	if err != nil {
		return fmt.Errorf("fetch model %q: %w", modelID, err)
	}

	exec, err := model.NewExecutor(cfg)
	if err != nil {
		return err
	}

	return w.registry.Register(ctx, cfg, exec)
}
