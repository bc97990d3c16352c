// Package coordinator exposes the PoUW service boundary: task
// publication and claiming, server-side gradient computation, result
// submission and verification, and model management.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ccoin-network/pouw/compute"
	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/pkg/errors"
	"github.com/ccoin-network/pouw/pkg/mqtt"
	"github.com/ccoin-network/pouw/pkg/storage"
	"github.com/ccoin-network/pouw/queue"
	"github.com/ccoin-network/pouw/task"
)

const (
	defLimit = 100

	eventTopicTemplate = "channels/%s/messages/pouw/tasks/%s"
)

// Inference is the outcome of one forward pass over a registered
// model.
type Inference struct {
	ModelID     string    `json:"model_id"`
	Predictions []float64 `json:"predictions"`
	LatencyMS   float64   `json:"latency_ms"`
}

// Health is the coordinator status snapshot.
type Health struct {
	Status       string      `json:"status"`
	ModelsLoaded int         `json:"models_loaded"`
	Queue        queue.Stats `json:"queue"`
}

type Service interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, taskID string) (task.Task, error)
	ListTasks(ctx context.Context, offset, limit uint64) (task.TaskPage, error)
	ClaimTask(ctx context.Context, taskID string) (task.Task, error)
	ReleaseTask(ctx context.Context, taskID string) error
	ComputeGradients(ctx context.Context, taskID string) (gradient.ComputeResult, error)
	SubmitResult(ctx context.Context, result gradient.ComputeResult) error
	GetResult(ctx context.Context, taskID string) (gradient.ComputeResult, error)
	VerifyResult(ctx context.Context, result gradient.ComputeResult) (bool, error)
	RegisterModel(ctx context.Context, cfg model.Config) (model.Config, error)
	GetModel(ctx context.Context, modelID string) (model.Config, error)
	ListModels(ctx context.Context) ([]string, error)
	Infer(ctx context.Context, modelID string, inputs [][]float64) (Inference, error)
	Health(ctx context.Context) (Health, error)
}

type service struct {
	tasks     *queue.Queue
	registry  model.Registry
	provider  dataset.Provider
	computer  *compute.Computer
	resultsDB storage.Storage
	publisher mqtt.PubSub
	channelID string
	logger    *slog.Logger

	// prevLoss is the coordinator's observed loss trajectory. The
	// mutex also serializes server-side computations, since executors
	// are single-task-at-a-time.
	mu       sync.Mutex
	prevLoss float64
}

func NewService(tasks *queue.Queue, registry model.Registry, provider dataset.Provider, computer *compute.Computer, resultsDB storage.Storage, publisher mqtt.PubSub, channelID string, logger *slog.Logger) Service {
	return &service{
		tasks:     tasks,
		registry:  registry,
		provider:  provider,
		computer:  computer,
		resultsDB: resultsDB,
		publisher: publisher,
		channelID: channelID,
		logger:    logger,
	}
}

func (svc *service) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now()
	t.State = task.Pending

	if err := svc.tasks.Add(ctx, t); err != nil {
		return task.Task{}, err
	}

	svc.publish(ctx, "created", t)

	return t, nil
}

func (svc *service) GetTask(ctx context.Context, taskID string) (task.Task, error) {
	return svc.tasks.Get(ctx, taskID)
}

func (svc *service) ListTasks(ctx context.Context, offset, limit uint64) (task.TaskPage, error) {
	if limit == 0 {
		limit = defLimit
	}

	pending := svc.tasks.FetchPending(ctx)
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].ID < pending[j].ID
		}

		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	total := uint64(len(pending))

	if offset >= total {
		return task.TaskPage{Offset: offset, Limit: limit, Total: total}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return task.TaskPage{
		Offset: offset,
		Limit:  limit,
		Total:  total,
		Tasks:  pending[offset:end],
	}, nil
}

func (svc *service) ClaimTask(ctx context.Context, taskID string) (task.Task, error) {
	t, err := svc.tasks.Claim(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}

	svc.publish(ctx, "claimed", t)

	return t, nil
}

func (svc *service) ReleaseTask(ctx context.Context, taskID string) error {
	if err := svc.tasks.Release(ctx, taskID); err != nil {
		return err
	}

	svc.publish(ctx, "released", map[string]any{"task_id": taskID})

	return nil
}

func (svc *service) ComputeGradients(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	t, err := svc.tasks.Get(ctx, taskID)
	if err != nil {
		return gradient.ComputeResult{}, err
	}
	if t.State != task.Claimed {
		return gradient.ComputeResult{}, errors.ErrInvalidState
	}

	ds, err := svc.provider.Load(ctx, t.DatasetRef)
	if err != nil {
		return gradient.ComputeResult{}, err
	}
	batch, err := ds.Slice(t.BatchStart, t.BatchEnd)
	if err != nil {
		return gradient.ComputeResult{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	result, err := svc.computer.Compute(ctx, t, batch, svc.prevLoss)
	if err != nil {
		return gradient.ComputeResult{}, err
	}
	svc.prevLoss = result.Loss

	return result, nil
}

func (svc *service) SubmitResult(ctx context.Context, result gradient.ComputeResult) error {
	if err := svc.tasks.Submit(ctx, result); err != nil {
		return err
	}

	if err := svc.resultsDB.Create(ctx, result.TaskID, result); err != nil {
		return err
	}

	svc.publish(ctx, "submitted", map[string]any{
		"task_id":       result.TaskID,
		"gradient_hash": result.GradientHash,
		"quality_score": result.QualityScore,
	})

	return nil
}

func (svc *service) GetResult(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	data, err := svc.resultsDB.Get(ctx, taskID)
	if err != nil {
		return gradient.ComputeResult{}, err
	}
	result, ok := data.(gradient.ComputeResult)
	if !ok {
		return gradient.ComputeResult{}, errors.ErrInvalidData
	}

	return result, nil
}

func (svc *service) VerifyResult(ctx context.Context, result gradient.ComputeResult) (bool, error) {
	t, err := svc.tasks.Get(ctx, result.TaskID)
	if err != nil {
		return false, err
	}

	return svc.computer.VerifyResult(result, t), nil
}

func (svc *service) RegisterModel(ctx context.Context, cfg model.Config) (model.Config, error) {
	exec, err := model.NewExecutor(cfg)
	if err != nil {
		return model.Config{}, err
	}

	if err := svc.registry.Register(ctx, cfg, exec); err != nil {
		return model.Config{}, err
	}

	return cfg, nil
}

func (svc *service) GetModel(ctx context.Context, modelID string) (model.Config, error) {
	return svc.registry.GetConfig(ctx, modelID)
}

func (svc *service) ListModels(ctx context.Context) ([]string, error) {
	return svc.registry.List(ctx)
}

func (svc *service) Infer(ctx context.Context, modelID string, inputs [][]float64) (Inference, error) {
	if len(inputs) == 0 {
		return Inference{}, errors.ErrInvalidRange
	}

	exec, err := svc.registry.Load(ctx, modelID)
	if err != nil {
		return Inference{}, err
	}
	cfg, err := svc.registry.GetConfig(ctx, modelID)
	if err != nil {
		return Inference{}, err
	}
	for _, row := range inputs {
		if len(row) != cfg.InputShape[0] {
			return Inference{}, fmt.Errorf("input width %d does not match model input shape %d: %w", len(row), cfg.InputShape[0], errors.ErrInvalidRange)
		}
	}

	start := time.Now()

	svc.mu.Lock()
	outputs := exec.Forward(inputs)
	svc.mu.Unlock()

	predictions := make([]float64, len(outputs))
	for i, row := range outputs {
		if cfg.TaskType == model.Classification {
			predictions[i] = float64(argmax(row))

			continue
		}
		predictions[i] = row[0]
	}

	return Inference{
		ModelID:     modelID,
		Predictions: predictions,
		LatencyMS:   float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}

func (svc *service) Health(ctx context.Context) (Health, error) {
	models, err := svc.registry.List(ctx)
	if err != nil {
		return Health{}, err
	}

	return Health{
		Status:       "healthy",
		ModelsLoaded: len(models),
		Queue:        svc.tasks.Stats(),
	}, nil
}

// publish sends a task lifecycle event; it is a no-op when the
// coordinator runs without a broker. Events are observability, not
// part of the task state machine: a failed publish is logged and never
// fails the mutation that produced it.
func (svc *service) publish(ctx context.Context, event string, payload any) {
	if svc.publisher == nil {
		return
	}

	topic := fmt.Sprintf(eventTopicTemplate, svc.channelID, event)
	if err := svc.publisher.Publish(ctx, topic, payload); err != nil {
		svc.logger.Warn("failed to publish lifecycle event", slog.String("topic", topic), slog.Any("error", err))
	}
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}

	return best
}
