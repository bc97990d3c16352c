package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/task"
)

var _ coordinator.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    coordinator.Service
}

func Tracing(tracer trace.Tracer, svc coordinator.Service) coordinator.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	ctx, span := tm.tracer.Start(ctx, "create-task", trace.WithAttributes(
		attribute.String("model_id", t.ModelID),
		attribute.String("dataset_ref", t.DatasetRef),
	))
	defer span.End()

	return tm.svc.CreateTask(ctx, t)
}

func (tm *tracing) GetTask(ctx context.Context, taskID string) (task.Task, error) {
	ctx, span := tm.tracer.Start(ctx, "get-task", trace.WithAttributes(
		attribute.String("id", taskID),
	))
	defer span.End()

	return tm.svc.GetTask(ctx, taskID)
}

func (tm *tracing) ListTasks(ctx context.Context, offset, limit uint64) (task.TaskPage, error) {
	ctx, span := tm.tracer.Start(ctx, "list-tasks", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	defer span.End()

	return tm.svc.ListTasks(ctx, offset, limit)
}

func (tm *tracing) ClaimTask(ctx context.Context, taskID string) (task.Task, error) {
	ctx, span := tm.tracer.Start(ctx, "claim-task", trace.WithAttributes(
		attribute.String("id", taskID),
	))
	defer span.End()

	return tm.svc.ClaimTask(ctx, taskID)
}

func (tm *tracing) ReleaseTask(ctx context.Context, taskID string) error {
	ctx, span := tm.tracer.Start(ctx, "release-task", trace.WithAttributes(
		attribute.String("id", taskID),
	))
	defer span.End()

	return tm.svc.ReleaseTask(ctx, taskID)
}

func (tm *tracing) ComputeGradients(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	ctx, span := tm.tracer.Start(ctx, "compute-gradients", trace.WithAttributes(
		attribute.String("id", taskID),
	))
	defer span.End()

	return tm.svc.ComputeGradients(ctx, taskID)
}

func (tm *tracing) SubmitResult(ctx context.Context, result gradient.ComputeResult) error {
	ctx, span := tm.tracer.Start(ctx, "submit-result", trace.WithAttributes(
		attribute.String("task_id", result.TaskID),
		attribute.String("gradient_hash", result.GradientHash),
	))
	defer span.End()

	return tm.svc.SubmitResult(ctx, result)
}

func (tm *tracing) GetResult(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	ctx, span := tm.tracer.Start(ctx, "get-result", trace.WithAttributes(
		attribute.String("task_id", taskID),
	))
	defer span.End()

	return tm.svc.GetResult(ctx, taskID)
}

func (tm *tracing) VerifyResult(ctx context.Context, result gradient.ComputeResult) (bool, error) {
	ctx, span := tm.tracer.Start(ctx, "verify-result", trace.WithAttributes(
		attribute.String("task_id", result.TaskID),
	))
	defer span.End()

	return tm.svc.VerifyResult(ctx, result)
}

func (tm *tracing) RegisterModel(ctx context.Context, cfg model.Config) (model.Config, error) {
	ctx, span := tm.tracer.Start(ctx, "register-model", trace.WithAttributes(
		attribute.String("model_id", cfg.ModelID),
		attribute.String("architecture", cfg.Architecture),
	))
	defer span.End()

	return tm.svc.RegisterModel(ctx, cfg)
}

func (tm *tracing) GetModel(ctx context.Context, modelID string) (model.Config, error) {
	ctx, span := tm.tracer.Start(ctx, "get-model", trace.WithAttributes(
		attribute.String("model_id", modelID),
	))
	defer span.End()

	return tm.svc.GetModel(ctx, modelID)
}

func (tm *tracing) ListModels(ctx context.Context) ([]string, error) {
	ctx, span := tm.tracer.Start(ctx, "list-models")
	defer span.End()

	return tm.svc.ListModels(ctx)
}

func (tm *tracing) Infer(ctx context.Context, modelID string, inputs [][]float64) (coordinator.Inference, error) {
	ctx, span := tm.tracer.Start(ctx, "infer", trace.WithAttributes(
		attribute.String("model_id", modelID),
		attribute.Int("batch_size", len(inputs)),
	))
	defer span.End()

	return tm.svc.Infer(ctx, modelID, inputs)
}

func (tm *tracing) Health(ctx context.Context) (coordinator.Health, error) {
	ctx, span := tm.tracer.Start(ctx, "health")
	defer span.End()

	return tm.svc.Health(ctx)
}
