package middleware

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"

	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/task"
)

var _ coordinator.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     coordinator.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc coordinator.Service) coordinator.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "create-task").Add(1)
		mm.latency.With("method", "create-task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.CreateTask(ctx, t)
}

func (mm *metricsMiddleware) GetTask(ctx context.Context, taskID string) (task.Task, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-task").Add(1)
		mm.latency.With("method", "get-task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetTask(ctx, taskID)
}

func (mm *metricsMiddleware) ListTasks(ctx context.Context, offset, limit uint64) (task.TaskPage, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-tasks").Add(1)
		mm.latency.With("method", "list-tasks").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListTasks(ctx, offset, limit)
}

func (mm *metricsMiddleware) ClaimTask(ctx context.Context, taskID string) (task.Task, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "claim-task").Add(1)
		mm.latency.With("method", "claim-task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ClaimTask(ctx, taskID)
}

func (mm *metricsMiddleware) ReleaseTask(ctx context.Context, taskID string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "release-task").Add(1)
		mm.latency.With("method", "release-task").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ReleaseTask(ctx, taskID)
}

func (mm *metricsMiddleware) ComputeGradients(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "compute-gradients").Add(1)
		mm.latency.With("method", "compute-gradients").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ComputeGradients(ctx, taskID)
}

func (mm *metricsMiddleware) SubmitResult(ctx context.Context, result gradient.ComputeResult) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "submit-result").Add(1)
		mm.latency.With("method", "submit-result").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.SubmitResult(ctx, result)
}

func (mm *metricsMiddleware) GetResult(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-result").Add(1)
		mm.latency.With("method", "get-result").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetResult(ctx, taskID)
}

func (mm *metricsMiddleware) VerifyResult(ctx context.Context, result gradient.ComputeResult) (bool, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "verify-result").Add(1)
		mm.latency.With("method", "verify-result").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.VerifyResult(ctx, result)
}

func (mm *metricsMiddleware) RegisterModel(ctx context.Context, cfg model.Config) (model.Config, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "register-model").Add(1)
		mm.latency.With("method", "register-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.RegisterModel(ctx, cfg)
}

func (mm *metricsMiddleware) GetModel(ctx context.Context, modelID string) (model.Config, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "get-model").Add(1)
		mm.latency.With("method", "get-model").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.GetModel(ctx, modelID)
}

func (mm *metricsMiddleware) ListModels(ctx context.Context) ([]string, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list-models").Add(1)
		mm.latency.With("method", "list-models").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ListModels(ctx)
}

func (mm *metricsMiddleware) Infer(ctx context.Context, modelID string, inputs [][]float64) (coordinator.Inference, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "infer").Add(1)
		mm.latency.With("method", "infer").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Infer(ctx, modelID, inputs)
}

func (mm *metricsMiddleware) Health(ctx context.Context) (coordinator.Health, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "health").Add(1)
		mm.latency.With("method", "health").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Health(ctx)
}
