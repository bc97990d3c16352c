package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/task"
)

var _ coordinator.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    coordinator.Service
}

func Logging(logger *slog.Logger, svc coordinator.Service) coordinator.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) CreateTask(ctx context.Context, t task.Task) (resp task.Task, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("task",
				slog.String("id", resp.ID),
				slog.String("model_id", t.ModelID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Create task failed", args...)

			return
		}
		lm.logger.Info("Create task completed successfully", args...)
	}(time.Now())

	return lm.svc.CreateTask(ctx, t)
}

func (lm *loggingMiddleware) GetTask(ctx context.Context, taskID string) (resp task.Task, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("task",
				slog.String("id", taskID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get task failed", args...)

			return
		}
		lm.logger.Info("Get task completed successfully", args...)
	}(time.Now())

	return lm.svc.GetTask(ctx, taskID)
}

func (lm *loggingMiddleware) ListTasks(ctx context.Context, offset, limit uint64) (resp task.TaskPage, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Uint64("offset", offset),
			slog.Uint64("limit", limit),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List tasks failed", args...)

			return
		}
		lm.logger.Info("List tasks completed successfully", args...)
	}(time.Now())

	return lm.svc.ListTasks(ctx, offset, limit)
}

func (lm *loggingMiddleware) ClaimTask(ctx context.Context, taskID string) (resp task.Task, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("task",
				slog.String("id", taskID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Claim task failed", args...)

			return
		}
		lm.logger.Info("Claim task completed successfully", args...)
	}(time.Now())

	return lm.svc.ClaimTask(ctx, taskID)
}

func (lm *loggingMiddleware) ReleaseTask(ctx context.Context, taskID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("task",
				slog.String("id", taskID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Release task failed", args...)

			return
		}
		lm.logger.Info("Release task completed successfully", args...)
	}(time.Now())

	return lm.svc.ReleaseTask(ctx, taskID)
}

func (lm *loggingMiddleware) ComputeGradients(ctx context.Context, taskID string) (resp gradient.ComputeResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("task",
				slog.String("id", taskID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Compute gradients failed", args...)

			return
		}
		args = append(args,
			slog.Float64("quality_score", resp.QualityScore),
			slog.Float64("loss", resp.Loss),
		)
		lm.logger.Info("Compute gradients completed successfully", args...)
	}(time.Now())

	return lm.svc.ComputeGradients(ctx, taskID)
}

func (lm *loggingMiddleware) SubmitResult(ctx context.Context, result gradient.ComputeResult) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("result",
				slog.String("task_id", result.TaskID),
				slog.String("gradient_hash", result.GradientHash),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Submit result failed", args...)

			return
		}
		lm.logger.Info("Submit result completed successfully", args...)
	}(time.Now())

	return lm.svc.SubmitResult(ctx, result)
}

func (lm *loggingMiddleware) GetResult(ctx context.Context, taskID string) (resp gradient.ComputeResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("task",
				slog.String("id", taskID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get result failed", args...)

			return
		}
		lm.logger.Info("Get result completed successfully", args...)
	}(time.Now())

	return lm.svc.GetResult(ctx, taskID)
}

func (lm *loggingMiddleware) VerifyResult(ctx context.Context, result gradient.ComputeResult) (valid bool, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("result",
				slog.String("task_id", result.TaskID),
			),
			slog.Bool("valid", valid),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Verify result failed", args...)

			return
		}
		lm.logger.Info("Verify result completed successfully", args...)
	}(time.Now())

	return lm.svc.VerifyResult(ctx, result)
}

func (lm *loggingMiddleware) RegisterModel(ctx context.Context, cfg model.Config) (resp model.Config, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.String("id", cfg.ModelID),
				slog.String("architecture", cfg.Architecture),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Register model failed", args...)

			return
		}
		lm.logger.Info("Register model completed successfully", args...)
	}(time.Now())

	return lm.svc.RegisterModel(ctx, cfg)
}

func (lm *loggingMiddleware) GetModel(ctx context.Context, modelID string) (resp model.Config, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.String("id", modelID),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get model failed", args...)

			return
		}
		lm.logger.Info("Get model completed successfully", args...)
	}(time.Now())

	return lm.svc.GetModel(ctx, modelID)
}

func (lm *loggingMiddleware) ListModels(ctx context.Context) (resp []string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List models failed", args...)

			return
		}
		lm.logger.Info("List models completed successfully", args...)
	}(time.Now())

	return lm.svc.ListModels(ctx)
}

func (lm *loggingMiddleware) Infer(ctx context.Context, modelID string, inputs [][]float64) (resp coordinator.Inference, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("model",
				slog.String("id", modelID),
			),
			slog.Int("batch_size", len(inputs)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Infer failed", args...)

			return
		}
		lm.logger.Info("Infer completed successfully", args...)
	}(time.Now())

	return lm.svc.Infer(ctx, modelID, inputs)
}

func (lm *loggingMiddleware) Health(ctx context.Context) (resp coordinator.Health, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Health failed", args...)

			return
		}
		lm.logger.Info("Health completed successfully", args...)
	}(time.Now())

	return lm.svc.Health(ctx)
}
