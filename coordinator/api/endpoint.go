package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/ccoin-network/pouw/coordinator"
	pkgerrors "github.com/ccoin-network/pouw/pkg/errors"
)

func createTaskEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(taskReq)
		if !ok {
			return taskResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return taskResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		t, err := svc.CreateTask(ctx, req.Task)
		if err != nil {
			return taskResponse{}, err
		}

		return taskResponse{
			Task:    t,
			created: true,
		}, nil
	}
}

func getTaskEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return taskResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return taskResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		t, err := svc.GetTask(ctx, req.id)
		if err != nil {
			return taskResponse{}, err
		}

		return taskResponse{
			Task: t,
		}, nil
	}
}

func listTasksEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listTaskResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listTaskResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		tasks, err := svc.ListTasks(ctx, req.offset, req.limit)
		if err != nil {
			return listTaskResponse{}, err
		}

		return listTaskResponse{
			TaskPage: tasks,
		}, nil
	}
}

func claimTaskEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return taskResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return taskResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		t, err := svc.ClaimTask(ctx, req.id)
		if err != nil {
			return taskResponse{}, err
		}

		return taskResponse{
			Task: t,
		}, nil
	}
}

func releaseTaskEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return releaseResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return releaseResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.ReleaseTask(ctx, req.id); err != nil {
			return releaseResponse{}, err
		}

		return releaseResponse{}, nil
	}
}

func computeGradientsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		result, err := svc.ComputeGradients(ctx, req.id)
		if err != nil {
			return resultResponse{}, err
		}

		return resultResponse{
			ComputeResult: result,
		}, nil
	}
}

func submitResultEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(resultReq)
		if !ok {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitResult(ctx, req.ComputeResult); err != nil {
			return resultResponse{}, err
		}

		return resultResponse{
			ComputeResult: req.ComputeResult,
			submitted:     true,
		}, nil
	}
}

func getResultEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return resultResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		result, err := svc.GetResult(ctx, req.id)
		if err != nil {
			return resultResponse{}, err
		}

		return resultResponse{
			ComputeResult: result,
		}, nil
	}
}

func verifyResultEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(resultReq)
		if !ok {
			return verifyResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return verifyResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		valid, err := svc.VerifyResult(ctx, req.ComputeResult)
		if err != nil {
			return verifyResponse{}, err
		}

		return verifyResponse{
			Valid: valid,
		}, nil
	}
}

func registerModelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(modelReq)
		if !ok {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		cfg, err := svc.RegisterModel(ctx, req.Config)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{
			Config:  cfg,
			created: true,
		}, nil
	}
}

func getModelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		cfg, err := svc.GetModel(ctx, req.id)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{
			Config: cfg,
		}, nil
	}
}

func listModelsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		models, err := svc.ListModels(ctx)
		if err != nil {
			return listModelsResponse{}, err
		}

		return listModelsResponse{
			Models: models,
		}, nil
	}
}

func inferEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(inferReq)
		if !ok {
			return inferResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return inferResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		inference, err := svc.Infer(ctx, req.id, req.Inputs)
		if err != nil {
			return inferResponse{}, err
		}

		return inferResponse{
			Inference: inference,
		}, nil
	}
}

func healthEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		health, err := svc.Health(ctx)
		if err != nil {
			return healthResponse{}, err
		}

		return healthResponse{
			Health: health,
		}, nil
	}
}
