// Package sdk is the HTTP client for the coordinator API. It exposes
// the same method set as the coordinator service, so workers can run
// against an in-process service or a remote coordinator without
// changing code.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/task"
)

const CTJSON string = "application/json"

type SDK interface {
	// CreateTask publishes a new training task.
	//
	// example:
	//  t := task.Task{
	//    ModelID:    "mnist_mlp",
	//    DatasetRef: "bafy-train-0001",
	//    BatchEnd:   32,
	//  }
	//  t, _ := sdk.CreateTask(ctx, t)
	//  fmt.Println(t)
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)

	// GetTask gets a task by id.
	GetTask(ctx context.Context, taskID string) (task.Task, error)

	// ListTasks lists claimable tasks.
	//
	// example:
	//  page, _ := sdk.ListTasks(ctx, 0, 10)
	//  fmt.Println(page)
	ListTasks(ctx context.Context, offset, limit uint64) (task.TaskPage, error)

	// ClaimTask claims a pending task for exclusive computation.
	ClaimTask(ctx context.Context, taskID string) (task.Task, error)

	// ReleaseTask gives a claimed task back to the pending pool.
	ReleaseTask(ctx context.Context, taskID string) error

	// ComputeGradients runs the computation for a claimed task on the
	// coordinator itself.
	ComputeGradients(ctx context.Context, taskID string) (gradient.ComputeResult, error)

	// SubmitResult submits a computed result for a claimed task.
	SubmitResult(ctx context.Context, result gradient.ComputeResult) error

	// GetResult gets the submitted result for a task.
	GetResult(ctx context.Context, taskID string) (gradient.ComputeResult, error)

	// VerifyResult asks the coordinator to check a result's commitment
	// proof.
	VerifyResult(ctx context.Context, result gradient.ComputeResult) (bool, error)

	// RegisterModel registers a model configuration.
	RegisterModel(ctx context.Context, cfg model.Config) (model.Config, error)

	// GetModel gets a model configuration by id.
	GetModel(ctx context.Context, modelID string) (model.Config, error)

	// ListModels lists registered model ids.
	ListModels(ctx context.Context) ([]string, error)

	// Infer runs a forward pass over a registered model.
	Infer(ctx context.Context, modelID string, inputs [][]float64) (coordinator.Inference, error)

	// Health reports the coordinator status.
	Health(ctx context.Context) (coordinator.Health, error)
}

type pouwSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &pouwSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *pouwSDK) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return task.Task{}, err
	}

	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/tasks", data, http.StatusCreated)
	if err != nil {
		return task.Task{}, err
	}

	var created task.Task
	if err := json.Unmarshal(body, &created); err != nil {
		return task.Task{}, err
	}

	return created, nil
}

func (sdk *pouwSDK) GetTask(ctx context.Context, taskID string) (task.Task, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+"/tasks/"+taskID, nil, http.StatusOK)
	if err != nil {
		return task.Task{}, err
	}

	var t task.Task
	if err := json.Unmarshal(body, &t); err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (sdk *pouwSDK) ListTasks(ctx context.Context, offset, limit uint64) (task.TaskPage, error) {
	url := fmt.Sprintf("%s/tasks?offset=%d&limit=%d", sdk.coordinatorURL, offset, limit)
	body, err := sdk.processRequest(ctx, http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return task.TaskPage{}, err
	}

	var page task.TaskPage
	if err := json.Unmarshal(body, &page); err != nil {
		return task.TaskPage{}, err
	}

	return page, nil
}

func (sdk *pouwSDK) ClaimTask(ctx context.Context, taskID string) (task.Task, error) {
	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/tasks/"+taskID+"/claim", nil, http.StatusOK)
	if err != nil {
		return task.Task{}, err
	}

	var t task.Task
	if err := json.Unmarshal(body, &t); err != nil {
		return task.Task{}, err
	}

	return t, nil
}

func (sdk *pouwSDK) ReleaseTask(ctx context.Context, taskID string) error {
	_, err := sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/tasks/"+taskID+"/release", nil, http.StatusNoContent)

	return err
}

func (sdk *pouwSDK) ComputeGradients(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/tasks/"+taskID+"/compute", nil, http.StatusOK)
	if err != nil {
		return gradient.ComputeResult{}, err
	}

	var result gradient.ComputeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return gradient.ComputeResult{}, err
	}

	return result, nil
}

func (sdk *pouwSDK) SubmitResult(ctx context.Context, result gradient.ComputeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/results", data, http.StatusCreated)

	return err
}

func (sdk *pouwSDK) GetResult(ctx context.Context, taskID string) (gradient.ComputeResult, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+"/tasks/"+taskID+"/result", nil, http.StatusOK)
	if err != nil {
		return gradient.ComputeResult{}, err
	}

	var result gradient.ComputeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return gradient.ComputeResult{}, err
	}

	return result, nil
}

func (sdk *pouwSDK) VerifyResult(ctx context.Context, result gradient.ComputeResult) (bool, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return false, err
	}

	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/results/verify", data, http.StatusOK)
	if err != nil {
		return false, err
	}

	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, err
	}

	return resp.Valid, nil
}

func (sdk *pouwSDK) RegisterModel(ctx context.Context, cfg model.Config) (model.Config, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return model.Config{}, err
	}

	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/models", data, http.StatusCreated)
	if err != nil {
		return model.Config{}, err
	}

	var created model.Config
	if err := json.Unmarshal(body, &created); err != nil {
		return model.Config{}, err
	}

	return created, nil
}

func (sdk *pouwSDK) GetModel(ctx context.Context, modelID string) (model.Config, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+"/models/"+modelID, nil, http.StatusOK)
	if err != nil {
		return model.Config{}, err
	}

	var cfg model.Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		return model.Config{}, err
	}

	return cfg, nil
}

func (sdk *pouwSDK) ListModels(ctx context.Context) ([]string, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+"/models", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return resp.Models, nil
}

func (sdk *pouwSDK) Infer(ctx context.Context, modelID string, inputs [][]float64) (coordinator.Inference, error) {
	data, err := json.Marshal(map[string]any{"inputs": inputs})
	if err != nil {
		return coordinator.Inference{}, err
	}

	body, err := sdk.processRequest(ctx, http.MethodPost, sdk.coordinatorURL+"/models/"+modelID+"/infer", data, http.StatusOK)
	if err != nil {
		return coordinator.Inference{}, err
	}

	var inference coordinator.Inference
	if err := json.Unmarshal(body, &inference); err != nil {
		return coordinator.Inference{}, err
	}

	return inference, nil
}

func (sdk *pouwSDK) Health(ctx context.Context) (coordinator.Health, error) {
	body, err := sdk.processRequest(ctx, http.MethodGet, sdk.coordinatorURL+"/status", nil, http.StatusOK)
	if err != nil {
		return coordinator.Health{}, err
	}

	var health coordinator.Health
	if err := json.Unmarshal(body, &health); err != nil {
		return coordinator.Health{}, err
	}

	return health, nil
}

func (sdk *pouwSDK) processRequest(ctx context.Context, method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
