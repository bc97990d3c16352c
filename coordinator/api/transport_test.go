package api_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccoin-network/pouw/compute"
	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/coordinator/api"
	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/pkg/sdk"
	"github.com/ccoin-network/pouw/pkg/storage"
	"github.com/ccoin-network/pouw/queue"
	"github.com/ccoin-network/pouw/task"
)

func setup(t *testing.T) (*httptest.Server, sdk.SDK) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := model.NewRegistry(storage.NewInMemoryStorage(), storage.NewInMemoryStorage())
	provider := dataset.NewSyntheticProviderWithShape(100, 784, 10, 1)
	svc := coordinator.NewService(queue.New(), registry, provider, compute.New(registry), storage.NewInMemoryStorage(), nil, "", logger)

	_, err := svc.RegisterModel(context.Background(), model.Config{
		ModelID:      "test_mlp",
		Architecture: "mlp",
		TaskType:     model.Classification,
		InputShape:   []int{784},
		OutputShape:  []int{10},
		Hyperparameters: map[string]any{
			"hidden_sizes": []int{32},
		},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.MakeHandler(svc, logger, "test-instance"))
	t.Cleanup(srv.Close)

	return srv, sdk.NewSDK(sdk.Config{CoordinatorURL: srv.URL})
}

func createTask(t *testing.T, psdk sdk.SDK) task.Task {
	t.Helper()

	created, err := psdk.CreateTask(context.Background(), task.Task{
		ModelID:    "test_mlp",
		DatasetRef: "bafy-train-0001",
		BatchStart: 0,
		BatchEnd:   32,
		Deadline:   time.Now().Add(time.Hour).Unix(),
		Reward:     50,
	})
	require.NoError(t, err)

	return created
}

func TestTaskEndpoints(t *testing.T) {
	_, psdk := setup(t)
	created := createTask(t, psdk)
	assert.NotEmpty(t, created.ID)

	fetched, err := psdk.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, task.Pending, fetched.State)

	page, err := psdk.ListTasks(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), page.Total)
}

func TestLifecycleOverHTTP(t *testing.T) {
	_, psdk := setup(t)
	created := createTask(t, psdk)

	claimed, err := psdk.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Claimed, claimed.State)

	result, err := psdk.ComputeGradients(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, result.TaskID)
	assert.Len(t, result.GradientHash, 64)
	assert.NotEmpty(t, result.Proof)

	require.NoError(t, psdk.SubmitResult(context.Background(), result))

	stored, err := psdk.GetResult(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, result.GradientHash, stored.GradientHash)

	// The proof survives the JSON round trip and still verifies.
	valid, err := psdk.VerifyResult(context.Background(), stored)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestReleaseOverHTTP(t *testing.T) {
	_, psdk := setup(t)
	created := createTask(t, psdk)

	_, err := psdk.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)
	require.NoError(t, psdk.ReleaseTask(context.Background(), created.ID))

	released, err := psdk.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Pending, released.State)
}

func TestModelEndpoints(t *testing.T) {
	_, psdk := setup(t)

	cfg, err := psdk.GetModel(context.Background(), "test_mlp")
	require.NoError(t, err)
	assert.Equal(t, "mlp", cfg.Architecture)

	models, err := psdk.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"test_mlp"}, models)

	inputs := make([][]float64, 2)
	for i := range inputs {
		inputs[i] = make([]float64, 784)
	}
	inference, err := psdk.Infer(context.Background(), "test_mlp", inputs)
	require.NoError(t, err)
	assert.Len(t, inference.Predictions, 2)
}

func TestStatusEndpoint(t *testing.T) {
	_, psdk := setup(t)
	createTask(t, psdk)

	health, err := psdk.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.Queue.Pending)
}

func TestErrorStatusCodes(t *testing.T) {
	srv, psdk := setup(t)
	created := createTask(t, psdk)

	// Unknown task id maps to 404.
	resp, err := http.Get(srv.URL + "/tasks/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Claiming an already claimed task loses the race: 404.
	_, err = psdk.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/tasks/"+created.ID+"/claim", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Submitting without a claim is a state conflict: 409.
	body := bytes.NewBufferString(`{"task_id":"unknown","gradient_hash":"00","quality_score":0.5}`)
	resp, err = http.Post(srv.URL+"/results", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// An invalid batch range is a bad request: 400.
	body = bytes.NewBufferString(`{"model_id":"test_mlp","dataset_ref":"bafy-train-0001","batch_start":32,"batch_end":32}`)
	resp, err = http.Post(srv.URL+"/tasks", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
