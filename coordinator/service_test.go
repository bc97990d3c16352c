package coordinator_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ccoin-network/pouw/compute"
	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/pkg/errors"
	"github.com/ccoin-network/pouw/pkg/mqtt"
	"github.com/ccoin-network/pouw/pkg/mqtt/mocks"
	"github.com/ccoin-network/pouw/pkg/storage"
	"github.com/ccoin-network/pouw/queue"
	"github.com/ccoin-network/pouw/task"
)

func newService(t *testing.T, publisher mqtt.PubSub) coordinator.Service {
	t.Helper()

	registry := model.NewRegistry(storage.NewInMemoryStorage(), storage.NewInMemoryStorage())
	provider := dataset.NewSyntheticProviderWithShape(100, 784, 10, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := coordinator.NewService(queue.New(), registry, provider, compute.New(registry), storage.NewInMemoryStorage(), publisher, "channel-1", logger)

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

	return svc
}

func newTask(t *testing.T, svc coordinator.Service) task.Task {
	t.Helper()

	created, err := svc.CreateTask(context.Background(), task.Task{
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

func TestTaskLifecycle(t *testing.T) {
	svc := newService(t, nil)
	created := newTask(t, svc)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, task.Pending, created.State)

	claimed, err := svc.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Claimed, claimed.State)

	result, err := svc.ComputeGradients(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, result.TaskID)
	assert.Len(t, result.GradientHash, 64)

	require.NoError(t, svc.SubmitResult(context.Background(), result))

	submitted, err := svc.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Submitted, submitted.State)

	stored, err := svc.GetResult(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, result.GradientHash, stored.GradientHash)

	valid, err := svc.VerifyResult(context.Background(), result)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestCreateTaskInvalidRange(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.CreateTask(context.Background(), task.Task{
		ModelID:    "test_mlp",
		DatasetRef: "bafy-train-0001",
		BatchStart: 32,
		BatchEnd:   32,
	})
	assert.ErrorIs(t, err, errors.ErrInvalidRange)
}

func TestComputeGradientsRequiresClaim(t *testing.T) {
	svc := newService(t, nil)
	created := newTask(t, svc)

	_, err := svc.ComputeGradients(context.Background(), created.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidState)

	_, err = svc.ComputeGradients(context.Background(), "unknown")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSubmitResultTwice(t *testing.T) {
	svc := newService(t, nil)
	created := newTask(t, svc)

	_, err := svc.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)

	result, err := svc.ComputeGradients(context.Background(), created.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SubmitResult(context.Background(), result))
	assert.ErrorIs(t, svc.SubmitResult(context.Background(), result), errors.ErrInvalidState)
}

func TestReleaseTask(t *testing.T) {
	svc := newService(t, nil)
	created := newTask(t, svc)

	_, err := svc.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)
	require.NoError(t, svc.ReleaseTask(context.Background(), created.ID))

	released, err := svc.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Pending, released.State)

	// A released task is claimable again.
	_, err = svc.ClaimTask(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestListTasksPagination(t *testing.T) {
	svc := newService(t, nil)
	for range 5 {
		newTask(t, svc)
	}

	page, err := svc.ListTasks(context.Background(), 0, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), page.Total)
	assert.Len(t, page.Tasks, 3)

	rest, err := svc.ListTasks(context.Background(), 3, 3)
	require.NoError(t, err)
	assert.Len(t, rest.Tasks, 2)

	beyond, err := svc.ListTasks(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond.Tasks)
}

func TestRegisterModelUnknownArchitecture(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.RegisterModel(context.Background(), model.Config{
		ModelID:      "cnn-1",
		Architecture: "cnn",
	})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestInfer(t *testing.T) {
	svc := newService(t, nil)

	inputs := make([][]float64, 4)
	for i := range inputs {
		inputs[i] = make([]float64, 784)
	}

	inference, err := svc.Infer(context.Background(), "test_mlp", inputs)
	require.NoError(t, err)
	assert.Equal(t, "test_mlp", inference.ModelID)
	assert.Len(t, inference.Predictions, 4)
	for _, p := range inference.Predictions {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, 10.0)
	}

	_, err = svc.Infer(context.Background(), "test_mlp", nil)
	assert.ErrorIs(t, err, errors.ErrInvalidRange)

	_, err = svc.Infer(context.Background(), "missing", inputs)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestHealth(t *testing.T) {
	svc := newService(t, nil)
	newTask(t, svc)

	health, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.ModelsLoaded)
	assert.Equal(t, 1, health.Queue.Pending)
}

func TestLifecycleEvents(t *testing.T) {
	publisher := new(mocks.PubSub)
	publisher.On("Publish", mock.Anything, "channels/channel-1/messages/pouw/tasks/created", mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, "channels/channel-1/messages/pouw/tasks/claimed", mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, "channels/channel-1/messages/pouw/tasks/submitted", mock.Anything).Return(nil)

	svc := newService(t, publisher)
	created := newTask(t, svc)

	_, err := svc.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)

	result, err := svc.ComputeGradients(context.Background(), created.ID)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitResult(context.Background(), result))

	publisher.AssertExpectations(t)
}

// Lifecycle events are observability only: a broker outage must not
// fail an operation whose queue mutation already committed.
func TestLifecycleEventsBestEffort(t *testing.T) {
	publisher := new(mocks.PubSub)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	svc := newService(t, publisher)
	created := newTask(t, svc)

	stored, err := svc.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Pending, stored.State)

	claimed, err := svc.ClaimTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Claimed, claimed.State)

	result, err := svc.ComputeGradients(context.Background(), created.ID)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitResult(context.Background(), result))

	submitted, err := svc.GetTask(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Submitted, submitted.State)
}
