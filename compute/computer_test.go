package compute_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccoin-network/pouw/compute"
	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/pkg/errors"
	"github.com/ccoin-network/pouw/pkg/storage"
	"github.com/ccoin-network/pouw/task"
)

func testRegistry(t *testing.T) model.Registry {
	t.Helper()

	registry := model.NewRegistry(storage.NewInMemoryStorage(), storage.NewInMemoryStorage())

	mlpCfg := model.Config{
		ModelID:      "test_mlp",
		Architecture: "mlp",
		TaskType:     model.Classification,
		Domain:       "test",
		InputShape:   []int{784},
		OutputShape:  []int{10},
		Hyperparameters: map[string]any{
			"hidden_sizes": []int{256, 128},
		},
	}
	exec, err := model.NewExecutor(mlpCfg)
	require.NoError(t, err)
	require.NoError(t, registry.Register(context.Background(), mlpCfg, exec))

	regCfg := model.Config{
		ModelID:      "test_regressor",
		Architecture: "mlp",
		TaskType:     model.Regression,
		InputShape:   []int{784},
		OutputShape:  []int{1},
		Hyperparameters: map[string]any{
			"hidden_sizes": []int{32},
		},
	}
	regExec, err := model.NewExecutor(regCfg)
	require.NoError(t, err)
	require.NoError(t, registry.Register(context.Background(), regCfg, regExec))

	return registry
}

func testBatch(t *testing.T, start, end int) dataset.Batch {
	t.Helper()

	provider := dataset.NewSyntheticProviderWithShape(100, 784, 10, 1)
	ds, err := provider.Load(context.Background(), "bafy-train-0001")
	require.NoError(t, err)
	batch, err := ds.Slice(start, end)
	require.NoError(t, err)

	return batch
}

func testTask() task.Task {
	return task.Task{
		ID:         "task-1",
		ModelID:    "test_mlp",
		DatasetRef: "bafy-train-0001",
		BatchStart: 0,
		BatchEnd:   32,
		Deadline:   time.Now().Add(time.Hour).Unix(),
		Reward:     50,
	}
}

func TestComputeEndToEnd(t *testing.T) {
	computer := compute.New(testRegistry(t))
	batch := testBatch(t, 0, 32)

	result, err := computer.Compute(context.Background(), testTask(), batch, 0)
	require.NoError(t, err)

	assert.Equal(t, "task-1", result.TaskID)
	assert.Len(t, result.GradientHash, 64)
	assert.GreaterOrEqual(t, result.QualityScore, 0.0)
	assert.LessOrEqual(t, result.QualityScore, 1.0)
	assert.GreaterOrEqual(t, result.Loss, 0.0)
	assert.NotEmpty(t, result.Proof)

	require.Contains(t, result.Metrics, "accuracy")
	assert.GreaterOrEqual(t, result.Metrics["accuracy"], 0.0)
	assert.LessOrEqual(t, result.Metrics["accuracy"], 1.0)
	assert.Contains(t, result.Metrics, "loss")
	assert.Contains(t, result.Metrics, "compute_time")
}

func TestComputeDeterministicHash(t *testing.T) {
	// Same model, same batch: the gradient digest must be identical
	// across computer instances.
	batch := testBatch(t, 0, 32)

	first, err := compute.New(testRegistry(t)).Compute(context.Background(), testTask(), batch, 0)
	require.NoError(t, err)
	second, err := compute.New(testRegistry(t)).Compute(context.Background(), testTask(), batch, 0)
	require.NoError(t, err)

	assert.Equal(t, first.GradientHash, second.GradientHash)
	assert.Equal(t, first.Loss, second.Loss)
}

func TestComputeRegressionMetrics(t *testing.T) {
	computer := compute.New(testRegistry(t))
	batch := testBatch(t, 0, 16)

	tsk := testTask()
	tsk.ModelID = "test_regressor"

	result, err := computer.Compute(context.Background(), tsk, batch, 0)
	require.NoError(t, err)

	assert.Contains(t, result.Metrics, "mse")
	assert.Contains(t, result.Metrics, "mae")
	assert.NotContains(t, result.Metrics, "accuracy")
}

func TestComputePrevLossRaisesScoreOnImprovement(t *testing.T) {
	computer := compute.New(testRegistry(t))
	batch := testBatch(t, 0, 32)

	base, err := computer.Compute(context.Background(), testTask(), batch, 0)
	require.NoError(t, err)

	// A much larger previous loss reads as improvement and cannot
	// lower the score.
	improved, err := computer.Compute(context.Background(), testTask(), batch, base.Loss*100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, improved.QualityScore, base.QualityScore)
}

func TestComputeModelNotFound(t *testing.T) {
	computer := compute.New(testRegistry(t))
	batch := testBatch(t, 0, 8)

	tsk := testTask()
	tsk.ModelID = "missing"

	_, err := computer.Compute(context.Background(), tsk, batch, 0)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestComputeInvalidRange(t *testing.T) {
	computer := compute.New(testRegistry(t))

	tsk := testTask()
	tsk.BatchStart = 32
	tsk.BatchEnd = 32

	_, err := computer.Compute(context.Background(), tsk, dataset.Batch{}, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidRange)
}

// A model registered with shapes narrower than the dataset must be
// rejected with a typed error before the forward pass runs.
func TestComputeShapeMismatch(t *testing.T) {
	registry := testRegistry(t)

	narrowCfg := model.Config{
		ModelID:      "narrow_mlp",
		Architecture: "mlp",
		TaskType:     model.Classification,
		InputShape:   []int{784},
		OutputShape:  []int{5},
		Hyperparameters: map[string]any{
			"hidden_sizes": []int{16},
		},
	}
	narrowExec, err := model.NewExecutor(narrowCfg)
	require.NoError(t, err)
	require.NoError(t, registry.Register(context.Background(), narrowCfg, narrowExec))

	smallInputCfg := model.Config{
		ModelID:      "small_input_mlp",
		Architecture: "mlp",
		TaskType:     model.Classification,
		InputShape:   []int{32},
		OutputShape:  []int{10},
		Hyperparameters: map[string]any{
			"hidden_sizes": []int{16},
		},
	}
	smallExec, err := model.NewExecutor(smallInputCfg)
	require.NoError(t, err)
	require.NoError(t, registry.Register(context.Background(), smallInputCfg, smallExec))

	wideRegCfg := model.Config{
		ModelID:      "wide_regressor",
		Architecture: "mlp",
		TaskType:     model.Regression,
		InputShape:   []int{784},
		OutputShape:  []int{3},
		Hyperparameters: map[string]any{
			"hidden_sizes": []int{16},
		},
	}
	wideExec, err := model.NewExecutor(wideRegCfg)
	require.NoError(t, err)
	require.NoError(t, registry.Register(context.Background(), wideRegCfg, wideExec))

	computer := compute.New(registry)
	// 784-wide inputs, labels in [0, 10), 1-wide targets.
	batch := testBatch(t, 0, 16)

	cases := []struct {
		desc    string
		modelID string
	}{
		{"output narrower than label range", "narrow_mlp"},
		{"input narrower than batch width", "small_input_mlp"},
		{"output wider than target width", "wide_regressor"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			tsk := testTask()
			tsk.ModelID = tc.modelID

			_, err := computer.Compute(context.Background(), tsk, batch, 0)
			assert.ErrorIs(t, err, errors.ErrComputation)
		})
	}
}

func TestComputeNonFiniteInputs(t *testing.T) {
	computer := compute.New(testRegistry(t))

	batch := testBatch(t, 0, 8)
	batch.Inputs[0][0] = math.Inf(1)
	batch.Inputs[1][0] = math.NaN()

	_, err := computer.Compute(context.Background(), testTask(), batch, 0)
	assert.ErrorIs(t, err, errors.ErrComputation)
}

func TestComputeNonFiniteLoss(t *testing.T) {
	computer := compute.New(testRegistry(t))

	// An infinite regression target blows up the squared error, so the
	// loss itself goes non-finite.
	batch := testBatch(t, 0, 8)
	batch.Targets[0][0] = math.Inf(1)

	tsk := testTask()
	tsk.ModelID = "test_regressor"

	_, err := computer.Compute(context.Background(), tsk, batch, 0)
	assert.ErrorIs(t, err, errors.ErrComputation)
}

func TestVerifyResult(t *testing.T) {
	computer := compute.New(testRegistry(t))
	batch := testBatch(t, 0, 32)
	tsk := testTask()

	result, err := computer.Compute(context.Background(), tsk, batch, 0)
	require.NoError(t, err)

	assert.True(t, computer.VerifyResult(result, tsk))

	// Altered task id fails.
	altered := result
	altered.TaskID = "task-2"
	assert.False(t, computer.VerifyResult(altered, tsk))

	// Out-of-range quality score fails.
	outOfRange := result
	outOfRange.QualityScore = 1.5
	assert.False(t, computer.VerifyResult(outOfRange, tsk))

	// Any flipped proof byte fails.
	flipped := result
	flipped.Proof = make([]byte, len(result.Proof))
	copy(flipped.Proof, result.Proof)
	flipped.Proof[0] ^= 0x01
	assert.False(t, computer.VerifyResult(flipped, tsk))

	// Tampered metrics fail even with the original proof bytes.
	tampered := result
	tampered.Metrics = map[string]float64{"accuracy": 1.0}
	assert.False(t, computer.VerifyResult(tampered, tsk))
}

func TestVerifyResultForeignProof(t *testing.T) {
	computer := compute.New(testRegistry(t))
	tsk := testTask()

	forged := gradient.ComputeResult{
		TaskID:       tsk.ID,
		GradientHash: "00",
		QualityScore: 0.9,
		Proof:        []byte("not a commitment"),
	}
	assert.False(t, computer.VerifyResult(forged, tsk))
}
