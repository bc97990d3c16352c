// Package model manages the registry of trainable models and the loss
// objectives attached to their task types. Forward/backward execution
// is behind the Executor interface; the in-tree MLP executor serves
// local mining and tests.
package model

import (
	"encoding/json"
	"math"

	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/gradient"
)

// TaskType is a closed variant over supported training objectives.
// Each variant carries its own loss and metric strategy, so call sites
// never branch on strings.
type TaskType uint8

const (
	Classification TaskType = iota
	Regression
)

func (t TaskType) String() string {
	switch t {
	case Regression:
		return "regression"
	default:
		return "classification"
	}
}

// ParseTaskType maps a wire name to a task type. Unknown names fall
// back to classification, matching the ledger's default objective.
func ParseTaskType(s string) TaskType {
	if s == "regression" {
		return Regression
	}

	return Classification
}

func (t TaskType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TaskType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTaskType(s)

	return nil
}

// Objective computes the loss, its gradient with respect to the model
// outputs, and the domain metrics for one batch.
type Objective interface {
	Loss(outputs [][]float64, batch dataset.Batch) (float64, [][]float64)
	Metrics(outputs [][]float64, batch dataset.Batch) map[string]float64
}

func (t TaskType) Objective() Objective {
	switch t {
	case Regression:
		return regressionObjective{}
	default:
		return classificationObjective{}
	}
}

// Config describes a registered model.
type Config struct {
	ModelID         string         `json:"model_id"`
	Architecture    string         `json:"architecture"`
	TaskType        TaskType       `json:"task_type"`
	Domain          string         `json:"domain,omitempty"`
	InputShape      []int          `json:"input_shape"`
	OutputShape     []int          `json:"output_shape"`
	Hyperparameters map[string]any `json:"hyperparameters,omitempty"`
}

// Executor runs one forward and one backward pass. Implementations
// cache activations between the two calls and are therefore not safe
// for concurrent use; callers serialize computations per executor.
type Executor interface {
	Forward(inputs [][]float64) [][]float64
	Backward(outputGrad [][]float64) gradient.Map
	ParameterCount() int
}

type classificationObjective struct{}

// Loss is the mean softmax cross-entropy over the batch. The returned
// gradient is (softmax - onehot) / n.
func (classificationObjective) Loss(outputs [][]float64, batch dataset.Batch) (float64, [][]float64) {
	n := float64(len(outputs))
	grad := make([][]float64, len(outputs))

	var total float64
	for i, row := range outputs {
		probs := softmax(row)
		label := batch.Labels[i]
		total += -math.Log(math.Max(probs[label], 1e-12))

		g := make([]float64, len(row))
		for j, p := range probs {
			g[j] = p / n
		}
		g[label] -= 1 / n
		grad[i] = g
	}

	return total / n, grad
}

func (classificationObjective) Metrics(outputs [][]float64, batch dataset.Batch) map[string]float64 {
	correct := 0
	for i, row := range outputs {
		if argmax(row) == batch.Labels[i] {
			correct++
		}
	}

	return map[string]float64{
		"accuracy": float64(correct) / float64(len(outputs)),
	}
}

type regressionObjective struct{}

// Loss is the mean squared error over all output elements.
func (regressionObjective) Loss(outputs [][]float64, batch dataset.Batch) (float64, [][]float64) {
	count := float64(len(outputs) * len(outputs[0]))
	grad := make([][]float64, len(outputs))

	var total float64
	for i, row := range outputs {
		g := make([]float64, len(row))
		for j, v := range row {
			diff := v - batch.Targets[i][j]
			total += diff * diff
			g[j] = 2 * diff / count
		}
		grad[i] = g
	}

	return total / count, grad
}

func (regressionObjective) Metrics(outputs [][]float64, batch dataset.Batch) map[string]float64 {
	count := float64(len(outputs) * len(outputs[0]))

	var sqSum, absSum float64
	for i, row := range outputs {
		for j, v := range row {
			diff := v - batch.Targets[i][j]
			sqSum += diff * diff
			absSum += math.Abs(diff)
		}
	}

	return map[string]float64{
		"mse": sqSum / count,
		"mae": absSum / count,
	}
}

func softmax(row []float64) []float64 {
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	probs := make([]float64, len(row))
	var sum float64
	for i, v := range row {
		probs[i] = math.Exp(v - maxVal)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}

	return probs
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
