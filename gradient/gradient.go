// Package gradient holds the verifiable artifacts of one gradient
// computation: the named gradient tensors, their quality score, their
// deterministic digest and the commitment proof binding them together.
package gradient

import "math"

// Tensor is a flat, row-major float64 tensor.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

func NewTensor(data []float64, shape ...int) Tensor {
	return Tensor{Shape: shape, Data: data}
}

// Norm returns the L2 norm of the tensor elements.
func (t Tensor) Norm() float64 {
	var sum float64
	for _, v := range t.Data {
		sum += v * v
	}

	return math.Sqrt(sum)
}

// Map is a named set of gradient tensors produced by one backward pass.
// Keys are the trainable parameter names of the model.
type Map map[string]Tensor

// TotalNorm returns sqrt(sum of squared per-tensor L2 norms).
func (m Map) TotalNorm() float64 {
	var sum float64
	for _, t := range m {
		n := t.Norm()
		sum += n * n
	}

	return math.Sqrt(sum)
}

// Finite reports whether every element of every tensor is a finite
// number.
func (m Map) Finite() bool {
	for _, t := range m {
		for _, v := range t.Data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}

// ComputeResult is produced exactly once per successful computation and
// is immutable afterwards. ProofIssuedAt is carried alongside the proof
// so that a verifier can regenerate the commitment byte for byte.
type ComputeResult struct {
	TaskID        string             `json:"task_id"`
	GradientHash  string             `json:"gradient_hash"`
	QualityScore  float64            `json:"quality_score"`
	Loss          float64            `json:"loss"`
	Metrics       map[string]float64 `json:"metrics"`
	Proof         []byte             `json:"proof"`
	ProofIssuedAt int64              `json:"proof_issued_at"`
}
