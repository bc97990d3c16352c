// Package compute orchestrates one gradient computation: forward pass,
// loss, backward pass, quality scoring, hashing and proof generation.
package compute

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/pkg/errors"
	"github.com/ccoin-network/pouw/task"
)

// Computer turns a claimed task and a batch into a verifiable
// ComputeResult. It holds no mutable state: the previous loss is
// threaded through Compute explicitly, so the caller owns the loss
// history and instances are safe to share across serialized calls.
type Computer struct {
	registry model.Registry
}

func New(registry model.Registry) *Computer {
	return &Computer{registry: registry}
}

// Compute executes the PoUW computation for one task. prevLoss is the
// caller's most recent observed loss; pass a non-positive value when
// there is none. The executor's forward/backward pass blocks the
// calling goroutine for the duration of the computation.
func (c *Computer) Compute(ctx context.Context, t task.Task, batch dataset.Batch, prevLoss float64) (gradient.ComputeResult, error) {
	start := time.Now()

	if err := t.Validate(); err != nil {
		return gradient.ComputeResult{}, err
	}
	if batch.Len() == 0 {
		return gradient.ComputeResult{}, errors.ErrInvalidRange
	}

	exec, err := c.registry.Load(ctx, t.ModelID)
	if err != nil {
		return gradient.ComputeResult{}, fmt.Errorf("load model %q: %w", t.ModelID, err)
	}
	cfg, err := c.registry.GetConfig(ctx, t.ModelID)
	if err != nil {
		return gradient.ComputeResult{}, fmt.Errorf("model config %q: %w", t.ModelID, err)
	}
	if err := validateBatch(cfg, batch); err != nil {
		return gradient.ComputeResult{}, err
	}
	objective := cfg.TaskType.Objective()

	outputs := exec.Forward(batch.Inputs)
	loss, outputGrad := objective.Loss(outputs, batch)
	if math.IsNaN(loss) || math.IsInf(loss, 0) || loss < 0 {
		return gradient.ComputeResult{}, fmt.Errorf("loss %v: %w", loss, errors.ErrComputation)
	}

	grads := exec.Backward(outputGrad)
	if len(grads) == 0 {
		return gradient.ComputeResult{}, fmt.Errorf("empty gradient map: %w", errors.ErrComputation)
	}
	if !grads.Finite() {
		return gradient.ComputeResult{}, fmt.Errorf("non-finite gradients: %w", errors.ErrComputation)
	}

	qualityScore := gradient.Score(grads, loss, prevLoss)
	gradientHash := gradient.Hash(grads)

	metrics := objective.Metrics(outputs, batch)
	metrics["loss"] = loss
	metrics["compute_time"] = time.Since(start).Seconds()

	issuedAt := time.Now().Unix()
	proof := gradient.GenerateProof(t, gradientHash, qualityScore, metrics, issuedAt)

	return gradient.ComputeResult{
		TaskID:        t.ID,
		GradientHash:  gradientHash,
		QualityScore:  qualityScore,
		Loss:          loss,
		Metrics:       metrics,
		Proof:         proof,
		ProofIssuedAt: issuedAt,
	}, nil
}

// validateBatch rejects batches the model cannot consume. Without the
// shape checks a model registered with a narrower shape than the
// dataset would index out of range inside the forward pass or the
// objective; non-finite inputs would poison the loss.
func validateBatch(cfg model.Config, batch dataset.Batch) error {
	if width := len(batch.Inputs[0]); width != cfg.InputShape[0] {
		return fmt.Errorf("batch input width %d does not match model input shape %d: %w", width, cfg.InputShape[0], errors.ErrComputation)
	}
	for _, row := range batch.Inputs {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite batch input: %w", errors.ErrComputation)
			}
		}
	}

	switch cfg.TaskType {
	case model.Regression:
		if len(batch.Targets) != len(batch.Inputs) {
			return fmt.Errorf("batch has %d targets for %d inputs: %w", len(batch.Targets), len(batch.Inputs), errors.ErrComputation)
		}
		if width := len(batch.Targets[0]); width != cfg.OutputShape[0] {
			return fmt.Errorf("batch target width %d does not match model output shape %d: %w", width, cfg.OutputShape[0], errors.ErrComputation)
		}
	default:
		if len(batch.Labels) != len(batch.Inputs) {
			return fmt.Errorf("batch has %d labels for %d inputs: %w", len(batch.Labels), len(batch.Inputs), errors.ErrComputation)
		}
		for _, label := range batch.Labels {
			if label < 0 || label >= cfg.OutputShape[0] {
				return fmt.Errorf("label %d outside model output shape %d: %w", label, cfg.OutputShape[0], errors.ErrComputation)
			}
		}
	}

	return nil
}

// VerifyResult checks a result against its task: matching task id, a
// quality score within [0, 1], and a proof that byte-compares equal to
// a commitment regenerated from the claimed values.
func (c *Computer) VerifyResult(result gradient.ComputeResult, t task.Task) bool {
	if result.TaskID != t.ID {
		return false
	}
	if result.QualityScore < 0 || result.QualityScore > 1 {
		return false
	}

	return gradient.VerifyProof(result.Proof, t, result.GradientHash, result.QualityScore, result.Metrics, result.ProofIssuedAt)
}
