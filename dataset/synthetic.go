package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

const (
	defSamples    = 1000
	defInputSize  = 784
	defNumClasses = 10
	defTargetDim  = 1
)

// SyntheticProvider generates a deterministic pseudo-random dataset per
// content ref, standing in for content-addressed storage. The same ref
// always yields the same rows, so gradient hashes are reproducible
// across workers.
type SyntheticProvider struct {
	samples    int
	inputSize  int
	numClasses int
	targetDim  int
}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{
		samples:    defSamples,
		inputSize:  defInputSize,
		numClasses: defNumClasses,
		targetDim:  defTargetDim,
	}
}

// NewSyntheticProviderWithShape overrides the generated dataset shape.
func NewSyntheticProviderWithShape(samples, inputSize, numClasses, targetDim int) *SyntheticProvider {
	return &SyntheticProvider{
		samples:    samples,
		inputSize:  inputSize,
		numClasses: numClasses,
		targetDim:  targetDim,
	}
}

func (p *SyntheticProvider) Load(_ context.Context, ref string) (Dataset, error) {
	seed := sha256.Sum256([]byte(ref))
	rng := rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:8]))))

	inputs := make([][]float64, p.samples)
	labels := make([]int, p.samples)
	targets := make([][]float64, p.samples)
	for i := range inputs {
		row := make([]float64, p.inputSize)
		var sum float64
		for j := range row {
			row[j] = rng.NormFloat64()
			sum += row[j]
		}
		inputs[i] = row
		labels[i] = rng.Intn(p.numClasses)

		// Regression targets follow the row mean so a model has a
		// learnable signal.
		target := make([]float64, p.targetDim)
		for j := range target {
			target[j] = sum/float64(p.inputSize) + 0.1*rng.NormFloat64()
		}
		targets[i] = target
	}

	return Dataset{
		Ref:     ref,
		Inputs:  inputs,
		Labels:  labels,
		Targets: targets,
	}, nil
}
