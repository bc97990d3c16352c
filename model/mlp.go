package model

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/pkg/errors"
)

// MLP is a fully connected network with ReLU hidden layers. Weights
// are initialized deterministically from the model id, so every worker
// resolving the same model computes identical gradients.
type MLP struct {
	layers []*linear
}

type linear struct {
	in, out int
	weight  [][]float64 // out x in
	bias    []float64

	// caches from the last forward pass
	input  [][]float64
	preact [][]float64
}

// NewMLP builds an input -> hidden... -> output stack seeded from the
// model id.
func NewMLP(modelID string, inputSize int, hiddenSizes []int, outputSize int) *MLP {
	seed := fnv.New64a()
	seed.Write([]byte(modelID))
	rng := rand.New(rand.NewSource(int64(seed.Sum64())))

	sizes := append([]int{inputSize}, hiddenSizes...)
	sizes = append(sizes, outputSize)

	layers := make([]*linear, 0, len(sizes)-1)
	for i := 0; i < len(sizes)-1; i++ {
		layers = append(layers, newLinear(sizes[i], sizes[i+1], rng))
	}

	return &MLP{layers: layers}
}

// NewExecutor instantiates an executor from a registered config.
func NewExecutor(cfg Config) (Executor, error) {
	if cfg.Architecture != "mlp" {
		return nil, fmt.Errorf("unknown architecture %q: %w", cfg.Architecture, errors.ErrNotFound)
	}
	if len(cfg.InputShape) == 0 || len(cfg.OutputShape) == 0 {
		return nil, errors.ErrInvalidData
	}

	return NewMLP(cfg.ModelID, cfg.InputShape[0], hiddenSizes(cfg), cfg.OutputShape[0]), nil
}

// hiddenSizes reads hyperparameters["hidden_sizes"], tolerating the
// []any of float64 that JSON decoding produces.
func hiddenSizes(cfg Config) []int {
	raw, ok := cfg.Hyperparameters["hidden_sizes"]
	if !ok {
		return []int{256, 128}
	}

	switch v := raw.(type) {
	case []int:
		return v
	case []any:
		sizes := make([]int, 0, len(v))
		for _, e := range v {
			if f, ok := e.(float64); ok {
				sizes = append(sizes, int(f))
			}
		}
		if len(sizes) == len(v) {
			return sizes
		}
	}

	return []int{256, 128}
}

func newLinear(in, out int, rng *rand.Rand) *linear {
	scale := math.Sqrt(2 / float64(in))
	weight := make([][]float64, out)
	for o := range weight {
		row := make([]float64, in)
		for i := range row {
			row[i] = rng.NormFloat64() * scale
		}
		weight[o] = row
	}

	return &linear{
		in:     in,
		out:    out,
		weight: weight,
		bias:   make([]float64, out),
	}
}

// Forward runs the batch through the stack, caching activations for
// the next Backward call.
func (m *MLP) Forward(inputs [][]float64) [][]float64 {
	acts := inputs
	for li, layer := range m.layers {
		layer.input = acts
		pre := make([][]float64, len(acts))
		for n, x := range acts {
			row := make([]float64, layer.out)
			for o := 0; o < layer.out; o++ {
				sum := layer.bias[o]
				w := layer.weight[o]
				for i, xv := range x {
					sum += w[i] * xv
				}
				row[o] = sum
			}
			pre[n] = row
		}
		layer.preact = pre

		if li == len(m.layers)-1 {
			acts = pre

			continue
		}

		post := make([][]float64, len(pre))
		for n, row := range pre {
			a := make([]float64, len(row))
			for i, v := range row {
				if v > 0 {
					a[i] = v
				}
			}
			post[n] = a
		}
		acts = post
	}

	return acts
}

// ParameterCount returns the number of trainable parameters.
func (m *MLP) ParameterCount() int {
	var count int
	for _, layer := range m.layers {
		count += layer.out*layer.in + layer.out
	}

	return count
}

// Backward backpropagates the output gradient from the last Forward
// call and returns the gradients of every trainable parameter.
func (m *MLP) Backward(outputGrad [][]float64) gradient.Map {
	grads := make(gradient.Map, 2*len(m.layers))

	delta := outputGrad
	for li := len(m.layers) - 1; li >= 0; li-- {
		layer := m.layers[li]

		dWeight := make([]float64, layer.out*layer.in)
		dBias := make([]float64, layer.out)
		dInput := make([][]float64, len(delta))

		for n, dRow := range delta {
			x := layer.input[n]
			dx := make([]float64, layer.in)
			for o, d := range dRow {
				dBias[o] += d
				w := layer.weight[o]
				base := o * layer.in
				for i, xv := range x {
					dWeight[base+i] += d * xv
					dx[i] += d * w[i]
				}
			}
			dInput[n] = dx
		}

		grads[fmt.Sprintf("layers.%d.weight", li)] = gradient.NewTensor(dWeight, layer.out, layer.in)
		grads[fmt.Sprintf("layers.%d.bias", li)] = gradient.NewTensor(dBias, layer.out)

		if li == 0 {
			break
		}

		// Route the input gradient back through the previous layer's
		// ReLU.
		prev := m.layers[li-1]
		for n, dx := range dInput {
			for i := range dx {
				if prev.preact[n][i] <= 0 {
					dx[i] = 0
				}
			}
		}
		delta = dInput
	}

	return grads
}
