// Package dataset provides training data to gradient computations. The
// coordinator treats datasets as content-addressed: a Provider resolves
// a content ref to a full dataset and the caller slices out the batch
// range named by the task.
package dataset

import (
	"context"

	"github.com/ccoin-network/pouw/pkg/errors"
)

// Batch is one contiguous slice of a dataset. Labels carry class
// indices for classification objectives, Targets carry value vectors
// for regression. Both views are populated; the objective picks one.
type Batch struct {
	Inputs  [][]float64
	Labels  []int
	Targets [][]float64
}

func (b Batch) Len() int {
	return len(b.Inputs)
}

// Dataset is a fully materialized dataset resolved from a content ref.
type Dataset struct {
	Ref     string
	Inputs  [][]float64
	Labels  []int
	Targets [][]float64
}

func (d Dataset) Len() int {
	return len(d.Inputs)
}

// Slice returns the half-open row range [start, end).
func (d Dataset) Slice(start, end int) (Batch, error) {
	if start < 0 || start >= end || end > d.Len() {
		return Batch{}, errors.ErrInvalidRange
	}

	return Batch{
		Inputs:  d.Inputs[start:end],
		Labels:  d.Labels[start:end],
		Targets: d.Targets[start:end],
	}, nil
}

// Provider resolves a content ref to a dataset. Production deployments
// back this with content-addressed storage; tests and local mining use
// the synthetic provider.
type Provider interface {
	Load(ctx context.Context, ref string) (Dataset, error)
}
