package dataset_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccoin-network/pouw/dataset"
	"github.com/ccoin-network/pouw/pkg/errors"
)

func TestSyntheticDeterminism(t *testing.T) {
	p := dataset.NewSyntheticProviderWithShape(100, 8, 4, 1)
	ctx := context.Background()

	first, err := p.Load(ctx, "bafy-train-0001")
	require.NoError(t, err)
	second, err := p.Load(ctx, "bafy-train-0001")
	require.NoError(t, err)

	assert.Equal(t, first.Inputs, second.Inputs)
	assert.Equal(t, first.Labels, second.Labels)
	assert.Equal(t, first.Targets, second.Targets)

	other, err := p.Load(ctx, "bafy-train-0002")
	require.NoError(t, err)
	assert.NotEqual(t, first.Inputs[0], other.Inputs[0])
}

func TestSyntheticShape(t *testing.T) {
	p := dataset.NewSyntheticProviderWithShape(50, 16, 3, 2)

	ds, err := p.Load(context.Background(), "ref")
	require.NoError(t, err)

	assert.Equal(t, 50, ds.Len())
	assert.Len(t, ds.Inputs[0], 16)
	assert.Len(t, ds.Targets[0], 2)
	for _, label := range ds.Labels {
		assert.GreaterOrEqual(t, label, 0)
		assert.Less(t, label, 3)
	}
}

func TestSlice(t *testing.T) {
	p := dataset.NewSyntheticProviderWithShape(100, 4, 2, 1)
	ds, err := p.Load(context.Background(), "ref")
	require.NoError(t, err)

	cases := []struct {
		name       string
		start, end int
		err        error
		length     int
	}{
		{name: "full prefix", start: 0, end: 32, length: 32},
		{name: "interior window", start: 10, end: 20, length: 10},
		{name: "tail", start: 90, end: 100, length: 10},
		{name: "empty range", start: 10, end: 10, err: errors.ErrInvalidRange},
		{name: "inverted range", start: 20, end: 10, err: errors.ErrInvalidRange},
		{name: "past the end", start: 90, end: 101, err: errors.ErrInvalidRange},
		{name: "negative start", start: -1, end: 10, err: errors.ErrInvalidRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			batch, err := ds.Slice(tc.start, tc.end)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.length, batch.Len())
			assert.Equal(t, ds.Inputs[tc.start], batch.Inputs[0])
		})
	}
}
