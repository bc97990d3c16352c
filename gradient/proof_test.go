package gradient_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/task"
)

func proofFixture() (task.Task, string, float64, map[string]float64, int64) {
	t := task.Task{
		ID:         "task-1",
		ModelID:    "test_mlp",
		DatasetRef: "bafy-train-0001",
		BatchStart: 0,
		BatchEnd:   32,
	}
	metrics := map[string]float64{
		"loss":     0.93,
		"accuracy": 0.71,
	}

	return t, "ab12", 0.8, metrics, 1700000000
}

func TestGenerateProofReproducible(t *testing.T) {
	tsk, hash, score, metrics, issuedAt := proofFixture()

	first := gradient.GenerateProof(tsk, hash, score, metrics, issuedAt)
	second := gradient.GenerateProof(tsk, hash, score, metrics, issuedAt)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestGenerateProofBindsInputs(t *testing.T) {
	tsk, hash, score, metrics, issuedAt := proofFixture()
	baseline := gradient.GenerateProof(tsk, hash, score, metrics, issuedAt)

	other := tsk
	other.ID = "task-2"
	assert.NotEqual(t, baseline, gradient.GenerateProof(other, hash, score, metrics, issuedAt))

	assert.NotEqual(t, baseline, gradient.GenerateProof(tsk, "cd34", score, metrics, issuedAt))
	assert.NotEqual(t, baseline, gradient.GenerateProof(tsk, hash, 0.81, metrics, issuedAt))
	assert.NotEqual(t, baseline, gradient.GenerateProof(tsk, hash, score, metrics, issuedAt+1))

	tampered := map[string]float64{
		"loss":     0.93,
		"accuracy": 0.72,
	}
	assert.NotEqual(t, baseline, gradient.GenerateProof(tsk, hash, score, tampered, issuedAt))
}

func TestVerifyProof(t *testing.T) {
	tsk, hash, score, metrics, issuedAt := proofFixture()
	proof := gradient.GenerateProof(tsk, hash, score, metrics, issuedAt)

	assert.True(t, gradient.VerifyProof(proof, tsk, hash, score, metrics, issuedAt))

	// Any flipped byte must fail verification.
	for i := range proof {
		flipped := make([]byte, len(proof))
		copy(flipped, proof)
		flipped[i] ^= 0x01
		assert.False(t, gradient.VerifyProof(flipped, tsk, hash, score, metrics, issuedAt))
	}

	assert.False(t, gradient.VerifyProof(nil, tsk, hash, score, metrics, issuedAt))
	assert.False(t, gradient.VerifyProof(proof, tsk, hash, score, metrics, issuedAt+1))
}
