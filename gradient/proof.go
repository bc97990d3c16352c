package gradient

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"

	"github.com/ccoin-network/pouw/task"
)

// proofRecord is the canonical serialization of a commitment. Struct
// fields marshal in declaration order and encoding/json emits map keys
// sorted, so identical inputs always produce identical bytes. The
// timestamp is an input, not captured internally, which keeps the
// commitment reproducible by a verifier.
type proofRecord struct {
	TaskID       string             `json:"task_id"`
	GradientHash string             `json:"gradient_hash"`
	QualityScore float64            `json:"quality_score"`
	Metrics      map[string]float64 `json:"metrics"`
	IssuedAt     int64              `json:"issued_at"`
}

// GenerateProof builds a hash-based integrity commitment binding the
// task, gradient digest, quality score and metrics at issuedAt. It is a
// placeholder for a zk proof: it lets a third party check the claimed
// values were bound together, not that the computation was executed
// correctly.
func GenerateProof(t task.Task, gradientHash string, qualityScore float64, metrics map[string]float64, issuedAt int64) []byte {
	record := proofRecord{
		TaskID:       t.ID,
		GradientHash: gradientHash,
		QualityScore: qualityScore,
		Metrics:      metrics,
		IssuedAt:     issuedAt,
	}

	data, err := json.Marshal(record)
	if err != nil {
		// Only non-finite floats can fail here; those are rejected
		// before a proof is ever generated.
		return nil
	}

	sum := sha256.Sum256(data)

	return sum[:]
}

// VerifyProof regenerates the commitment from the claimed inputs and
// byte-compares it against the supplied proof.
func VerifyProof(proof []byte, t task.Task, gradientHash string, qualityScore float64, metrics map[string]float64, issuedAt int64) bool {
	expected := GenerateProof(t, gradientHash, qualityScore, metrics, issuedAt)

	return len(proof) > 0 && bytes.Equal(proof, expected)
}
