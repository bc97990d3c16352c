package task

import (
	"time"

	"github.com/ccoin-network/pouw/pkg/errors"
)

type State uint8

const (
	Pending State = iota
	Claimed
	Computed
	Submitted
	Expired
	Released
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Claimed:
		return "Claimed"
	case Computed:
		return "Computed"
	case Submitted:
		return "Submitted"
	case Expired:
		return "Expired"
	case Released:
		return "Released"
	default:
		return "Unknown"
	}
}

// Task is a bounded training task issued by the ledger. It is immutable
// once created; only State and UpdatedAt change as the task moves
// through the queue.
type Task struct {
	ID            string    `json:"id"`
	ModelID       string    `json:"model_id"`
	DatasetRef    string    `json:"dataset_ref"`
	BatchStart    int       `json:"batch_start"`
	BatchEnd      int       `json:"batch_end"`
	ObjectiveHash string    `json:"objective_hash,omitempty"`
	Deadline      int64     `json:"deadline"`
	Reward        uint64    `json:"reward"`
	State         State     `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the half-open batch range [BatchStart, BatchEnd).
func (t Task) Validate() error {
	if t.BatchStart < 0 || t.BatchStart >= t.BatchEnd {
		return errors.ErrInvalidRange
	}

	return nil
}

// ExpiredAt reports whether the task deadline has passed at the given
// instant. A zero deadline never expires.
func (t Task) ExpiredAt(now time.Time) bool {
	return t.Deadline > 0 && now.Unix() > t.Deadline
}

type TaskPage struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
	Total  uint64 `json:"total"`
	Tasks  []Task `json:"tasks"`
}
