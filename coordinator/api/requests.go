package api

import (
	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/task"
)

type taskReq struct {
	task.Task `json:",inline"`
}

func (t *taskReq) validate() error {
	if t.ModelID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}

type resultReq struct {
	gradient.ComputeResult `json:",inline"`
}

func (r *resultReq) validate() error {
	if r.TaskID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type modelReq struct {
	model.Config `json:",inline"`
}

func (m *modelReq) validate() error {
	if m.ModelID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type inferReq struct {
	id     string
	Inputs [][]float64 `json:"inputs"`
}

func (i *inferReq) validate() error {
	if i.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}
