package api

import (
	"net/http"

	"github.com/absmach/supermq"

	"github.com/ccoin-network/pouw/coordinator"
	"github.com/ccoin-network/pouw/gradient"
	"github.com/ccoin-network/pouw/model"
	"github.com/ccoin-network/pouw/task"
)

var (
	_ supermq.Response = (*taskResponse)(nil)
	_ supermq.Response = (*listTaskResponse)(nil)
	_ supermq.Response = (*releaseResponse)(nil)
	_ supermq.Response = (*resultResponse)(nil)
	_ supermq.Response = (*verifyResponse)(nil)
	_ supermq.Response = (*modelResponse)(nil)
	_ supermq.Response = (*listModelsResponse)(nil)
	_ supermq.Response = (*inferResponse)(nil)
	_ supermq.Response = (*healthResponse)(nil)
)

type taskResponse struct {
	task.Task
	created bool
}

func (t taskResponse) Code() int {
	if t.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (t taskResponse) Headers() map[string]string {
	if t.created {
		return map[string]string{
			"Location": "/tasks/" + t.ID,
		}
	}

	return map[string]string{}
}

func (t taskResponse) Empty() bool {
	return false
}

type listTaskResponse struct {
	task.TaskPage
}

func (l listTaskResponse) Code() int {
	return http.StatusOK
}

func (l listTaskResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listTaskResponse) Empty() bool {
	return false
}

type releaseResponse struct{}

func (r releaseResponse) Code() int {
	return http.StatusNoContent
}

func (r releaseResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r releaseResponse) Empty() bool {
	return true
}

type resultResponse struct {
	gradient.ComputeResult
	submitted bool
}

func (r resultResponse) Code() int {
	if r.submitted {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (r resultResponse) Headers() map[string]string {
	if r.submitted {
		return map[string]string{
			"Location": "/tasks/" + r.TaskID + "/result",
		}
	}

	return map[string]string{}
}

func (r resultResponse) Empty() bool {
	return false
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (v verifyResponse) Code() int {
	return http.StatusOK
}

func (v verifyResponse) Headers() map[string]string {
	return map[string]string{}
}

func (v verifyResponse) Empty() bool {
	return false
}

type modelResponse struct {
	model.Config
	created bool
}

func (m modelResponse) Code() int {
	if m.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (m modelResponse) Headers() map[string]string {
	if m.created {
		return map[string]string{
			"Location": "/models/" + m.ModelID,
		}
	}

	return map[string]string{}
}

func (m modelResponse) Empty() bool {
	return false
}

type listModelsResponse struct {
	Models []string `json:"models"`
}

func (l listModelsResponse) Code() int {
	return http.StatusOK
}

func (l listModelsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listModelsResponse) Empty() bool {
	return false
}

type inferResponse struct {
	coordinator.Inference
}

func (i inferResponse) Code() int {
	return http.StatusOK
}

func (i inferResponse) Headers() map[string]string {
	return map[string]string{}
}

func (i inferResponse) Empty() bool {
	return false
}

type healthResponse struct {
	coordinator.Health
}

func (h healthResponse) Code() int {
	return http.StatusOK
}

func (h healthResponse) Headers() map[string]string {
	return map[string]string{}
}

func (h healthResponse) Empty() bool {
	return false
}
