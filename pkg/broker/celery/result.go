package celery

import (
	"encoding/json"
)

// TaskStatus is a Celery task state as stored in the result backend.
type TaskStatus string

const (
	StatusPending TaskStatus = "PENDING"
	StatusStarted TaskStatus = "STARTED"
	StatusSuccess TaskStatus = "SUCCESS"
	StatusFailure TaskStatus = "FAILURE"
	StatusRetry   TaskStatus = "RETRY"
)

// TaskResult is the worker-written payload under celery-task-meta-{id}.
// The result field is opaque to the core and passed through verbatim.
type TaskResult struct {
	Status    TaskStatus        `json:"status"`
	Result    json.RawMessage   `json:"result"`
	Traceback *string           `json:"traceback"`
	Children  []json.RawMessage `json:"children"`
	TaskID    string            `json:"task_id,omitempty"`
}

// PendingResult synthesizes the state of a task whose result key does not
// exist yet. Celery itself treats unknown task IDs as PENDING.
func PendingResult(taskID string) *TaskResult {
	return &TaskResult{
		Status:   StatusPending,
		Result:   json.RawMessage("null"),
		Children: []json.RawMessage{},
		TaskID:   taskID,
	}
}

// UserError derives the user-visible error string for a result:
// the traceback on FAILURE, otherwise an "error" field inside an object
// result, otherwise empty.
func (r *TaskResult) UserError() string {
	if r.Status == StatusFailure {
		if r.Traceback != nil {
			return *r.Traceback
		}
		return ""
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(r.Result, &obj); err != nil {
		return ""
	}
	raw, ok := obj["error"]
	if !ok {
		return ""
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return string(raw)
	}
	return msg
}
