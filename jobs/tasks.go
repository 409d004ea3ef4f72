// Package jobs contains the background task definitions and the Asynq
// worker plumbing that runs them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Queue and task type names. Task types are stable identifiers shared by
// the scheduler and the worker mux.
const (
	QueueDefault = "default"

	TaskTokenPurge = "auth:token_purge"
)

// TokenPurgePayload configures one purge run.
type TokenPurgePayload struct {
	// DryRun counts deletable rows without removing them.
	DryRun bool `json:"dry_run"`
}

// NewTokenPurgeTask builds the purge task for scheduling or ad-hoc
// enqueueing.
func NewTokenPurgeTask(dryRun bool) (*asynq.Task, error) {
	payload, err := json.Marshal(TokenPurgePayload{DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTokenPurge, payload), nil
}
