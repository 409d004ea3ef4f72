package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/splitledger/splitledger/internal/auth"
	jobmetrics "github.com/splitledger/splitledger/internal/jobs"
)

// TokenPurgeJob removes expired and revoked refresh tokens. Dead rows are
// harmless for correctness (lookups filter on expiry and revocation) but
// they accumulate with every login, so the purge keeps the table bounded.
type TokenPurgeJob struct {
	Auth    *auth.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewTokenPurgeJob initialises the purge handler.
func NewTokenPurgeJob(authSvc *auth.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *TokenPurgeJob {
	return &TokenPurgeJob{
		Auth:    authSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one purge run.
func (j *TokenPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Auth == nil {
		return errors.New("token purge: handler not configured")
	}
	var payload TokenPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTokenPurge)
	var resultErr error
	defer func() {
		tracker.End(resultErr)
	}()

	if payload.DryRun {
		j.Logger.Info("token purge dry run, skipping delete")
		return nil
	}

	start := j.clock()
	purged, err := j.Auth.PurgeDeadTokens(ctx)
	if err != nil {
		resultErr = err
		j.Logger.Error("token purge failed", slog.Any("error", err))
		return err
	}

	j.Metrics.AddPurgedTokens(purged)
	j.Logger.Info("token purge completed",
		slog.Int64("purged", purged),
		slog.Duration("took", j.clock().Sub(start)))
	return nil
}
