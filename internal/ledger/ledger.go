// Package ledger settles a finished pipeline run against the requester's
// quota account and appends the usage audit trail.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
)

// serviceName tags every usage event written by this service.
const serviceName = "content-pipeline"

// QuotaStore is the slice of the quota repository the ledger needs.
type QuotaStore interface {
	Decrement(ctx context.Context, requesterID string) (bool, error)
}

// UsageStore appends immutable usage events.
type UsageStore interface {
	Append(ctx context.Context, event *domain.UsageEvent) error
}

// Ledger charges runs and records usage.
type Ledger struct {
	quota QuotaStore
	usage UsageStore
	log   logger.Logger
}

// New creates a ledger.
func New(quota QuotaStore, usage UsageStore, log logger.Logger) *Ledger {
	return &Ledger{quota: quota, usage: usage, log: log}
}

// Charge settles one run: a credit is taken only for a successful run on a
// metered plan, and a usage event is appended for every run regardless of
// plan or outcome. Returns the credits actually consumed.
//
// The decrement is conditional in SQL, so a concurrent run that drained the
// last credit results in zero rows affected here, never a negative balance.
// That case is logged and billed as zero rather than failing the run the
// user already received.
func (l *Ledger) Charge(ctx context.Context, requesterID string, plan domain.Plan, succeeded bool, responseTimeMs int64) (int, error) {
	credits := 0

	if succeeded && plan == domain.PlanMetered {
		taken, err := l.quota.Decrement(ctx, requesterID)
		if err != nil {
			return 0, fmt.Errorf("charge run: %w", err)
		}
		if taken {
			credits = 1
		} else {
			l.log.Warn("no credit available at charge time, billing zero",
				logger.String("requester_id", requesterID))
		}
	}

	event := &domain.UsageEvent{
		ID:             uuid.NewString(),
		RequesterID:    requesterID,
		Service:        serviceName,
		CreditsUsed:    credits,
		Success:        succeeded,
		ResponseTimeMs: responseTimeMs,
		CreatedAt:      time.Now().UTC(),
	}
	if err := l.usage.Append(ctx, event); err != nil {
		// The audit trail must not undo a run the user already received.
		l.log.Error("append usage event failed",
			logger.String("requester_id", requesterID),
			logger.Error(err))
	}

	return credits, nil
}
