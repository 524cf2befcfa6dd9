package domain

import "time"

// Plan is the billing plan attached to a quota account.
type Plan string

const (
	// PlanMetered decrements one credit per successful run.
	PlanMetered Plan = "metered"
	// PlanUnlimited never decrements.
	PlanUnlimited Plan = "unlimited"
)

// QuotaAccount tracks the credits remaining for one requester.
// Remaining is only meaningful for metered accounts and never goes negative.
type QuotaAccount struct {
	RequesterID string    `db:"requester_id" json:"requester_id"`
	Plan        Plan      `db:"plan"         json:"plan"`
	Remaining   int       `db:"remaining"    json:"remaining"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}

// HasCredit reports whether the account can pay for one more run.
func (a *QuotaAccount) HasCredit() bool {
	return a.Plan == PlanUnlimited || a.Remaining >= 1
}

// UsageEvent is an immutable audit record appended for every pipeline run,
// regardless of plan or outcome.
type UsageEvent struct {
	ID             string    `db:"id"               json:"id"`
	RequesterID    string    `db:"requester_id"     json:"requester_id"`
	Service        string    `db:"service"          json:"service"`
	CreditsUsed    int       `db:"credits_used"     json:"credits_used"`
	Success        bool      `db:"success"          json:"success"`
	ResponseTimeMs int64     `db:"response_time_ms" json:"response_time_ms"`
	CreatedAt      time.Time `db:"created_at"       json:"created_at"`
}
