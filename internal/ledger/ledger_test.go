package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postloop/content-pipeline/internal/domain"
	"github.com/postloop/content-pipeline/internal/logger"
)

type mockQuotaStore struct {
	decrementFunc func(ctx context.Context, requesterID string) (bool, error)
	calls         int
}

func (m *mockQuotaStore) Decrement(ctx context.Context, requesterID string) (bool, error) {
	m.calls++
	return m.decrementFunc(ctx, requesterID)
}

type mockUsageStore struct {
	events []*domain.UsageEvent
}

func (m *mockUsageStore) Append(_ context.Context, event *domain.UsageEvent) error {
	m.events = append(m.events, event)
	return nil
}

func TestCharge_MeteredSuccessTakesOneCredit(t *testing.T) {
	quota := &mockQuotaStore{decrementFunc: func(_ context.Context, _ string) (bool, error) {
		return true, nil
	}}
	usage := &mockUsageStore{}

	l := New(quota, usage, logger.NewNop())
	credits, err := l.Charge(context.Background(), "user-1", domain.PlanMetered, true, 1234)

	require.NoError(t, err)
	assert.Equal(t, 1, credits)
	assert.Equal(t, 1, quota.calls)

	require.Len(t, usage.events, 1)
	event := usage.events[0]
	assert.Equal(t, "user-1", event.RequesterID)
	assert.Equal(t, "content-pipeline", event.Service)
	assert.Equal(t, 1, event.CreditsUsed)
	assert.True(t, event.Success)
	assert.Equal(t, int64(1234), event.ResponseTimeMs)
	assert.NotEmpty(t, event.ID)
}

func TestCharge_FailedRunIsFreeButRecorded(t *testing.T) {
	quota := &mockQuotaStore{decrementFunc: func(_ context.Context, _ string) (bool, error) {
		t.Fatal("failed runs must not be charged")
		return false, nil
	}}
	usage := &mockUsageStore{}

	l := New(quota, usage, logger.NewNop())
	credits, err := l.Charge(context.Background(), "user-1", domain.PlanMetered, false, 500)

	require.NoError(t, err)
	assert.Zero(t, credits)

	require.Len(t, usage.events, 1)
	assert.Zero(t, usage.events[0].CreditsUsed)
	assert.False(t, usage.events[0].Success)
}

func TestCharge_UnlimitedPlanIsFreeButRecorded(t *testing.T) {
	quota := &mockQuotaStore{decrementFunc: func(_ context.Context, _ string) (bool, error) {
		t.Fatal("unlimited plans must not be decremented")
		return false, nil
	}}
	usage := &mockUsageStore{}

	l := New(quota, usage, logger.NewNop())
	credits, err := l.Charge(context.Background(), "user-1", domain.PlanUnlimited, true, 500)

	require.NoError(t, err)
	assert.Zero(t, credits)

	require.Len(t, usage.events, 1)
	assert.Zero(t, usage.events[0].CreditsUsed)
	assert.True(t, usage.events[0].Success)
}

func TestCharge_LostRaceBillsZero(t *testing.T) {
	// A concurrent run drained the last credit between the up-front check
	// and the charge. The conditional UPDATE affected zero rows.
	quota := &mockQuotaStore{decrementFunc: func(_ context.Context, _ string) (bool, error) {
		return false, nil
	}}
	usage := &mockUsageStore{}

	l := New(quota, usage, logger.NewNop())
	credits, err := l.Charge(context.Background(), "user-1", domain.PlanMetered, true, 500)

	require.NoError(t, err)
	assert.Zero(t, credits)
	require.Len(t, usage.events, 1)
	assert.Zero(t, usage.events[0].CreditsUsed)
}

func TestCharge_DecrementError(t *testing.T) {
	quota := &mockQuotaStore{decrementFunc: func(_ context.Context, _ string) (bool, error) {
		return false, errors.New("connection reset")
	}}
	usage := &mockUsageStore{}

	l := New(quota, usage, logger.NewNop())
	_, err := l.Charge(context.Background(), "user-1", domain.PlanMetered, true, 500)

	require.Error(t, err)
}
