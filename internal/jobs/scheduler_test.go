package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type observed struct {
	job string
	ok  bool
}

type recordingObserver struct{ runs []observed }

func (r *recordingObserver) ObserveJob(job string, ok bool) {
	r.runs = append(r.runs, observed{job, ok})
}

type mockUsers struct{ mock.Mock }

func (m *mockUsers) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockCartItems struct{ mock.Mock }

func (m *mockCartItems) PurgeInactive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type fakeLimiter struct{ idle time.Duration }

func (f *fakeLimiter) Cleanup(idle time.Duration) int {
	f.idle = idle
	return 3
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScheduler_RunOnceObservesOutcome(t *testing.T) {
	obs := &recordingObserver{}
	s := NewScheduler(quietLogger(), obs)

	s.RunOnce("ok", func(context.Context) (int64, error) { return 2, nil })
	s.RunOnce("bad", func(context.Context) (int64, error) { return 0, errors.New("db down") })

	assert.Equal(t, []observed{{"ok", true}, {"bad", false}}, obs.runs)
}

func TestMaintenanceJobs(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	users := new(mockUsers)
	users.On("ClearExpiredResetTokens", mock.Anything, now).Return(int64(4), nil)
	n, err := ClearExpiredResetTokens(users, func() time.Time { return now })(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	users.AssertExpectations(t)

	items := new(mockCartItems)
	items.On("PurgeInactive", mock.Anything).Return(int64(7), nil)
	n, err = PurgeInactiveCartItems(items)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	rl := &fakeLimiter{}
	n, err = CleanupRateLimiters(rl)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, rateLimiterIdle, rl.idle)
}

func TestRegisterMaintenance(t *testing.T) {
	s := NewScheduler(quietLogger(), nil)
	require.NoError(t, RegisterMaintenance(s, "@every 1h", new(mockUsers), new(mockCartItems), &fakeLimiter{}))
	assert.Len(t, s.cron.Entries(), 3)

	assert.Error(t, RegisterMaintenance(NewScheduler(quietLogger(), nil), "not a spec", new(mockUsers), new(mockCartItems), nil))
}
