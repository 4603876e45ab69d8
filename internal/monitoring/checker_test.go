package monitoring

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jellelicht/exposure-agent/internal/state"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) ExposureDetected(ctx context.Context, exposureDate time.Time) error {
	args := m.Called(ctx, exposureDate)
	return args.Error(0)
}

func (m *mockNotifier) ProcessingOverdue(ctx context.Context, lastProcessed time.Time) error {
	args := m.Called(ctx, lastProcessed)
	return args.Error(0)
}

func newTestStore(t *testing.T) state.Store {
	t.Helper()
	st, err := state.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestChecker_AlertsOnceOnTransition(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	last := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.SetLastKeysProcessed(ctx, last))

	notifier := &mockNotifier{}
	notifier.On("ProcessingOverdue", mock.Anything, last).Return(nil).Once()
	defer notifier.AssertExpectations(t)

	c := NewChecker(st, notifier, time.Minute)
	c.now = func() time.Time { return last.Add(25 * time.Hour) }

	log := testLogger()
	c.check(ctx, log)
	// Second check while still overdue: no second alert.
	c.check(ctx, log)
	assert.True(t, c.wasOverdue)
}

func TestChecker_NoAlertWhenHealthy(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	last := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.SetLastKeysProcessed(ctx, last))

	notifier := &mockNotifier{}
	defer notifier.AssertExpectations(t)

	c := NewChecker(st, notifier, time.Minute)
	c.now = func() time.Time { return last.Add(time.Hour) }

	c.check(ctx, testLogger())
	assert.False(t, c.wasOverdue)
}

func TestChecker_NoAlertWhenNeverProcessed(t *testing.T) {
	st := newTestStore(t)

	notifier := &mockNotifier{}
	defer notifier.AssertExpectations(t)

	c := NewChecker(st, notifier, time.Minute)
	c.check(context.Background(), testLogger())
	assert.False(t, c.wasOverdue)
}

func TestChecker_AlertsAgainAfterRecovery(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	last := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.SetLastKeysProcessed(ctx, last))

	notifier := &mockNotifier{}
	notifier.On("ProcessingOverdue", mock.Anything, mock.Anything).Return(nil).Twice()
	defer notifier.AssertExpectations(t)

	c := NewChecker(st, notifier, time.Minute)

	// Overdue.
	c.now = func() time.Time { return last.Add(25 * time.Hour) }
	c.check(ctx, testLogger())

	// A cycle succeeds; the agent recovers.
	recovered := last.Add(26 * time.Hour)
	require.NoError(t, st.SetLastKeysProcessed(ctx, recovered))
	c.check(ctx, testLogger())

	// It goes overdue again: a fresh alert fires.
	c.now = func() time.Time { return recovered.Add(25 * time.Hour) }
	c.check(ctx, testLogger())
}
