package exposure

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jellelicht/exposure-agent/internal/state"
	"github.com/jellelicht/exposure-agent/pkg/enengine"
	enginemocks "github.com/jellelicht/exposure-agent/pkg/enengine/mocks"
)

// --- Notifier mock ---

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

var fixedNow = time.Date(2021, 7, 10, 15, 30, 0, 0, time.UTC)

func day(daysAgo int) time.Time {
	return time.Date(2021, 7, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
}

func newTestTracker(t *testing.T) (*Tracker, *enginemocks.MockEngine, *mockNotifier, state.Store) {
	t.Helper()
	engine := enginemocks.NewMockEngine(t)
	notifier := &mockNotifier{}
	t.Cleanup(func() { notifier.AssertExpectations(t) })

	st, err := state.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	tr := New(engine, st, notifier)
	tr.now = func() time.Time { return fixedNow }
	return tr, engine, notifier, st
}

func TestRecordExposure_FirstExposureIsStored(t *testing.T) {
	tr, engine, notifier, st := newTestTracker(t)
	ctx := context.Background()

	engine.On("GetSummary", mock.Anything, "tok-1").
		Return(&enengine.Summary{DaysSinceLastExposure: 8}, nil).Once()
	notifier.On("ExposureDetected", mock.Anything, day(8)).Return(nil).Once()

	require.NoError(t, tr.RecordExposure(ctx, "tok-1"))

	got, err := st.LastExposure(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, day(8), got.Date)
}

func TestRecordExposure_MoreRecentExposureWins(t *testing.T) {
	tr, engine, notifier, st := newTestTracker(t)
	ctx := context.Background()

	engine.On("GetSummary", mock.Anything, "tok-1").
		Return(&enengine.Summary{DaysSinceLastExposure: 8}, nil)
	engine.On("GetSummary", mock.Anything, "tok-2").
		Return(&enengine.Summary{DaysSinceLastExposure: 4}, nil)
	notifier.On("ExposureDetected", mock.Anything, mock.Anything).Return(nil).Twice()

	require.NoError(t, tr.RecordExposure(ctx, "tok-1"))
	require.NoError(t, tr.RecordExposure(ctx, "tok-2"))

	got, err := st.LastExposure(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-2", got.Token)
	assert.Equal(t, day(4), got.Date)
}

func TestRecordExposure_OlderExposureDoesNotOverwrite(t *testing.T) {
	tr, engine, notifier, st := newTestTracker(t)
	ctx := context.Background()

	engine.On("GetSummary", mock.Anything, "tok-recent").
		Return(&enengine.Summary{DaysSinceLastExposure: 4}, nil)
	engine.On("GetSummary", mock.Anything, "tok-old").
		Return(&enengine.Summary{DaysSinceLastExposure: 8}, nil)
	notifier.On("ExposureDetected", mock.Anything, day(4)).Return(nil).Once()

	require.NoError(t, tr.RecordExposure(ctx, "tok-recent"))
	require.NoError(t, tr.RecordExposure(ctx, "tok-old"))

	got, err := st.LastExposure(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-recent", got.Token)
	assert.Equal(t, day(4), got.Date)
}

func TestRecordExposure_EqualAgeDoesNotOverwrite(t *testing.T) {
	tr, engine, notifier, st := newTestTracker(t)
	ctx := context.Background()

	engine.On("GetSummary", mock.Anything, "tok-1").
		Return(&enengine.Summary{DaysSinceLastExposure: 4}, nil)
	engine.On("GetSummary", mock.Anything, "tok-2").
		Return(&enengine.Summary{DaysSinceLastExposure: 4}, nil)
	notifier.On("ExposureDetected", mock.Anything, day(4)).Return(nil).Once()

	require.NoError(t, tr.RecordExposure(ctx, "tok-1"))
	require.NoError(t, tr.RecordExposure(ctx, "tok-2"))

	got, err := st.LastExposure(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-1", got.Token)
}

func TestRecordExposure_NoSummaryIsNoop(t *testing.T) {
	tr, engine, _, st := newTestTracker(t)
	ctx := context.Background()

	engine.On("GetSummary", mock.Anything, "tok-1").Return(nil, nil).Once()

	require.NoError(t, tr.RecordExposure(ctx, "tok-1"))

	got, err := st.LastExposure(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReset_ClearsRecord(t *testing.T) {
	tr, engine, notifier, st := newTestTracker(t)
	ctx := context.Background()

	engine.On("GetSummary", mock.Anything, "tok-1").
		Return(&enengine.Summary{DaysSinceLastExposure: 4}, nil).Once()
	notifier.On("ExposureDetected", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, tr.RecordExposure(ctx, "tok-1"))

	require.NoError(t, tr.Reset(ctx))

	got, err := st.LastExposure(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func recv(t *testing.T, ch <-chan *time.Time) *time.Time {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for observed value")
		return nil
	}
}

func TestObserveLastExposureDate_EmitsOnChange(t *testing.T) {
	tr, engine, notifier, _ := newTestTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := tr.ObserveLastExposureDate(ctx)

	// No record yet: the seed emission is absent.
	assert.Nil(t, recv(t, ch))

	engine.On("GetSummary", mock.Anything, "tok-1").
		Return(&enengine.Summary{DaysSinceLastExposure: 4}, nil)
	notifier.On("ExposureDetected", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, tr.RecordExposure(ctx, "tok-1"))

	got := recv(t, ch)
	require.NotNil(t, got)
	assert.Equal(t, day(4), *got)
}

func TestObserveLastExposureDate_StaleTokenResets(t *testing.T) {
	tr, engine, _, st := newTestTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A token is stored, but the engine no longer has a summary for it.
	require.NoError(t, st.SetLastExposure(ctx, "tok-stale", day(4)))
	engine.On("GetSummary", mock.Anything, "tok-stale").Return(nil, nil)

	ch := tr.ObserveLastExposureDate(ctx)

	assert.Nil(t, recv(t, ch))

	got, err := st.LastExposure(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
