package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCron_ScheduleReplacesPreviousEntry(t *testing.T) {
	s := NewCron(func() {})
	defer s.Stop()

	require.NoError(t, s.Schedule(240))
	assert.Len(t, s.cron.Entries(), 1)

	// Re-arming with a new interval keeps exactly one entry.
	require.NoError(t, s.Schedule(60))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestCron_Cancel(t *testing.T) {
	s := NewCron(func() {})
	defer s.Stop()

	require.NoError(t, s.Schedule(240))
	s.Cancel()
	assert.Empty(t, s.cron.Entries())

	// Cancelling twice is harmless.
	s.Cancel()
}

func TestCron_RejectsNonPositiveInterval(t *testing.T) {
	s := NewCron(func() {})
	defer s.Stop()

	assert.Error(t, s.Schedule(0))
	assert.Error(t, s.Schedule(-5))
}
