// Package monitoring watches the agent's processing health in the
// background and alerts when key processing falls behind.
package monitoring

import (
	"time"
)

// ProcessingOverdueAfter is how long key processing may go without a
// fully successful cycle before the agent is considered overdue.
const ProcessingOverdueAfter = 24 * time.Hour

// KeysOverdue reports whether too much time has elapsed since the last
// successful processing cycle. A nil lastProcessed means processing has
// never run, which is "not yet started", not overdue.
func KeysOverdue(lastProcessed *time.Time, now time.Time) bool {
	if lastProcessed == nil {
		return false
	}
	return now.Sub(*lastProcessed) > ProcessingOverdueAfter
}
