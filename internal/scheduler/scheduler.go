// Package scheduler arms and disarms the periodic manifest processing
// job. The backend controls the interval, so the schedule is re-armed
// after every cycle.
package scheduler

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Scheduler runs a job on a backend-controlled interval.
type Scheduler interface {
	// Schedule (re)arms the job to run every intervalMinutes.
	Schedule(intervalMinutes int) error
	// Cancel disarms the job.
	Cancel()
}

// Cron implements Scheduler on a cron runner with @every entries.
type Cron struct {
	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
	job   func()
}

// NewCron creates a scheduler for the given job and starts the runner.
func NewCron(job func()) *Cron {
	c := &Cron{
		cron: cron.New(),
		job:  job,
	}
	c.cron.Start()
	return c
}

func (c *Cron) Schedule(intervalMinutes int) error {
	if intervalMinutes <= 0 {
		return eris.Errorf("scheduler: invalid interval %d minutes", intervalMinutes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry != 0 {
		c.cron.Remove(c.entry)
		c.entry = 0
	}

	entry, err := c.cron.AddFunc(fmt.Sprintf("@every %dm", intervalMinutes), c.job)
	if err != nil {
		return eris.Wrap(err, "scheduler: add job")
	}
	c.entry = entry

	zap.L().Info("processing job scheduled", zap.Int("interval_minutes", intervalMinutes))
	return nil
}

func (c *Cron) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry != 0 {
		c.cron.Remove(c.entry)
		c.entry = 0
		zap.L().Info("processing job cancelled")
	}
}

// Stop shuts the runner down and waits for a running job to finish.
func (c *Cron) Stop() {
	<-c.cron.Stop().Done()
}
