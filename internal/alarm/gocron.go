package alarm

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/sweeney/kiosk-sleep/internal/logfields"
)

// firedBuffer bounds how many elapsed alarms may queue before the run loop reads them.
const firedBuffer = 8

// GocronAlarm implements Scheduler with gocron one-time jobs.
type GocronAlarm struct {
	scheduler gocron.Scheduler
	now       func() time.Time

	mu   sync.Mutex
	jobs map[string]uuid.UUID

	fired chan string
}

// NewGocronAlarm creates and starts an alarm scheduler in loc.
func NewGocronAlarm(loc *time.Location) (*GocronAlarm, error) {
	opts := []gocron.SchedulerOption{}
	if loc != nil {
		opts = append(opts, gocron.WithLocation(loc))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.Start()

	return &GocronAlarm{
		scheduler: s,
		now:       time.Now,
		jobs:      make(map[string]uuid.UUID),
		fired:     make(chan string, firedBuffer),
	}, nil
}

// ScheduleAt schedules a one-shot alarm, replacing any pending alarm with the same tag.
func (a *GocronAlarm) ScheduleAt(at time.Time, tag string) error {
	if !at.After(a.now()) {
		return fmt.Errorf("%w: %s at %s", ErrInPast, tag, at.Format(time.RFC3339))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.removeLocked(tag); err != nil {
		return err
	}

	id := uuid.New()
	if _, err := a.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(a.fire, tag, id),
		gocron.WithName(fmt.Sprintf("%s-alarm", tag)),
		gocron.WithTags(tag),
		gocron.WithIdentifier(id),
	); err != nil {
		return fmt.Errorf("failed to create %s alarm: %w", tag, err)
	}
	a.jobs[tag] = id

	slog.Debug("Alarm scheduled", logfields.AlarmTag(tag), logfields.At(at))
	return nil
}

// Cancel removes a pending alarm. Cancelling an unknown or elapsed tag is not an error.
func (a *GocronAlarm) Cancel(tag string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.removeLocked(tag)
}

func (a *GocronAlarm) removeLocked(tag string) error {
	id, ok := a.jobs[tag]
	if !ok {
		return nil
	}
	delete(a.jobs, tag)
	if err := a.scheduler.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		return fmt.Errorf("failed to remove %s alarm: %w", tag, err)
	}
	return nil
}

// Fired returns the channel of elapsed alarm tags.
func (a *GocronAlarm) Fired() <-chan string {
	return a.fired
}

// fire is called by gocron on its own goroutine. A job that was replaced or
// cancelled after gocron dispatched it is dropped.
func (a *GocronAlarm) fire(tag string, id uuid.UUID) {
	a.mu.Lock()
	current, ok := a.jobs[tag]
	if !ok || current != id {
		a.mu.Unlock()
		return
	}
	delete(a.jobs, tag)
	a.mu.Unlock()

	select {
	case a.fired <- tag:
	default:
		slog.Warn("Alarm dropped, run loop not draining", logfields.AlarmTag(tag))
	}
}

// Close stops the scheduler.
func (a *GocronAlarm) Close() error {
	return a.scheduler.Shutdown()
}
