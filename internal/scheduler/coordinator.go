// Package scheduler runs the AWAKE/ASLEEP state machine that drives the
// display and the one-shot alarms from the schedule rules.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/kiosk-sleep/internal/alarm"
	"github.com/sweeney/kiosk-sleep/internal/config"
	"github.com/sweeney/kiosk-sleep/internal/display"
	"github.com/sweeney/kiosk-sleep/internal/logfields"
	"github.com/sweeney/kiosk-sleep/internal/logic"
	"github.com/sweeney/kiosk-sleep/internal/metrics"
)

// maxCoverageSteps bounds the walk across overlapping windows when looking
// for the end of a sleep period.
const maxCoverageSteps = 16

// Settings are the parts of the configuration the coordinator acts on.
type Settings struct {
	Enabled       bool
	WakeOnTouch   bool
	Brightness    int
	DimAfter      time.Duration
	DimBrightness int
	Rules         []logic.ScheduleRule
}

// SettingsFromConfig extracts coordinator settings from a loaded config.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Enabled:       cfg.Enabled,
		WakeOnTouch:   cfg.WakeOnTouch,
		Brightness:    cfg.Brightness,
		DimAfter:      cfg.DimAfter,
		DimBrightness: cfg.DimBrightness,
		Rules:         append([]logic.ScheduleRule(nil), cfg.Rules...),
	}
}

// Snapshot is a point-in-time view of the coordinator.
type Snapshot struct {
	State         logic.State
	Enabled       bool
	WakeOnTouch   bool
	Dimmed        bool
	RuleID        string // rule holding the screen asleep
	NextWake      time.Time
	NextSleep     time.Time
	NextSleepRule string
	OverrideUntil time.Time
	Rules         int
}

// Coordinator owns the scheduler state. Every input reads the current state
// under the lock, so the polling tick and the alarm callback cannot act on a
// stale view of each other's transitions.
type Coordinator struct {
	mu sync.Mutex

	display display.Controller
	alarms  alarm.Scheduler
	metrics metrics.Recorder
	now     func() time.Time

	settings Settings
	state    logic.State
	idle     *logic.IdleTimer

	activeRule    string
	nextWake      time.Time
	nextSleep     logic.SleepTransition
	overrideUntil time.Time
}

// New creates a coordinator in the AWAKE state. Call Start to evaluate the
// schedule for the first time. A nil recorder disables metrics and a nil
// clock uses time.Now.
func New(d display.Controller, a alarm.Scheduler, rec metrics.Recorder, s Settings, now func() time.Time) *Coordinator {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		display:  d,
		alarms:   a,
		metrics:  rec,
		now:      now,
		settings: s,
		state:    logic.StateAwake,
		idle:     logic.NewIdleTimer(s.DimAfter, now()),
	}
}

// Start performs the initial evaluation. If no window is active the display
// is switched on and the next sleep alarm is scheduled.
func (c *Coordinator) Start() []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	events := c.evaluate(now, logic.ReasonStartup)
	if c.state == logic.StateAwake {
		c.powerOn()
		c.metrics.SetAsleep(false)
	}
	slog.Info("Scheduler started",
		logfields.State(string(c.state)),
		slog.Bool("enabled", c.settings.Enabled),
		slog.Int("rules", len(c.settings.Rules)))
	return events
}

// Tick is the low-frequency polling path. It moves into ASLEEP when a window
// has begun, out of it when the wake alarm was missed, and drives idle dim.
func (c *Coordinator) Tick() []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	events := c.evaluate(now, logic.ReasonSchedule)

	if c.state == logic.StateAwake && c.idle.Check(now) {
		slog.Debug("Idle timeout, dimming display", slog.Int("brightness", c.settings.DimBrightness))
		c.setBrightness(c.settings.DimBrightness)
	}
	return events
}

// AlarmFired handles an elapsed one-shot alarm. An alarm that no longer
// matches the current state is ignored.
func (c *Coordinator) AlarmFired(tag string) []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	switch tag {
	case alarm.TagSleep:
		c.nextSleep = logic.SleepTransition{}
		if c.state == logic.StateAsleep {
			slog.Debug("Ignoring sleep alarm, already asleep", logfields.AlarmTag(tag))
			return nil
		}
	case alarm.TagWake:
		c.nextWake = time.Time{}
		if c.state == logic.StateAwake {
			slog.Debug("Ignoring wake alarm, already awake", logfields.AlarmTag(tag))
			return nil
		}
	default:
		slog.Warn("Ignoring unknown alarm", logfields.AlarmTag(tag))
		return nil
	}
	return c.evaluate(now, logic.ReasonAlarm)
}

// Touch records user activity. A dimmed screen is restored; a sleeping
// screen is woken when wake-on-touch is enabled.
func (c *Coordinator) Touch() []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.state == logic.StateAsleep {
		if !c.settings.WakeOnTouch {
			return nil
		}
		return c.wakeManually(now, logic.ReasonTouch)
	}

	if c.idle.Touch(now) {
		slog.Debug("Activity, restoring brightness")
		c.setBrightness(c.settings.Brightness)
	}
	return nil
}

// Wake is an explicit user wake request. The screen stays awake until the
// current sleep period ends.
func (c *Coordinator) Wake(reason logic.Reason) []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != logic.StateAsleep {
		return nil
	}
	return c.wakeManually(c.now(), reason)
}

// SetEnabled turns the schedule on or off. Disabling wakes the screen at once
// and cancels every pending alarm.
func (c *Coordinator) SetEnabled(enabled bool) []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settings.Enabled == enabled {
		return nil
	}
	c.settings.Enabled = enabled
	slog.Info("Scheduler enabled changed", slog.Bool("enabled", enabled))

	reason := logic.ReasonSchedule
	if !enabled {
		reason = logic.ReasonDisabled
	}
	return c.evaluate(c.now(), reason)
}

// Apply replaces the settings, as after a config reload, and re-evaluates.
func (c *Coordinator) Apply(s Settings) []logic.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.settings
	c.settings = s
	c.idle.SetDimAfter(s.DimAfter)

	// Alarms were computed from the old rules.
	c.nextWake = time.Time{}
	c.nextSleep = logic.SleepTransition{}

	if c.state == logic.StateAwake && !c.idle.Dimmed() && prev.Brightness != s.Brightness {
		c.setBrightness(s.Brightness)
	}

	slog.Info("Scheduler settings applied",
		slog.Bool("enabled", s.Enabled),
		slog.Bool("wake_on_touch", s.WakeOnTouch),
		slog.Int("rules", len(s.Rules)))

	reason := logic.ReasonSchedule
	if prev.Enabled && !s.Enabled {
		reason = logic.ReasonDisabled
	}
	return c.evaluate(c.now(), reason)
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		State:         c.state,
		Enabled:       c.settings.Enabled,
		WakeOnTouch:   c.settings.WakeOnTouch,
		Dimmed:        c.idle.Dimmed(),
		RuleID:        c.activeRule,
		NextWake:      c.nextWake,
		NextSleep:     c.nextSleep.At,
		NextSleepRule: c.nextSleep.Rule.ID,
		OverrideUntil: c.overrideUntil,
		Rules:         len(c.settings.Rules),
	}
}

// evaluate reconciles the state with the schedule at now. Must hold c.mu.
func (c *Coordinator) evaluate(now time.Time, reason logic.Reason) []logic.Event {
	if !c.overrideUntil.IsZero() && !now.Before(c.overrideUntil) {
		slog.Debug("Manual wake override expired", logfields.At(c.overrideUntil))
		c.overrideUntil = time.Time{}
	}

	if !c.settings.Enabled {
		c.overrideUntil = time.Time{}
		if c.state == logic.StateAsleep {
			// enterAwake cancels the wake alarm and schedules nothing.
			c.cancelAlarm(alarm.TagSleep)
			return []logic.Event{c.enterAwake(now, reason)}
		}
		if reason == logic.ReasonDisabled {
			c.cancelAlarm(alarm.TagWake)
			c.cancelAlarm(alarm.TagSleep)
		}
		c.nextSleep = logic.SleepTransition{}
		return nil
	}

	shouldSleep := c.overrideUntil.IsZero() && logic.IsAsleep(c.settings.Rules, now)

	switch {
	case c.state == logic.StateAwake && shouldSleep:
		return []logic.Event{c.enterAsleep(now, reason)}
	case c.state == logic.StateAsleep && !shouldSleep:
		return []logic.Event{c.enterAwake(now, reason)}
	case c.state == logic.StateAsleep:
		// Another rule may still hold the screen after the first wake.
		if rule, ok := logic.ActiveRule(c.settings.Rules, now); ok {
			c.activeRule = rule.ID
		}
		if !c.nextWake.After(now) {
			c.scheduleWake(now)
		}
	default:
		if !c.nextSleep.At.After(now) {
			c.scheduleSleep(now)
		}
	}
	return nil
}

func (c *Coordinator) enterAsleep(now time.Time, reason logic.Reason) logic.Event {
	rule, _ := logic.ActiveRule(c.settings.Rules, now)
	c.state = logic.StateAsleep
	c.activeRule = rule.ID
	c.idle.Suppress()

	if err := c.display.TurnOff(); err != nil {
		slog.Warn("Display power off failed, dimming instead", logfields.Error(err))
		c.metrics.IncPlatformFailure("display_off")
		c.setBrightness(0)
	}

	c.cancelAlarm(alarm.TagSleep)
	c.nextSleep = logic.SleepTransition{}
	c.scheduleWake(now)

	c.metrics.IncTransition(string(logic.StateAsleep), string(reason))
	c.metrics.SetAsleep(true)
	slog.Info("Screen asleep",
		logfields.Reason(string(reason)),
		logfields.RuleID(rule.ID),
		logfields.At(c.nextWake))

	return logic.Event{
		Timestamp: now,
		Type:      logic.EventScheduledSleep,
		Reason:    reason,
		State:     logic.StateAsleep,
		RuleID:    rule.ID,
		Next:      c.nextWake,
	}
}

func (c *Coordinator) enterAwake(now time.Time, reason logic.Reason) logic.Event {
	ruleID := c.activeRule
	c.state = logic.StateAwake
	c.activeRule = ""

	c.cancelAlarm(alarm.TagWake)
	c.nextWake = time.Time{}

	c.powerOn()
	c.idle.Resume(now)

	if c.settings.Enabled {
		c.scheduleSleep(now)
	}

	c.metrics.IncTransition(string(logic.StateAwake), string(reason))
	c.metrics.SetAsleep(false)
	slog.Info("Screen awake",
		logfields.Reason(string(reason)),
		logfields.RuleID(ruleID),
		logfields.At(c.nextSleep.At))

	return logic.Event{
		Timestamp: now,
		Type:      logic.EventScheduledWake,
		Reason:    reason,
		State:     logic.StateAwake,
		RuleID:    ruleID,
		Next:      c.nextSleep.At,
	}
}

// wakeManually wakes the screen and holds it awake until the sleep period
// covering now ends. Must hold c.mu.
func (c *Coordinator) wakeManually(now time.Time, reason logic.Reason) []logic.Event {
	if end, ok := sleepPeriodEnd(c.settings.Rules, now); ok {
		c.overrideUntil = end
	}
	return []logic.Event{c.enterAwake(now, reason)}
}

func (c *Coordinator) scheduleWake(now time.Time) {
	wake, ok := logic.NextWakeTime(c.settings.Rules, now)
	if !ok {
		c.nextWake = time.Time{}
		return
	}
	c.nextWake = wake
	c.scheduleAlarm(wake, alarm.TagWake)
}

func (c *Coordinator) scheduleSleep(now time.Time) {
	next, ok := logic.NextSleepTime(c.settings.Rules, now)
	if !ok {
		c.nextSleep = logic.SleepTransition{}
		c.cancelAlarm(alarm.TagSleep)
		return
	}
	c.nextSleep = next
	c.scheduleAlarm(next.At, alarm.TagSleep)
}

// scheduleAlarm arms a one-shot alarm. On failure the polling tick remains
// the only path for this transition.
func (c *Coordinator) scheduleAlarm(at time.Time, tag string) {
	if err := c.alarms.ScheduleAt(at, tag); err != nil {
		slog.Warn("Failed to schedule alarm, relying on polling",
			logfields.AlarmTag(tag), logfields.At(at), logfields.Error(err))
		c.metrics.IncPlatformFailure("alarm_schedule")
		return
	}
	slog.Debug("Alarm scheduled", logfields.AlarmTag(tag), logfields.At(at))
}

func (c *Coordinator) cancelAlarm(tag string) {
	if err := c.alarms.Cancel(tag); err != nil {
		slog.Warn("Failed to cancel alarm", logfields.AlarmTag(tag), logfields.Error(err))
		c.metrics.IncPlatformFailure("alarm_cancel")
	}
}

// powerOn switches the display on and restores the configured brightness,
// which also undoes a brightness-proxy sleep or an idle dim.
func (c *Coordinator) powerOn() {
	if err := c.display.TurnOn(); err != nil {
		slog.Warn("Display power on failed, restoring brightness only", logfields.Error(err))
		c.metrics.IncPlatformFailure("display_on")
	}
	c.setBrightness(c.settings.Brightness)
}

func (c *Coordinator) setBrightness(percent int) {
	if err := c.display.SetBrightness(percent); err != nil {
		slog.Error("Failed to set display brightness", slog.Int("brightness", percent), logfields.Error(err))
		c.metrics.IncPlatformFailure("brightness")
	}
}

// sleepPeriodEnd follows overlapping windows from now to the first instant
// no enabled rule covers.
func sleepPeriodEnd(rules []logic.ScheduleRule, now time.Time) (time.Time, bool) {
	end, ok := logic.NextWakeTime(rules, now)
	if !ok {
		return time.Time{}, false
	}
	for i := 0; i < maxCoverageSteps; i++ {
		next, covered := logic.NextWakeTime(rules, end)
		if !covered || !next.After(end) {
			break
		}
		end = next
	}
	return end, true
}
