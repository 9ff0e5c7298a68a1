// Command kiosk-sleep powers a kiosk display down and up on a weekly schedule
// and publishes the transitions to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/kiosk-sleep/internal/alarm"
	"github.com/sweeney/kiosk-sleep/internal/config"
	"github.com/sweeney/kiosk-sleep/internal/display"
	"github.com/sweeney/kiosk-sleep/internal/gpio"
	"github.com/sweeney/kiosk-sleep/internal/input"
	"github.com/sweeney/kiosk-sleep/internal/logfields"
	"github.com/sweeney/kiosk-sleep/internal/logic"
	"github.com/sweeney/kiosk-sleep/internal/metrics"
	"github.com/sweeney/kiosk-sleep/internal/mqtt"
	"github.com/sweeney/kiosk-sleep/internal/scheduler"
	"github.com/sweeney/kiosk-sleep/internal/status"
	"github.com/sweeney/kiosk-sleep/internal/web"
)

// dotEnvPaths are tried in order before the command line is parsed, so
// their variables can feed the env tags below.
var dotEnvPaths = []string{".env", "/etc/kiosk-sleep/kiosk.env"}

var CLI struct {
	Config  string `short:"c" help:"Settings file path" default:"/etc/kiosk-sleep/kiosk.yaml" env:"KIOSK_CONFIG"`
	Verbose bool   `short:"v" help:"Enable verbose logging" env:"KIOSK_VERBOSE"`

	Run struct {
		Broker         string        `help:"MQTT broker address (empty to disable)" default:"tcp://localhost:1883" env:"KIOSK_MQTT_BROKER"`
		MQTTUser       string        `name:"mqtt-user" help:"MQTT username" env:"KIOSK_MQTT_USERNAME"`
		MQTTPassword   string        `name:"mqtt-password" help:"MQTT password" env:"KIOSK_MQTT_PASSWORD"`
		Heartbeat      time.Duration `help:"Heartbeat interval (0 to disable)" default:"15m" env:"KIOSK_HEARTBEAT"`
		HTTP           string        `help:"HTTP status address (empty to disable)" default:":8080" env:"KIOSK_HTTP"`
		Backlight      string        `help:"sysfs backlight directory" default:"/sys/class/backlight/rpi_backlight" env:"KIOSK_BACKLIGHT"`
		Touch          string        `help:"evdev touch device (empty to disable)" env:"KIOSK_TOUCH_DEVICE"`
		GPIOChip       string        `name:"gpio-chip" help:"GPIO chip for the settings button" default:"gpiochip0" env:"KIOSK_GPIO_CHIP"`
		ButtonPin      int           `help:"BCM pin of the settings button (-1 to disable)" default:"-1" env:"KIOSK_BUTTON_PIN"`
		ButtonPoll     time.Duration `help:"Button polling interval" default:"20ms"`
		ButtonDebounce time.Duration `help:"Button debounce duration" default:"60ms"`
	} `cmd:"" default:"withargs" help:"Run the screen sleep scheduler (default)"`

	Status struct {
		At string `help:"Evaluate at this RFC3339 instant instead of now"`
	} `cmd:"" help:"Print the schedule evaluation and exit"`

	Init struct {
		Force bool `help:"Overwrite existing settings file"`
	} `cmd:"" help:"Write an example settings file"`
}

func main() {
	envFile, envErr := config.LoadDotEnv(dotEnvPaths...)

	ctx := kong.Parse(&CLI,
		kong.Name("kiosk-sleep"),
		kong.Description("Kiosk screen sleep scheduler."),
		kong.UsageOnError())

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if envErr != nil {
		slog.Warn("Failed to load .env file", logfields.Error(envErr))
	} else if envFile != "" {
		slog.Debug("Loaded environment file", logfields.Path(envFile))
	}

	var err error
	switch ctx.Command() {
	case "run":
		err = runDaemon()
	case "status":
		err = runStatus(os.Stdout, CLI.Config, CLI.Status.At)
	case "init":
		err = config.WriteExample(CLI.Config, CLI.Init.Force)
		if err == nil {
			fmt.Printf("Wrote %s\n", CLI.Config)
		}
	}
	if err != nil {
		slog.Error("Fatal", logfields.Error(err))
		os.Exit(1)
	}
}

func runDaemon() error {
	opts := CLI.Run

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	backlight, err := display.NewBacklight(opts.Backlight)
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}

	alarms, err := alarm.NewGocronAlarm(time.Local)
	if err != nil {
		return fmt.Errorf("init alarms: %w", err)
	}
	defer alarms.Close()

	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus = discardPublisher{}
	if opts.Broker != "" {
		rp, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:   opts.Broker,
			Username: opts.MQTTUser,
			Password: opts.MQTTPassword,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.PollInterval.Milliseconds(),
		HeartbeatMs: opts.Heartbeat.Milliseconds(),
		Broker:      opts.Broker,
		HTTPAddr:    opts.HTTP,
		ConfigPath:  CLI.Config,
		TouchDevice: opts.Touch,
		ButtonPin:   opts.ButtonPin,
		GestureTaps: cfg.Gesture.Taps,
	})
	tracker.SetMQTTConnected(mqttStatus.IsConnected())
	tracker.SetMQTTQueued(mqttStatus.Queued())

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.SystemStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.SystemStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		slog.Warn("Failed to publish startup event", logfields.Error(err))
	}

	if opts.HTTP != "" {
		srv := web.New(opts.HTTP, tracker, metrics.HTTPHandler(reg))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server error", logfields.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("HTTP status server listening", slog.String("addr", opts.HTTP))
	}

	watcher, err := config.NewWatcher(CLI.Config, config.DefaultReloadDebounce)
	if err != nil {
		return fmt.Errorf("init config watcher: %w", err)
	}
	defer watcher.Stop()
	var reloads <-chan *config.Config
	if err := watcher.Start(ctx); err != nil {
		slog.Warn("Config hot reload disabled", logfields.Error(err))
	} else {
		reloads = watcher.Updates()
	}

	var taps chan input.Tap
	if opts.Touch != "" {
		src, err := input.OpenEvdev(opts.Touch)
		if err != nil {
			return fmt.Errorf("init touch input: %w", err)
		}
		defer src.Close()
		taps = make(chan input.Tap, 16)
		go func() {
			if err := src.Run(ctx, taps); err != nil {
				slog.Error("Touch input stopped", logfields.Path(opts.Touch), logfields.Error(err))
			}
		}()
	}

	var button gpio.Reader
	var buttonTick <-chan time.Time
	if opts.ButtonPin >= 0 {
		r, err := gpio.NewRealReader(opts.GPIOChip, opts.ButtonPin)
		if err != nil {
			return fmt.Errorf("init button: %w", err)
		}
		defer r.Close()
		button = r
		bt := time.NewTicker(opts.ButtonPoll)
		defer bt.Stop()
		buttonTick = bt.C
	}

	gestures, err := newGestures(cfg)
	if err != nil {
		return err
	}

	coord := scheduler.New(backlight, alarms, recorder, scheduler.SettingsFromConfig(cfg), time.Now)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	slog.Info("Started",
		slog.Duration("poll", cfg.PollInterval),
		slog.String("broker", opts.Broker),
		slog.Duration("heartbeat", opts.Heartbeat),
		slog.Int("rules", len(cfg.Rules)))

	return runLoop(loopDeps{
		coord:          coord,
		publisher:      publisher,
		mqttStatus:     mqttStatus,
		tracker:        tracker,
		recorder:       recorder,
		gestures:       gestures,
		button:         button,
		buttonDetector: logic.NewButtonDetector(opts.ButtonDebounce),
		heartbeat:      opts.Heartbeat,
		now:            time.Now,
		resetTick:      ticker.Reset,
	}, loopChans{
		tick:       ticker.C,
		buttonTick: buttonTick,
		alarms:     alarms.Fired(),
		taps:       taps,
		reloads:    reloads,
		sig:        sigCh,
	})
}

// gestureSet holds the two independent settings-gesture recognizers.
type gestureSet struct {
	touch  *logic.TapRecognizer
	button *logic.TapRecognizer
}

func newGestures(cfg *config.Config) (*gestureSet, error) {
	touch, err := logic.NewTapRecognizer(cfg.Gesture)
	if err != nil {
		return nil, fmt.Errorf("touch gesture: %w", err)
	}
	button, err := logic.NewTapRecognizer(cfg.ButtonGesture)
	if err != nil {
		return nil, fmt.Errorf("button gesture: %w", err)
	}
	return &gestureSet{touch: touch, button: button}, nil
}

type loopDeps struct {
	coord          *scheduler.Coordinator
	publisher      mqtt.Publisher
	mqttStatus     mqtt.ConnectionStatus
	tracker        *status.Tracker
	recorder       metrics.Recorder
	gestures       *gestureSet
	button         gpio.Reader // nil when no button is wired
	buttonDetector *logic.ButtonDetector
	heartbeat      time.Duration
	now            func() time.Time
	resetTick      func(time.Duration) // nil in tests
}

// loopChans are the inputs runLoop selects on. A nil channel disables that input.
type loopChans struct {
	tick       <-chan time.Time
	buttonTick <-chan time.Time
	alarms     <-chan string
	taps       <-chan input.Tap
	reloads    <-chan *config.Config
	sig        <-chan os.Signal
}

func runLoop(d loopDeps, ch loopChans) error {
	var counts logic.EventCounts
	heartbeat := logic.NewHeartbeat(d.now())

	refresh := func() {
		d.tracker.Update(scheduleStatus(d.coord.Snapshot()), counts)
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
		d.tracker.SetMQTTQueued(d.mqttStatus.Queued())
	}

	publish := func(events []logic.Event) {
		for _, event := range events {
			counts.Add(event.Type)
			d.tracker.RecordEvent(event)
			slog.Info("Event",
				logfields.Event(string(event.Type)),
				logfields.Reason(string(event.Reason)),
				logfields.State(string(event.State)),
				logfields.RuleID(event.RuleID))
			if err := d.publisher.Publish(event); err != nil {
				// Don't crash on publish failure
				slog.Warn("Publish error", logfields.Event(string(event.Type)), logfields.Error(err))
				d.recorder.IncPublishFailure("event")
			}
		}
		refresh()
	}

	gesture := func(matched bool, reason logic.Reason, t time.Time) {
		if !matched {
			return
		}
		d.recorder.IncGesture(string(reason))
		publish([]logic.Event{{
			Timestamp: t,
			Type:      logic.EventSettingsGesture,
			Reason:    reason,
			State:     d.coord.Snapshot().State,
		}})
	}

	publish(d.coord.Start())

	for {
		select {
		case s := <-ch.sig:
			slog.Info("Shutting down", slog.String("signal", s.String()))
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			refresh()
			snap := d.tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  d.now(),
				Event:      mqtt.SystemShutdown,
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, mqtt.SystemShutdown, signalName),
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				slog.Warn("Failed to publish shutdown event", logfields.Error(err))
			}
			return nil

		case <-ch.tick:
			t := d.now()
			publish(d.coord.Tick())
			d.gestures.touch.Expire(t)
			d.gestures.button.Expire(t)

			if hb := heartbeat.Check(t, d.heartbeat); hb != nil {
				slog.Debug("Heartbeat", slog.Duration("uptime", hb.Uptime))
				snap := d.tracker.Snapshot()
				event := mqtt.SystemEvent{
					Timestamp:  hb.Timestamp,
					Event:      mqtt.SystemHeartbeat,
					RawPayload: status.FormatStatusEvent(snap, mqtt.SystemHeartbeat, ""),
				}
				if err := d.publisher.PublishSystem(event); err != nil {
					slog.Warn("Heartbeat publish error", logfields.Error(err))
					d.recorder.IncPublishFailure("heartbeat")
				}
			}

		case tag := <-ch.alarms:
			slog.Debug("Alarm fired", logfields.AlarmTag(tag))
			publish(d.coord.AlarmFired(tag))

		case tap := <-ch.taps:
			t := tap.Time
			if t.IsZero() {
				t = d.now()
			}
			events := d.coord.Touch()
			publish(events)
			// The tap that wakes the screen does not count toward the gesture.
			if len(events) == 0 {
				gesture(d.gestures.touch.OnTap(tap.X, tap.Y, t), logic.ReasonTouchGesture, t)
			}

		case <-ch.buttonTick:
			if d.button == nil {
				continue
			}
			pressed, err := d.button.Read()
			if err != nil {
				slog.Warn("Button read error", logfields.Error(err))
				continue
			}
			t := d.now()
			if !d.buttonDetector.Process(pressed, t) {
				continue
			}
			// A press that wakes the screen does not count toward the gesture.
			if events := d.coord.Wake(logic.ReasonManual); len(events) > 0 {
				publish(events)
				continue
			}
			publish(d.coord.Touch())
			gesture(d.gestures.button.OnPress(t), logic.ReasonButtonGesture, t)

		case cfg := <-ch.reloads:
			g, err := newGestures(cfg)
			if err != nil {
				slog.Error("Ignoring reloaded gestures", logfields.Error(err))
			} else {
				d.gestures = g
			}
			if d.resetTick != nil {
				d.resetTick(cfg.PollInterval)
			}
			publish(d.coord.Apply(scheduler.SettingsFromConfig(cfg)))
		}
	}
}

func scheduleStatus(s scheduler.Snapshot) status.Schedule {
	return status.Schedule{
		State:         s.State,
		Enabled:       s.Enabled,
		WakeOnTouch:   s.WakeOnTouch,
		Dimmed:        s.Dimmed,
		RuleID:        s.RuleID,
		NextWake:      s.NextWake,
		NextSleep:     s.NextSleep,
		NextSleepRule: s.NextSleepRule,
		OverrideUntil: s.OverrideUntil,
		Rules:         s.Rules,
	}
}

// runStatus prints the schedule evaluation for the settings file at path.
func runStatus(w io.Writer, path, at string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	now := time.Now()
	if at != "" {
		now, err = time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}
	printEvaluation(w, cfg, now)
	return nil
}

func printEvaluation(w io.Writer, cfg *config.Config, now time.Time) {
	const layout = "Mon 2006-01-02 15:04 MST"

	fmt.Fprintf(w, "Time: %s\n", now.Format(layout))
	if !cfg.Enabled {
		fmt.Fprintln(w, "Schedule: disabled")
		fmt.Fprintf(w, "Screen: %s\n", logic.StateAwake)
		return
	}
	fmt.Fprintf(w, "Schedule: enabled (%d rules)\n", len(cfg.Rules))

	if rule, ok := logic.ActiveRule(cfg.Rules, now); ok {
		fmt.Fprintf(w, "Screen: %s (rule %s)\n", logic.StateAsleep, rule.ID)
	} else {
		fmt.Fprintf(w, "Screen: %s\n", logic.StateAwake)
	}
	if wake, ok := logic.NextWakeTime(cfg.Rules, now); ok {
		fmt.Fprintf(w, "Next wake: %s\n", wake.Format(layout))
	}
	if next, ok := logic.NextSleepTime(cfg.Rules, now); ok {
		fmt.Fprintf(w, "Next sleep: %s (rule %s)\n", next.At.Format(layout), next.Rule.ID)
	} else {
		fmt.Fprintln(w, "Next sleep: none")
	}
}

// discardPublisher stands in when no broker is configured.
type discardPublisher struct{}

func (discardPublisher) Publish(logic.Event) error            { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error                         { return nil }
func (discardPublisher) IsConnected() bool                    { return false }
func (discardPublisher) Queued() int                          { return 0 }
