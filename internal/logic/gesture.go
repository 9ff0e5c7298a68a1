package logic

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Gesture bounds.
const (
	MinTaps       = 2
	MaxTaps       = 20
	MinTapTimeout = 500 * time.Millisecond
	MaxTapTimeout = 5000 * time.Millisecond

	DefaultTapRadius = 80
)

// TapConfig configures an N-tap recognizer.
type TapConfig struct {
	Taps    int
	Timeout time.Duration
	// Radius is the maximum distance from the first tap. Zero means DefaultTapRadius.
	Radius float64
}

// Validate checks the configured bounds.
func (c TapConfig) Validate() error {
	if c.Taps < MinTaps || c.Taps > MaxTaps {
		return fmt.Errorf("tap count %d out of range %d..%d", c.Taps, MinTaps, MaxTaps)
	}
	if c.Timeout < MinTapTimeout || c.Timeout > MaxTapTimeout {
		return fmt.Errorf("tap timeout %v out of range %v..%v", c.Timeout, MinTapTimeout, MaxTapTimeout)
	}
	if c.Radius < 0 {
		return fmt.Errorf("tap radius %v must not be negative", c.Radius)
	}
	return nil
}

// TapRecognizer detects N rapid taps grouped around the first tap.
// Each instance owns its sequence, so independent recognizers (touch screen
// and hardware button) never share a counter.
type TapRecognizer struct {
	mu     sync.Mutex
	cfg    TapConfig
	count  int
	firstX float64
	firstY float64
	last   time.Time
}

// NewTapRecognizer creates a recognizer after validating cfg.
func NewTapRecognizer(cfg TapConfig) (*TapRecognizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Radius == 0 {
		cfg.Radius = DefaultTapRadius
	}
	return &TapRecognizer{cfg: cfg}, nil
}

// OnTap feeds a tap and reports whether it completed the gesture.
// A tap outside the radius, or after the timeout since the previous accepted
// tap, starts a new sequence with itself as the first tap.
func (r *TapRecognizer) OnTap(x, y float64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count > 0 && now.Sub(r.last) > r.cfg.Timeout {
		r.count = 0
	}

	if r.count == 0 || math.Hypot(x-r.firstX, y-r.firstY) > r.cfg.Radius {
		r.count = 1
		r.firstX, r.firstY = x, y
		r.last = now
		return false
	}

	r.count++
	r.last = now
	if r.count >= r.cfg.Taps {
		r.count = 0
		return true
	}
	return false
}

// OnPress feeds a position-less press, e.g. from a hardware button.
func (r *TapRecognizer) OnPress(now time.Time) bool {
	return r.OnTap(0, 0, now)
}

// Expire clears a sequence whose timeout has passed without a new tap.
func (r *TapRecognizer) Expire(now time.Time) {
	r.mu.Lock()
	if r.count > 0 && now.Sub(r.last) > r.cfg.Timeout {
		r.count = 0
	}
	r.mu.Unlock()
}

// Reset drops any partial sequence (navigation or focus loss).
func (r *TapRecognizer) Reset() {
	r.mu.Lock()
	r.count = 0
	r.mu.Unlock()
}

// Count returns the taps accepted in the current sequence.
func (r *TapRecognizer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Config returns the effective configuration.
func (r *TapRecognizer) Config() TapConfig {
	return r.cfg
}
