package logic

import "time"

// ButtonDetector debounces a polled button and reports presses.
// A press is reported once, when the pressed level has been stable for the
// debounce duration after a released baseline.
type ButtonDetector struct {
	debounce     time.Duration
	stable       bool
	pending      bool
	pendingSince time.Time
	hasPending   bool
	baselined    bool
}

// NewButtonDetector creates a detector with the given debounce duration.
func NewButtonDetector(debounce time.Duration) *ButtonDetector {
	return &ButtonDetector{debounce: debounce}
}

// Process takes a new sample and returns true on a debounced press.
func (d *ButtonDetector) Process(pressed bool, now time.Time) bool {
	// Establish the initial level before reporting anything, so a button
	// held down at startup does not count as a press.
	if !d.baselined {
		if !d.hasPending || d.pending != pressed {
			d.pending = pressed
			d.pendingSince = now
			d.hasPending = true
			return false
		}
		if now.Sub(d.pendingSince) >= d.debounce {
			d.stable = pressed
			d.baselined = true
			d.hasPending = false
		}
		return false
	}

	if pressed == d.stable {
		d.hasPending = false
		return false
	}

	if !d.hasPending || d.pending != pressed {
		d.pending = pressed
		d.pendingSince = now
		d.hasPending = true
		return false
	}

	if now.Sub(d.pendingSince) < d.debounce {
		return false
	}

	d.stable = pressed
	d.hasPending = false
	return pressed
}

// IsBaselined returns whether the detector has established a baseline.
func (d *ButtonDetector) IsBaselined() bool {
	return d.baselined
}

// Pressed returns the current debounced level.
func (d *ButtonDetector) Pressed() bool {
	return d.stable
}
