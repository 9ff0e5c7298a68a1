// Package input turns touch screen activity into taps.
// The real implementation decodes the Linux evdev protocol.
package input

import (
	"context"
	"time"
)

// Tap is a single touch-down at a screen position.
type Tap struct {
	X, Y float64
	Time time.Time
}

// Source produces taps until its context is cancelled or it is closed.
type Source interface {
	// Run sends taps to out. It returns when ctx is done or the device fails.
	Run(ctx context.Context, out chan<- Tap) error

	// Close releases the device.
	Close() error
}
