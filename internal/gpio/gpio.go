// Package gpio reads a hardware push button with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the button level.
type Reader interface {
	// Read returns true while the button is held down.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPinButton is the BCM pin of the settings button. -1 disables it.
const DefaultPinButton = -1
