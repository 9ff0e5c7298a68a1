// Package display controls panel power and backlight brightness.
// The real implementation uses the Linux sysfs backlight class.
// The fake implementation allows testing without hardware.
package display

// Controller switches the display and sets its brightness.
type Controller interface {
	// TurnOn powers the panel on.
	TurnOn() error

	// TurnOff powers the panel off.
	TurnOff() error

	// SetBrightness sets backlight brightness as a percentage (0-100).
	SetBrightness(percent int) error
}

// DefaultBacklight is the sysfs backlight of the official Raspberry Pi touch display.
const DefaultBacklight = "/sys/class/backlight/rpi_backlight"

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
