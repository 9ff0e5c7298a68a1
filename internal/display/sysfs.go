package display

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// bl_power values from linux/fb.h.
const (
	blankUnblank   = "0"
	blankPowerdown = "4"
)

// Backlight drives a sysfs backlight directory such as /sys/class/backlight/rpi_backlight.
type Backlight struct {
	dir string
}

// NewBacklight opens the backlight at dir. It fails if the directory does not
// expose the brightness controls.
func NewBacklight(dir string) (*Backlight, error) {
	for _, f := range []string{"brightness", "max_brightness"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("backlight %s: %w", dir, err)
		}
	}
	return &Backlight{dir: dir}, nil
}

// TurnOn unblanks the panel.
func (b *Backlight) TurnOn() error {
	return b.write("bl_power", blankUnblank)
}

// TurnOff powers down the panel.
func (b *Backlight) TurnOff() error {
	return b.write("bl_power", blankPowerdown)
}

// SetBrightness scales percent to the device's max_brightness.
func (b *Backlight) SetBrightness(percent int) error {
	maxLevel, err := b.read("max_brightness")
	if err != nil {
		return err
	}
	level := maxLevel * clampPercent(percent) / 100
	return b.write("brightness", strconv.Itoa(level))
}

func (b *Backlight) read(name string) (int, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", name, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

func (b *Backlight) write(name, value string) error {
	if err := os.WriteFile(filepath.Join(b.dir, name), []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
