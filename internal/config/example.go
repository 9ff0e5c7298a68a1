package config

import (
	"fmt"
	"os"
)

// Example is a commented starting point for the settings file.
const Example = `# kiosk-sleep settings. Reloaded automatically when this file changes.
enabled: true
wake_on_touch: true
poll_interval: 30s

display:
  brightness: 80

idle:
  dim_after: 5m
  dim_brightness: 10

# Hidden gesture that reveals the settings screen.
gesture:
  taps: 5
  timeout: 1500ms
  radius: 80

button_gesture:
  taps: 3
  timeout: 2s

# days name the day the window starts: 0 = Sunday ... 6 = Saturday, or mon..sun.
rules:
  - id: weeknights
    days: [sun, mon, tue, wed, thu]
    sleep: "22:00"
    wake: "06:30"
  - id: weekends
    days: [fri, sat]
    sleep: "23:30"
    wake: "08:00"
`

// WriteExample writes Example to path.
func WriteExample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	if _, err := Parse([]byte(Example)); err != nil {
		return fmt.Errorf("example config is invalid: %w", err)
	}
	if err := os.WriteFile(path, []byte(Example), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
