package display

// FakeController records display calls for test assertions.
type FakeController struct {
	// Calls lists operations in order: "on", "off", "brightness".
	Calls []string

	// On is the last power state set.
	On bool

	// Brightness is the last brightness set.
	Brightness int

	// Brightnesses records every SetBrightness value.
	Brightnesses []int

	// PowerError, if set, is returned by TurnOn and TurnOff.
	PowerError error

	// BrightnessError, if set, is returned by SetBrightness.
	BrightnessError error
}

// NewFakeController creates a powered-on FakeController at full brightness.
func NewFakeController() *FakeController {
	return &FakeController{On: true, Brightness: 100}
}

// TurnOn records a power-on.
func (f *FakeController) TurnOn() error {
	f.Calls = append(f.Calls, "on")
	if f.PowerError != nil {
		return f.PowerError
	}
	f.On = true
	return nil
}

// TurnOff records a power-off.
func (f *FakeController) TurnOff() error {
	f.Calls = append(f.Calls, "off")
	if f.PowerError != nil {
		return f.PowerError
	}
	f.On = false
	return nil
}

// SetBrightness records the brightness.
func (f *FakeController) SetBrightness(percent int) error {
	f.Calls = append(f.Calls, "brightness")
	if f.BrightnessError != nil {
		return f.BrightnessError
	}
	f.Brightness = clampPercent(percent)
	f.Brightnesses = append(f.Brightnesses, f.Brightness)
	return nil
}

// Reset clears recorded calls.
func (f *FakeController) Reset() {
	f.Calls = nil
	f.Brightnesses = nil
	f.PowerError = nil
	f.BrightnessError = nil
}
