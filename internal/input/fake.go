package input

import "context"

// FakeSource is a test double that emits scripted taps.
type FakeSource struct {
	// Taps are sent in order by Run.
	Taps []Tap

	// RunError, if set, is returned by Run after the taps are sent.
	RunError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given taps.
func NewFakeSource(taps []Tap) *FakeSource {
	return &FakeSource{Taps: taps}
}

// Run sends the scripted taps then waits for ctx.
func (f *FakeSource) Run(ctx context.Context, out chan<- Tap) error {
	for _, t := range f.Taps {
		select {
		case out <- t:
		case <-ctx.Done():
			return nil
		}
	}
	if f.RunError != nil {
		return f.RunError
	}
	<-ctx.Done()
	return nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
