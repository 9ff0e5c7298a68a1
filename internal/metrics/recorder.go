// Package metrics exposes scheduler observability hooks.
package metrics

// Recorder defines observability hooks for the sleep scheduler. Implementations
// may forward to Prometheus. NoopRecorder is used when metrics are not configured.
type Recorder interface {
	IncTransition(state, reason string)
	IncPlatformFailure(op string)
	IncGesture(source string)
	IncPublishFailure(kind string)
	SetAsleep(asleep bool)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string, string) {}
func (NoopRecorder) IncPlatformFailure(string)    {}
func (NoopRecorder) IncGesture(string)            {}
func (NoopRecorder) IncPublishFailure(string)     {}
func (NoopRecorder) SetAsleep(bool)               {}
