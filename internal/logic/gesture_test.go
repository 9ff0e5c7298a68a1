package logic

import (
	"sync"
	"testing"
	"time"
)

func newRecognizer(t *testing.T, taps int, timeout time.Duration) *TapRecognizer {
	t.Helper()
	r, err := NewTapRecognizer(TapConfig{Taps: taps, Timeout: timeout, Radius: 80})
	if err != nil {
		t.Fatalf("NewTapRecognizer: %v", err)
	}
	return r
}

func TestTapConfigBounds(t *testing.T) {
	tests := []struct {
		cfg   TapConfig
		valid bool
	}{
		{TapConfig{Taps: 2, Timeout: 500 * time.Millisecond}, true},
		{TapConfig{Taps: 20, Timeout: 5 * time.Second}, true},
		{TapConfig{Taps: 1, Timeout: time.Second}, false},
		{TapConfig{Taps: 21, Timeout: time.Second}, false},
		{TapConfig{Taps: 5, Timeout: 499 * time.Millisecond}, false},
		{TapConfig{Taps: 5, Timeout: 5001 * time.Millisecond}, false},
		{TapConfig{Taps: 5, Timeout: time.Second, Radius: -1}, false},
	}
	for _, tt := range tests {
		_, err := NewTapRecognizer(tt.cfg)
		if (err == nil) != tt.valid {
			t.Errorf("%+v: valid=%v, err=%v", tt.cfg, tt.valid, err)
		}
	}
}

func TestTapRecognizerDefaultRadius(t *testing.T) {
	r, err := NewTapRecognizer(TapConfig{Taps: 3, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if r.Config().Radius != DefaultTapRadius {
		t.Errorf("radius: got %v, want %v", r.Config().Radius, DefaultTapRadius)
	}
}

func TestTapRecognizerFiveTapsMatchOnce(t *testing.T) {
	r := newRecognizer(t, 5, 1500*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	points := [][2]float64{{100, 100}, {130, 110}, {90, 60}, {150, 100}, {100, 179}}
	matches := 0
	for i, p := range points {
		if r.OnTap(p[0], p[1], now.Add(time.Duration(i)*time.Second)) {
			matches++
			if i != 4 {
				t.Errorf("matched early on tap %d", i+1)
			}
		}
	}
	if matches != 1 {
		t.Errorf("expected exactly one match, got %d", matches)
	}
	if r.Count() != 0 {
		t.Errorf("count after match: got %d, want 0", r.Count())
	}
}

func TestTapRecognizerStrayTapReseeds(t *testing.T) {
	r := newRecognizer(t, 5, 1500*time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r.OnTap(100, 100, now)
	r.OnTap(110, 100, now.Add(200*time.Millisecond))
	if r.Count() != 2 {
		t.Fatalf("count: got %d, want 2", r.Count())
	}

	if r.OnTap(300, 100, now.Add(400*time.Millisecond)) {
		t.Fatal("stray tap must not match")
	}
	if r.Count() != 1 {
		t.Errorf("count after stray tap: got %d, want 1", r.Count())
	}

	// The stray tap is the new seed: four more near it complete the gesture.
	matched := false
	for i := 1; i <= 4; i++ {
		matched = r.OnTap(300+float64(i), 100, now.Add(400*time.Millisecond+time.Duration(i)*100*time.Millisecond))
	}
	if !matched {
		t.Error("expected match around the new seed")
	}
}

func TestTapRecognizerRadiusIsFromFirstTap(t *testing.T) {
	r := newRecognizer(t, 3, time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r.OnTap(0, 0, now)
	r.OnTap(70, 0, now.Add(100*time.Millisecond))
	// 140 from the first tap, 70 from the previous: outside the radius.
	if r.OnTap(140, 0, now.Add(200*time.Millisecond)) {
		t.Fatal("tap outside radius of first tap must not match")
	}
	if r.Count() != 1 {
		t.Errorf("count: got %d, want 1", r.Count())
	}
}

func TestTapRecognizerTimeout(t *testing.T) {
	r := newRecognizer(t, 3, time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r.OnTap(10, 10, now)
	r.OnTap(10, 10, now.Add(900*time.Millisecond))
	// Timeout refreshes on every accepted tap.
	if !r.OnTap(10, 10, now.Add(1800*time.Millisecond)) {
		t.Fatal("expected match: each tap within timeout of the previous")
	}

	r.OnTap(10, 10, now.Add(5*time.Second))
	r.OnTap(10, 10, now.Add(5*time.Second+500*time.Millisecond))
	if r.OnTap(10, 10, now.Add(7*time.Second)) {
		t.Fatal("tap after timeout must start a new sequence")
	}
	if r.Count() != 1 {
		t.Errorf("count: got %d, want 1", r.Count())
	}
}

func TestTapRecognizerExpireAndReset(t *testing.T) {
	r := newRecognizer(t, 4, time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r.OnTap(10, 10, now)
	r.OnTap(10, 10, now.Add(100*time.Millisecond))

	r.Expire(now.Add(500 * time.Millisecond))
	if r.Count() != 2 {
		t.Errorf("expire before timeout: count %d, want 2", r.Count())
	}
	r.Expire(now.Add(2 * time.Second))
	if r.Count() != 0 {
		t.Errorf("expire after timeout: count %d, want 0", r.Count())
	}

	r.OnTap(10, 10, now.Add(3*time.Second))
	r.Reset()
	if r.Count() != 0 {
		t.Errorf("after reset: count %d, want 0", r.Count())
	}
}

func TestTapRecognizerOnPress(t *testing.T) {
	r := newRecognizer(t, 3, 2*time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if r.OnPress(now) || r.OnPress(now.Add(time.Second)) {
		t.Fatal("matched too early")
	}
	if !r.OnPress(now.Add(2 * time.Second)) {
		t.Error("expected third press to match")
	}
}

func TestTapRecognizersAreIndependent(t *testing.T) {
	touch := newRecognizer(t, 5, 1500*time.Millisecond)
	button := newRecognizer(t, 3, 2*time.Second)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var touchMatches, buttonMatches int
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if touch.OnTap(200, 200, now.Add(time.Duration(i)*100*time.Millisecond)) {
				touchMatches++
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 30; i++ {
			if button.OnPress(now.Add(time.Duration(i) * 100 * time.Millisecond)) {
				buttonMatches++
			}
		}
	}()
	wg.Wait()

	if touchMatches != 10 {
		t.Errorf("touch matches: got %d, want 10", touchMatches)
	}
	if buttonMatches != 10 {
		t.Errorf("button matches: got %d, want 10", buttonMatches)
	}
}
