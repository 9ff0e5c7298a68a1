package logic

import (
	"testing"
	"time"
)

func TestIdleTimerDimsOnce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	it := NewIdleTimer(5*time.Minute, now)

	if it.Check(now.Add(4 * time.Minute)) {
		t.Error("dimmed before the inactivity period")
	}
	if !it.Check(now.Add(5 * time.Minute)) {
		t.Error("expected dim at the inactivity period")
	}
	if it.Check(now.Add(6 * time.Minute)) {
		t.Error("dim should be reported once")
	}
	if !it.Dimmed() {
		t.Error("expected Dimmed")
	}
}

func TestIdleTimerTouchRestores(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	it := NewIdleTimer(time.Minute, now)

	if it.Touch(now.Add(30 * time.Second)) {
		t.Error("touch before dim should not request restore")
	}
	if it.Check(now.Add(time.Minute)) {
		t.Error("touch should have restarted the period")
	}
	if !it.Check(now.Add(90 * time.Second)) {
		t.Error("expected dim one period after the touch")
	}
	if !it.Touch(now.Add(2 * time.Minute)) {
		t.Error("touch after dim should request restore")
	}
	if it.Dimmed() {
		t.Error("should not be dimmed after touch")
	}
}

func TestIdleTimerSuppressAndResume(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	it := NewIdleTimer(time.Minute, now)

	it.Suppress()
	if it.Check(now.Add(time.Hour)) {
		t.Error("suppressed timer must not dim")
	}

	it.Resume(now.Add(2 * time.Hour))
	if it.Check(now.Add(2*time.Hour + 30*time.Second)) {
		t.Error("resume should restart the period")
	}
	if !it.Check(now.Add(2*time.Hour + time.Minute)) {
		t.Error("expected dim after resume period")
	}
}

func TestIdleTimerDisabled(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	it := NewIdleTimer(0, now)
	if it.Check(now.Add(24 * time.Hour)) {
		t.Error("disabled timer must not dim")
	}

	it.SetDimAfter(time.Minute)
	if !it.Check(now.Add(time.Hour)) {
		t.Error("expected dim after enabling")
	}
}
