package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNewTracker(t *testing.T) {
	tests := []struct {
		name  string
		label string
		total int
	}{
		{"four sources", "Loading sources", 4},
		{"with pagespeed", "Loading sources", 5},
		{"zero total", "Nothing to load", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tracker := NewTracker(tt.label, tt.total, WithWriter(&buf))
			if tracker.bar == nil {
				t.Fatal("tracker.bar should not be nil")
			}
			if tracker.label != tt.label {
				t.Errorf("label = %q, want %q", tracker.label, tt.label)
			}
			tracker.FinishSuccess()
		})
	}
}

func TestTickConcurrent(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker("Loading sources", 40, WithWriter(&buf))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Tick()
		}()
	}
	wg.Wait()

	if got := tracker.bar.State().CurrentNum; got != 40 {
		t.Errorf("CurrentNum = %d, want 40", got)
	}
}

func TestFinishPartial(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker("Loading sources", 4, WithWriter(&buf))
	tracker.FinishPartial([]string{"gsc_current", "gsc_previous"})

	if !strings.Contains(buf.String(), "Loading sources: no data for gsc_current, gsc_previous") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFinishError(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewSpinner("Auditing site", WithWriter(&buf))
	tracker.FinishError(errors.New("quota exceeded"))

	if !strings.Contains(buf.String(), "Auditing site error: quota exceeded") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestNilTracker(t *testing.T) {
	var tracker *Tracker
	tracker.Tick()
	tracker.FinishSuccess()
	tracker.FinishPartial([]string{"ga4_current"})
	tracker.FinishError(errors.New("ignored"))
}
