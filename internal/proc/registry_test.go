package proc

import (
	"errors"
	"testing"
)

type fakeStopper struct {
	name  string
	stops *[]string
	err   error
	count int
}

func (f *fakeStopper) Name() string {
	return f.name
}

func (f *fakeStopper) Stop() error {
	f.count++
	*f.stops = append(*f.stops, f.name)
	return f.err
}

func TestStopAllReverseOrder(t *testing.T) {
	var stops []string
	r := NewRegistry()
	r.Add(&fakeStopper{name: "server", stops: &stops})
	r.Add(&fakeStopper{name: "tunnel", stops: &stops})

	r.StopAll()

	// Tunnel registered last must stop first, so it closes before the
	// server it forwards to.
	if len(stops) != 2 || stops[0] != "tunnel" || stops[1] != "server" {
		t.Errorf("stops = %v, want [tunnel server]", stops)
	}
}

func TestStopAllExactlyOnce(t *testing.T) {
	var stops []string
	f := &fakeStopper{name: "tunnel", stops: &stops}
	r := NewRegistry()
	r.Add(f)

	r.StopAll()
	r.StopAll()

	if f.count != 1 {
		t.Errorf("Stop called %d times, want exactly 1", f.count)
	}
}

func TestStopAllContinuesPastError(t *testing.T) {
	var stops []string
	r := NewRegistry()
	r.Add(&fakeStopper{name: "server", stops: &stops})
	r.Add(&fakeStopper{name: "tunnel", stops: &stops, err: errors.New("boom")})

	r.StopAll()

	if len(stops) != 2 {
		t.Errorf("stops = %v, want both despite the error", stops)
	}
}

func TestAddAfterStopAll(t *testing.T) {
	var stops []string
	r := NewRegistry()
	r.StopAll()

	f := &fakeStopper{name: "late", stops: &stops}
	r.Add(f)
	r.StopAll()

	if f.count != 0 {
		t.Error("process added after shutdown must not be tracked")
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
}
