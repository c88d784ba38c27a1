package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAgentAPI emulates the ngrok agent's local control API.
type fakeAgentAPI struct {
	mu           chan struct{} // simple 1-slot mutex
	tunnels      map[string]*tunnelResource
	deferURL     bool // leave public_url empty on create, fill on first GET
	deletes      int32
	failCreates  bool
	notReadyOnce bool // fail the first readiness check to force an agent launch
}

func newFakeAgentAPI() *fakeAgentAPI {
	f := &fakeAgentAPI{mu: make(chan struct{}, 1), tunnels: map[string]*tunnelResource{}}
	f.mu <- struct{}{}
	return f
}

func (f *fakeAgentAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-f.mu
		defer func() { f.mu <- struct{}{} }()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/tunnels":
			if f.notReadyOnce {
				f.notReadyOnce = false
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"tunnels": []any{}})

		case r.Method == http.MethodPost && r.URL.Path == "/api/tunnels":
			if f.failCreates {
				w.WriteHeader(http.StatusBadGateway)
				json.NewEncoder(w).Encode(map[string]string{"msg": "tunnel session failed"})
				return
			}
			var req tunnelRequest
			json.NewDecoder(r.Body).Decode(&req)
			res := &tunnelResource{Name: req.Name, Proto: req.Proto}
			res.Config.Addr = "http://localhost:" + req.Addr
			if !f.deferURL {
				res.PublicURL = "https://" + req.Name + ".ngrok.app"
			}
			f.tunnels[req.Name] = res
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(res)

		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/tunnels/"):
			name := strings.TrimPrefix(r.URL.Path, "/api/tunnels/")
			res, ok := f.tunnels[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if res.PublicURL == "" {
				res.PublicURL = "https://" + name + ".ngrok.app"
			}
			json.NewEncoder(w).Encode(res)

		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/tunnels/"):
			name := strings.TrimPrefix(r.URL.Path, "/api/tunnels/")
			delete(f.tunnels, name)
			atomic.AddInt32(&f.deletes, 1)
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// newTestAgent points an Agent at the fake API. Because the API already
// answers, Open never launches the real binary.
func newTestAgent(t *testing.T, fake *fakeAgentAPI) *Agent {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)
	a := NewAgent("ngrok-not-installed", "test-token")
	a.APIURL = server.URL
	return a
}

func TestOpenReturnsEndpoint(t *testing.T) {
	fake := newFakeAgentAPI()
	a := newTestAgent(t, fake)

	ep, err := a.Open(context.Background(), 11434)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ep.PublicURL == "" || !strings.HasPrefix(ep.PublicURL, "https://") {
		t.Errorf("PublicURL = %q", ep.PublicURL)
	}
	if !strings.HasPrefix(ep.Name, "modelport-") {
		t.Errorf("Name = %q, want modelport- prefix", ep.Name)
	}
	if !strings.Contains(ep.LocalAddr, "11434") {
		t.Errorf("LocalAddr = %q, want local port", ep.LocalAddr)
	}
}

func TestOpenPollsForPublicURL(t *testing.T) {
	fake := newFakeAgentAPI()
	fake.deferURL = true
	a := newTestAgent(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ep, err := a.Open(ctx, 11434)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ep.PublicURL == "" {
		t.Error("PublicURL still empty after polling")
	}
}

func TestOpenWithoutToken(t *testing.T) {
	a := NewAgent("ngrok", "")
	_, err := a.Open(context.Background(), 11434)
	if !errors.Is(err, ErrAuthTokenMissing) {
		t.Fatalf("Open = %v, want ErrAuthTokenMissing", err)
	}
}

func TestOpenCreateFails(t *testing.T) {
	fake := newFakeAgentAPI()
	fake.failCreates = true
	a := newTestAgent(t, fake)

	_, err := a.Open(context.Background(), 11434)
	if err == nil {
		t.Fatal("expected error when the agent rejects the tunnel")
	}
	if !strings.Contains(err.Error(), "tunnel session failed") {
		t.Errorf("error should carry the agent's message, got: %v", err)
	}
}

func TestCloseDeletesTunnelOnce(t *testing.T) {
	fake := newFakeAgentAPI()
	a := newTestAgent(t, fake)

	if _, err := a.Open(context.Background(), 11434); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if n := atomic.LoadInt32(&fake.deletes); n != 1 {
		t.Errorf("deletes = %d, want exactly 1", n)
	}
}

func TestCloseAfterCreateFailure(t *testing.T) {
	fake := newFakeAgentAPI()
	fake.failCreates = true
	a := newTestAgent(t, fake)

	if _, err := a.Open(context.Background(), 11434); err == nil {
		t.Fatal("expected create failure")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := atomic.LoadInt32(&fake.deletes); n != 0 {
		t.Errorf("deletes = %d, no tunnel was created", n)
	}
}

func TestOpenFailureStopsStartedAgent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake not available on windows")
	}
	fake := newFakeAgentAPI()
	fake.notReadyOnce = true
	fake.failCreates = true
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	bin := filepath.Join(t.TempDir(), "ngrok-fake")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nsleep 60\n"), 0755); err != nil {
		t.Fatal(err)
	}

	a := NewAgent(bin, "tok")
	a.APIURL = server.URL

	if _, err := a.Open(context.Background(), 11434); err == nil {
		t.Fatal("expected create failure")
	}
	if a.cmd == nil {
		t.Fatal("agent binary was not launched")
	}

	// Close must still stop the agent this process started, and must not
	// delete a tunnel that never came to exist.
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-a.done:
	case <-time.After(10 * time.Second):
		t.Fatal("agent process still running after Close")
	}
	if n := atomic.LoadInt32(&fake.deletes); n != 0 {
		t.Errorf("deletes = %d, no tunnel was created", n)
	}
}

func TestOpenAgentBinaryMissing(t *testing.T) {
	// No API answering and no binary to launch.
	a := NewAgent(fmt.Sprintf("ngrok-missing-%d", time.Now().UnixNano()), "tok")
	a.APIURL = "http://127.0.0.1:1" // nothing listens there

	_, err := a.Open(context.Background(), 11434)
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("Open = %v, want ErrAgentNotFound", err)
	}
}
