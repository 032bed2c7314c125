package cli

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/neoclaw-ai/roombot/internal/config"
	"github.com/neoclaw-ai/roombot/internal/logging"
	"github.com/neoclaw-ai/roombot/internal/transport"
)

func createTestHome(t *testing.T) string {
	t.Helper()
	homeDir := filepath.Join(t.TempDir(), ".roombot")
	t.Setenv(config.HomeEnvVar, homeDir)
	t.Cleanup(func() {
		_ = logging.Configure(os.Stderr, logging.FormatText)
	})
	return homeDir
}

func writeValidConfig(t *testing.T, homeDir string) {
	t.Helper()
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home dir: %v", err)
	}
	configBody := `
[bot]
prefix = "!"
join_retry_delay = "10ms"

[channels.telegram]
enabled = true
token = "telegram-token"
allowed_users = [111]
`
	if err := os.WriteFile(filepath.Join(homeDir, "config.toml"), []byte(configBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

type fakeSource struct {
	mu        sync.Mutex
	callbacks map[transport.EventKind][]transport.Callback
	sent      []string

	// deliver runs once Listen starts.
	deliver []struct {
		room *transport.RoomState
		ev   transport.Event
	}
}

func newFakeSource() *fakeSource {
	return &fakeSource{callbacks: make(map[transport.EventKind][]transport.Callback)}
}

func (s *fakeSource) RegisterCallback(kind transport.EventKind, cb transport.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[kind] = append(s.callbacks[kind], cb)
	return nil
}

func (s *fakeSource) UserID() string { return "@bot:test" }

func (s *fakeSource) SendText(_ context.Context, _, body, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, body)
	return nil
}

func (s *fakeSource) JoinRoom(context.Context, string) error { return transport.ErrJoinUnsupported }

func (s *fakeSource) Listen(ctx context.Context) error {
	for _, d := range s.deliver {
		s.mu.Lock()
		cbs := append([]transport.Callback(nil), s.callbacks[d.ev.Kind()]...)
		s.mu.Unlock()
		for _, cb := range cbs {
			cb(ctx, d.room, d.ev)
		}
	}
	<-ctx.Done()
	return nil
}

func (s *fakeSource) sentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *fakeSource) registeredKinds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callbacks)
}
