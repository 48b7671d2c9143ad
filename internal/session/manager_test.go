package session

import (
	"context"
	"testing"
	"time"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("browser-1", 1280, 720)
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ClientID != "browser-1" || got.CanvasWidth != 1280 || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
	if _, err := m.End("missing"); err != ErrNotFound {
		t.Fatalf("End(missing) error = %v, want ErrNotFound", err)
	}
}

func TestManagerRecordFrame(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("", 640, 480)
	if err := m.RecordFrame(s.ID, 0, 0, false); err != nil {
		t.Fatalf("RecordFrame() error = %v", err)
	}
	if err := m.RecordFrame(s.ID, 1280, 720, true); err != nil {
		t.Fatalf("RecordFrame() error = %v", err)
	}

	got, _ := m.Get(s.ID)
	if got.FrameCount != 2 || got.HeartDetections != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", got.FrameCount, got.HeartDetections)
	}
	if got.CanvasWidth != 1280 || got.CanvasHeight != 720 {
		t.Fatalf("canvas = %vx%v, want 1280x720", got.CanvasWidth, got.CanvasHeight)
	}
}

func TestManagerReplacesClientSession(t *testing.T) {
	m := NewManager(time.Minute)
	first := m.Create("browser-1", 640, 480)
	second := m.Create("browser-1", 640, 480)

	old, _ := m.Get(first.ID)
	if old.Status != StatusEnded {
		t.Fatalf("first session status = %q, want ended", old.Status)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", m.ActiveCount())
	}
	if _, err := m.Get(second.ID); err != nil {
		t.Fatalf("Get(second) error = %v", err)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("browser-1", 640, 480)

	expired := make(chan string, 1)
	m.SetExpireHook(func(s *Session) { expired <- s.ID })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired %q, want %q", id, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("session was not expired")
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0", m.ActiveCount())
	}
}
