package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session is one gesture-detection run bound to a browser canvas.
type Session struct {
	ID              string    `json:"session_id"`
	ClientID        string    `json:"client_id,omitempty"`
	Status          Status    `json:"status"`
	CanvasWidth     float64   `json:"canvas_width"`
	CanvasHeight    float64   `json:"canvas_height"`
	FrameCount      int64     `json:"frame_count"`
	HeartDetections int64     `json:"heart_detections"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	sessionByClient   map[string]string
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 2 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		sessionByClient:   make(map[string]string),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) InactivityTimeout() time.Duration { return m.inactivityTimeout }

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create opens a session. A client that already has an active session gets
// the old one ended first.
func (m *Manager) Create(clientID string, width, height float64) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		ClientID:       clientID,
		Status:         StatusActive,
		CanvasWidth:    width,
		CanvasHeight:   height,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if clientID != "" {
		if prevID, ok := m.sessionByClient[clientID]; ok {
			if prev, ok := m.sessions[prevID]; ok && prev.Status == StatusActive {
				prev.Status = StatusEnded
				prev.LastActivityAt = now
			}
		}
		m.sessionByClient[clientID] = s.ID
	}
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// RecordFrame counts one processed frame and refreshes activity. A frame may
// also resize the canvas when the video dimensions change.
func (m *Manager) RecordFrame(sessionID string, width, height float64, heartDetected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.FrameCount++
	if heartDetected {
		s.HeartDetections++
	}
	if width > 0 && height > 0 {
		s.CanvasWidth = width
		s.CanvasHeight = height
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	if s.ClientID != "" && m.sessionByClient[s.ClientID] == s.ID {
		delete(m.sessionByClient, s.ClientID)
	}
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

// expireInactive ends idle sessions and forgets ended ones that have been
// quiet for another full timeout.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		idle := now.Sub(s.LastActivityAt)
		if s.Status != StatusActive {
			if idle >= m.inactivityTimeout {
				delete(m.sessions, id)
			}
			continue
		}
		if idle < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		if s.ClientID != "" && m.sessionByClient[s.ClientID] == s.ID {
			delete(m.sessionByClient, s.ClientID)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
