package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/amora/internal/config"
	"github.com/ent0n29/amora/internal/gesture"
	"github.com/ent0n29/amora/internal/httpapi"
	"github.com/ent0n29/amora/internal/session"
)

const heartFixture = "testdata/heart.yaml"

func TestLoadFixtureExpandsRepeats(t *testing.T) {
	fx, err := loadFixture(heartFixture)
	require.NoError(t, err)

	start := time.Unix(100, 0)
	frames := fx.expand(start)
	require.Len(t, frames, 75)
	assert.Len(t, frames[0].Hands, 1)
	assert.Len(t, frames[3].Hands, 2)
	assert.Empty(t, frames[74].Hands)
	assert.Equal(t, start.Add(74*33*time.Millisecond), frames[74].At)
	assert.Equal(t, 640.0, frames[10].Width)
}

func TestLoadFixtureRejectsMissingCanvas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frames:\n  - hands: []\n"), 0o644))
	_, err := loadFixture(path)
	assert.ErrorContains(t, err, "width and height")
}

func TestReplayLocal(t *testing.T) {
	out := t.TempDir()
	summary, err := replayLocal(context.Background(), localOptions{fixture: heartFixture, outDir: out, every: 10, inset: 100})
	require.NoError(t, err)

	assert.Equal(t, 75, summary.Frames)
	assert.Equal(t, 1, summary.ActiveRuns)
	assert.Equal(t, 5, summary.MaxHearts)
	assert.Equal(t, []gesture.State{gesture.StateActive, gesture.StateIdle}, summary.Transitions)
	assert.Equal(t, 8, summary.SVGWritten)

	raw, err := os.ReadFile(filepath.Join(out, "frame-00070.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<svg")
}

func TestReplayLocalStrictThresholdsDetectLess(t *testing.T) {
	lenient, err := replayLocal(context.Background(), localOptions{fixture: heartFixture, every: 1, inset: 100})
	require.NoError(t, err)
	strict, err := replayLocal(context.Background(), localOptions{fixture: heartFixture, every: 1, inset: 100, strict: true})
	require.NoError(t, err)

	assert.LessOrEqual(t, strict.Detections, lenient.Detections)
	assert.Equal(t, lenient.MaxHearts, strict.MaxHearts)
}

func TestLocalCommandPrintsSummary(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"local", "--fixture", heartFixture})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "frames=75 active_runs=1 max_hearts=5")
}

func TestReplayRemote(t *testing.T) {
	sessions := session.NewManager(time.Minute)
	api := httpapi.New(config.Config{GestureInsetPX: 150}, nil, sessions, nil, nil)
	ts := httptest.NewServer(api.Router())
	defer ts.Close()

	summary, err := replayRemote(context.Background(), remoteOptions{
		baseURL: ts.URL,
		fixture: heartFixture,
		timeout: 10 * time.Second,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 75, summary.Sent)
	assert.Equal(t, 75, summary.Overlays)
	assert.Equal(t, 5, summary.MaxHearts)
	assert.Zero(t, summary.Errors)

	sess, err := sessions.Get(summary.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), sess.FrameCount)
}

func TestCreateSessionRetriesWhileServerWarmsUp(t *testing.T) {
	sessions := session.NewManager(time.Minute)
	api := httpapi.New(config.Config{}, nil, sessions, nil, nil).Router()
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		api.ServeHTTP(w, r)
	}))
	defer ts.Close()

	fx, err := loadFixture(heartFixture)
	require.NoError(t, err)
	id, err := createSessionWithRetry(context.Background(), ts.Client(), ts.URL, fx, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateSessionDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer ts.Close()

	fx, err := loadFixture(heartFixture)
	require.NoError(t, err)
	_, err = createSessionWithRetry(context.Background(), ts.Client(), ts.URL, fx, 3)
	assert.ErrorContains(t, err, "HTTP 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestWSURLForSession(t *testing.T) {
	got, err := wsURLForSession("https://example.com/base/", "abc")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/base/v1/gesture/session/ws?session_id=abc", got)

	_, err = wsURLForSession("ftp://example.com", "abc")
	assert.Error(t, err)
}
