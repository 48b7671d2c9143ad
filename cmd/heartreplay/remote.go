package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ent0n29/amora/internal/protocol"
	"github.com/ent0n29/amora/internal/reliability"
	"github.com/ent0n29/amora/internal/session"
)

type remoteOptions struct {
	baseURL  string
	fixture  string
	realtime float64
	timeout  time.Duration
	retries  int
	verbose  bool
}

func newRemoteCmd() *cobra.Command {
	opts := remoteOptions{baseURL: "http://127.0.0.1:8080", realtime: 1, timeout: 2 * time.Minute, retries: 3}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Stream a fixture to a running server over the gesture websocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := replayRemote(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "base-url", opts.baseURL, "server base URL")
	cmd.Flags().StringVarP(&opts.fixture, "fixture", "f", "", "YAML hand-frame fixture")
	cmd.Flags().Float64Var(&opts.realtime, "realtime", opts.realtime, "pacing factor; 0 sends as fast as possible")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "overall replay timeout")
	cmd.Flags().IntVar(&opts.retries, "retries", opts.retries, "session create retries while the server starts")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log server events")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

type remoteSummary struct {
	SessionID string
	Sent      int
	Overlays  int
	MaxHearts int
	Errors    int
}

func (s remoteSummary) String() string {
	return fmt.Sprintf("session=%s sent=%d overlays=%d max_hearts=%d errors=%d", s.SessionID, s.Sent, s.Overlays, s.MaxHearts, s.Errors)
}

func replayRemote(ctx context.Context, opts remoteOptions, log io.Writer) (remoteSummary, error) {
	fx, err := loadFixture(opts.fixture)
	if err != nil {
		return remoteSummary{}, err
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	sessionID, err := createSessionWithRetry(ctx, httpClient, opts.baseURL, fx, opts.retries)
	if err != nil {
		return remoteSummary{}, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		_ = endSession(context.Background(), httpClient, opts.baseURL, sessionID)
	}()

	wsURL, err := wsURLForSession(opts.baseURL, sessionID)
	if err != nil {
		return remoteSummary{}, fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return remoteSummary{}, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	frames := fx.expand(time.Now())
	summary := remoteSummary{SessionID: sessionID, Sent: len(frames)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		step := time.Duration(float64(fx.IntervalMS)*opts.realtime) * time.Millisecond
		for i, f := range frames {
			msg := protocol.HandFrame{
				Type:      protocol.TypeHandFrame,
				SessionID: sessionID,
				Seq:       int64(i + 1),
				Width:     f.Width,
				Height:    f.Height,
				Hands:     f.Hands,
				TSMs:      f.At.UnixMilli(),
			}
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("send frame %d: %w", i+1, err)
			}
			if step > 0 {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(step):
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		// Unblock the reader when the context ends early.
		go func() {
			<-gctx.Done()
			_ = conn.SetReadDeadline(time.Now())
		}()
		for summary.Overlays < len(frames) {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("ws read: %w", err)
			}
			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			switch env.Type {
			case protocol.TypeOverlayFrame:
				var o protocol.OverlayFrame
				if err := json.Unmarshal(data, &o); err != nil {
					return fmt.Errorf("decode overlay: %w", err)
				}
				summary.Overlays++
				if n := len(o.Overlay.Hearts); n > summary.MaxHearts {
					summary.MaxHearts = n
				}
			case protocol.TypeErrorEvent:
				var e protocol.ErrorEvent
				_ = json.Unmarshal(data, &e)
				summary.Errors++
				if opts.verbose {
					fmt.Fprintf(log, "heartreplay: error_event code=%s detail=%s\n", e.Code, e.Detail)
				}
			case protocol.TypeSystemEvent:
				if opts.verbose {
					var e protocol.SystemEvent
					_ = json.Unmarshal(data, &e)
					fmt.Fprintf(log, "heartreplay: system_event code=%s\n", e.Code)
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return summary, err
	}
	stop := protocol.ClientControl{Type: protocol.TypeClientControl, SessionID: sessionID, Action: protocol.ActionStop}
	if err := conn.WriteJSON(stop); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return summary, fmt.Errorf("send stop: %w", err)
	}
	return summary, nil
}

const (
	createBackoffBase = 250 * time.Millisecond
	createBackoffCap  = 4 * time.Second
)

// httpStatusError is a non-201 answer to a session create.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.body)
}

// createSessionWithRetry retries transport failures and retryable statuses so
// a replay can start while the server is still coming up.
func createSessionWithRetry(ctx context.Context, client *http.Client, baseURL string, fx fixture, retries int) (string, error) {
	for attempt := 0; ; attempt++ {
		id, err := createSession(ctx, client, baseURL, fx)
		if err == nil {
			return id, nil
		}
		var se *httpStatusError
		if errors.As(err, &se) && !reliability.IsRetryableHTTPStatus(se.status) {
			return "", err
		}
		if attempt >= retries || ctx.Err() != nil {
			return "", err
		}
		if serr := reliability.Sleep(ctx, reliability.ExponentialBackoff(attempt, createBackoffBase, createBackoffCap)); serr != nil {
			return "", err
		}
	}
}

func createSession(ctx context.Context, client *http.Client, baseURL string, fx fixture) (string, error) {
	payload, err := json.Marshal(session.CreateRequest{
		ClientID:     "heartreplay",
		CanvasWidth:  fx.Width,
		CanvasHeight: fx.Height,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/v1/gesture/session", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusCreated {
		return "", &httpStatusError{status: res.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var out session.CreateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return "", fmt.Errorf("missing session_id in response")
	}
	return out.SessionID, nil
}

func endSession(ctx context.Context, client *http.Client, baseURL, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/v1/gesture/session/"+url.PathEscape(sessionID)+"/end", nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func wsURLForSession(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/gesture/session/ws"
	q := u.Query()
	q.Set("session_id", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
