// Package wda is a thin session-scoped client for the WebDriverAgent HTTP API.
package wda

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every WDA request.
const DefaultTimeout = 30 * time.Second

// Observer is notified after every WDA round trip. status is 0 when the
// request never got a response.
type Observer func(method, route string, status int, elapsed time.Duration)

// Client talks to one WDA instance and owns at most one session id.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer

	mu          sync.Mutex // guards sessionID and serializes session creation
	sessionID   string
	defaultCaps Capabilities
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDefaultCapabilities sets the capabilities used when a session is
// created implicitly or with empty capabilities.
func WithDefaultCapabilities(caps Capabilities) Option {
	return func(c *Client) { c.defaultCaps = caps }
}

// WithSessionID attaches the client to an existing session.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// WithObserver registers a round-trip observer, typically a metrics hook.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for the WDA instance at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      zap.NewNop(),
		defaultCaps: Capabilities{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the WDA root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// SessionID returns the current session id, or "" when none is open.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SetDefaultCapabilities replaces the capabilities used for implicit sessions.
func (c *Client) SetDefaultCapabilities(caps Capabilities) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultCaps = caps
}

// CreateSession opens a new session, replacing any stored id. Empty caps
// fall back to the default capabilities.
func (c *Client) CreateSession(ctx context.Context, caps Capabilities) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createSessionLocked(ctx, caps)
}

func (c *Client) createSessionLocked(ctx context.Context, caps Capabilities) (*Session, error) {
	if len(caps) == 0 {
		caps = c.defaultCaps
	}
	if caps == nil {
		caps = Capabilities{}
	}
	var resp envelope[Session]
	if err := c.do(ctx, http.MethodPost, "/session", map[string]any{"capabilities": caps}, &resp); err != nil {
		return nil, err
	}
	sess := resp.Value
	if sess.ID == "" {
		sess.ID = resp.SessionID
	}
	if sess.ID == "" {
		return nil, &Error{Message: "session response carried no session id"}
	}
	c.sessionID = sess.ID
	c.logger.Debug("wda session created", zap.String("session", sess.ID), zap.Int("capabilities", len(sess.Capabilities)))
	return &sess, nil
}

// EndSession deletes the current session. It is a no-op without one.
func (c *Client) EndSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodDelete, "/session/"+c.sessionID, nil, nil); err != nil {
		return err
	}
	c.logger.Debug("wda session ended", zap.String("session", c.sessionID))
	c.sessionID = ""
	return nil
}

// RequiresSession ensures a session exists and returns its id. Concurrent
// callers share a single creation.
func (c *Client) RequiresSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != "" {
		return c.sessionID, nil
	}
	sess, err := c.createSessionLocked(ctx, nil)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Status returns WDA's health information.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	var resp envelope[StatusInfo]
	if err := c.do(ctx, http.MethodGet, "/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Value, nil
}

// ActiveAppInfo returns the foreground application.
func (c *Client) ActiveAppInfo(ctx context.Context) (*AppInfo, error) {
	var resp envelope[AppInfo]
	if err := c.do(ctx, http.MethodGet, "/wda/activeAppInfo", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Value, nil
}

// Source returns the accessibility tree as an XML document.
func (c *Client) Source(ctx context.Context) (string, error) {
	var resp envelope[string]
	if err := c.do(ctx, http.MethodGet, "/source", nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// Screenshot returns the decoded PNG bytes of the current screen.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	var resp envelope[string]
	if err := c.do(ctx, http.MethodGet, "/screenshot", nil, &resp); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Value)
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return data, nil
}

// SiriActivate sends a voice command text to Siri.
func (c *Client) SiriActivate(ctx context.Context, text string) error {
	return c.sessionPost(ctx, "/wda/siri/activate", map[string]any{"text": text}, nil)
}

// SetPasteboard writes content to the device pasteboard. contentType
// defaults to "plaintext".
func (c *Client) SetPasteboard(ctx context.Context, content, contentType string) error {
	if contentType == "" {
		contentType = "plaintext"
	}
	return c.sessionPost(ctx, "/wda/setPasteboard", map[string]any{
		"content":     base64.StdEncoding.EncodeToString([]byte(content)),
		"contentType": contentType,
	}, nil)
}

// GetPasteboard reads the device pasteboard as text.
func (c *Client) GetPasteboard(ctx context.Context) (string, error) {
	var resp envelope[string]
	if err := c.sessionPost(ctx, "/wda/getPasteboard", map[string]any{"contentType": "plaintext"}, &resp); err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(resp.Value)
	if err != nil {
		return "", fmt.Errorf("decode pasteboard: %w", err)
	}
	return string(data), nil
}

// AppsLaunch launches (or relaunches) the app with the given bundle id.
func (c *Client) AppsLaunch(ctx context.Context, bundleID string, opts LaunchOptions) error {
	if opts.Arguments == nil {
		opts.Arguments = []string{}
	}
	if opts.Environment == nil {
		opts.Environment = map[string]string{}
	}
	return c.sessionPost(ctx, "/wda/apps/launch", map[string]any{
		"bundleId":                bundleID,
		"arguments":               opts.Arguments,
		"environment":             opts.Environment,
		"shouldWaitForQuiescence": opts.ShouldWaitForQuiescence,
	}, nil)
}

// AppsActivate brings an installed app to the foreground.
func (c *Client) AppsActivate(ctx context.Context, bundleID string) error {
	return c.sessionPost(ctx, "/wda/apps/activate", map[string]any{"bundleId": bundleID}, nil)
}

// Actions performs raw W3C pointer actions.
func (c *Client) Actions(ctx context.Context, actions []Action) error {
	return c.sessionPost(ctx, "/actions", map[string]any{"actions": actions}, nil)
}

// Tap taps at a logical point.
func (c *Client) Tap(ctx context.Context, x, y float64) error {
	return c.Actions(ctx, []Action{TapAction(x, y)})
}

// LongPress holds at a logical point for ms milliseconds.
func (c *Client) LongPress(ctx context.Context, x, y float64, ms int) error {
	return c.Actions(ctx, []Action{LongPressAction(x, y, ms)})
}

// Swipe swipes between two logical points.
func (c *Client) Swipe(ctx context.Context, x1, y1, x2, y2 float64) error {
	return c.Actions(ctx, []Action{SwipeAction(x1, y1, x2, y2)})
}

// Drag drags between two logical points, moving over ms milliseconds.
func (c *Client) Drag(ctx context.Context, x1, y1, x2, y2 float64, ms int) error {
	return c.Actions(ctx, []Action{DragAction(x1, y1, x2, y2, ms)})
}

// DoubleTap double-taps at a logical point.
func (c *Client) DoubleTap(ctx context.Context, x, y float64) error {
	return c.sessionPost(ctx, "/wda/doubleTap", map[string]any{"x": x, "y": y}, nil)
}

// PressButton presses a hardware button (home, volumeUp, volumeDown).
func (c *Client) PressButton(ctx context.Context, name string) error {
	if !ValidButton(name) {
		return fmt.Errorf("unknown button %q (expected home, volumeUp or volumeDown)", name)
	}
	return c.sessionPost(ctx, "/wda/pressButton", map[string]any{"name": name}, nil)
}

// Locked reports whether the screen is locked.
func (c *Client) Locked(ctx context.Context) (bool, error) {
	var resp envelope[bool]
	if err := c.sessionCall(ctx, http.MethodGet, "/wda/locked", nil, &resp); err != nil {
		return false, err
	}
	return resp.Value, nil
}

// Lock locks the screen.
func (c *Client) Lock(ctx context.Context) error {
	return c.sessionPost(ctx, "/wda/lock", nil, nil)
}

// Unlock unlocks the screen.
func (c *Client) Unlock(ctx context.Context) error {
	return c.sessionPost(ctx, "/wda/unlock", nil, nil)
}

// TogglePower unlocks a locked screen and locks an unlocked one. It returns
// the lock state after the toggle.
func (c *Client) TogglePower(ctx context.Context) (bool, error) {
	locked, err := c.Locked(ctx)
	if err != nil {
		return false, err
	}
	if locked {
		return false, c.Unlock(ctx)
	}
	return true, c.Lock(ctx)
}

// WindowSize returns the logical screen size.
func (c *Client) WindowSize(ctx context.Context) (*WindowSize, error) {
	var resp envelope[WindowSize]
	if err := c.sessionCall(ctx, http.MethodGet, "/window/size", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Value, nil
}

func (c *Client) sessionPost(ctx context.Context, path string, body, out any) error {
	return c.sessionCall(ctx, http.MethodPost, path, body, out)
}

func (c *Client) sessionCall(ctx context.Context, method, path string, body, out any) error {
	id, err := c.RequiresSession(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, "/session/"+id+path, body, out)
}

// do performs one request. Non-2xx responses and transport failures become
// *Error; out, when non-nil, receives the decoded body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	} else if method == http.MethodPost {
		reader = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, start)
		c.logger.Debug("wda request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return newTransportError(err)
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		werr := newStatusError(resp.StatusCode, data)
		c.logger.Debug("wda request rejected",
			zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("message", werr.Message))
		return werr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.observer != nil {
		c.observer(method, routeOf(path), status, time.Since(start))
	}
}

// routeOf replaces the session id in a path so metrics stay low-cardinality.
func routeOf(path string) string {
	rest, ok := strings.CutPrefix(path, "/session/")
	if !ok {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/session/{id}" + rest[i:]
	}
	return "/session/{id}"
}
