// Package backend is the client for the device-management REST service
// that lists devices, manages apps and files, and proxies WDA.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/wdadash/internal/poco"
)

// DefaultBaseURL is where the backend listens by default.
const DefaultBaseURL = "http://127.0.0.1:15037/api"

// Client talks to the device backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streamHTTP *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for request/response calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a backend client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		streamHTTP: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// WDAURL is the backend's WDA proxy for a device.
func (c *Client) WDAURL(udid string) string {
	return c.baseURL + "/ios/" + url.PathEscape(udid) + "/wda"
}

// ListDevices lists connected devices for a platform ("" for all).
func (c *Client) ListDevices(ctx context.Context, platform string) ([]Device, error) {
	path := "/list"
	switch platform {
	case PlatformAll:
	case PlatformIOS, PlatformAndroid:
		path = "/" + platform
	default:
		return nil, fmt.Errorf("unknown platform %q (expected ios or android)", platform)
	}
	var devices []Device
	if err := c.getJSON(ctx, path, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// Device returns details of one iOS device.
func (c *Client) Device(ctx context.Context, udid string) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := c.getJSON(ctx, devicePath(udid), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListApps lists installed apps. kind defaults to AppsUser.
func (c *Client) ListApps(ctx context.Context, udid, kind string) ([]App, error) {
	if kind == "" {
		kind = AppsUser
	}
	var apps []App
	if err := c.getJSON(ctx, devicePath(udid)+"/apps?type="+url.QueryEscape(kind), &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// LaunchApp starts an app by bundle id.
func (c *Client) LaunchApp(ctx context.Context, udid, bundleID string) error {
	return c.appAction(ctx, udid, bundleID, "launch")
}

// KillApp stops a running app.
func (c *Client) KillApp(ctx context.Context, udid, bundleID string) error {
	return c.appAction(ctx, udid, bundleID, "kill")
}

// UninstallApp removes an app from the device.
func (c *Client) UninstallApp(ctx context.Context, udid, bundleID string) error {
	return c.appAction(ctx, udid, bundleID, "uninstall")
}

func (c *Client) appAction(ctx context.Context, udid, bundleID, action string) error {
	if bundleID == "" {
		return fmt.Errorf("%s: bundle id is required", action)
	}
	return c.postJSON(ctx, devicePath(udid)+"/apps/"+url.PathEscape(bundleID)+"/"+action, nil, nil)
}

// ListAndroidApps lists the packages installed on an Android device.
func (c *Client) ListAndroidApps(ctx context.Context, serial string) ([]AndroidApp, error) {
	var apps []AndroidApp
	if err := c.getJSON(ctx, androidPath(serial)+"/apps", &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// LaunchAndroidApp starts an Android package.
func (c *Client) LaunchAndroidApp(ctx context.Context, serial, pkg string) error {
	return c.androidAppAction(ctx, serial, pkg, "launch")
}

// KillAndroidApp force-stops an Android package.
func (c *Client) KillAndroidApp(ctx context.Context, serial, pkg string) error {
	return c.androidAppAction(ctx, serial, pkg, "kill")
}

func (c *Client) androidAppAction(ctx context.Context, serial, pkg, action string) error {
	if pkg == "" {
		return fmt.Errorf("%s: package name is required", action)
	}
	return c.postJSON(ctx, androidPath(serial)+"/apps/"+url.PathEscape(pkg)+"/"+action, nil, nil)
}

// PocoDump reads the Unity Poco hierarchy of the foreground app. The backend
// forwards port on the device and returns the dump's result node.
func (c *Client) PocoDump(ctx context.Context, udid string, port int) (*poco.Node, error) {
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid poco port %d", port)
	}
	var root poco.Node
	if err := c.getJSON(ctx, devicePath(udid)+"/poco/"+strconv.Itoa(port)+"/dump", &root); err != nil {
		return nil, err
	}
	return &root, nil
}

// ListProcesses lists running processes.
func (c *Client) ListProcesses(ctx context.Context, udid string) ([]Process, error) {
	var procs []Process
	if err := c.getJSON(ctx, devicePath(udid)+"/processes", &procs); err != nil {
		return nil, err
	}
	return procs, nil
}

// ListFiles lists a directory on the device, or inside an app container
// when bundleID is set. path defaults to "/" for the device and
// "/Documents" for an app.
func (c *Client) ListFiles(ctx context.Context, udid, bundleID, path string) ([]string, error) {
	var endpoint string
	if bundleID != "" {
		if path == "" {
			path = "/Documents"
		}
		endpoint = devicePath(udid) + "/apps/" + url.PathEscape(bundleID) + "/fsync/list" + ensureLeadingSlash(path)
	} else {
		if path == "" {
			path = "/"
		}
		endpoint = devicePath(udid) + "/fsync/list" + ensureLeadingSlash(path)
	}
	var resp struct {
		Message []string `json:"message"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// SetLocation simulates a GPS position.
func (c *Client) SetLocation(ctx context.Context, udid string, lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("location %v,%v out of range", lat, lon)
	}
	return c.postJSON(ctx, devicePath(udid)+"/location", map[string]float64{"lat": lat, "lon": lon}, nil)
}

// ResetLocation clears a simulated position.
func (c *Client) ResetLocation(ctx context.Context, udid string) error {
	return c.postJSON(ctx, devicePath(udid)+"/location/reset", nil, nil)
}

// Screenshot returns PNG bytes captured by the backend.
func (c *Client) Screenshot(ctx context.Context, udid string) ([]byte, error) {
	resp, err := c.send(ctx, c.httpClient, http.MethodGet, devicePath(udid)+"/screenshot", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(0, nil, err)
	}
	return data, nil
}

// Syslog opens the device log stream. Each event's Data is one log line.
func (c *Client) Syslog(ctx context.Context, udid string) (*Stream, error) {
	return c.stream(ctx, devicePath(udid)+"/syslog")
}

// Perf opens the performance stream; event names are perf types such as "sys_mem".
func (c *Client) Perf(ctx context.Context, udid string) (*Stream, error) {
	return c.stream(ctx, devicePath(udid)+"/perf/sse")
}

func (c *Client) stream(ctx context.Context, path string) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.send(ctx, c.streamHTTP, http.MethodGet, path, nil, "Accept", "text/event-stream")
	if err != nil {
		cancel()
		return nil, err
	}
	c.logger.Debug("event stream opened", zap.String("path", path))
	return newStream(ctx, resp.Body, cancel), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	resp, err := c.send(ctx, c.httpClient, method, path, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// send performs a request and turns transport failures and non-2xx
// statuses into *Error. On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body io.Reader, headers ...string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, newError(0, nil, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		berr := newError(resp.StatusCode, data, nil)
		c.logger.Debug("backend request rejected", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("message", berr.Message))
		return nil, berr
	}
	return resp, nil
}

func devicePath(udid string) string { return "/ios/" + url.PathEscape(udid) }

func androidPath(serial string) string { return "/android/" + url.PathEscape(serial) }

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}
