package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/highlight"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/mj1618/wdadash/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing device tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes wdadash device
commands as tools. AI agents can call tools directly without shell overhead.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  wdadash mcp --udid 0000-XXXX
  wdadash mcp --transport streamable-http --port 8081
  wdadash mcp --cache-ttl 0`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	mcpCmd.Flags().Int("port", 8081, "HTTP port for streamable-http transport")
	mcpCmd.Flags().Duration("cache-ttl", 2*time.Second, "Accessibility tree cache TTL (0 disables caching)")
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	srv := newMCPServer(newRuntime(), cfg.CacheTTL)
	return srv.serve(MCPConfig{Transport: transport, Port: port})
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	Transport string
	Port      int
}

// mcpServer wraps the MCP server with the device runtime and tree cache.
// Device actions are serialized; reads share the cache.
type mcpServer struct {
	rt    *runtime
	trees *device.TreeCache
	key   string
	mu    sync.Mutex
	mcp   *mcpserver.MCPServer
}

// mutatingActions invalidate the cached tree after they run.
var mutatingActions = map[string]bool{
	"tap": true, "double-tap": true, "long-press": true, "swipe": true, "drag": true,
	"button": true, "lock": true, "unlock": true, "power": true, "siri": true,
	"pasteboard-get": true, "pasteboard-set": true, "launch": true, "activate": true,
}

// newMCPServer creates and configures an MCP server with all device tools.
func newMCPServer(rt *runtime, cacheTTL time.Duration) *mcpServer {
	s := &mcpServer{
		rt:    rt,
		trees: device.NewTreeCache(cacheTTL),
		key:   rt.udid,
	}
	if s.key == "" {
		s.key = rt.wda.BaseURL()
	}
	s.mcp = mcpserver.NewMCPServer("wdadash", version.Version)
	s.registerTools()
	return s
}

// serve starts the MCP server with the configured transport.
func (s *mcpServer) serve(cfg MCPConfig) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func targetOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("text", mcp.Description("Find the element by name, label or value text")),
		mcp.WithNumber("id", mcp.Description("Element ID from the latest source read")),
		mcp.WithString("ref", mcp.Description("Stable element ref such as \"general-nav/back\"; a unique suffix is enough")),
		mcp.WithNumber("x", mcp.Description("Logical X coordinate")),
		mcp.WithNumber("y", mcp.Description("Logical Y coordinate")),
		mcp.WithString("roles", mcp.Description("Filter by role when using text (e.g. \"btn\", \"interactive\")")),
		mcp.WithBoolean("exact", mcp.Description("Require exact text match")),
		mcp.WithNumber("scope-id", mcp.Description("Limit text search to descendants of this element ID")),
	}
}

func (s *mcpServer) registerTools() {
	s.mcp.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Show WebDriverAgent status and the foreground app"),
	), s.handleStatus)

	s.mcp.AddTool(mcp.NewTool("source",
		mcp.WithDescription("Read the accessibility tree as a flat list of elements with IDs, roles, names, bounds (logical points) and role paths"),
		mcp.WithString("text", mcp.Description("Keep elements whose name, label or value contains this text")),
		mcp.WithString("roles", mcp.Description("Comma-separated roles to include, or \"interactive\"")),
		mcp.WithBoolean("prune", mcp.Description("Remove anonymous Other elements (default: true)")),
		mcp.WithBoolean("visible", mcp.Description("Drop elements marked not visible (default: true)")),
		mcp.WithBoolean("refresh", mcp.Description("Bypass the tree cache")),
	), s.handleSource)

	s.mcp.AddTool(mcp.NewTool("hit",
		mcp.WithDescription("Find the innermost element under a logical point"),
		mcp.WithNumber("x", mcp.Description("Logical X coordinate"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Logical Y coordinate"), mcp.Required()),
	), s.actionHandler("hit"))

	s.mcp.AddTool(mcp.NewTool("tap",
		append([]mcp.ToolOption{mcp.WithDescription("Tap an element by text or ID, or a logical point")}, targetOptions()...)...,
	), s.actionHandler("tap"))

	s.mcp.AddTool(mcp.NewTool("double_tap",
		append([]mcp.ToolOption{mcp.WithDescription("Double-tap an element by text or ID, or a logical point")}, targetOptions()...)...,
	), s.actionHandler("double-tap"))

	s.mcp.AddTool(mcp.NewTool("long_press",
		append([]mcp.ToolOption{
			mcp.WithDescription("Press and hold an element by text or ID, or a logical point"),
			mcp.WithNumber("duration", mcp.Description("Hold duration in ms (default: 1500)")),
		}, targetOptions()...)...,
	), s.actionHandler("long-press"))

	s.mcp.AddTool(mcp.NewTool("swipe",
		append([]mcp.ToolOption{
			mcp.WithDescription("Swipe from x1,y1 to x2,y2, or a quarter screen in a direction from the center or from an element"),
			mcp.WithString("direction", mcp.Description("Finger direction: up, down, left, right")),
			mcp.WithNumber("x1", mcp.Description("Start X")),
			mcp.WithNumber("y1", mcp.Description("Start Y")),
			mcp.WithNumber("x2", mcp.Description("End X")),
			mcp.WithNumber("y2", mcp.Description("End Y")),
		}, targetOptions()...)...,
	), s.actionHandler("swipe"))

	s.mcp.AddTool(mcp.NewTool("drag",
		mcp.WithDescription("Press, move slowly and release between two logical points"),
		mcp.WithNumber("x1", mcp.Description("Start X"), mcp.Required()),
		mcp.WithNumber("y1", mcp.Description("Start Y"), mcp.Required()),
		mcp.WithNumber("x2", mcp.Description("End X"), mcp.Required()),
		mcp.WithNumber("y2", mcp.Description("End Y"), mcp.Required()),
		mcp.WithNumber("duration", mcp.Description("Move duration in ms (default: 500)")),
	), s.actionHandler("drag"))

	s.mcp.AddTool(mcp.NewTool("button",
		mcp.WithDescription("Press a hardware button"),
		mcp.WithString("name", mcp.Description("home, volumeUp or volumeDown"), mcp.Required()),
	), s.actionHandler("button"))

	for _, action := range []string{"lock", "unlock", "power"} {
		s.mcp.AddTool(mcp.NewTool(action,
			mcp.WithDescription(map[string]string{
				"lock":   "Lock the screen",
				"unlock": "Unlock the screen",
				"power":  "Toggle the lock state like the power button",
			}[action]),
		), s.actionHandler(action))
	}

	s.mcp.AddTool(mcp.NewTool("siri",
		mcp.WithDescription("Send a command to Siri"),
		mcp.WithString("text", mcp.Description("Command text"), mcp.Required()),
	), s.actionHandler("siri"))

	s.mcp.AddTool(mcp.NewTool("pasteboard_get",
		mcp.WithDescription("Read the device pasteboard text (briefly switches apps)"),
	), s.actionHandler("pasteboard-get"))

	s.mcp.AddTool(mcp.NewTool("pasteboard_set",
		mcp.WithDescription("Replace the device pasteboard text (briefly switches apps)"),
		mcp.WithString("text", mcp.Description("New pasteboard text"), mcp.Required()),
	), s.actionHandler("pasteboard-set"))

	s.mcp.AddTool(mcp.NewTool("launch",
		mcp.WithDescription("Launch (or relaunch) an app by bundle id"),
		mcp.WithString("bundle-id", mcp.Description("App bundle id"), mcp.Required()),
		mcp.WithArray("args", mcp.Description("Process arguments")),
		mcp.WithBoolean("wait", mcp.Description("Wait until the app is in the foreground")),
		mcp.WithNumber("timeout", mcp.Description("Max seconds to wait (default: 10)")),
	), s.actionHandler("launch"))

	s.mcp.AddTool(mcp.NewTool("activate",
		mcp.WithDescription("Bring an installed app to the foreground"),
		mcp.WithString("bundle-id", mcp.Description("App bundle id"), mcp.Required()),
		mcp.WithBoolean("wait", mcp.Description("Wait until the app is in the foreground")),
	), s.actionHandler("activate"))

	s.mcp.AddTool(mcp.NewTool("wait",
		mcp.WithDescription("Poll the accessibility tree until a condition is met"),
		mcp.WithString("for-text", mcp.Description("Element text (substring)")),
		mcp.WithString("for-role", mcp.Description("Element role")),
		mcp.WithNumber("for-id", mcp.Description("Element ID")),
		mcp.WithBoolean("gone", mcp.Description("Wait until the condition is no longer true")),
		mcp.WithNumber("timeout", mcp.Description("Max seconds to wait (default: 30)")),
		mcp.WithNumber("interval", mcp.Description("Polling interval in ms (default: 500)")),
	), s.actionHandler("wait"))

	s.mcp.AddTool(mcp.NewTool("assert",
		append([]mcp.ToolOption{
			mcp.WithDescription("Assert an element exists with expected properties"),
			mcp.WithString("value", mcp.Description("Expected exact value")),
			mcp.WithString("value-contains", mcp.Description("Expected value substring")),
			mcp.WithBoolean("enabled", mcp.Description("Assert enabled")),
			mcp.WithBoolean("disabled", mcp.Description("Assert disabled")),
			mcp.WithBoolean("visible", mcp.Description("Assert visible")),
			mcp.WithBoolean("gone", mcp.Description("Assert the element does not exist")),
			mcp.WithNumber("timeout", mcp.Description("Max seconds to poll (default: 0)")),
		}, targetOptions()...)...,
	), s.actionHandler("assert"))

	s.mcp.AddTool(mcp.NewTool("screenshot",
		mcp.WithDescription("Capture a device screenshot, optionally annotated with element IDs or coordinates"),
		mcp.WithString("annotate", mcp.Description("Label element boxes: ids, coords")),
		mcp.WithString("roles", mcp.Description("Roles to annotate (default: interactive)")),
		mcp.WithNumber("width", mcp.Description("Scale to this pixel width (default: 390)")),
		mcp.WithString("format", mcp.Description("png or jpg (default: jpg)")),
		mcp.WithNumber("quality", mcp.Description("JPEG quality 1-100 (default: 70)")),
	), s.handleScreenshot)

	s.mcp.AddTool(mcp.NewTool("do",
		mcp.WithDescription("Execute multiple actions in a batch. Steps execute sequentially. Supports: tap, double-tap, long-press, swipe, drag, button, lock, unlock, power, siri, pasteboard-get, pasteboard-set, launch, activate, hit, wait, assert, sleep, if-exists, try"),
		mcp.WithArray("steps", mcp.Description("Array of step objects"), mcp.Required()),
		mcp.WithBoolean("stop-on-error", mcp.Description("Stop on first error (default: true)")),
	), s.handleDo)
}

// resultToText serializes a result to YAML for an MCP response.
func resultToText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

// actionHandler wraps an executor: serializes device access and
// invalidates the cached tree after mutating actions.
func (s *mcpServer) actionHandler(action string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := request.GetArguments()

		s.mu.Lock()
		defer s.mu.Unlock()

		result, err := executeStep(ctx, s.rt, action, params)
		if mutatingActions[action] {
			s.trees.Invalidate(s.key)
		}
		result.Action = action
		if err != nil {
			result.OK = false
			result.Error = err.Error()
			return mcp.NewToolResultError(resultToText(result)), nil
		}
		result.OK = true
		return mcp.NewToolResultText(resultToText(result)), nil
	}
}

// snapshot reads the tree through the cache.
func (s *mcpServer) snapshot(ctx context.Context, refresh bool) (*device.Snapshot, error) {
	if refresh {
		s.trees.Invalidate(s.key)
	}
	return s.trees.Get(ctx, s.key, s.rt.snapshot)
}

func (s *mcpServer) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.rt.wda.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := map[string]interface{}{"status": st}
	if app, err := s.rt.wda.ActiveAppInfo(ctx); err == nil {
		out["activeApp"] = app
	}
	return mcp.NewToolResultText(resultToText(out)), nil
}

func (s *mcpServer) handleSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	snap, err := s.snapshot(ctx, boolParam(params, "refresh", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	elements := filterTree(snap.Elements,
		stringParam(params, "text", ""),
		stringParam(params, "roles", ""),
		boolParam(params, "prune", true),
		boolParam(params, "visible", true))
	flat := model.FlattenElements(elements)
	if flat == nil {
		flat = []model.FlatElement{}
	}
	return mcp.NewToolResultText(resultToText(output.SourceFlatResult{
		Device:   s.rt.udid,
		TS:       snap.FetchedAt.Unix(),
		Elements: flat,
	})), nil
}

func (s *mcpServer) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	format := stringParam(params, "format", "jpg")
	quality := intParam(params, "quality", 70)
	width := intParam(params, "width", 390)
	annotate := stringParam(params, "annotate", "")

	s.mu.Lock()
	data, err := s.rt.wda.Screenshot(ctx)
	s.mu.Unlock()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	img, _, err := highlight.Decode(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if annotate != "" {
		mode, err := labelMode(annotate)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		snap, err := s.snapshot(ctx, false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		flat := model.FlattenElements(filterTree(snap.Elements, "", stringParam(params, "roles", "interactive"), true, true))
		img = highlight.Annotate(img, flat, geometry.PixelRatio(img.Bounds().Dx(), snap.Size), mode)
	}

	var buf bytes.Buffer
	if err := highlight.Encode(&buf, highlight.Scale(img, width), format, quality); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.ImageContent{
				Type:     "image",
				Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
				MIMEType: highlight.ContentType(format),
			},
		},
	}, nil
}

func (s *mcpServer) handleDo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	stepsRaw, ok := params["steps"]
	if !ok {
		return mcp.NewToolResultError("steps parameter is required"), nil
	}
	steps, err := parseSubsteps(stepsRaw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doCtx := &DoContext{
		Ctx:         ctx,
		Runtime:     s.rt,
		StopOnError: boolParam(params, "stop-on-error", true),
	}
	doCtx.ExecuteSteps(steps, 0)
	s.trees.Invalidate(s.key)

	result := doCtx.Result(len(steps))
	if !result.OK {
		return mcp.NewToolResultError(resultToText(result)), nil
	}
	return mcp.NewToolResultText(resultToText(result)), nil
}
