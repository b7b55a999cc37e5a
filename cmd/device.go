package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mj1618/wdadash/internal/output"
	"github.com/mj1618/wdadash/internal/wda"
	"github.com/spf13/cobra"
)

// SessionResult is the output of `session create` and `session end`.
type SessionResult struct {
	OK           bool           `yaml:"ok"                     json:"ok"`
	Action       string         `yaml:"action"                 json:"action"`
	Session      string         `yaml:"session"                json:"session"`
	Capabilities map[string]any `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show WebDriverAgent status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newRuntime().wda.Status(cmd.Context())
		if err != nil {
			return err
		}
		return output.Print(st)
	},
}

var windowSizeCmd = &cobra.Command{
	Use:   "window-size",
	Short: "Show the logical screen size in points",
	RunE: func(cmd *cobra.Command, args []string) error {
		size, err := newRuntime().wda.WindowSize(cmd.Context())
		if err != nil {
			return err
		}
		return output.Print(size)
	},
}

var activeAppCmd = &cobra.Command{
	Use:   "active-app",
	Short: "Show the foreground application",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := newRuntime().wda.ActiveAppInfo(cmd.Context())
		if err != nil {
			return err
		}
		return output.Print(info)
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create or end a WDA session",
	Long: `WDA commands create a session on demand. Create one explicitly to
reuse it across invocations with --session or WDADASH_SESSION.`,
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a session and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		caps := wda.Capabilities{}
		if bundle, _ := cmd.Flags().GetString("bundle-id"); bundle != "" {
			caps["bundleId"] = bundle
		}
		sess, err := rt.wda.CreateSession(cmd.Context(), caps)
		if err != nil {
			return err
		}
		return output.Print(SessionResult{OK: true, Action: "session-create", Session: sess.ID, Capabilities: sess.Capabilities})
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the session given by --session",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		id := rt.wda.SessionID()
		if id == "" {
			return fmt.Errorf("--session is required")
		}
		if err := rt.wda.EndSession(cmd.Context()); err != nil {
			return err
		}
		return output.Print(SessionResult{OK: true, Action: "session-end", Session: id})
	},
}

var buttonCmd = &cobra.Command{
	Use:   "button <home|volumeUp|volumeDown>",
	Short: "Press a hardware button",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "button", map[string]interface{}{"name": args[0]})
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "lock", nil)
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the screen",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "unlock", nil)
	},
}

var powerCmd = &cobra.Command{
	Use:   "power",
	Short: "Toggle the lock state like the power button",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "power", nil)
	},
}

var siriCmd = &cobra.Command{
	Use:   "siri <text>",
	Short: "Send a command to Siri",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "siri", map[string]interface{}{"text": strings.Join(args, " ")})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, windowSizeCmd, activeAppCmd, sessionCmd)
	rootCmd.AddCommand(buttonCmd, lockCmd, unlockCmd, powerCmd, siriCmd)
	sessionCmd.AddCommand(sessionCreateCmd, sessionEndCmd)
	sessionCreateCmd.Flags().String("bundle-id", "", "Launch this app with the session")
}

func executeButton(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	name := stringParam(params, "name", "")
	if !wda.ValidButton(name) {
		return StepResult{Action: "button"}, fmt.Errorf("unknown button %q (expected home, volumeUp or volumeDown)", name)
	}
	if err := rt.wda.PressButton(ctx, name); err != nil {
		return StepResult{Action: "button"}, err
	}
	return StepResult{Action: "button", Text: name}, nil
}

func executeLock(ctx context.Context, rt *runtime, action string) (StepResult, error) {
	result := StepResult{Action: action}
	var err error
	switch action {
	case "lock":
		err = rt.wda.Lock(ctx)
		result.State = "locked"
	case "unlock":
		err = rt.wda.Unlock(ctx)
		result.State = "unlocked"
	default:
		var locked bool
		locked, err = rt.wda.TogglePower(ctx)
		result.State = lockState(locked)
	}
	if err != nil {
		result.State = ""
		return result, err
	}
	return result, nil
}

func lockState(locked bool) string {
	if locked {
		return "locked"
	}
	return "unlocked"
}

func executeSiri(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	text := stringParam(params, "text", "")
	if text == "" {
		return StepResult{Action: "siri"}, fmt.Errorf("text is required")
	}
	if err := rt.wda.SiriActivate(ctx, text); err != nil {
		return StepResult{Action: "siri"}, err
	}
	return StepResult{Action: "siri", Text: text}, nil
}
