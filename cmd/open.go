package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mj1618/wdadash/internal/wda"
	"github.com/spf13/cobra"
)

var launchCmd = &cobra.Command{
	Use:   "launch <bundle-id> [args...]",
	Short: "Launch (or relaunch) an app through WDA",
	Long: `Launch an app by bundle id through WebDriverAgent. Extra arguments are
passed to the app process.

With --wait, poll until the app is in the foreground.

Examples:
  wdadash launch com.apple.Preferences
  wdadash launch com.example.app -- -UITests 1 --wait`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOpenCommand("launch"),
}

var activateCmd = &cobra.Command{
	Use:   "activate <bundle-id>",
	Short: "Bring an installed app to the foreground",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpenCommand("activate"),
}

func init() {
	rootCmd.AddCommand(launchCmd, activateCmd)
	for _, c := range []*cobra.Command{launchCmd, activateCmd} {
		c.Flags().Bool("wait", false, "Wait until the app is in the foreground")
		c.Flags().Int("timeout", 10, "Max seconds to wait (used with --wait)")
	}
	launchCmd.Flags().StringToString("env", nil, "Environment for the app process (KEY=VALUE)")
}

func runOpenCommand(action string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{"bundle-id": args[0]}
		if len(args) > 1 {
			appArgs := make([]interface{}, 0, len(args)-1)
			for _, a := range args[1:] {
				appArgs = append(appArgs, a)
			}
			params["args"] = appArgs
		}
		if f := cmd.Flags().Lookup("env"); f != nil {
			env, _ := cmd.Flags().GetStringToString("env")
			m := make(map[string]interface{}, len(env))
			for k, v := range env {
				m[k] = v
			}
			params["env"] = m
		}
		params["wait"], _ = cmd.Flags().GetBool("wait")
		params["timeout"], _ = cmd.Flags().GetInt("timeout")
		return runStepCommand(cmd, action, params)
	}
}

// executeOpen launches or activates an app, optionally waiting until it is
// frontmost.
func executeOpen(ctx context.Context, rt *runtime, action string, params map[string]interface{}) (StepResult, error) {
	bundleID := stringParam(params, "bundle-id", "")
	if bundleID == "" {
		return StepResult{Action: action}, fmt.Errorf("bundle-id is required")
	}

	var err error
	if action == "launch" {
		err = rt.wda.AppsLaunch(ctx, bundleID, launchOptions(params))
	} else {
		err = rt.wda.AppsActivate(ctx, bundleID)
	}
	if err != nil {
		return StepResult{Action: action, Text: bundleID}, err
	}

	result := StepResult{Action: action, Text: bundleID}
	if !boolParam(params, "wait", false) {
		return result, nil
	}
	start := time.Now()
	timeout := time.Duration(intParam(params, "timeout", 10)) * time.Second
	front, err := poll(ctx, timeout, 500*time.Millisecond, func() bool {
		info, err := rt.wda.ActiveAppInfo(ctx)
		return err == nil && info.BundleID == bundleID
	})
	result.Elapsed = fmt.Sprintf("%.1fs", time.Since(start).Seconds())
	if err != nil {
		return result, err
	}
	if !front {
		return result, fmt.Errorf("timed out waiting for %s to reach the foreground", bundleID)
	}
	result.State = "foreground"
	return result, nil
}

func launchOptions(params map[string]interface{}) wda.LaunchOptions {
	var opts wda.LaunchOptions
	if args, ok := params["args"].([]interface{}); ok {
		for _, a := range args {
			opts.Arguments = append(opts.Arguments, fmt.Sprint(a))
		}
	}
	if env, ok := params["env"].(map[string]interface{}); ok {
		opts.Environment = make(map[string]string, len(env))
		for k, v := range env {
			opts.Environment[k] = fmt.Sprint(v)
		}
	}
	return opts
}
