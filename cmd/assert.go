package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/wdadash/internal/model"
	"github.com/spf13/cobra"
)

var assertCmd = &cobra.Command{
	Use:   "assert",
	Short: "Assert a UI condition is met",
	Long: `Check that a UI element exists with expected properties.

Exits 0 on pass and 1 on fail. Optionally polls with --timeout for
conditions that take time to appear.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{}
		textTargetParams(cmd, "text", params)
		if id, _ := cmd.Flags().GetInt("id"); id > 0 {
			params["id"] = id
		}
		if cmd.Flags().Changed("value") {
			params["value"], _ = cmd.Flags().GetString("value")
		}
		for _, name := range []string{"value-contains"} {
			if v, _ := cmd.Flags().GetString(name); v != "" {
				params[name] = v
			}
		}
		for _, name := range []string{"enabled", "disabled", "visible", "hidden", "gone"} {
			if v, _ := cmd.Flags().GetBool(name); v {
				params[name] = true
			}
		}
		params["timeout"], _ = cmd.Flags().GetInt("timeout")
		params["interval"], _ = cmd.Flags().GetInt("interval")
		return runStepCommand(cmd, "assert", params)
	},
}

func init() {
	rootCmd.AddCommand(assertCmd)
	addTextTargetingFlags(assertCmd, "text", "Find element by name/label/value text")
	assertCmd.Flags().Int("id", 0, "Find element by ID")

	assertCmd.Flags().String("value", "", "Assert element value equals this string")
	assertCmd.Flags().String("value-contains", "", "Assert element value contains this substring")
	assertCmd.Flags().Bool("enabled", false, "Assert element is enabled")
	assertCmd.Flags().Bool("disabled", false, "Assert element is disabled")
	assertCmd.Flags().Bool("visible", false, "Assert element is visible")
	assertCmd.Flags().Bool("hidden", false, "Assert element is not visible")
	assertCmd.Flags().Bool("gone", false, "Assert element does NOT exist")

	assertCmd.Flags().Int("timeout", 0, "Max seconds to poll (0 = single check, no polling)")
	assertCmd.Flags().Int("interval", 500, "Polling interval in milliseconds")
}

type assertOptions struct {
	value         string
	hasValueCheck bool
	valueContains string
	enabled       bool
	disabled      bool
	visible       bool
	hidden        bool
}

func assertOptionsFromParams(params map[string]interface{}) assertOptions {
	_, hasValue := params["value"]
	return assertOptions{
		value:         stringParam(params, "value", ""),
		hasValueCheck: hasValue,
		valueContains: stringParam(params, "value-contains", ""),
		enabled:       boolParam(params, "enabled", false),
		disabled:      boolParam(params, "disabled", false),
		visible:       boolParam(params, "visible", false),
		hidden:        boolParam(params, "hidden", false),
	}
}

func executeAssert(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	if !hasElementTarget(params) {
		return StepResult{Action: "assert"}, fmt.Errorf("specify text, ref or id to target an element")
	}
	opts := assertOptionsFromParams(params)
	gone := boolParam(params, "gone", false)
	timeout := time.Duration(intParam(params, "timeout", 0)) * time.Second
	interval := time.Duration(intParam(params, "interval", 500)) * time.Millisecond

	var (
		result StepResult
		failed error
	)
	pass, err := poll(ctx, timeout, interval, func() bool {
		result, failed = checkAssert(ctx, rt, params, opts, gone)
		return failed == nil
	})
	if err != nil {
		return result, err
	}
	if !pass {
		return result, fmt.Errorf("assert failed: %w", failed)
	}
	return result, nil
}

// checkAssert performs a single assertion check.
func checkAssert(ctx context.Context, rt *runtime, params map[string]interface{}, opts assertOptions, gone bool) (StepResult, error) {
	result := StepResult{Action: "assert"}
	elem, err := resolveElement(ctx, rt, params)
	if gone {
		if err != nil || elem == nil {
			result.State = "gone"
			return result, nil
		}
		result.Target = elementInfoFromElement(elem)
		return result, fmt.Errorf("expected element to be gone but found: %s", describeElement(elem))
	}
	if err != nil {
		return result, err
	}
	result.Target = elementInfoFromElement(elem)
	if err := checkPropertyAssertions(elem, opts); err != nil {
		return result, err
	}
	result.State = "pass"
	return result, nil
}

// checkPropertyAssertions validates element properties against the assertion flags.
func checkPropertyAssertions(elem *model.Element, opts assertOptions) error {
	value := elem.Detail[model.AttrValue]
	if opts.hasValueCheck && value != opts.value {
		return fmt.Errorf("expected value %q but got %q", opts.value, value)
	}
	if opts.valueContains != "" && !strings.Contains(strings.ToLower(value), strings.ToLower(opts.valueContains)) {
		return fmt.Errorf("expected value to contain %q but got %q", opts.valueContains, value)
	}
	if opts.enabled && elem.Detail["enabled"] == "false" {
		return fmt.Errorf("expected element to be enabled but it is disabled")
	}
	if opts.disabled && elem.Detail["enabled"] != "false" {
		return fmt.Errorf("expected element to be disabled but it is enabled")
	}
	if opts.visible && elem.Detail["visible"] == "false" {
		return fmt.Errorf("expected element to be visible but it is hidden")
	}
	if opts.hidden && elem.Detail["visible"] != "false" {
		return fmt.Errorf("expected element to be hidden but it is visible")
	}
	return nil
}

// describeElement returns a brief human-readable description of an element.
func describeElement(elem *model.Element) string {
	parts := []string{fmt.Sprintf("id=%d", elem.ID), fmt.Sprintf("role=%s", model.Role(*elem))}
	if name := elem.Detail.Name(); name != "" {
		parts = append(parts, fmt.Sprintf("name=%q", name))
	}
	if value := elem.Detail[model.AttrValue]; value != "" {
		parts = append(parts, fmt.Sprintf("value=%q", value))
	}
	return strings.Join(parts, " ")
}
