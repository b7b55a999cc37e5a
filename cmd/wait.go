package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/wdadash/internal/model"
	"github.com/spf13/cobra"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for a UI condition to be met",
	Long:  "Poll the accessibility tree until a condition is met or the timeout is reached.",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{}
		if v, _ := cmd.Flags().GetString("for-text"); v != "" {
			params["for-text"] = v
		}
		if v, _ := cmd.Flags().GetString("for-role"); v != "" {
			params["for-role"] = v
		}
		if v, _ := cmd.Flags().GetInt("for-id"); v > 0 {
			params["for-id"] = v
		}
		params["gone"], _ = cmd.Flags().GetBool("gone")
		params["timeout"], _ = cmd.Flags().GetInt("timeout")
		params["interval"], _ = cmd.Flags().GetInt("interval")
		return runStepCommand(cmd, "wait", params)
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().String("for-text", "", "Wait for element with this name, label or value text (substring match)")
	waitCmd.Flags().String("for-role", "", "Wait for element with this role (e.g. btn, input, cell)")
	waitCmd.Flags().Int("for-id", 0, "Wait for element with this ID to exist")
	waitCmd.Flags().Bool("gone", false, "Invert: wait until the condition is NO LONGER true")
	waitCmd.Flags().Int("timeout", 30, "Max seconds to wait")
	waitCmd.Flags().Int("interval", 500, "Polling interval in milliseconds")
}

func executeWait(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	forText := stringParam(params, "for-text", "")
	forRole := stringParam(params, "for-role", "")
	forID := intParam(params, "for-id", 0)
	gone := boolParam(params, "gone", false)
	if forText == "" && forRole == "" && forID == 0 {
		return StepResult{Action: "wait"}, fmt.Errorf("specify at least one condition: for-text, for-role, or for-id")
	}
	timeout := time.Duration(intParam(params, "timeout", 30)) * time.Second
	interval := time.Duration(intParam(params, "interval", 500)) * time.Millisecond
	desc := describeCondition(forText, forRole, forID, gone)

	start := time.Now()
	var lastErr error
	met, err := poll(ctx, timeout, interval, func() bool {
		snap, err := rt.snapshot(ctx)
		if err != nil {
			lastErr = err
			return false
		}
		return checkWaitCondition(snap.Elements, forText, forRole, forID) != gone
	})
	result := StepResult{Action: "wait", Match: desc, Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds())}
	if err != nil {
		return result, err
	}
	if !met {
		if lastErr != nil {
			return result, fmt.Errorf("timeout after %s (last error: %w)", timeout, lastErr)
		}
		return result, fmt.Errorf("timed out waiting for condition: %s", desc)
	}
	return result, nil
}

// poll calls check until it returns true, the timeout passes or ctx ends.
// check always runs at least once.
func poll(ctx context.Context, timeout, interval time.Duration, check func() bool) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if check() {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	}
}

// checkWaitCondition checks if any element in the tree matches the wait criteria.
func checkWaitCondition(elements []model.Element, forText, forRole string, forID int) bool {
	for _, elem := range elements {
		if matchesCondition(elem, forText, forRole, forID) {
			return true
		}
		if checkWaitCondition(elem.Children, forText, forRole, forID) {
			return true
		}
	}
	return false
}

// matchesCondition checks if a single element matches all specified criteria.
// When multiple criteria are given, ALL must match (AND logic).
func matchesCondition(elem model.Element, forText, forRole string, forID int) bool {
	if forID > 0 && elem.ID != forID {
		return false
	}
	if forRole != "" && model.Role(elem) != forRole {
		return false
	}
	if forText != "" && !textMatchesElement(elem, strings.ToLower(forText), false) {
		return false
	}
	return true
}

// matchElements returns the leaf matches of a text/roles/exact query, or
// the element named by id.
func matchElements(elements []model.Element, params map[string]interface{}) []*model.Element {
	if ref := stringParam(params, "ref", ""); ref != "" {
		if el, err := model.FindByRef(elements, ref); err == nil {
			return []*model.Element{el}
		}
		return nil
	}
	if id := intParam(params, "id", 0); id > 0 {
		if el := model.FindByID(elements, id); el != nil {
			return []*model.Element{el}
		}
		return nil
	}
	roles := make(map[string]bool)
	for _, r := range model.ExpandRoles(parseRoles(stringParam(params, "roles", ""))) {
		roles[r] = true
	}
	text := stringParam(params, "text", "")
	if text == "" && len(roles) == 0 {
		return nil
	}
	return collectLeafMatches(elements, strings.ToLower(text), roles, boolParam(params, "exact", false))
}

// describeCondition returns a human-readable description of what was waited for.
func describeCondition(forText, forRole string, forID int, gone bool) string {
	var parts []string
	if forRole != "" {
		parts = append(parts, fmt.Sprintf("role=%s", forRole))
	}
	if forText != "" {
		parts = append(parts, fmt.Sprintf("text=%q", forText))
	}
	if forID > 0 {
		parts = append(parts, fmt.Sprintf("id=%d", forID))
	}
	desc := strings.Join(parts, " ")
	if gone {
		desc += " (gone)"
	}
	return desc
}
