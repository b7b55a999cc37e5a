package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// maxDoDepth bounds nesting of try and if-exists blocks.
const maxDoDepth = 8

// DoResult is the output of a batch do command.
type DoResult struct {
	OK        bool         `yaml:"ok"              json:"ok"`
	Action    string       `yaml:"action"          json:"action"`
	Steps     int          `yaml:"steps"           json:"steps"`
	Completed int          `yaml:"completed"       json:"completed"`
	Error     string       `yaml:"error,omitempty" json:"error,omitempty"`
	Results   []StepResult `yaml:"results"         json:"results"`
}

// StepResult is the output for a single step within a batch, and of the
// single-step commands that share its executors.
type StepResult struct {
	Step     int             `yaml:"step,omitempty"     json:"step,omitempty"`
	OK       bool            `yaml:"ok"                 json:"ok"`
	Action   string          `yaml:"action"             json:"action"`
	Error    string          `yaml:"error,omitempty"    json:"error,omitempty"`
	Target   *ElementInfo    `yaml:"target,omitempty"   json:"target,omitempty"`
	Point    *geometry.Point `yaml:"point,omitempty"    json:"point,omitempty"`
	To       *geometry.Point `yaml:"to,omitempty"       json:"to,omitempty"`
	Text     string          `yaml:"text,omitempty"     json:"text,omitempty"`
	State    string          `yaml:"state,omitempty"    json:"state,omitempty"`
	Elapsed  string          `yaml:"elapsed,omitempty"  json:"elapsed,omitempty"`
	Match    string          `yaml:"match,omitempty"    json:"match,omitempty"`
	Matched  *bool           `yaml:"matched,omitempty"  json:"matched,omitempty"`
	Branch   string          `yaml:"branch,omitempty"   json:"branch,omitempty"`
	Substeps []StepResult    `yaml:"substeps,omitempty" json:"substeps,omitempty"`
}

var doCmd = &cobra.Command{
	Use:   "do",
	Short: "Execute multiple device actions in a batch",
	Long: `Execute a sequence of actions from a YAML list on stdin.

Each step is an action name with its parameters as a map. Steps execute
sequentially, and by default execution stops on the first error.

Supported step types: tap, double-tap, long-press, swipe, drag, button, lock,
unlock, power, siri, pasteboard-get, pasteboard-set, launch, activate, hit,
wait, assert, sleep

Control steps:
  try:        run substeps, never fail the batch
  if-exists:  run "then" substeps when an element matches, else "else"

Example:
  wdadash do --udid 0000-XXXX <<'EOF'
  - tap: { text: "General" }
  - wait: { for-text: "About", timeout: 5 }
  - if-exists: { text: "Allow" }
    then:
      - tap: { text: "Allow", roles: "btn" }
  - swipe: { direction: up }
  EOF`,
	RunE: runDo,
}

func init() {
	rootCmd.AddCommand(doCmd)
	doCmd.Flags().Bool("stop-on-error", true, "Stop execution on first error (default: true)")
}

func runDo(cmd *cobra.Command, args []string) error {
	stopOnError, _ := cmd.Flags().GetBool("stop-on-error")

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	steps, err := parseDoSteps(data)
	if err != nil {
		return err
	}

	doCtx := &DoContext{
		Ctx:         cmd.Context(),
		Runtime:     newRuntime(),
		StopOnError: stopOnError,
	}
	doCtx.ExecuteSteps(steps, 0)
	return output.Print(doCtx.Result(len(steps)))
}

// parseDoSteps decodes a YAML step list.
func parseDoSteps(data []byte) ([]map[string]interface{}, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("no steps provided on stdin; pipe a YAML list of actions")
	}
	var steps []map[string]interface{}
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse YAML steps: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no steps provided; expected a YAML list of actions")
	}
	return steps, nil
}

// DoContext carries batch state across steps. A nil Runtime makes every
// device step fail and every condition evaluate to false.
type DoContext struct {
	Ctx         context.Context
	Runtime     *runtime
	StopOnError bool

	Results    []StepResult
	HasFailure bool
	LastError  string
}

// ExecuteSteps runs top-level steps and records their results.
func (d *DoContext) ExecuteSteps(steps []map[string]interface{}, depth int) {
	d.Results, d.HasFailure, d.LastError = d.run(steps, depth, d.StopOnError)
}

// Result summarizes the batch. Completed counts successful top-level steps.
func (d *DoContext) Result(total int) DoResult {
	completed := 0
	for _, r := range d.Results {
		if r.OK {
			completed++
		}
	}
	return DoResult{
		OK:        !d.HasFailure,
		Action:    "do",
		Steps:     total,
		Completed: completed,
		Error:     d.LastError,
		Results:   d.Results,
	}
}

func (d *DoContext) context() context.Context {
	if d.Ctx == nil {
		return context.Background()
	}
	return d.Ctx
}

func (d *DoContext) run(steps []map[string]interface{}, depth int, stopOnError bool) (results []StepResult, failed bool, lastErr string) {
	for i, step := range steps {
		if err := d.context().Err(); err != nil {
			return results, true, err.Error()
		}
		r := d.executeOne(step, depth)
		r.Step = i + 1
		results = append(results, r)
		if !r.OK {
			failed = true
			lastErr = fmt.Sprintf("step %d: %s", r.Step, r.Error)
			if stopOnError {
				break
			}
		}
	}
	return results, failed, lastErr
}

func (d *DoContext) executeOne(step map[string]interface{}, depth int) StepResult {
	if depth > maxDoDepth {
		return StepResult{Error: fmt.Sprintf("steps nested deeper than %d levels", maxDoDepth)}
	}

	if raw, ok := step["try"]; ok {
		subs, err := parseSubsteps(raw)
		if err != nil {
			return StepResult{Action: "try", Error: err.Error()}
		}
		results, _, _ := d.run(subs, depth+1, true)
		return StepResult{Action: "try", OK: true, Substeps: results}
	}

	if raw, ok := step["if-exists"]; ok {
		return d.executeIfExists(raw, step, depth)
	}

	action, params, err := parseRegularStep(step)
	if err != nil {
		return StepResult{Error: err.Error()}
	}
	result, err := executeStep(d.context(), d.Runtime, action, params)
	result.Action = action
	if err != nil {
		result.OK = false
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}

func (d *DoContext) executeIfExists(raw interface{}, step map[string]interface{}, depth int) StepResult {
	params, _ := raw.(map[string]interface{})
	if params == nil {
		params = map[string]interface{}{}
	}
	matched := d.Runtime != nil && elementExists(d.context(), d.Runtime, params)

	branch := "then"
	if !matched {
		branch = "else"
	}
	result := StepResult{Action: "if-exists", Matched: &matched, Branch: branch}

	subs, err := parseSubsteps(step[branch])
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if len(subs) > 0 {
		results, failed, lastErr := d.run(subs, depth+1, d.StopOnError)
		result.Substeps = results
		if failed {
			result.Error = lastErr
			return result
		}
	}
	result.OK = true
	return result
}

// parseRegularStep extracts the single action key of a step. "then" and
// "else" keys belong to conditionals and are skipped.
func parseRegularStep(step map[string]interface{}) (string, map[string]interface{}, error) {
	var actions []string
	for k := range step {
		if k == "then" || k == "else" {
			continue
		}
		actions = append(actions, k)
	}
	if len(actions) != 1 {
		return "", nil, fmt.Errorf("expected exactly one action key, got %d", len(actions))
	}
	action := actions[0]
	switch p := step[action].(type) {
	case nil:
		return action, map[string]interface{}{}, nil
	case map[string]interface{}:
		return action, p, nil
	default:
		return "", nil, fmt.Errorf("%s: parameters must be a map", action)
	}
}

// parseSubsteps converts a decoded YAML list into steps.
func parseSubsteps(raw interface{}) ([]map[string]interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("substeps must be a list")
	}
	steps := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("each substep must be a map")
		}
		steps = append(steps, m)
	}
	return steps, nil
}

// executeStep dispatches one action. The same executors back the
// single-step commands and the MCP tools.
func executeStep(ctx context.Context, rt *runtime, action string, params map[string]interface{}) (StepResult, error) {
	if action == "sleep" {
		return executeSleep(ctx, params)
	}
	if rt == nil {
		return StepResult{Action: action}, fmt.Errorf("no device connection")
	}
	switch action {
	case "tap":
		return executeTap(ctx, rt, params)
	case "double-tap":
		return executeDoubleTap(ctx, rt, params)
	case "long-press":
		return executeLongPress(ctx, rt, params)
	case "swipe":
		return executeSwipe(ctx, rt, params)
	case "drag":
		return executeDrag(ctx, rt, params)
	case "button":
		return executeButton(ctx, rt, params)
	case "lock", "unlock", "power":
		return executeLock(ctx, rt, action)
	case "siri":
		return executeSiri(ctx, rt, params)
	case "pasteboard-get":
		return executePasteboardGet(ctx, rt)
	case "pasteboard-set":
		return executePasteboardSet(ctx, rt, params)
	case "launch", "activate":
		return executeOpen(ctx, rt, action, params)
	case "hit":
		return executeHit(ctx, rt, params)
	case "wait":
		return executeWait(ctx, rt, params)
	case "assert":
		return executeAssert(ctx, rt, params)
	default:
		return StepResult{Action: action}, fmt.Errorf("unknown step type %q; supported: tap, double-tap, long-press, swipe, drag, button, lock, unlock, power, siri, pasteboard-get, pasteboard-set, launch, activate, hit, wait, assert, sleep", action)
	}
}

func executeSleep(ctx context.Context, params map[string]interface{}) (StepResult, error) {
	ms := intParam(params, "ms", 0)
	if ms <= 0 {
		return StepResult{Action: "sleep"}, fmt.Errorf("ms must be > 0")
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return StepResult{Action: "sleep"}, ctx.Err()
	case <-t.C:
	}
	return StepResult{Action: "sleep", Elapsed: fmt.Sprintf("%dms", ms)}, nil
}
