package cmd

import (
	"context"
	"fmt"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/mj1618/wdadash/internal/wda"
	"github.com/spf13/cobra"
)

var tapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Tap an element or a logical point",
	Long: `Tap a UI element found by text or ID, or an absolute logical point.

Examples:
  wdadash tap --text "General"
  wdadash tap --id 12
  wdadash tap --x 195 --y 420`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "tap", targetParams(cmd))
	},
}

var doubleTapCmd = &cobra.Command{
	Use:   "double-tap",
	Short: "Double-tap an element or a logical point",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "double-tap", targetParams(cmd))
	},
}

var longPressCmd = &cobra.Command{
	Use:   "long-press",
	Short: "Press and hold an element or a logical point",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := targetParams(cmd)
		params["duration"], _ = cmd.Flags().GetInt("duration")
		return runStepCommand(cmd, "long-press", params)
	},
}

var swipeCmd = &cobra.Command{
	Use:   "swipe",
	Short: "Swipe between two points or in a direction",
	Long: `Swipe from (x1,y1) to (x2,y2), or a quarter screen in a direction.

With --direction the swipe starts at the screen center, or at the center of
the element given by --text/--id.

Examples:
  wdadash swipe --x1 200 --y1 600 --x2 200 --y2 200
  wdadash swipe --direction up
  wdadash swipe --direction left --text "Wi-Fi"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params := targetParams(cmd)
		floatFlagParams(cmd, params, "x1", "y1", "x2", "y2")
		if dir, _ := cmd.Flags().GetString("direction"); dir != "" {
			params["direction"] = dir
		}
		return runStepCommand(cmd, "swipe", params)
	},
}

var dragCmd = &cobra.Command{
	Use:   "drag",
	Short: "Press, move slowly and release between two points",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{}
		floatFlagParams(cmd, params, "x1", "y1", "x2", "y2")
		params["duration"], _ = cmd.Flags().GetInt("duration")
		return runStepCommand(cmd, "drag", params)
	},
}

func init() {
	for _, c := range []*cobra.Command{tapCmd, doubleTapCmd, longPressCmd, swipeCmd} {
		rootCmd.AddCommand(c)
		addTextTargetingFlags(c, "text", "Find element by name/label/value text")
		c.Flags().Int("id", 0, "Target element by ID from the latest source read")
	}
	for _, c := range []*cobra.Command{tapCmd, doubleTapCmd, longPressCmd} {
		c.Flags().Float64("x", 0, "Logical X coordinate")
		c.Flags().Float64("y", 0, "Logical Y coordinate")
	}
	longPressCmd.Flags().Int("duration", wda.DefaultLongPressMS, "Hold duration in milliseconds")

	rootCmd.AddCommand(dragCmd)
	for _, c := range []*cobra.Command{swipeCmd, dragCmd} {
		c.Flags().Float64("x1", 0, "Start X")
		c.Flags().Float64("y1", 0, "Start Y")
		c.Flags().Float64("x2", 0, "End X")
		c.Flags().Float64("y2", 0, "End Y")
	}
	swipeCmd.Flags().String("direction", "", "Swipe direction: up, down, left, right")
	dragCmd.Flags().Int("duration", wda.DefaultDragMS, "Move duration in milliseconds")
}

// runStepCommand executes one step against a fresh runtime and prints it.
func runStepCommand(cmd *cobra.Command, action string, params map[string]interface{}) error {
	result, err := executeStep(cmd.Context(), newRuntime(), action, params)
	if err != nil {
		return err
	}
	result.OK = true
	result.Action = action
	return output.Print(result)
}

// targetParams collects the element or point targeting flags of cmd.
func targetParams(cmd *cobra.Command) map[string]interface{} {
	params := map[string]interface{}{}
	textTargetParams(cmd, "text", params)
	if id, _ := cmd.Flags().GetInt("id"); id > 0 {
		params["id"] = id
	}
	floatFlagParams(cmd, params, "x", "y")
	return params
}

// floatFlagParams copies explicitly set float flags into params.
func floatFlagParams(cmd *cobra.Command, params map[string]interface{}, names ...string) {
	for _, n := range names {
		if f := cmd.Flags().Lookup(n); f != nil && f.Changed {
			params[n], _ = cmd.Flags().GetFloat64(n)
		}
	}
}

// hasElementTarget reports whether params name an element rather than a point.
func hasElementTarget(params map[string]interface{}) bool {
	return stringParam(params, "text", "") != "" || stringParam(params, "ref", "") != "" || intParam(params, "id", 0) > 0
}

// resolveElement finds the element named by ref, text or id params.
func resolveElement(ctx context.Context, rt *runtime, params map[string]interface{}) (*model.Element, error) {
	snap, err := rt.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if ref := stringParam(params, "ref", ""); ref != "" {
		return model.FindByRef(snap.Elements, ref)
	}
	if text := stringParam(params, "text", ""); text != "" {
		return resolveElementByText(snap.Elements, text,
			stringParam(params, "roles", ""),
			boolParam(params, "exact", false),
			intParam(params, "scope-id", 0))
	}
	id := intParam(params, "id", 0)
	el := snap.Find(id)
	if el == nil {
		return nil, fmt.Errorf("element with id %d not found (tree has %d elements)", id, snap.Count())
	}
	return el, nil
}

// resolveTarget returns the logical point an action should hit: the center
// of an element found by text or id, or explicit x/y.
func resolveTarget(ctx context.Context, rt *runtime, params map[string]interface{}) (geometry.Point, *ElementInfo, error) {
	if hasElementTarget(params) {
		el, err := resolveElement(ctx, rt, params)
		if err != nil {
			return geometry.Point{}, nil, err
		}
		p, err := elementCenter(el)
		if err != nil {
			return geometry.Point{}, nil, err
		}
		return p, elementInfoFromElement(el), nil
	}
	x, okX := floatParam(params, "x")
	y, okY := floatParam(params, "y")
	if !okX || !okY {
		return geometry.Point{}, nil, fmt.Errorf("specify --text, --id, --ref, or both --x and --y")
	}
	return geometry.Point{X: x, Y: y}, nil, nil
}

// elementExists reports whether a text/id/role query matches anything.
func elementExists(ctx context.Context, rt *runtime, params map[string]interface{}) bool {
	snap, err := rt.snapshot(ctx)
	if err != nil {
		return false
	}
	return len(matchElements(snap.Elements, params)) > 0
}

func executeTap(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	p, target, err := resolveTarget(ctx, rt, params)
	if err != nil {
		return StepResult{Action: "tap"}, err
	}
	if err := rt.wda.Tap(ctx, p.X, p.Y); err != nil {
		return StepResult{Action: "tap", Target: target}, err
	}
	return StepResult{Action: "tap", Point: &p, Target: target}, nil
}

func executeDoubleTap(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	p, target, err := resolveTarget(ctx, rt, params)
	if err != nil {
		return StepResult{Action: "double-tap"}, err
	}
	if err := rt.wda.DoubleTap(ctx, p.X, p.Y); err != nil {
		return StepResult{Action: "double-tap", Target: target}, err
	}
	return StepResult{Action: "double-tap", Point: &p, Target: target}, nil
}

func executeLongPress(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	ms := intParam(params, "duration", wda.DefaultLongPressMS)
	if ms <= 0 {
		return StepResult{Action: "long-press"}, fmt.Errorf("duration must be > 0")
	}
	p, target, err := resolveTarget(ctx, rt, params)
	if err != nil {
		return StepResult{Action: "long-press"}, err
	}
	if err := rt.wda.LongPress(ctx, p.X, p.Y, ms); err != nil {
		return StepResult{Action: "long-press", Target: target}, err
	}
	return StepResult{Action: "long-press", Point: &p, Target: target, Elapsed: fmt.Sprintf("%dms", ms)}, nil
}

func executeSwipe(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	var (
		from, to geometry.Point
		target   *ElementInfo
	)
	if dir := stringParam(params, "direction", ""); dir != "" {
		size, err := rt.wda.WindowSize(ctx)
		if err != nil {
			return StepResult{Action: "swipe"}, err
		}
		from = geometry.Point{X: size.Width / 2, Y: size.Height / 2}
		if hasElementTarget(params) {
			if from, target, err = resolveTarget(ctx, rt, params); err != nil {
				return StepResult{Action: "swipe"}, err
			}
		}
		if to, err = swipeEnd(from, geometry.Size{Width: size.Width, Height: size.Height}, dir); err != nil {
			return StepResult{Action: "swipe"}, err
		}
	} else {
		var err error
		if from, to, err = segmentParams(params); err != nil {
			return StepResult{Action: "swipe"}, fmt.Errorf("%w, or --direction", err)
		}
	}
	if err := rt.wda.Swipe(ctx, from.X, from.Y, to.X, to.Y); err != nil {
		return StepResult{Action: "swipe", Target: target}, err
	}
	return StepResult{Action: "swipe", Point: &from, To: &to, Target: target}, nil
}

func executeDrag(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	from, to, err := segmentParams(params)
	if err != nil {
		return StepResult{Action: "drag"}, err
	}
	ms := intParam(params, "duration", wda.DefaultDragMS)
	if ms <= 0 {
		return StepResult{Action: "drag"}, fmt.Errorf("duration must be > 0")
	}
	if err := rt.wda.Drag(ctx, from.X, from.Y, to.X, to.Y, ms); err != nil {
		return StepResult{Action: "drag"}, err
	}
	return StepResult{Action: "drag", Point: &from, To: &to, Elapsed: fmt.Sprintf("%dms", ms)}, nil
}

// segmentParams reads x1, y1, x2 and y2.
func segmentParams(params map[string]interface{}) (geometry.Point, geometry.Point, error) {
	var v [4]float64
	for i, k := range []string{"x1", "y1", "x2", "y2"} {
		f, ok := floatParam(params, k)
		if !ok {
			return geometry.Point{}, geometry.Point{}, fmt.Errorf("specify x1, y1, x2 and y2")
		}
		v[i] = f
	}
	return geometry.Point{X: v[0], Y: v[1]}, geometry.Point{X: v[2], Y: v[3]}, nil
}

// swipeEnd moves a quarter of the screen from start in the finger's
// direction, clamped to the screen.
func swipeEnd(start geometry.Point, size geometry.Size, direction string) (geometry.Point, error) {
	end := start
	switch direction {
	case "up":
		end.Y -= size.Height / 4
	case "down":
		end.Y += size.Height / 4
	case "left":
		end.X -= size.Width / 4
	case "right":
		end.X += size.Width / 4
	default:
		return end, fmt.Errorf("invalid direction %q (expected up, down, left or right)", direction)
	}
	end.X = clamp(end.X, 0, size.Width)
	end.Y = clamp(end.Y, 0, size.Height)
	return end, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
