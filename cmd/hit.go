package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/spf13/cobra"
)

var hitCmd = &cobra.Command{
	Use:   "hit <x> <y>",
	Short: "Find the innermost element under a logical point",
	Long: `Hit-test the accessibility tree: report the smallest element whose box
contains the point, with its role path from the root.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		xy, err := parseFloats(args)
		if err != nil {
			return err
		}
		return runStepCommand(cmd, "hit", map[string]interface{}{"x": xy[0], "y": xy[1]})
	},
}

func init() {
	rootCmd.AddCommand(hitCmd)
}

func executeHit(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	x, okX := floatParam(params, "x")
	y, okY := floatParam(params, "y")
	if !okX || !okY {
		return StepResult{Action: "hit"}, fmt.Errorf("x and y are required")
	}
	snap, err := rt.snapshot(ctx)
	if err != nil {
		return StepResult{Action: "hit"}, err
	}
	p := geometry.Point{X: x, Y: y}
	hit := snap.HitAt(p)
	result := StepResult{Action: "hit", Point: &p}
	if hit.Element == nil {
		result.State = "none"
		return result, nil
	}
	result.Target = elementInfoFromElement(hit.Element)
	result.Match = rolePath(snap.Elements, hit.Path)
	return result, nil
}

// rolePath renders an ID path as "app > window > btn".
func rolePath(elements []model.Element, ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if el := model.FindByID(elements, id); el != nil {
			parts = append(parts, model.Role(*el))
		}
	}
	return strings.Join(parts, " > ")
}
