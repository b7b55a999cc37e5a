package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/wdadash/internal/device"
	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/mj1618/wdadash/internal/poco"
)

// PocoTreeResult is the output of `poco tree`.
type PocoTreeResult struct {
	Port     int                 `yaml:"port"               json:"port"`
	Size     geometry.Size       `yaml:"size"               json:"size"`
	Count    int                 `yaml:"count"              json:"count"`
	Elements []model.Element     `yaml:"elements,omitempty" json:"elements,omitempty"`
	Flat     []model.FlatElement `yaml:"flat,omitempty"     json:"flat,omitempty"`
}

var pocoCmd = &cobra.Command{
	Use:   "poco",
	Short: "Inspect the Unity Poco hierarchy of the foreground game",
	Long: `Read the UI hierarchy exposed by the Poco SDK inside a Unity app. The
backend forwards the Poco port on the --udid device; node positions are
mapped onto the logical screen reported by WDA.`,
}

var pocoDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the raw Poco hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		udid, err := rt.requireUDID()
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")
		root, err := rt.backend.PocoDump(cmd.Context(), udid, port)
		if err != nil {
			return err
		}
		return output.Print(root)
	},
}

var pocoTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the Poco hierarchy as an element tree in logical points",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		snap, err := pocoSnapshot(cmd.Context(), newRuntime(), port)
		if err != nil {
			return err
		}
		elements := snap.Elements
		if visible, _ := cmd.Flags().GetBool("visible"); visible {
			elements = model.VisibleOnly(elements)
		}
		text, _ := cmd.Flags().GetString("text")
		elements = model.FilterByText(elements, text)
		result := PocoTreeResult{Port: port, Size: snap.Size, Count: model.Count(elements)}
		if flat, _ := cmd.Flags().GetBool("flat"); flat {
			result.Flat = model.FlattenElements(elements)
		} else {
			result.Elements = elements
		}
		return output.Print(result)
	},
}

var pocoHitCmd = &cobra.Command{
	Use:   "hit <x> <y>",
	Short: "Find the innermost Poco node under a logical point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		xy, err := parseFloats(args)
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")
		result, err := executePocoHit(cmd.Context(), newRuntime(), port, geometry.Point{X: xy[0], Y: xy[1]})
		if err != nil {
			return err
		}
		return output.Print(result)
	},
}

// pocoSnapshot reads the window size and the Poco hierarchy and lays the
// hierarchy out on the logical screen.
func pocoSnapshot(ctx context.Context, rt *runtime, port int) (*device.Snapshot, error) {
	udid, err := rt.requireUDID()
	if err != nil {
		return nil, err
	}
	size, err := rt.wda.WindowSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("read window size: %w", err)
	}
	root, err := rt.backend.PocoDump(ctx, udid, port)
	if err != nil {
		return nil, err
	}
	screen := geometry.Size{Width: size.Width, Height: size.Height}
	return &device.Snapshot{
		Elements:  poco.Elements(*root, screen),
		Size:      screen,
		FetchedAt: time.Now(),
	}, nil
}

func executePocoHit(ctx context.Context, rt *runtime, port int, p geometry.Point) (StepResult, error) {
	snap, err := pocoSnapshot(ctx, rt, port)
	if err != nil {
		return StepResult{Action: "poco-hit"}, err
	}
	hit := snap.HitAt(p)
	result := StepResult{OK: true, Action: "poco-hit", Point: &p}
	if hit.Element == nil {
		result.State = "none"
		return result, nil
	}
	result.Target = elementInfoFromElement(hit.Element)
	result.Match = namePath(snap.Elements, hit.Path)
	return result, nil
}

// namePath renders an ID path as "Root > Canvas > Start".
func namePath(elements []model.Element, ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if el := model.FindByID(elements, id); el != nil {
			parts = append(parts, el.Detail.Name())
		}
	}
	return strings.Join(parts, " > ")
}

func init() {
	rootCmd.AddCommand(pocoCmd)
	pocoCmd.AddCommand(pocoDumpCmd, pocoTreeCmd, pocoHitCmd)
	pocoCmd.PersistentFlags().Int("port", poco.DefaultPort, "Poco SDK port inside the app")
	pocoTreeCmd.Flags().Bool("visible", false, "Drop invisible nodes")
	pocoTreeCmd.Flags().String("text", "", "Keep nodes whose name contains this text")
	pocoTreeCmd.Flags().Bool("flat", false, "Print a flat list instead of a tree")
}
