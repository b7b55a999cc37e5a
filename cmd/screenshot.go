package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/highlight"
	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a device screenshot",
	Long: `Capture a PNG screenshot through WDA, or through the device backend with
--source backend. The image can be scaled, re-encoded as JPEG, and annotated
with element boxes labelled by ID or logical center coordinates.

Writes base64 to stdout unless --output is given.

Examples:
  wdadash screenshot --output screen.png
  wdadash screenshot --annotate ids --roles interactive --output ids.png
  wdadash screenshot --width 390 --format jpg --quality 70`,
	RunE: runScreenshot,
}

var highlightCmd = &cobra.Command{
	Use:   "highlight <id>",
	Short: "Screenshot with one element's box highlighted",
	Args:  cobra.ExactArgs(1),
	RunE:  runHighlight,
}

func init() {
	rootCmd.AddCommand(screenshotCmd, highlightCmd)
	for _, c := range []*cobra.Command{screenshotCmd, highlightCmd} {
		c.Flags().String("output", "", "Output file path (default: stdout as base64)")
		c.Flags().String("format", "png", "Output format: png, jpg")
		c.Flags().Int("quality", 80, "JPEG quality 1-100")
		c.Flags().Int("width", 0, "Scale to this pixel width (0 = native)")
	}
	screenshotCmd.Flags().String("source", "wda", "Capture through: wda, backend")
	screenshotCmd.Flags().String("annotate", "", "Label element boxes: ids, coords")
	screenshotCmd.Flags().String("roles", "", "Comma-separated roles to annotate (default: all)")
	screenshotCmd.Flags().Bool("prune", true, "Skip anonymous Other elements when annotating")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt := newRuntime()
	source, _ := cmd.Flags().GetString("source")
	annotate, _ := cmd.Flags().GetString("annotate")
	format, _ := cmd.Flags().GetString("format")
	width, _ := cmd.Flags().GetInt("width")

	data, err := captureScreenshot(ctx, rt, source)
	if err != nil {
		return err
	}
	if annotate == "" && width == 0 && format == "png" {
		return writeScreenshot(cmd, data)
	}

	img, _, err := highlight.Decode(data)
	if err != nil {
		return err
	}
	if annotate != "" {
		mode, err := labelMode(annotate)
		if err != nil {
			return err
		}
		snap, err := rt.snapshot(ctx)
		if err != nil {
			return err
		}
		roles, _ := cmd.Flags().GetString("roles")
		prune, _ := cmd.Flags().GetBool("prune")
		flat := model.FlattenElements(filterTree(snap.Elements, "", roles, prune, true))
		img = highlight.Annotate(img, flat, geometry.PixelRatio(img.Bounds().Dx(), snap.Size), mode)
	}
	return encodeScreenshot(cmd, img)
}

func runHighlight(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	rt := newRuntime()
	snap, err := rt.snapshot(ctx)
	if err != nil {
		return err
	}
	el := snap.Find(id)
	if el == nil {
		return fmt.Errorf("element with id %d not found (tree has %d elements)", id, snap.Count())
	}
	box, ok := el.Detail.Box()
	if !ok {
		return fmt.Errorf("element %d has no bounds", id)
	}
	data, err := rt.wda.Screenshot(ctx)
	if err != nil {
		return err
	}
	img, _, err := highlight.Decode(data)
	if err != nil {
		return err
	}
	out := highlight.Highlight(img, box, geometry.PixelRatio(img.Bounds().Dx(), snap.Size), highlight.DefaultStyle)
	return encodeScreenshot(cmd, out)
}

// captureScreenshot returns PNG bytes from WDA or the backend.
func captureScreenshot(ctx context.Context, rt *runtime, source string) ([]byte, error) {
	switch source {
	case "", "wda":
		return rt.wda.Screenshot(ctx)
	case "backend":
		udid, err := rt.requireUDID()
		if err != nil {
			return nil, err
		}
		return rt.backend.Screenshot(ctx, udid)
	default:
		return nil, fmt.Errorf("unsupported source %q (use wda or backend)", source)
	}
}

func labelMode(s string) (highlight.LabelMode, error) {
	switch s {
	case "ids":
		return highlight.LabelIDs, nil
	case "coords":
		return highlight.LabelCoords, nil
	default:
		return 0, fmt.Errorf("unsupported annotate mode %q (use ids or coords)", s)
	}
}

// encodeScreenshot scales and encodes img per the command's flags.
func encodeScreenshot(cmd *cobra.Command, img image.Image) error {
	format, _ := cmd.Flags().GetString("format")
	quality, _ := cmd.Flags().GetInt("quality")
	width, _ := cmd.Flags().GetInt("width")
	var buf bytes.Buffer
	if err := highlight.Encode(&buf, highlight.Scale(img, width), format, quality); err != nil {
		return err
	}
	return writeScreenshot(cmd, buf.Bytes())
}

// writeScreenshot writes to --output, or base64 to stdout for easy agent
// consumption.
func writeScreenshot(cmd *cobra.Command, data []byte) error {
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		return os.WriteFile(path, data, 0644)
	}
	encoder := base64.NewEncoder(base64.StdEncoding, output.Out)
	if _, err := encoder.Write(data); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(output.Out)
	return err
}
