package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var pasteboardCmd = &cobra.Command{
	Use:   "pasteboard",
	Short: "Read or write the device pasteboard",
	Long: `Read or write the device pasteboard. iOS only allows the foreground
app to touch the pasteboard, so wdadash briefly brings the WebDriverAgent
runner forward through Siri and then returns to the previous app.`,
}

var pasteboardGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the pasteboard text",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStepCommand(cmd, "pasteboard-get", nil)
	},
}

var pasteboardSetCmd = &cobra.Command{
	Use:   "set [text]",
	Short: "Replace the pasteboard text (reads stdin when no text is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) == 1 {
			text = args[0]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(data)
		}
		return runStepCommand(cmd, "pasteboard-set", map[string]interface{}{"text": text})
	},
}

func init() {
	rootCmd.AddCommand(pasteboardCmd)
	pasteboardCmd.AddCommand(pasteboardGetCmd, pasteboardSetCmd)
}

func executePasteboardGet(ctx context.Context, rt *runtime) (StepResult, error) {
	text, err := rt.pasteboard.Read(ctx)
	if err != nil {
		return StepResult{Action: "pasteboard-get"}, err
	}
	return StepResult{Action: "pasteboard-get", Text: text}, nil
}

func executePasteboardSet(ctx context.Context, rt *runtime, params map[string]interface{}) (StepResult, error) {
	text := stringParam(params, "text", "")
	if err := rt.pasteboard.Write(ctx, text); err != nil {
		return StepResult{Action: "pasteboard-set"}, err
	}
	return StepResult{Action: "pasteboard-set", Text: text}, nil
}
