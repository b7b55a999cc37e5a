package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/spf13/cobra"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Watch the accessibility tree and stream diffs as JSONL",
	Long: `Poll the accessibility tree and emit changes (added, removed, changed
elements keyed by xpath) as JSONL to stdout.

No output is emitted while the UI is stable. Output is always JSONL
regardless of --format.

Use Ctrl+C or --duration to stop observing.`,
	RunE: runObserve,
}

func init() {
	rootCmd.AddCommand(observeCmd)
	observeCmd.Flags().String("roles", "", "Comma-separated roles to include (e.g. \"btn,input\")")
	observeCmd.Flags().Bool("prune", true, "Ignore anonymous Other elements")
	observeCmd.Flags().Int("interval", 1000, "Polling interval in milliseconds")
	observeCmd.Flags().Int("duration", 0, "Max seconds to observe (0 = until Ctrl+C)")
	observeCmd.Flags().Bool("ignore-bounds", false, "Ignore element position changes")
}

func runObserve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt := newRuntime()
	roles, _ := cmd.Flags().GetString("roles")
	prune, _ := cmd.Flags().GetBool("prune")
	intervalMs, _ := cmd.Flags().GetInt("interval")
	durationSec, _ := cmd.Flags().GetInt("duration")
	ignoreBounds, _ := cmd.Flags().GetBool("ignore-bounds")

	read := func() ([]model.FlatElement, error) {
		snap, err := rt.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return model.FlattenElements(filterTree(snap.Elements, "", roles, prune, false)), nil
	}

	enc := json.NewEncoder(output.Out)
	enc.SetEscapeHTML(false)

	prevFlat, err := read()
	if err != nil {
		return fmt.Errorf("initial read failed: %w", err)
	}
	_ = enc.Encode(map[string]interface{}{"type": "snapshot", "ts": time.Now().Unix(), "count": len(prevFlat)})

	start := time.Now()
	var deadline <-chan time.Time
	if durationSec > 0 {
		timer := time.NewTimer(time.Duration(durationSec) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	eventCount := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline:
			break loop
		case <-ticker.C:
		}

		currFlat, err := read()
		if err != nil {
			_ = enc.Encode(map[string]interface{}{"type": "error", "ts": time.Now().Unix(), "error": err.Error()})
			continue
		}
		for _, change := range model.DiffElements(prevFlat, currFlat) {
			if change.Type == model.ChangeChanged && ignoreBounds {
				delete(change.Changes, "bounds")
				if len(change.Changes) == 0 {
					continue
				}
			}
			_ = enc.Encode(change)
			eventCount++
		}
		prevFlat = currFlat
	}

	return enc.Encode(map[string]interface{}{
		"type":    "done",
		"ts":      time.Now().Unix(),
		"elapsed": fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		"events":  eventCount,
	})
}
