package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/output"
)

// snapshotMaxAge is how long saved snapshots are kept.
const snapshotMaxAge = 24 * time.Hour

// SnapshotResult is the output of `snapshot save`.
type SnapshotResult struct {
	OK    bool   `yaml:"ok"    json:"ok"`
	TS    int64  `yaml:"ts"    json:"ts"`
	Count int    `yaml:"count" json:"count"`
	File  string `yaml:"file"  json:"file"`
}

// SnapshotDiffResult is the output of `snapshot diff`.
type SnapshotDiffResult struct {
	Since int64          `yaml:"since"          json:"since"`
	TS    int64          `yaml:"ts,omitempty"   json:"ts,omitempty"`
	Diff  model.TreeDiff `yaml:"diff"           json:"diff"`
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save the accessibility tree and diff later reads against it",
	Long: `Save a flat read of the accessibility tree to disk, then compare a later
read against it. Elements are matched by a hash of their type, name, label
and role path, so inserting a row does not report every row below it as
changed the way observe's xpath matching does.

  wdadash snapshot save            # prints ts
  wdadash snapshot diff <ts>`,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the current tree and print its timestamp",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := saveSnapshot(cmd.Context(), newRuntime(), cfg.SnapshotDir, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return output.Print(result)
	},
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff <ts>",
	Short: "Diff the current tree against a saved snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot timestamp %q", args[0])
		}
		save, _ := cmd.Flags().GetBool("save")
		result, err := diffSnapshot(cmd.Context(), newRuntime(), cfg.SnapshotDir, since, save)
		if err != nil {
			return err
		}
		return output.Print(result)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotDiffCmd)
	snapshotDiffCmd.Flags().Bool("save", false, "Also save the current tree as a new snapshot")
}

// snapshotKey names the device a snapshot belongs to.
func (rt *runtime) snapshotKey() string {
	if rt.udid != "" {
		return rt.udid
	}
	return rt.wda.BaseURL()
}

func (rt *runtime) flatTree(ctx context.Context) ([]model.FlatElement, error) {
	snap, err := rt.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return model.FlattenElements(snap.Elements), nil
}

func saveSnapshot(ctx context.Context, rt *runtime, dir string, ts int64) (SnapshotResult, error) {
	flat, err := rt.flatTree(ctx)
	if err != nil {
		return SnapshotResult{}, err
	}
	key := rt.snapshotKey()
	model.CleanSnapshots(dir, key, snapshotMaxAge)
	if err := model.SaveSnapshot(dir, key, ts, flat); err != nil {
		return SnapshotResult{}, err
	}
	return SnapshotResult{OK: true, TS: ts, Count: len(flat), File: model.SnapshotPath(dir, key, ts)}, nil
}

func diffSnapshot(ctx context.Context, rt *runtime, dir string, since int64, save bool) (SnapshotDiffResult, error) {
	key := rt.snapshotKey()
	prev, err := model.LoadSnapshot(dir, key, since)
	if err != nil {
		return SnapshotDiffResult{}, err
	}
	curr, err := rt.flatTree(ctx)
	if err != nil {
		return SnapshotDiffResult{}, err
	}
	result := SnapshotDiffResult{Since: since, Diff: model.DiffElementsByHash(prev, curr)}
	if save {
		result.TS = time.Now().UnixMilli()
		if err := model.SaveSnapshot(dir, key, result.TS, curr); err != nil {
			return result, err
		}
	}
	return result, nil
}
