package cmd

import (
	"strings"

	"github.com/mj1618/wdadash/internal/output"
	"github.com/mj1618/wdadash/internal/prefs"
	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change the saved dashboard layout",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefs.Open(cfg.PrefsPath)
		if err != nil {
			return err
		}
		return output.Print(store.Get())
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change layout fields",
	Long: `Change one or more layout fields. Unset flags keep their saved values.

Example:
  wdadash prefs set --sizes 40%,60% --layout vertical --tab tree`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefs.Open(cfg.PrefsPath)
		if err != nil {
			return err
		}
		sizes, _ := cmd.Flags().GetString("sizes")
		layout, _ := cmd.Flags().GetString("layout")
		tab, _ := cmd.Flags().GetString("tab")
		l, err := store.Update(func(l *prefs.Layout) {
			if sizes != "" {
				l.SplitterSizes = strings.Split(sizes, ",")
			}
			if layout != "" {
				l.SplitterLayout = layout
			}
			if tab != "" {
				l.TabKey = tab
			}
		})
		if err != nil {
			return err
		}
		return output.Print(l)
	},
}

var prefsToggleCmd = &cobra.Command{
	Use:   "toggle-layout",
	Short: "Flip the splitter between horizontal and vertical",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefs.Open(cfg.PrefsPath)
		if err != nil {
			return err
		}
		l, err := store.ToggleLayout()
		if err != nil {
			return err
		}
		return output.Print(l)
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsShowCmd, prefsSetCmd, prefsToggleCmd)
	prefsCmd.PersistentFlags().String("prefs", "", "Layout file (default ~/.config/wdadash/prefs.yaml)")
	prefsSetCmd.Flags().String("sizes", "", "Two comma-separated splitter sizes, e.g. 30%,70%")
	prefsSetCmd.Flags().String("layout", "", "Splitter layout: horizontal, vertical")
	prefsSetCmd.Flags().String("tab", "", "Active tab key")
}
