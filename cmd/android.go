package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/output"
)

var androidCmd = &cobra.Command{
	Use:   "android",
	Short: "Manage Android devices attached to the backend",
}

var androidAppsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List, launch or kill packages on the --udid Android device",
}

var androidAppsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		serial, err := rt.requireUDID()
		if err != nil {
			return err
		}
		apps, err := rt.backend.ListAndroidApps(cmd.Context(), serial)
		if err != nil {
			return err
		}
		if apps == nil {
			apps = []backend.AndroidApp{}
		}
		return output.Print(apps)
	},
}

func newAndroidAppActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <package>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime()
			serial, err := rt.requireUDID()
			if err != nil {
				return err
			}
			if action == "launch" {
				err = rt.backend.LaunchAndroidApp(cmd.Context(), serial, args[0])
			} else {
				err = rt.backend.KillAndroidApp(cmd.Context(), serial, args[0])
			}
			if err != nil {
				return err
			}
			return output.Print(StepResult{OK: true, Action: "android-apps-" + action, Text: args[0]})
		},
	}
}

func init() {
	rootCmd.AddCommand(androidCmd)
	androidCmd.AddCommand(androidAppsCmd)
	androidAppsCmd.AddCommand(androidAppsListCmd,
		newAndroidAppActionCmd("launch", "Launch a package"),
		newAndroidAppActionCmd("kill", "Force-stop a package"),
	)
}
