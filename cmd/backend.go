package cmd

import (
	"fmt"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices connected to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, _ := cmd.Flags().GetString("platform")
		devices, err := newRuntime().backend.ListDevices(cmd.Context(), platform)
		if err != nil {
			return err
		}
		if devices == nil {
			devices = []backend.Device{}
		}
		return output.Print(devices)
	},
}

var deviceInfoCmd = &cobra.Command{
	Use:   "device-info",
	Short: "Show details of the --udid device",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		udid, err := rt.requireUDID()
		if err != nil {
			return err
		}
		info, err := rt.backend.Device(cmd.Context(), udid)
		if err != nil {
			return err
		}
		return output.Print(info)
	},
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List, launch, kill or uninstall apps through the backend",
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed apps",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		udid, err := rt.requireUDID()
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("type")
		apps, err := rt.backend.ListApps(cmd.Context(), udid, kind)
		if err != nil {
			return err
		}
		if apps == nil {
			apps = []backend.App{}
		}
		return output.Print(apps)
	},
}

func newAppActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <bundle-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := newRuntime()
			udid, err := rt.requireUDID()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			switch action {
			case "launch":
				err = rt.backend.LaunchApp(ctx, udid, args[0])
			case "kill":
				err = rt.backend.KillApp(ctx, udid, args[0])
			case "uninstall":
				err = rt.backend.UninstallApp(ctx, udid, args[0])
			}
			if err != nil {
				return err
			}
			return output.Print(StepResult{OK: true, Action: "apps-" + action, Text: args[0]})
		},
	}
}

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "List running processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		udid, err := rt.requireUDID()
		if err != nil {
			return err
		}
		procs, err := rt.backend.ListProcesses(cmd.Context(), udid)
		if err != nil {
			return err
		}
		if apps, _ := cmd.Flags().GetBool("apps"); apps {
			var filtered []backend.Process
			for _, p := range procs {
				if p.IsApplication {
					filtered = append(filtered, p)
				}
			}
			procs = filtered
		}
		if procs == nil {
			procs = []backend.Process{}
		}
		return output.Print(procs)
	},
}

// FilesResult is the output of the files command.
type FilesResult struct {
	Bundle string   `yaml:"bundle,omitempty" json:"bundle,omitempty"`
	Path   string   `yaml:"path"             json:"path"`
	Files  []string `yaml:"files"            json:"files"`
}

var filesCmd = &cobra.Command{
	Use:   "files [path]",
	Short: "List a directory on the device or in an app container",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		udid, err := rt.requireUDID()
		if err != nil {
			return err
		}
		bundle, _ := cmd.Flags().GetString("bundle-id")
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		files, err := rt.backend.ListFiles(cmd.Context(), udid, bundle, path)
		if err != nil {
			return err
		}
		if files == nil {
			files = []string{}
		}
		return output.Print(FilesResult{Bundle: bundle, Path: path, Files: files})
	},
}

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Simulate or reset the device GPS position",
}

var locationSetCmd = &cobra.Command{
	Use:   "set <lat> <lon>",
	Short: "Simulate a GPS position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ll, err := parseFloats(args)
		if err != nil {
			return err
		}
		rt := newRuntime()
		udid, err := rt.requireUDID()
		if err != nil {
			return err
		}
		if err := rt.backend.SetLocation(cmd.Context(), udid, ll[0], ll[1]); err != nil {
			return err
		}
		return output.Print(StepResult{OK: true, Action: "location-set", Text: fmt.Sprintf("%v,%v", ll[0], ll[1])})
	},
}

var locationResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the simulated position",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime()
		udid, err := rt.requireUDID()
		if err != nil {
			return err
		}
		if err := rt.backend.ResetLocation(cmd.Context(), udid); err != nil {
			return err
		}
		return output.Print(StepResult{OK: true, Action: "location-reset"})
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd, deviceInfoCmd, appsCmd, processesCmd, filesCmd, locationCmd)
	devicesCmd.Flags().String("platform", backend.PlatformIOS, "Platform filter: ios, android, or empty for all")

	appsCmd.AddCommand(appsListCmd,
		newAppActionCmd("launch", "Launch an app through the backend"),
		newAppActionCmd("kill", "Kill a running app"),
		newAppActionCmd("uninstall", "Uninstall an app"),
	)
	appsListCmd.Flags().String("type", backend.AppsUser, "App kind: user, system, all, filesharingapps")

	processesCmd.Flags().Bool("apps", false, "Only list application processes")
	filesCmd.Flags().String("bundle-id", "", "List inside this app's container (default path /Documents)")

	locationCmd.AddCommand(locationSetCmd, locationResetCmd)
}
