package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/wdadash/internal/config"
	"github.com/mj1618/wdadash/internal/logging"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/mj1618/wdadash/internal/version"
)

var (
	// cfg is resolved once per invocation by the root PersistentPreRunE.
	cfg *config.Config
	// logger writes structured logs to stderr.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "wdadash",
	Short: "Drive iOS devices through WebDriverAgent",
	Long: `wdadash controls iOS devices through WebDriverAgent (WDA) and a device
backend: tap and swipe, read the accessibility tree, hit-test and highlight
elements, move text through the pasteboard, and serve a browser dashboard.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.String()

	pf := rootCmd.PersistentFlags()
	pf.String("wda", "", "WebDriverAgent URL (default http://127.0.0.1:8100)")
	pf.String("backend", "", "Device backend API URL (default http://127.0.0.1:15037/api)")
	pf.String("udid", "", "Device udid; routes WDA calls through the backend's proxy for that device")
	pf.String("session", "", "Reuse an existing WDA session id")
	pf.String("config", "", "Config file (default ./wdadash.yaml or ~/.config/wdadash/wdadash.yaml)")
	pf.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("format", "", "Output format: yaml, json")
	pf.Bool("pretty", false, "Pretty-print JSON output")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Use the root persistent flag directly to avoid conflicts with
		// subcommand local flags (e.g. screenshot --format png/jpg).
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")

		configFile, _ := rootCmd.PersistentFlags().GetString("config")
		envFile, _ := rootCmd.PersistentFlags().GetString("env-file")
		loaded, err := config.Load(config.Options{
			ConfigFile: configFile,
			EnvFile:    envFile,
			Flags:      cmd.Flags(),
		})
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	}
}
