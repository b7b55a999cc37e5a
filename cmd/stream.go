package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/mj1618/wdadash/internal/backend"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/spf13/cobra"
)

var syslogCmd = &cobra.Command{
	Use:   "syslog",
	Short: "Stream the device log",
	Long:  "Stream the device system log line by line until Ctrl+C, --duration or --count.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStream(cmd, "syslog")
	},
}

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Stream performance samples as JSONL",
	Long: `Stream performance samples (CPU, memory, FPS, network) as JSONL, one
object per event with the event name and its decoded payload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStream(cmd, "perf")
	},
}

func init() {
	rootCmd.AddCommand(syslogCmd, perfCmd)
	for _, c := range []*cobra.Command{syslogCmd, perfCmd} {
		c.Flags().Int("duration", 0, "Stop after this many seconds (0 = until Ctrl+C)")
		c.Flags().Int("count", 0, "Stop after this many events (0 = unlimited)")
	}
	syslogCmd.Flags().String("grep", "", "Only print lines matching this regular expression")
	perfCmd.Flags().String("type", "", "Only print events of this type (e.g. sys_mem, cpu, fps)")
}

func runStream(cmd *cobra.Command, kind string) error {
	rt := newRuntime()
	udid, err := rt.requireUDID()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if sec, _ := cmd.Flags().GetInt("duration"); sec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sec)*time.Second)
		defer cancel()
	}
	limit, _ := cmd.Flags().GetInt("count")

	var emit func(backend.Event) (bool, error)
	if kind == "syslog" {
		pattern, _ := cmd.Flags().GetString("grep")
		if emit, err = syslogPrinter(pattern); err != nil {
			return err
		}
	} else {
		perfType, _ := cmd.Flags().GetString("type")
		emit = perfPrinter(perfType)
	}

	var stream *backend.Stream
	if kind == "syslog" {
		stream, err = rt.backend.Syslog(ctx, udid)
	} else {
		stream, err = rt.backend.Perf(ctx, udid)
	}
	if err != nil {
		return err
	}
	defer stream.Close()

	printed := 0
	for e := range stream.Events() {
		ok, err := emit(e)
		if err != nil {
			return err
		}
		if ok {
			printed++
		}
		if limit > 0 && printed >= limit {
			return nil
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return stream.Err()
}

// syslogPrinter prints event data lines, filtered by an optional regexp.
func syslogPrinter(pattern string) (func(backend.Event) (bool, error), error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("invalid --grep pattern: %w", err)
		}
	}
	return func(e backend.Event) (bool, error) {
		if re != nil && !re.MatchString(e.Data) {
			return false, nil
		}
		_, err := fmt.Fprintln(output.Out, e.Data)
		return true, err
	}, nil
}

// perfLine is one JSONL record of the perf command.
type perfLine struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// perfPrinter writes perf events as JSONL. Non-JSON payloads are quoted.
func perfPrinter(perfType string) func(backend.Event) (bool, error) {
	enc := json.NewEncoder(output.Out)
	enc.SetEscapeHTML(false)
	return func(e backend.Event) (bool, error) {
		if perfType != "" && e.Name != perfType {
			if s, err := backend.DecodePerf(e); err != nil || s.Type != perfType {
				return false, nil
			}
		}
		data := json.RawMessage(e.Data)
		if !json.Valid(data) {
			quoted, _ := json.Marshal(e.Data)
			data = quoted
		}
		return true, enc.Encode(perfLine{Event: e.Name, ID: e.ID, Data: data})
	}
}
