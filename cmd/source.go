package cmd

import (
	"fmt"
	"time"

	"github.com/mj1618/wdadash/internal/model"
	"github.com/mj1618/wdadash/internal/output"
	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Read the accessibility tree",
	Long: `Read the accessibility tree from WebDriverAgent and print it as an element
tree. Every element carries a document-order ID that tap, hit and highlight
accept, plus its xpath.

Examples:
  wdadash source --prune
  wdadash source --flat --roles interactive
  wdadash source --text "Wi-Fi"
  wdadash source --raw > dump.xml`,
	RunE: runSource,
}

func init() {
	rootCmd.AddCommand(sourceCmd)
	sourceCmd.Flags().String("text", "", "Keep elements whose name, label or value contains this text (and their ancestors)")
	sourceCmd.Flags().String("roles", "", "Comma-separated roles to include (e.g. \"btn,input\", or \"interactive\")")
	sourceCmd.Flags().Bool("prune", false, "Remove anonymous Other elements, promoting their children")
	sourceCmd.Flags().Bool("visible", false, "Drop elements marked visible=\"false\"")
	sourceCmd.Flags().Bool("flat", false, "Flatten the tree into a list with path breadcrumbs")
	sourceCmd.Flags().Bool("raw", false, "Print the raw XML document from WDA")
}

func runSource(cmd *cobra.Command, args []string) error {
	rt := newRuntime()
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		doc, err := rt.wda.Source(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(output.Out, doc)
		return err
	}

	snap, err := rt.snapshot(cmd.Context())
	if err != nil {
		return err
	}
	text, _ := cmd.Flags().GetString("text")
	roles, _ := cmd.Flags().GetString("roles")
	prune, _ := cmd.Flags().GetBool("prune")
	visible, _ := cmd.Flags().GetBool("visible")
	elements := filterTree(snap.Elements, text, roles, prune, visible)

	if flat, _ := cmd.Flags().GetBool("flat"); flat {
		flatEls := model.FlattenElements(elements)
		if flatEls == nil {
			flatEls = []model.FlatElement{}
		}
		return output.Print(output.SourceFlatResult{
			Device:   rt.udid,
			TS:       time.Now().Unix(),
			Elements: flatEls,
		})
	}
	return output.Print(output.SourceResult{
		Device:   rt.udid,
		TS:       time.Now().Unix(),
		Count:    model.Count(elements),
		Elements: elements,
	})
}

// filterTree applies the source filters in a fixed order: visibility,
// pruning, roles, then text.
func filterTree(elements []model.Element, text, roles string, prune, visible bool) []model.Element {
	if visible {
		elements = model.VisibleOnly(elements)
	}
	if prune {
		elements = model.PruneEmptyGroups(elements)
	}
	if roles != "" {
		elements = model.FilterByRoles(elements, model.ExpandRoles(parseRoles(roles)))
	}
	if text != "" {
		elements = model.FilterByText(elements, text)
	}
	if elements == nil {
		elements = []model.Element{}
	}
	return elements
}
