package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/buildwatch/buildwatch/tui"
)

// render writes value as json or yaml when asked to, otherwise calls text.
func (a *App) render(value any, text func(w io.Writer) error) error {
	switch a.flags.Output {
	case "json":
		encoder := json.NewEncoder(a.Out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case "yaml":
		encoder := yaml.NewEncoder(a.Out)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return text(a.Out)
	}
}

func (a *App) textOutput() bool {
	return a.flags.Output == "" || a.flags.Output == "text"
}

// table writes aligned columns. Cells must not carry colour codes.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// field prints one "label: value" line, skipping empty values.
func field(w io.Writer, label string, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", tui.StyleLabel.Render(fmt.Sprintf("%-13s", label+":")), value)
}
