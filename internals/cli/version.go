package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/buildwatch/buildwatch/internals/version"
)

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show version information",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			return app.render(info, func(w io.Writer) error {
				fmt.Fprintf(w, "buildwatch %s\n", info.Version)
				if info.BuiltAt != "" {
					fmt.Fprintf(w, "  Built: %s\n", info.BuiltAt)
				}
				fmt.Fprintf(w, "  OS/Arch: %s\n", info.Platform)
				_, err := fmt.Fprintf(w, "  Go: %s\n", info.Go)
				return err
			})
		},
	}
}
