package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/buildwatch/buildwatch/internals/term"
	"github.com/buildwatch/buildwatch/tui"
)

func newFilesCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Upload reference files and fetch results",
	}
	cmd.AddCommand(newFilesUploadCommand(app))
	cmd.AddCommand(newFilesDownloadCommand(app))
	cmd.AddCommand(newFilesRemoveCommand(app))
	return cmd
}

func newFilesUploadCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload files for the agent to use",
		Args:  minArgs(1, "path"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			response, err := app.Client.UploadFiles(ctx, args)
			if err != nil {
				return err
			}
			return app.render(response, func(w io.Writer) error {
				for _, file := range response.Files {
					link := term.ClickableLink(file.Filename, app.Client.FileURL(file.Filename))
					fmt.Fprintf(w, "%s %s %s\n", tui.StyleSuccess.Render("uploaded"), link, tui.StyleHint.Render(fmt.Sprintf("(%d bytes)", file.Size)))
				}
				return nil
			})
		},
	}
}

func newFilesDownloadCommand(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <name>",
		Short: "Download an uploaded file",
		Args:  exactArgs(1, "<name>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			target := output
			if target == "" {
				target = filepath.Base(name)
			}
			if target == "-" {
				ctx, cancel := app.requestContext(cmd)
				defer cancel()
				_, err := app.Client.DownloadFile(ctx, name, app.Out)
				return err
			}

			file, err := os.Create(target)
			if err != nil {
				return err
			}
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			n, err := app.Client.DownloadFile(ctx, name, file)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return errors.Join(err, os.Remove(target))
			}
			if app.textOutput() {
				fmt.Fprintf(app.Out, "Saved %d bytes to %s\n", n, target)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "O", "", "file to write, - for stdout (default: the file name)")
	return cmd
}

func newFilesRemoveCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete an uploaded file",
		Args:    exactArgs(1, "<name>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			if err := app.Client.DeleteFile(ctx, args[0]); err != nil {
				return err
			}
			if app.textOutput() {
				fmt.Fprintf(app.Out, "Deleted %s\n", args[0])
			}
			return nil
		},
	}
}
