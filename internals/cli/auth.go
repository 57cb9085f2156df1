package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/buildwatch/buildwatch/internals/schemas"
	"github.com/buildwatch/buildwatch/internals/session"
	"github.com/buildwatch/buildwatch/tui"

	z "github.com/Oudwins/zog"
)

// The API accepts any identity; these match the demo user of the web app.
const (
	defaultGithubID  = "12345"
	defaultUsername  = "test_user"
	defaultEmail     = "test@example.com"
	defaultAvatarURL = "https://github.com/identicons/test.png"
)

func newLoginCommand(app *App) *cobra.Command {
	request := schemas.LoginRequest{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember who you are",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if issues := schemas.LoginRequestSchema.Validate(&request); len(issues) > 0 {
				return usageErrorf("%s", strings.TrimSpace(z.Issues.Prettify(issues)))
			}
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			user, err := app.Client.Login(ctx, request)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			viewer := session.Viewer{UserID: user.ID, Username: user.Username, UpdatedAt: time.Now().UTC()}
			if err := app.Sessions.Save(viewer); err != nil {
				return err
			}
			app.Logger.Debug("session saved", "path", app.Sessions.Path(), "user_id", user.ID)
			return app.render(user, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s (user #%d)\n", tui.StyleSuccess.Render("Logged in as"), user.Username, user.ID)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&request.GithubID, "github-id", defaultGithubID, "GitHub account id")
	flags.StringVar(&request.Username, "username", defaultUsername, "GitHub username")
	flags.StringVar(&request.Email, "email", defaultEmail, "email address")
	flags.StringVar(&request.AvatarURL, "avatar-url", defaultAvatarURL, "avatar image URL")
	return cmd
}

func newLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the logged in user",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Sessions.Clear(); err != nil {
				return err
			}
			if app.textOutput() {
				fmt.Fprintln(app.Out, "Logged out")
			}
			return nil
		},
	}
}

func newWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewer, err := app.viewer()
			if err != nil {
				return err
			}
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			user, err := app.Client.CurrentUser(ctx, viewer.UserID)
			if err != nil {
				return fmt.Errorf("whoami: %w", err)
			}
			return app.render(user, func(w io.Writer) error {
				field(w, "User", fmt.Sprintf("%s (#%d)", user.Username, user.ID))
				field(w, "GitHub ID", user.GithubID)
				field(w, "Email", user.Email)
				field(w, "API", app.Client.BaseURL())
				return nil
			})
		},
	}
}
