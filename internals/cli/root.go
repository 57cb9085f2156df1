// Package cli implements the buildwatch commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildwatch/buildwatch/internals/conf"
	"github.com/buildwatch/buildwatch/internals/env"
	"github.com/buildwatch/buildwatch/internals/logger"
	"github.com/buildwatch/buildwatch/internals/progress"
	"github.com/buildwatch/buildwatch/internals/session"
	"github.com/buildwatch/buildwatch/internals/term"
	"github.com/buildwatch/buildwatch/sdk"
	"github.com/buildwatch/buildwatch/tui"

	z "github.com/Oudwins/zog"
)

var ErrUsage = errors.New("usage")

var (
	newDialer = func(client *sdk.Client) progress.Dialer {
		return progress.NewHTTPDialer(client)
	}
	isInteractive = func(in io.Reader, out io.Writer) bool {
		return term.IsTerminal(in) && term.IsTerminal(out)
	}
)

// exitCode ends a command with a status but no error message; the command
// has already told the user what happened.
type exitCode int

func (e exitCode) Error() string {
	return "exit status " + strconv.Itoa(int(e))
}

type GlobalFlags struct {
	APIURL  string `zog:"api_url"`
	Output  string `zog:"output"`
	Verbose bool   `zog:"verbose"`
}

var globalFlagsSchema = z.Struct(z.Shape{
	"APIURL":  z.String().Optional().Trim(),
	"Output":  z.String().Default("text").Trim().OneOf([]string{"text", "json", "yaml"}, z.Message("--output must be text, json or yaml")),
	"Verbose": z.Bool().Optional(),
})

// App carries what every command needs. The exported inputs may be preset;
// empty ones fall back to the environment.
type App struct {
	In       io.Reader
	Out      io.Writer
	Err      io.Writer
	DataDir  string
	APIURL   string
	LogLevel string

	Config   *conf.Config
	Logger   *slog.Logger
	Client   *sdk.Client
	Sessions *session.Store

	flags  GlobalFlags
	closer io.Closer
}

func NewApp() *App {
	return &App{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, app *App, args []string) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	app.close()
	if err == nil {
		return 0
	}

	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintln(app.Err, tui.StyleError.Render("Error:"), err)
	if isUsageError(err) {
		fmt.Fprintln(app.Err, tui.StyleHint.Render("Run 'buildwatch --help' for usage."))
		return 2
	}
	return 1
}

func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "buildwatch",
		Short: "Submit website builds to the agent API and watch them run",
		Long: `buildwatch talks to the website-build agent API: create projects from a
prompt, follow the agent's progress live and fetch the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup()
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&app.flags.APIURL, "api-url", "", "API base URL (default $BUILDWATCH_API_URL or "+env.DefaultAPIURL+")")
	flags.StringVarP(&app.flags.Output, "output", "o", "text", "output format: text, json or yaml")
	flags.BoolVarP(&app.flags.Verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newLoginCommand(app))
	root.AddCommand(newLogoutCommand(app))
	root.AddCommand(newWhoamiCommand(app))
	root.AddCommand(newProjectsCommand(app))
	root.AddCommand(newWatchCommand(app))
	root.AddCommand(newFilesCommand(app))
	root.AddCommand(newStubCommand(app))
	root.AddCommand(newVersionCommand(app))
	return root
}

func (a *App) setup() error {
	if issues := globalFlagsSchema.Validate(&a.flags); len(issues) > 0 {
		return usageErrorf("%s", strings.TrimSpace(z.Issues.Prettify(issues)))
	}

	dataDir, level, apiURL := a.DataDir, a.LogLevel, a.APIURL
	if dataDir == "" || level == "" || apiURL == "" {
		e := env.Get()
		dataDir = firstSet(dataDir, e.DATA_DIR)
		level = firstSet(level, e.LOG_LEVEL)
		apiURL = firstSet(apiURL, e.API_URL)
	}
	apiURL = firstSet(a.flags.APIURL, apiURL)

	config, err := conf.Load(dataDir)
	if err != nil {
		return err
	}
	log, closer, err := logger.New(logger.Options{
		Level:   level,
		Verbose: a.flags.Verbose,
		DataDir: config.DataDir,
		Console: a.Err,
	})
	if err != nil {
		return err
	}
	a.closer = closer

	a.Config = config
	a.Logger = log
	a.Client = sdk.NewClient(
		sdk.WithBaseURL(apiURL),
		sdk.WithHTTPClient(&http.Client{Timeout: config.API.Timeout()}),
		sdk.WithLogger(log),
	)
	a.Sessions = session.NewStore(config.DataDir)
	return nil
}

func (a *App) close() {
	if a.closer != nil {
		_ = a.closer.Close()
		a.closer = nil
	}
}

// viewer loads the logged in user or fails with session.ErrNoSession.
func (a *App) viewer() (*session.Viewer, error) {
	return a.Sessions.Load()
}

// requestContext bounds a one-shot call by the configured request timeout.
func (a *App) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.Config.API.Timeout())
}

type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func (e *usageError) Is(target error) bool { return target == ErrUsage }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsageError(err error) bool {
	if errors.Is(err, ErrUsage) {
		return true
	}
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "requires at least")
}

// exactArgs is cobra.ExactArgs with a usage error.
func exactArgs(n int, names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("%s expects %d argument(s): %s", cmd.CommandPath(), n, strings.Join(names, " "))
		}
		return nil
	}
}

func minArgs(n int, name string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErrorf("%s expects at least %d %s", cmd.CommandPath(), n, name)
		}
		return nil
	}
}

func parseProjectID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid project id %q", raw)
	}
	return id, nil
}

func firstSet(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
