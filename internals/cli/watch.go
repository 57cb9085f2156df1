package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildwatch/buildwatch/internals/progress"
	"github.com/buildwatch/buildwatch/internals/schemas"
	"github.com/buildwatch/buildwatch/internals/session"
	"github.com/buildwatch/buildwatch/internals/term"
	"github.com/buildwatch/buildwatch/tui"
)

// WatchResult is the machine readable outcome of a watch.
type WatchResult struct {
	ProjectID     int64                 `json:"project_id" yaml:"project_id"`
	Name          string                `json:"name" yaml:"name"`
	Phase         progress.Phase        `json:"phase" yaml:"phase"`
	Status        schemas.ProjectStatus `json:"status" yaml:"status"`
	Complete      bool                  `json:"complete" yaml:"complete"`
	Failed        bool                  `json:"failed" yaml:"failed"`
	Error         string                `json:"error,omitempty" yaml:"error,omitempty"`
	ResultSummary string                `json:"result_summary,omitempty" yaml:"result_summary,omitempty"`
	Cause         string                `json:"cause,omitempty" yaml:"cause,omitempty"`
	Dropped       int                   `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	Logs          []schemas.TaskLog     `json:"logs" yaml:"logs"`
}

func newWatchCommand(app *App) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Follow a project's run live",
		Long: `Follow a project's run live until it completes.

Exits with status 1 when the run fails or the live stream drops. The stream
is never retried; rerun the command to reconnect.`,
		Args: exactArgs(1, "<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			viewer, err := app.viewer()
			if err != nil {
				return err
			}
			ctx, cancel := app.requestContext(cmd)
			project, err := app.Client.GetProject(ctx, id, viewer.UserID)
			cancel()
			if err != nil {
				return projectError(id, err)
			}
			return app.watch(cmd, viewer, project, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print lines instead of the full screen view")
	return cmd
}

func (a *App) watch(cmd *cobra.Command, viewer *session.Viewer, project *schemas.Project, plain bool) error {
	tracker := progress.NewTracker(newDialer(a.Client), *viewer, progress.WithLogger(a.Logger))
	defer tracker.Stop()

	sub, err := tracker.Watch(cmd.Context(), project.ID)
	if err != nil {
		return err
	}

	var state progress.State
	switch {
	case a.textOutput() && !plain && isInteractive(a.In, a.Out):
		state, err = tui.RunWatch(a.In, a.Out, sub, tui.WatchOptions{Title: project.Name})
		if err != nil {
			return err
		}
	case a.textOutput():
		fmt.Fprintf(a.Out, "%s  %s\n", tui.StyleTitle.Render(fmt.Sprintf("#%d %s", project.ID, project.Name)), tui.StatusBadge(project.Status))
		state = a.follow(cmd.Context(), sub, true)
	default:
		state = a.follow(cmd.Context(), sub, false)
	}
	return a.watchOutcome(project, state)
}

// follow waits for sub to reach a terminal phase, printing entries as they
// arrive when echo is set.
func (a *App) follow(ctx context.Context, sub *progress.Subscription, echo bool) progress.State {
	printed := 0
	status := schemas.ProjectStatus("")
	width := term.Width(a.Out)
	for {
		state := sub.Snapshot()
		if echo {
			if state.Status != status && state.Phase == progress.PhaseOpen {
				status = state.Status
				fmt.Fprintf(a.Out, "%s %s\n", tui.StyleLabel.Render("status"), tui.StatusBadge(status))
			}
			for ; printed < len(state.Logs); printed++ {
				a.printLogLine(state.Logs[printed], width)
			}
		}
		if state.Phase.Terminal() {
			return state
		}
		select {
		case <-sub.Changes():
		case <-sub.Done():
		case <-ctx.Done():
			return sub.Snapshot()
		}
	}
}

// logIndent is the width of the icon and clock in front of a log message.
const logIndent = 12

func (a *App) printLogLine(entry schemas.TaskLog, width int) {
	lines := term.Wrap(entry.Message, width-logIndent)
	first := entry
	first.Message = lines[0]
	fmt.Fprintln(a.Out, tui.FormatLog(first))
	for _, line := range lines[1:] {
		fmt.Fprintln(a.Out, strings.Repeat(" ", logIndent)+line)
	}
}

func (a *App) watchOutcome(project *schemas.Project, state progress.State) error {
	if !a.textOutput() {
		result := WatchResult{
			ProjectID:     project.ID,
			Name:          project.Name,
			Phase:         state.Phase,
			Status:        state.Status,
			Complete:      state.Complete,
			Failed:        state.Failed(),
			Error:         state.Error,
			ResultSummary: state.ResultSummary,
			Cause:         state.Cause,
			Dropped:       state.Dropped,
			Logs:          state.Logs,
		}
		if result.Logs == nil {
			result.Logs = []schemas.TaskLog{}
		}
		if err := a.render(result, nil); err != nil {
			return err
		}
		if state.Failed() {
			return exitCode(1)
		}
		return nil
	}

	switch {
	case state.Complete && state.Failed():
		fmt.Fprintf(a.Out, "%s %s\n", tui.StyleError.Render("Run failed:"), firstSet(state.Error, "the agent reported a failure"))
		return exitCode(1)
	case state.Complete:
		fmt.Fprintf(a.Out, "%s %s\n", tui.StyleSuccess.Render("Done:"), firstSet(state.ResultSummary, "run completed"))
		return nil
	case state.Phase == progress.PhaseErrorClosed:
		fmt.Fprintf(a.Err, "%s %s\n", tui.StyleError.Render("Lost the live stream:"), state.Cause)
		fmt.Fprintf(a.Err, "%s buildwatch watch %d\n", tui.StyleHint.Render("The stream is not retried. To reconnect, rerun:"), project.ID)
		return exitCode(1)
	default:
		fmt.Fprintf(a.Out, "Stopped watching project #%d (%s)\n", project.ID, tui.StatusLabel(state.Status))
		return nil
	}
}
