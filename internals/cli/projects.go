package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildwatch/buildwatch/internals/schemas"
	"github.com/buildwatch/buildwatch/internals/term"
	"github.com/buildwatch/buildwatch/sdk"
	"github.com/buildwatch/buildwatch/tui"

	z "github.com/Oudwins/zog"
)

const maxPageLimit = 100

type ListArgs struct {
	Skip  int `zog:"skip"`
	Limit int `zog:"limit"`
}

var listArgsSchema = z.Struct(z.Shape{
	"Skip":  z.Int().GTE(0, z.Message("--skip cannot be negative")),
	"Limit": z.Int().GT(0, z.Message("--limit must be positive")).LTE(maxPageLimit, z.Message("--limit is at most 100")),
})

func newProjectsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "Create, inspect and manage projects",
	}
	cmd.AddCommand(newProjectsListCommand(app))
	cmd.AddCommand(newProjectsGetCommand(app))
	cmd.AddCommand(newProjectsCreateCommand(app))
	cmd.AddCommand(newProjectsUpdateCommand(app))
	cmd.AddCommand(newProjectsDeleteCommand(app))
	cmd.AddCommand(newProjectsLogsCommand(app))
	return cmd
}

func newProjectsListCommand(app *App) *cobra.Command {
	args := ListArgs{}
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your projects, newest first",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("limit") {
				args.Limit = app.Config.Projects.PageSize
			}
			// A zero limit would silently fall back to the API default.
			if args.Limit == 0 {
				return usageErrorf("--limit must be positive")
			}
			if issues := listArgsSchema.Validate(&args); len(issues) > 0 {
				return usageErrorf("%s", strings.TrimSpace(z.Issues.Prettify(issues)))
			}
			viewer, err := app.viewer()
			if err != nil {
				return err
			}
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			projects, err := app.Client.ListProjects(ctx, viewer.UserID, schemas.ListOptions{Skip: args.Skip, Limit: args.Limit})
			if err != nil {
				return err
			}
			return app.render(projects, func(w io.Writer) error {
				if len(projects) == 0 {
					_, err := fmt.Fprintln(w, "No projects yet. Create one with: buildwatch projects create")
					return err
				}
				rows := make([][]string, 0, len(projects))
				for _, project := range projects {
					rows = append(rows, []string{
						strconv.FormatInt(project.ID, 10),
						tui.StatusLabel(project.Status),
						project.Name,
						project.CreatedAt,
					})
				}
				return table(w, []string{"ID", "STATUS", "NAME", "CREATED"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&args.Skip, "skip", 0, "number of projects to skip")
	cmd.Flags().IntVar(&args.Limit, "limit", sdk.DefaultPageLimit, "page size (default from config)")
	return cmd
}

func newProjectsGetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one project",
		Args:  exactArgs(1, "<id>"),
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
			defer cancel()
			project, err := app.Client.GetProject(ctx, id, viewer.UserID)
			if err != nil {
				return projectError(id, err)
			}
			return app.render(project, func(w io.Writer) error {
				app.printProject(w, project)
				return nil
			})
		},
	}
}

func (a *App) printProject(w io.Writer, project *schemas.Project) {
	fmt.Fprintf(w, "%s  %s\n", tui.StyleTitle.Render(fmt.Sprintf("#%d %s", project.ID, project.Name)), tui.StatusBadge(project.Status))
	field(w, "Description", project.Description)
	field(w, "Prompt", project.TaskPrompt)
	field(w, "Created", project.CreatedAt)
	field(w, "Started", project.StartedAt)
	field(w, "Completed", project.CompletedAt)
	field(w, "Summary", project.ResultSummary)
	if project.ErrorMessage != "" {
		field(w, "Error", tui.StyleError.Render(project.ErrorMessage))
	}
	if files := project.OutputFileList(); len(files) > 0 {
		links := make([]string, 0, len(files))
		for _, name := range files {
			links = append(links, term.ClickableLink(name, a.Client.FileURL(name)))
		}
		field(w, "Output files", strings.Join(links, ", "))
	}
}

type CreateArgs struct {
	Name        string
	Description string
	Prompt      string
	PromptFile  string
	Interactive bool
	Watch       bool
}

func newProjectsCreateCommand(app *App) *cobra.Command {
	args := CreateArgs{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project and start the agent on it",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			request := schemas.ProjectCreate{Name: args.Name, Description: args.Description, TaskPrompt: args.Prompt}
			if args.PromptFile != "" {
				if args.Prompt != "" {
					return usageErrorf("--prompt and --prompt-file are mutually exclusive")
				}
				data, err := os.ReadFile(args.PromptFile)
				if err != nil {
					return fmt.Errorf("read prompt file: %w", err)
				}
				request.TaskPrompt = string(data)
			}
			if args.Interactive {
				if !isInteractive(app.In, app.Out) {
					return usageErrorf("-i needs a terminal")
				}
				filled, submitted, err := tui.RunProjectForm(app.In, app.Out, request)
				if err != nil {
					return err
				}
				if !submitted {
					fmt.Fprintln(app.Err, "Cancelled")
					return nil
				}
				request = filled
			}

			viewer, err := app.viewer()
			if err != nil {
				return err
			}
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			project, err := app.Client.CreateProject(ctx, request, viewer.UserID)
			if err != nil {
				return err
			}
			app.Logger.Debug("project created", "project_id", project.ID)

			if args.Watch {
				return app.watch(cmd, viewer, project, false)
			}
			return app.render(project, func(w io.Writer) error {
				fmt.Fprintf(w, "%s #%d %s\n", tui.StyleSuccess.Render("Created project"), project.ID, project.Name)
				_, err := fmt.Fprintf(w, "%s buildwatch watch %d\n", tui.StyleHint.Render("Follow it with:"), project.ID)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&args.Name, "name", "", "project name")
	flags.StringVar(&args.Description, "description", "", "optional description")
	flags.StringVar(&args.Prompt, "prompt", "", "what the agent should build")
	flags.StringVar(&args.PromptFile, "prompt-file", "", "read the prompt from a file")
	flags.BoolVarP(&args.Interactive, "interactive", "i", false, "fill the project in with a form")
	flags.BoolVarP(&args.Watch, "watch", "w", false, "watch the run after creating it")
	return cmd
}

func newProjectsUpdateCommand(app *App) *cobra.Command {
	var name, description, prompt, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a project's fields or status",
		Args:  exactArgs(1, "<id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			update := schemas.ProjectUpdate{}
			flags := cmd.Flags()
			if flags.Changed("name") {
				update.Name = &name
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("prompt") {
				update.TaskPrompt = &prompt
			}
			if flags.Changed("status") {
				value := schemas.ProjectStatus(status)
				update.Status = &value
			}
			if issues := schemas.ProjectUpdateSchema.Validate(&update); len(issues) > 0 {
				return usageErrorf("%s", strings.TrimSpace(z.Issues.Prettify(issues)))
			}

			viewer, err := app.viewer()
			if err != nil {
				return err
			}
			ctx, cancel := app.requestContext(cmd)
			defer cancel()
			project, err := app.Client.UpdateProject(ctx, id, update, viewer.UserID)
			if err != nil {
				return projectError(id, err)
			}
			return app.render(project, func(w io.Writer) error {
				app.printProject(w, project)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "new name")
	flags.StringVar(&description, "description", "", "new description")
	flags.StringVar(&prompt, "prompt", "", "new task prompt")
	flags.StringVar(&status, "status", "", "new status, e.g. cancelled")
	return cmd
}

func newProjectsDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a project and its logs",
		Args:    exactArgs(1, "<id>"),
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
			defer cancel()
			if err := app.Client.DeleteProject(ctx, id, viewer.UserID); err != nil {
				return projectError(id, err)
			}
			if app.textOutput() {
				fmt.Fprintf(app.Out, "Deleted project #%d\n", id)
			}
			return nil
		},
	}
}

func newProjectsLogsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <id>",
		Short: "Print the log of a project's run so far",
		Args:  exactArgs(1, "<id>"),
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
			defer cancel()
			logs, err := app.Client.ProjectLogs(ctx, id, viewer.UserID)
			if err != nil {
				return projectError(id, err)
			}
			return app.render(logs, func(w io.Writer) error {
				if len(logs) == 0 {
					_, err := fmt.Fprintln(w, "No logs yet")
					return err
				}
				for _, entry := range logs {
					fmt.Fprintln(w, tui.FormatLog(entry))
				}
				return nil
			})
		},
	}
}

func projectError(id int64, err error) error {
	if errors.Is(err, sdk.ErrNotFound) {
		return fmt.Errorf("project #%d: %w", id, sdk.ErrNotFound)
	}
	return err
}
