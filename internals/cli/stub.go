package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/buildwatch/buildwatch/internals/apistub"
)

func newStubCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Local stand-in for the project API",
	}
	cmd.AddCommand(newStubServeCommand(app))
	return cmd
}

func newStubServeCommand(app *App) *cobra.Command {
	var addr string
	var stepDelay time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API stub until interrupted",
		Long: `Serve a local copy of the project API backed by sqlite in the data dir.
New projects play a scripted agent run; put [fail] in the prompt to see a
failing run.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = app.Config.Stub.Addr
			}
			if !cmd.Flags().Changed("step-delay") {
				stepDelay = app.Config.Stub.Delay()
			}
			if stepDelay < 0 {
				return usageErrorf("--step-delay cannot be negative")
			}

			server, err := apistub.New(cmd.Context(), apistub.Options{
				DataDir:   app.Config.DataDir,
				StepDelay: stepDelay,
				Logger:    app.Logger,
			})
			if err != nil {
				return err
			}
			defer server.Close()
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default stub.addr from config)")
	cmd.Flags().DurationVar(&stepDelay, "step-delay", 0, "pause between simulated agent steps (default stub.step_delay from config)")
	return cmd
}
