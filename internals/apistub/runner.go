package apistub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/buildwatch/buildwatch/internals/schemas"
)

type runStep struct {
	message string
	logType schemas.LogType
}

// runner plays a scripted agent run for each new project, persisting logs
// and publishing every change to the broker.
type runner struct {
	store  *store
	broker *broker
	logger *slog.Logger
	delay  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newRunner(store *store, broker *broker, logger *slog.Logger, delay time.Duration) *runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &runner{
		store:  store,
		broker: broker,
		logger: logger,
		delay:  delay,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (r *runner) start(project schemas.Project) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.run(project); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Warn("simulated run stopped", "project_id", project.ID, "error", err)
		}
	}()
}

func (r *runner) stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *runner) run(project schemas.Project) error {
	if err := r.sleep(); err != nil {
		return err
	}
	running, err := r.store.markRunning(r.ctx, project.ID)
	if errors.Is(err, errNotFound) {
		r.completeIfTerminal(project.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	r.broker.publish(project.ID, schemas.StreamEvent{
		Type:      schemas.StreamEventStatus,
		Status:    running.Status,
		UpdatedAt: running.UpdatedAt,
	})

	for _, step := range scriptFor(project) {
		if err := r.sleep(); err != nil {
			return err
		}
		current, err := r.store.projectByID(r.ctx, project.ID)
		if err != nil {
			return fmt.Errorf("reload project: %w", err)
		}
		if current.Status.IsTerminal() {
			r.publishComplete(current)
			return nil
		}

		entry, err := r.store.appendLog(r.ctx, project.ID, step.message, step.logType)
		if err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		r.broker.publish(project.ID, schemas.StreamEvent{
			Type:      schemas.StreamEventLog,
			LogID:     entry.ID,
			Message:   entry.Message,
			LogType:   entry.LogType,
			Timestamp: entry.CreatedAt,
		})
	}

	outcome := outcomeFor(project)
	finished, err := r.store.finish(r.ctx, project.ID, outcome)
	if errors.Is(err, errNotFound) {
		// Cancelled or deleted while the last step ran.
		r.completeIfTerminal(project.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("finish: %w", err)
	}
	r.publishComplete(finished)
	return nil
}

func (r *runner) completeIfTerminal(projectID int64) {
	current, err := r.store.projectByID(r.ctx, projectID)
	if err != nil || !current.Status.IsTerminal() {
		return
	}
	r.publishComplete(current)
}

func (r *runner) publishComplete(project *schemas.Project) {
	r.broker.publish(project.ID, completeEvent(project))
}

func (r *runner) sleep() error {
	if r.delay <= 0 {
		return r.ctx.Err()
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-r.ctx.Done():
		return r.ctx.Err()
	case <-timer.C:
		return nil
	}
}

func completeEvent(project *schemas.Project) schemas.StreamEvent {
	return schemas.StreamEvent{
		Type:          schemas.StreamEventComplete,
		Status:        project.Status,
		ResultSummary: project.ResultSummary,
		ErrorMessage:  project.ErrorMessage,
		UpdatedAt:     project.UpdatedAt,
	}
}

// failsOnPurpose lets a prompt ask for the failure path.
func failsOnPurpose(project schemas.Project) bool {
	return strings.Contains(strings.ToLower(project.TaskPrompt), "[fail]")
}

func scriptFor(project schemas.Project) []runStep {
	steps := []runStep{
		{message: fmt.Sprintf("Starting agent for %q", project.Name), logType: schemas.LogTypeInfo},
		{message: "Reading task prompt", logType: schemas.LogTypeToolUse},
		{message: "Working on: " + summarize(project.TaskPrompt, 60), logType: schemas.LogTypeInfo},
		{message: "Writing output files", logType: schemas.LogTypeToolUse},
	}
	if failsOnPurpose(project) {
		return append(steps, runStep{message: "Agent run failed", logType: schemas.LogTypeError})
	}
	return append(steps, runStep{message: "Task finished", logType: schemas.LogTypeSuccess})
}

func outcomeFor(project schemas.Project) runOutcome {
	if failsOnPurpose(project) {
		return runOutcome{
			Status:       schemas.ProjectStatusFailed,
			ErrorMessage: "simulated failure requested by prompt",
		}
	}
	return runOutcome{
		Status:        schemas.ProjectStatusCompleted,
		ResultSummary: "Completed: " + summarize(project.TaskPrompt, 80),
		OutputFiles:   `["output/report.md"]`,
	}
}

func summarize(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
