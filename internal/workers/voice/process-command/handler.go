package processcommand

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/models"
)

const (
	TaskType = "process-voice-command"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// CommandProcessor turns one transcript into an outcome.
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, transcript string) models.CommandOutcome
}

type Handler struct {
	config       *Config
	processor    CommandProcessor
	errorHandler *apperrors.ErrorHandler
	logger       Logger
}

func NewHandler(config *Config, processor CommandProcessor, log Logger) *Handler {
	log = log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		processor:    processor,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(context.Background(), client, job,
			apperrors.NewInvalidRequestError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// execute fails only on malformed input. A failed command is still a
// completed job; the outcome carries success=false.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	transcript := strings.TrimSpace(input.Transcript)
	if transcript == "" {
		return nil, apperrors.NewInvalidRequestError("transcript is required")
	}

	if input.SessionID != "" || input.EmployeeID != "" {
		ctx = models.WithSession(ctx, &models.Session{
			ID:           input.SessionID,
			EmployeeID:   input.EmployeeID,
			Name:         input.Name,
			Role:         input.Role,
			LastActivity: time.Now(),
		})
	}

	outcome := h.processor.ProcessCommand(ctx, transcript)

	h.logger.Info("command processed", map[string]interface{}{
		"commandId": outcome.CommandID,
		"intent":    outcome.Type,
		"success":   outcome.Success,
	})

	return &Output{Outcome: outcome}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
