package multiagentsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/models"
	"voice-agent/internal/voice/pipeline"
)

const (
	TaskType = "multi-agent-search"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Runner executes the multi-agent search pipeline.
type Runner interface {
	Run(ctx context.Context, query string, agents []string) models.PipelineResult
}

type Handler struct {
	config       *Config
	runner       Runner
	errorHandler *apperrors.ErrorHandler
	logger       Logger
}

func NewHandler(config *Config, runner Runner, log Logger) *Handler {
	log = log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		runner:       runner,
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

// execute fails the job only on a structural error. Failed slots are part
// of a completed job's results.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, apperrors.NewInvalidRequestError("query is required")
	}
	if _, err := pipeline.ParseAgents(input.Agents); err != nil {
		return nil, apperrors.NewInvalidAgentSelectionError(err.Error())
	}

	res := h.runner.Run(ctx, query, input.Agents)
	if !res.Success {
		return nil, apperrors.NewInternalError(errors.New(res.Error))
	}

	failed := make([]string, 0, len(res.Results))
	for slot, r := range res.Results {
		if !r.Success {
			failed = append(failed, slot)
		}
	}
	h.logger.Info("search completed", map[string]interface{}{
		"slots":       len(res.Results),
		"failedSlots": failed,
	})

	return &Output{Results: res.Results}, nil
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
