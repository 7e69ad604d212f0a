// Package pipeline runs the multi-agent search: document retrieval,
// fault-pattern analysis and recommendation generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/common/metrics"
	"voice-agent/internal/common/observability"
	"voice-agent/internal/models"
)

var (
	ErrInvalidAgentSelection = errors.New("INVALID_AGENT_SELECTION")
	ErrEmptyQuery            = errors.New("EMPTY_QUERY")
	ErrStageTimeout          = errors.New("STAGE_TIMEOUT")
	ErrStageFailure          = errors.New("STAGE_FAILURE")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// DocumentRetriever is the external document search capability.
type DocumentRetriever interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
}

// TextGenerator is the generative-text capability.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	StageTimeout time.Duration
}

type Pipeline struct {
	config    *Config
	retriever DocumentRetriever
	generator TextGenerator
	obs       *observability.Observability
	logger    Logger
}

// New builds a pipeline. obs may be nil.
func New(config *Config, retriever DocumentRetriever, generator TextGenerator, obs *observability.Observability, log Logger) *Pipeline {
	return &Pipeline{
		config:    config,
		retriever: retriever,
		generator: generator,
		obs:       obs,
		logger: log.With(map[string]interface{}{
			"component": "pipeline",
		}),
	}
}

// Run executes the selected stages for query. It fails as a whole only when
// the query or the agent selection is malformed; stage failures are kept in
// their own slot.
func (p *Pipeline) Run(ctx context.Context, query string, agents []string) models.PipelineResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.PipelineResult{Success: false, Error: ErrEmptyQuery.Error()}
	}

	sel, err := ParseAgents(agents)
	if err != nil {
		p.logger.Warn("rejected agent selection", map[string]interface{}{
			"agents": agents,
			"error":  err.Error(),
		})
		return models.PipelineResult{Success: false, Error: err.Error()}
	}

	start := time.Now()
	p.logger.Info("pipeline started", map[string]interface{}{
		"query":  query,
		"agents": sel.Slots(),
	})

	var docs, faults models.AgentResult

	g, gctx := errgroup.WithContext(ctx)
	if sel.Documents {
		g.Go(func() error {
			docs = p.runStage(gctx, models.AgentDocuments, func(ctx context.Context) (interface{}, error) {
				return p.retriever.Search(ctx, query)
			})
			return nil
		})
	}
	if sel.FaultPatterns {
		g.Go(func() error {
			faults = p.runStage(gctx, models.AgentFaultPatterns, func(ctx context.Context) (interface{}, error) {
				return p.generator.Generate(ctx, BuildFaultPrompt(query))
			})
			return nil
		})
	}
	_ = g.Wait()

	bundle := make(models.AgentBundle, 3)
	if sel.Documents {
		bundle[models.AgentDocuments] = docs
	}
	if sel.FaultPatterns {
		bundle[models.AgentFaultPatterns] = faults
	}

	if sel.Recommendations {
		prompt := BuildRecommendationPrompt(query, bundle)
		bundle[models.AgentRecommendations] = p.runStage(ctx, models.AgentRecommendations, func(ctx context.Context) (interface{}, error) {
			return p.generator.Generate(ctx, prompt)
		})
	}

	failed := 0
	for _, res := range bundle {
		if !res.Success {
			failed++
		}
	}
	p.logger.Info("pipeline completed", map[string]interface{}{
		"slots":       len(bundle),
		"failedSlots": failed,
		"durationMs":  time.Since(start).Milliseconds(),
	})

	return models.PipelineResult{Success: true, Results: bundle}
}

// SearchDocuments runs only the retrieval stage, without building a bundle.
func (p *Pipeline) SearchDocuments(ctx context.Context, query string) (*models.SearchResult, error) {
	res := p.runStage(ctx, models.AgentDocuments, func(ctx context.Context) (interface{}, error) {
		return p.retriever.Search(ctx, query)
	})
	if !res.Success {
		return nil, errors.New(res.Error)
	}
	sr, _ := res.Data.(*models.SearchResult)
	if sr == nil {
		sr = &models.SearchResult{Sources: []models.DocumentReference{}}
	}
	return sr, nil
}

type stageOutput struct {
	data interface{}
	err  error
}

// runStage bounds fn by the stage timeout and converts every failure,
// including a panic, into a failed slot.
func (p *Pipeline) runStage(ctx context.Context, stage string, fn func(ctx context.Context) (interface{}, error)) models.AgentResult {
	stageCtx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan stageOutput, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stageOutput{err: fmt.Errorf("%w: panic: %v", ErrStageFailure, r)}
			}
		}()
		data, err := fn(stageCtx)
		done <- stageOutput{data: data, err: err}
	}()

	var out stageOutput
	select {
	case out = <-done:
	case <-stageCtx.Done():
		out = stageOutput{err: stageCtx.Err()}
	}

	if out.err != nil && stageCtx.Err() != nil && !errors.Is(out.err, ErrStageTimeout) {
		out.err = fmt.Errorf("%w: %v", ErrStageTimeout, out.err)
	}

	duration := time.Since(start)
	p.record(ctx, stage, duration, out.err == nil)

	if out.err != nil {
		serr := stageError(stage, out.err)
		p.logger.Warn("stage failed", map[string]interface{}{
			"stage":      stage,
			"code":       serr.Code,
			"retryable":  serr.Retryable,
			"durationMs": duration.Milliseconds(),
			"error":      out.err.Error(),
		})
		res := models.Err(out.err)
		res.DurationMs = duration.Milliseconds()
		return res
	}

	res := models.Ok(out.data)
	res.DurationMs = duration.Milliseconds()
	return res
}

// stageError classifies a slot failure for logs and workflow retries.
func stageError(stage string, err error) *apperrors.StandardError {
	timedOut := errors.Is(err, ErrStageTimeout) || errors.Is(err, context.DeadlineExceeded)
	switch {
	case errors.Is(err, ErrStageFailure):
		return apperrors.NewStageFailureError(stage, err)
	case stage == models.AgentDocuments && timedOut:
		return apperrors.NewRetrievalTimeoutError()
	case stage == models.AgentDocuments:
		return apperrors.NewRetrievalFailedError(err)
	case timedOut:
		return apperrors.NewGenerationTimeoutError()
	default:
		return apperrors.NewGenerationFailedError(err)
	}
}

func (p *Pipeline) record(ctx context.Context, stage string, duration time.Duration, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	metrics.PipelineStageTotal.WithLabelValues(stage, status).Inc()
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	p.obs.RecordStage(ctx, stage, duration, ok)
}
