package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"voice-agent/internal/clients/docindex"
	"voice-agent/internal/clients/genai"
	"voice-agent/internal/clients/searchcache"
	"voice-agent/internal/clients/sheets"
	"voice-agent/internal/clients/vectorstore"
	"voice-agent/internal/common/config"
	"voice-agent/internal/common/database"
	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/common/logger"
	"voice-agent/internal/common/observability"
	"voice-agent/internal/server"
	"voice-agent/internal/voice/dispatcher"
	"voice-agent/internal/voice/extract"
	"voice-agent/internal/voice/feedback"
	"voice-agent/internal/voice/intent"
	"voice-agent/internal/voice/pipeline"
	"voice-agent/internal/voice/speech"
)

// app holds the wired voice core and the connections it owns.
type app struct {
	cfg *config.Config
	zap *zap.Logger
	log logger.Logger
	obs *observability.Observability

	pg    *database.PostgresClient
	redis *database.RedisClient
	es    *database.ElasticsearchClient

	sheets    *sheets.Client
	store     *vectorstore.Store
	generator genai.Generator
	retriever pipeline.DocumentRetriever
	pipeline  *pipeline.Pipeline

	classifier *intent.Classifier
	extractor  *extract.Extractor
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// newApp connects the configured backends and builds the pipeline. attempts
// bounds the connection retries for each backend.
func newApp(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, attempts int) (*app, error) {
	a := &app{
		cfg:        cfg,
		zap:        zapLog,
		log:        logger.NewZapAdapter(zapLog),
		obs:        observability.New(cfg.App.Name),
		classifier: intent.NewClassifier(),
		extractor:  extract.NewExtractor(),
	}

	if err := a.connect(ctx, attempts); err != nil {
		a.Close()
		return nil, err
	}

	a.generator = a.buildGenerator()

	if cfg.APIs.Sheets.BaseURL != "" {
		a.sheets = sheets.NewClient(&sheets.Config{
			BaseURL: cfg.APIs.Sheets.BaseURL,
			Timeout: config.GetDuration(cfg.APIs.Sheets.Timeout),
		}, sheetsLogger{a.log})
	}
	if a.pg != nil {
		a.store = vectorstore.NewStore(a.pg.DB, vectorstoreLogger{a.log})
	}

	a.retriever = a.buildRetriever()
	a.pipeline = pipeline.New(
		&pipeline.Config{StageTimeout: config.GetDuration(cfg.Pipeline.StageTimeout)},
		a.retriever,
		a.generator,
		a.obs,
		pipelineLogger{a.log},
	)

	zapLog.Info("voice core ready",
		zap.String("retrievalMode", cfg.Pipeline.RetrievalMode),
		zap.String("retrievalBackend", cfg.Pipeline.RetrievalBackend),
		zap.String("genaiProvider", cfg.APIs.GenAI.Provider),
		zap.Bool("cache", a.redis != nil),
	)
	return a, nil
}

func (a *app) connect(ctx context.Context, attempts int) error {
	cfg := a.cfg

	if cfg.Database.Postgres.Enabled {
		err := retryWithBackoff(func() error {
			var err error
			a.pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return a.pg.Ping(ctx)
		}, attempts, 2*time.Second, a.zap, "PostgreSQL connection")
		if err != nil {
			return apperrors.NewDatabaseConnectionError(err)
		}
		a.zap.Info("PostgreSQL connected successfully")
	}

	if cfg.Database.Redis.Enabled {
		err := retryWithBackoff(func() error {
			var err error
			a.redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return a.redis.Ping(ctx)
		}, attempts, 2*time.Second, a.zap, "Redis connection")
		if err != nil {
			return apperrors.NewDatabaseConnectionError(err)
		}
		a.zap.Info("Redis connected successfully")
	}

	if cfg.Pipeline.RetrievalBackend == config.RetrievalBackendElasticsearch {
		err := retryWithBackoff(func() error {
			var err error
			a.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return a.es.Ping(ctx)
		}, attempts, 2*time.Second, a.zap, "Elasticsearch connection")
		if err != nil {
			return apperrors.NewDatabaseConnectionError(err)
		}
		a.zap.Info("Elasticsearch connected successfully")
	}

	return nil
}

func (a *app) buildGenerator() genai.Generator {
	g := a.cfg.APIs.GenAI
	gcfg := &genai.Config{
		BaseURL:     g.BaseURL,
		APIKey:      g.APIKey,
		Model:       g.Model,
		MaxTokens:   g.MaxTokens,
		Temperature: g.Temperature,
		MaxRetries:  g.MaxRetries,
		Timeout:     config.GetDuration(g.Timeout),
	}

	if g.Provider == config.GenAIProviderOpenAI {
		return genai.NewOpenAIGenerator(gcfg, &http.Client{Timeout: gcfg.Timeout}, genaiLogger{a.log})
	}
	return genai.NewHTTPGenerator(gcfg, genaiLogger{a.log})
}

// buildRetriever layers the document retrieval stage: backend, then the
// optional cache, then optional similarity-first search.
func (a *app) buildRetriever() pipeline.DocumentRetriever {
	var r pipeline.DocumentRetriever
	switch a.cfg.Pipeline.RetrievalBackend {
	case config.RetrievalBackendElasticsearch:
		r = docindex.NewRetriever(&docindex.Config{
			Index: a.cfg.Pipeline.DocumentIndex,
			Size:  a.cfg.Pipeline.SimilarityLimit,
		}, a.es.Client, docindexLogger{a.log})
	default:
		r = a.sheets
	}

	if a.redis != nil {
		r = searchcache.New(&searchcache.Config{
			TTL: config.GetDuration(a.cfg.Pipeline.CacheTTL),
		}, r, a.redis.Client, cacheLogger{a.log})
	}

	if a.cfg.Pipeline.RetrievalMode == config.RetrievalModeSimilarity && a.store != nil {
		r = pipeline.NewSimilarityRetriever(a.store, a.generator, r, a.cfg.Pipeline.SimilarityLimit, pipelineLogger{a.log})
	}
	return r
}

// newDispatcher builds a dispatcher that announces through speaker, which
// may be nil.
func (a *app) newDispatcher(speaker dispatcher.Speaker) *dispatcher.Dispatcher {
	deps := dispatcher.Dependencies{
		Classifier: a.classifier,
		Extractor:  a.extractor,
		Searcher:   a.pipeline,
		Speaker:    speaker,
		Obs:        a.obs,
	}
	if a.sheets != nil {
		deps.Submitter = a.sheets
	}
	if a.store != nil {
		deps.Archiver = a.store
	}
	return dispatcher.New(&dispatcher.Config{
		EntryTimeout: config.GetDuration(a.cfg.APIs.Sheets.Timeout),
	}, deps, dispatcherLogger{a.log})
}

func (a *app) newSink(synth feedback.Synthesizer) *feedback.Sink {
	return feedback.NewSink(&feedback.Config{
		Locale: a.cfg.Speech.Locale,
		Rate:   a.cfg.Speech.Rate,
	}, synth, feedbackLogger{a.log})
}

func (a *app) newAdapter(rec speech.Recognizer) *speech.Adapter {
	return speech.NewAdapter(&speech.Config{Locale: a.cfg.Speech.Locale}, rec, speechLogger{a.log})
}

// newVoiceSession wires one speech gateway connection.
func (a *app) newVoiceSession(synth feedback.Synthesizer) *server.VoiceSession {
	rec := speech.NewStreamRecognizer()
	sink := a.newSink(synth)
	return &server.VoiceSession{
		Recognizer: rec,
		Adapter:    a.newAdapter(rec),
		Dispatcher: a.newDispatcher(sink),
		Sink:       sink,
	}
}

func (a *app) readinessChecks() map[string]server.ReadinessCheck {
	checks := make(map[string]server.ReadinessCheck)
	if a.pg != nil {
		checks["postgres"] = a.pg.Ping
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	if a.es != nil {
		checks["elasticsearch"] = a.es.Ping
	}
	return checks
}

func (a *app) Close() {
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.obs.Shutdown()
}
