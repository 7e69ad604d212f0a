package main

import (
	"voice-agent/internal/clients/docindex"
	"voice-agent/internal/clients/genai"
	"voice-agent/internal/clients/searchcache"
	"voice-agent/internal/clients/sheets"
	"voice-agent/internal/clients/vectorstore"
	"voice-agent/internal/common/logger"
	"voice-agent/internal/server"
	"voice-agent/internal/voice/dispatcher"
	"voice-agent/internal/voice/feedback"
	"voice-agent/internal/voice/pipeline"
	"voice-agent/internal/voice/speech"
	multiagentsearch "voice-agent/internal/workers/voice/multi-agent-search"
	processcommand "voice-agent/internal/workers/voice/process-command"
)

// Each component declares its own Logger whose With returns that same
// interface. These wrappers bridge the shared zap-backed logger to them.

type pipelineLogger struct{ logger.Logger }

func (l pipelineLogger) With(f map[string]interface{}) pipeline.Logger {
	return pipelineLogger{l.Logger.With(f)}
}

type dispatcherLogger struct{ logger.Logger }

func (l dispatcherLogger) With(f map[string]interface{}) dispatcher.Logger {
	return dispatcherLogger{l.Logger.With(f)}
}

type speechLogger struct{ logger.Logger }

func (l speechLogger) With(f map[string]interface{}) speech.Logger {
	return speechLogger{l.Logger.With(f)}
}

type feedbackLogger struct{ logger.Logger }

func (l feedbackLogger) With(f map[string]interface{}) feedback.Logger {
	return feedbackLogger{l.Logger.With(f)}
}

type sheetsLogger struct{ logger.Logger }

func (l sheetsLogger) With(f map[string]interface{}) sheets.Logger {
	return sheetsLogger{l.Logger.With(f)}
}

type vectorstoreLogger struct{ logger.Logger }

func (l vectorstoreLogger) With(f map[string]interface{}) vectorstore.Logger {
	return vectorstoreLogger{l.Logger.With(f)}
}

type docindexLogger struct{ logger.Logger }

func (l docindexLogger) With(f map[string]interface{}) docindex.Logger {
	return docindexLogger{l.Logger.With(f)}
}

type genaiLogger struct{ logger.Logger }

func (l genaiLogger) With(f map[string]interface{}) genai.Logger {
	return genaiLogger{l.Logger.With(f)}
}

type cacheLogger struct{ logger.Logger }

func (l cacheLogger) With(f map[string]interface{}) searchcache.Logger {
	return cacheLogger{l.Logger.With(f)}
}

type serverLogger struct{ logger.Logger }

func (l serverLogger) With(f map[string]interface{}) server.Logger {
	return serverLogger{l.Logger.With(f)}
}

type commandWorkerLogger struct{ logger.Logger }

func (l commandWorkerLogger) With(f map[string]interface{}) processcommand.Logger {
	return commandWorkerLogger{l.Logger.With(f)}
}

type searchWorkerLogger struct{ logger.Logger }

func (l searchWorkerLogger) With(f map[string]interface{}) multiagentsearch.Logger {
	return searchWorkerLogger{l.Logger.With(f)}
}
