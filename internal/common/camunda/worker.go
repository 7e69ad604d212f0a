package camunda

import (
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"voice-agent/internal/common/config"
)

// JobHandler is the signature Zeebe calls for each activated job.
type JobHandler func(client worker.JobClient, job entities.Job)

// Workers opens job workers on one client and closes them together.
type Workers struct {
	client zbc.Client
	logger *zap.Logger

	mu      sync.Mutex
	running map[string]worker.JobWorker
}

func NewWorkers(client zbc.Client, logger *zap.Logger) *Workers {
	return &Workers{
		client:  client,
		logger:  logger,
		running: make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType unless wcfg disables it. It reports
// whether a worker is running for the task type afterwards.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) bool {
	if !wcfg.Enabled {
		w.logger.Info("worker disabled", zap.String("taskType", taskType))
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.running[taskType]; ok {
		return true
	}

	w.running[taskType] = w.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	w.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return true
}

// Running lists the task types with an open worker.
func (w *Workers) Running() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	types := make([]string, 0, len(w.running))
	for t := range w.running {
		types = append(types, t)
	}
	return types
}

// Close stops every worker and waits for in-flight jobs.
func (w *Workers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for taskType, jw := range w.running {
		w.logger.Info("stopping worker", zap.String("taskType", taskType))
		jw.Close()
		jw.AwaitClose()
	}
	w.running = make(map[string]worker.JobWorker)
}
