// Package dispatcher turns finalized transcripts into command outcomes. It
// classifies each transcript, runs the matching handler and announces the
// result through the feedback sink.
package dispatcher

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/common/metrics"
	"voice-agent/internal/common/observability"
	"voice-agent/internal/models"
	"voice-agent/internal/voice/extract"
	"voice-agent/internal/voice/intent"
	"voice-agent/internal/voice/speech"
)

const (
	MessageNoResults        = "No results found"
	MessagePageNotFound     = "Page not found"
	MessageDocumentNotFound = "Document not found"
	MessageInternalError    = "Internal error"
	MessageTimedOut         = "Command timed out"
	MessageUnrecognized     = `Command not recognized. Try saying "search for", "open", or "submit entry"`
)

var (
	searchVerbs     = regexp.MustCompile(`(?i)\b(?:search|find)\b`)
	documentPhrases = regexp.MustCompile(`(?i)\b(?:show|open)\s+document\b`)
	whitespace      = regexp.MustCompile(`\s+`)
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Searcher runs the document retrieval stage for a query.
type Searcher interface {
	SearchDocuments(ctx context.Context, query string) (*models.SearchResult, error)
}

// Speaker announces text to the operator.
type Speaker interface {
	Speak(text string)
}

// EntrySubmitter sends a complete work entry to the entry backend.
type EntrySubmitter interface {
	SubmitEntry(ctx context.Context, entry models.WorkEntryDraft, session *models.Session) error
}

// EntryArchiver keeps a local copy of submitted work entries.
type EntryArchiver interface {
	BackupEntry(ctx context.Context, entry models.WorkEntryDraft, session *models.Session) (int64, error)
}

// TranscriptSource delivers finalized transcripts to subscribers.
type TranscriptSource interface {
	Subscribe(h speech.Handler) func()
}

type Config struct {
	Routes       []Route
	EntryTimeout time.Duration
	QueueSize    int
}

// Dependencies are the collaborators of a Dispatcher. Submitter, Archiver
// and Obs are optional.
type Dependencies struct {
	Classifier *intent.Classifier
	Extractor  *extract.Extractor
	Searcher   Searcher
	Speaker    Speaker
	Submitter  EntrySubmitter
	Archiver   EntryArchiver
	Obs        *observability.Observability
}

type Dispatcher struct {
	config *Config
	deps   Dependencies
	logger Logger

	streams lanes
}

func New(config *Config, deps Dependencies, log Logger) *Dispatcher {
	if config == nil {
		config = &Config{}
	}
	if len(config.Routes) == 0 {
		config.Routes = DefaultRoutes
	}
	if config.EntryTimeout <= 0 {
		config.EntryTimeout = 30 * time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier()
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewExtractor()
	}

	return &Dispatcher{
		config: config,
		deps:   deps,
		logger: log.With(map[string]interface{}{
			"component": "dispatcher",
		}),
	}
}

// ProcessCommand handles one transcript and always returns an outcome.
// Calls on the same session are processed one at a time in arrival order;
// a call whose ctx ends while it waits returns a timed-out outcome.
func (d *Dispatcher) ProcessCommand(ctx context.Context, transcript string) (outcome models.CommandOutcome) {
	commandID := uuid.NewString()
	start := time.Now()
	fields := map[string]interface{}{"commandId": commandID}
	if s := models.SessionFrom(ctx); s != nil {
		fields["sessionId"] = s.ID
		fields["employeeId"] = s.EmployeeID
	}
	log := d.logger.With(fields)

	kind := models.IntentUnrecognized
	defer func() {
		if r := recover(); r != nil {
			log.Error("command handler panicked", map[string]interface{}{
				"intent": kind,
				"panic":  fmt.Sprint(r),
			})
			outcome = models.CommandOutcome{
				Success: false,
				Type:    kind,
				Message: MessageInternalError,
				Error:   fmt.Sprint(r),
			}
		}
		outcome.CommandID = commandID
		d.record(ctx, kind, outcome.Success, time.Since(start))
		log.Info("command processed", map[string]interface{}{
			"intent":     kind,
			"success":    outcome.Success,
			"durationMs": time.Since(start).Milliseconds(),
		})
	}()

	release, err := d.streams.acquire(ctx, streamKey(ctx))
	if err != nil {
		kind, _ = d.deps.Classifier.Match(transcript)
		log.Warn("command expired while waiting for its session", map[string]interface{}{
			"intent": kind,
			"error":  err.Error(),
		})
		return models.CommandOutcome{
			Success: false,
			Type:    kind,
			Message: MessageTimedOut,
			Error:   err.Error(),
		}
	}
	defer release()

	kind, keyword := d.deps.Classifier.Match(transcript)
	log.Info("transcript classified", map[string]interface{}{
		"intent":  kind,
		"keyword": keyword,
	})

	switch kind {
	case models.IntentSearch:
		return d.handleSearch(ctx, transcript, log)
	case models.IntentNavigate:
		return d.handleNavigation(transcript)
	case models.IntentSubmitWorkEntry:
		return d.handleWorkEntry(ctx, transcript, log)
	case models.IntentOpenDocument:
		return d.handleDocument(ctx, transcript, log)
	default:
		miss := apperrors.NewClassificationMissError(transcript)
		log.Info(miss.Message, map[string]interface{}{"code": miss.Code})
		return models.CommandOutcome{
			Success: false,
			Type:    models.IntentUnrecognized,
			Message: MessageUnrecognized,
		}
	}
}

// Stream is a transcript subscription whose commands are processed by Run.
type Stream struct {
	d           *Dispatcher
	queue       chan models.Transcript
	unsubscribe func()
}

// Subscribe registers with source immediately, so transcripts delivered
// before Run starts are queued instead of lost.
func (d *Dispatcher) Subscribe(ctx context.Context, source TranscriptSource) *Stream {
	queue := make(chan models.Transcript, d.config.QueueSize)
	unsubscribe := source.Subscribe(func(t models.Transcript) {
		select {
		case queue <- t:
		case <-ctx.Done():
		}
	})
	return &Stream{d: d, queue: queue, unsubscribe: unsubscribe}
}

// Run processes queued transcripts in order until ctx is cancelled, then
// unsubscribes. Every outcome is passed to emit, which may be nil.
func (s *Stream) Run(ctx context.Context, emit func(models.CommandOutcome)) {
	defer s.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.queue:
			out := s.d.ProcessCommand(ctx, string(t))
			if emit != nil {
				emit(out)
			}
		}
	}
}

// Listen subscribes to source and processes each finalized transcript in
// order until ctx is cancelled.
func (d *Dispatcher) Listen(ctx context.Context, source TranscriptSource, emit func(models.CommandOutcome)) {
	d.Subscribe(ctx, source).Run(ctx, emit)
}

func (d *Dispatcher) handleSearch(ctx context.Context, transcript string, log Logger) models.CommandOutcome {
	query := SearchQuery(transcript)
	if query == "" {
		return models.CommandOutcome{Success: false, Type: models.IntentSearch, Message: MessageNoResults}
	}

	res, err := d.deps.Searcher.SearchDocuments(ctx, query)
	if err != nil {
		log.Warn("document search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return models.CommandOutcome{
			Success: false,
			Type:    models.IntentSearch,
			Message: MessageNoResults,
			Error:   err.Error(),
		}
	}

	d.speak(fmt.Sprintf("I found %d relevant documents. %s", len(res.Sources), res.Answer))
	return models.CommandOutcome{Success: true, Type: models.IntentSearch, Data: res}
}

func (d *Dispatcher) handleNavigation(transcript string) models.CommandOutcome {
	route, ok := resolveRoute(d.config.Routes, transcript)
	if !ok {
		return models.CommandOutcome{Success: false, Type: models.IntentNavigate, Message: MessagePageNotFound}
	}

	d.speak("Opening " + route.Keyword)
	return models.CommandOutcome{Success: true, Type: models.IntentNavigate, Route: route.Path}
}

func (d *Dispatcher) handleWorkEntry(ctx context.Context, transcript string, log Logger) models.CommandOutcome {
	res := d.deps.Extractor.Extract(transcript)
	if !res.IsComplete {
		incomplete := apperrors.NewIncompleteEntitiesError(res.Missing)
		log.Info(incomplete.Message, map[string]interface{}{
			"code":    incomplete.Code,
			"missing": incomplete.Details,
		})
		d.speak("I need more information. Please provide: " + strings.Join(res.Missing, ", "))
		return models.CommandOutcome{
			Success: false,
			Type:    models.IntentSubmitWorkEntry,
			Data:    res.Data,
			Missing: res.Missing,
		}
	}

	d.speak("Submitting work entry")
	entry := res.Data
	d.persist(ctx, &entry, log)
	return models.CommandOutcome{Success: true, Type: models.IntentSubmitWorkEntry, Data: entry}
}

// persist submits and backs up a complete entry. Failures are logged and
// never change the outcome.
func (d *Dispatcher) persist(ctx context.Context, entry *models.WorkEntryDraft, log Logger) {
	session := models.SessionFrom(ctx)

	if d.deps.Submitter != nil {
		sctx, cancel := context.WithTimeout(ctx, d.config.EntryTimeout)
		err := d.deps.Submitter.SubmitEntry(sctx, *entry, session)
		cancel()

		submitted := err == nil
		entry.Submitted = &submitted
		metrics.WorkEntryPersistTotal.WithLabelValues("sheets", status(err)).Inc()
		if err != nil {
			serr := apperrors.NewEntrySubmitFailedError(err)
			log.Warn(serr.Message, map[string]interface{}{
				"code":     serr.Code,
				"trainset": entry.Trainset,
				"error":    serr.Details,
			})
		}
	}

	if d.deps.Archiver != nil {
		actx, cancel := context.WithTimeout(ctx, d.config.EntryTimeout)
		id, err := d.deps.Archiver.BackupEntry(actx, *entry, session)
		cancel()

		metrics.WorkEntryPersistTotal.WithLabelValues("postgres", status(err)).Inc()
		if err != nil {
			serr := apperrors.NewEntryBackupFailedError(err)
			log.Warn(serr.Message, map[string]interface{}{
				"code":     serr.Code,
				"trainset": entry.Trainset,
				"error":    serr.Details,
			})
			return
		}
		log.Info("work entry backed up", map[string]interface{}{
			"entryId": strconv.FormatInt(id, 10),
		})
	}
}

func (d *Dispatcher) handleDocument(ctx context.Context, transcript string, log Logger) models.CommandOutcome {
	notFound := models.CommandOutcome{Success: false, Type: models.IntentOpenDocument, Message: MessageDocumentNotFound}

	name := DocumentName(transcript)
	if name == "" {
		return notFound
	}

	res, err := d.deps.Searcher.SearchDocuments(ctx, name)
	if err != nil {
		log.Warn("document lookup failed", map[string]interface{}{
			"document": name,
			"error":    err.Error(),
		})
		return notFound
	}
	if len(res.Sources) == 0 {
		return notFound
	}

	doc := res.Sources[0]
	d.speak("Opening document " + doc.Name)
	return models.CommandOutcome{
		Success: true,
		Type:    models.IntentOpenDocument,
		Data:    models.OpenedDocument{Document: doc},
	}
}

func (d *Dispatcher) speak(text string) {
	if d.deps.Speaker != nil {
		d.deps.Speaker.Speak(text)
	}
}

func (d *Dispatcher) record(ctx context.Context, kind models.Intent, success bool, duration time.Duration) {
	metrics.VoiceCommandsTotal.WithLabelValues(kind.String(), strconv.FormatBool(success)).Inc()
	metrics.VoiceCommandDuration.WithLabelValues(kind.String()).Observe(duration.Seconds())
	if d.deps.Obs != nil {
		d.deps.Obs.RecordCommand(ctx, kind.String(), success)
	}
}

// SearchQuery strips the search verbs from a transcript.
func SearchQuery(transcript string) string {
	return collapse(searchVerbs.ReplaceAllString(transcript, " "))
}

// DocumentName returns the text following "show document" or "open document".
func DocumentName(transcript string) string {
	loc := documentPhrases.FindStringIndex(transcript)
	if loc == nil {
		return ""
	}
	return collapse(transcript[loc[1]:])
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
