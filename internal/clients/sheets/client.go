// Package sheets talks to the spreadsheet-backed document and work-entry
// backend. Every call is a form-encoded POST carrying an action parameter.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	commonhttp "voice-agent/internal/common/http"
	"voice-agent/internal/models"
)

const (
	ActionAISearch    = "aiSearch"
	ActionSubmitEntry = "submitEntry"

	defaultSearchError = "AI Search failed"
)

var (
	ErrRetrievalFailed  = errors.New("RETRIEVAL_FAILED")
	ErrRetrievalTimeout = errors.New("RETRIEVAL_TIMEOUT")
	ErrSubmitFailed     = errors.New("ENTRY_SUBMIT_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	config *Config
	client *commonhttp.Client
	logger Logger
}

func NewClient(config *Config, log Logger) *Client {
	return &Client{
		config: config,
		client: commonhttp.NewClient(0),
		logger: log.With(map[string]interface{}{
			"component": "sheets",
		}),
	}
}

type source struct {
	ID      string `json:"id"`
	FileID  string `json:"fileId"`
	URL     string `json:"url"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
}

func (s source) reference() models.DocumentReference {
	ref := models.DocumentReference{
		ID:      s.ID,
		Name:    s.Name,
		Snippet: s.Snippet,
		URL:     s.URL,
	}
	if ref.ID == "" {
		ref.ID = s.FileID
	}
	if ref.Name == "" {
		ref.Name = s.Title
	}
	if ref.Snippet == "" {
		ref.Snippet = s.Content
	}
	return ref
}

type searchResponse struct {
	Success bool     `json:"success"`
	Answer  string   `json:"answer"`
	Sources []source `json:"sources"`
	Results []source `json:"results"`
	Error   string   `json:"error"`
}

// Search runs the backend's AI search for query.
func (c *Client) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	var resp searchResponse
	form := url.Values{
		"action": {ActionAISearch},
		"query":  {query},
	}
	if err := c.post(ctx, form, &resp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = defaultSearchError
		}
		return nil, fmt.Errorf("%w: %s", ErrRetrievalFailed, msg)
	}

	// An explicit sources list wins even when empty; results is only read
	// when sources is absent.
	raw := resp.Sources
	if raw == nil {
		raw = resp.Results
	}
	sources := make([]models.DocumentReference, 0, len(raw))
	for _, s := range raw {
		sources = append(sources, s.reference())
	}

	answer := resp.Answer
	if answer == "" && len(raw) > 0 {
		answer = raw[0].Snippet
	}
	if answer == "" {
		answer = models.FallbackAnswer
	}

	c.logger.Info("search completed", map[string]interface{}{
		"query":       query,
		"sourceCount": len(sources),
	})

	return &models.SearchResult{Answer: answer, Sources: sources}, nil
}

type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SubmitEntry records a completed work entry with status Pending.
func (c *Client) SubmitEntry(ctx context.Context, entry models.WorkEntryDraft, session *models.Session) error {
	form := url.Values{
		"action":      {ActionSubmitEntry},
		"trainset":    {entry.Trainset},
		"system":      {entry.System},
		"problem":     {entry.Problem},
		"actionTaken": {entry.ActionTaken},
		"status":      {string(models.StatusPending)},
		"source":      {"voice"},
	}
	if session != nil {
		form.Set("employeeId", session.EmployeeID)
		if session.Name != "" {
			form.Set("employeeName", session.Name)
		}
	}

	var resp submitResponse
	if err := c.post(ctx, form, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrSubmitFailed, resp.Error)
	}

	c.logger.Info("work entry submitted", map[string]interface{}{
		"trainset": entry.Trainset,
	})
	return nil
}

// post bounds the call by the configured timeout; the shared HTTP client has
// none of its own.
func (c *Client) post(ctx context.Context, form url.Values, out interface{}) error {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	resp, err := c.client.PostForm(ctx, c.config.BaseURL, form)
	if err != nil {
		c.logger.Error("backend request failed", map[string]interface{}{
			"action": form.Get("action"),
			"error":  err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error: %v", err)
	}
	return nil
}
