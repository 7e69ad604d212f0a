// Package docindex retrieves documents from the Elasticsearch document index.
package docindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"voice-agent/internal/models"
)

var (
	ErrRetrievalFailed  = errors.New("RETRIEVAL_FAILED")
	ErrRetrievalTimeout = errors.New("RETRIEVAL_TIMEOUT")
	ErrIndexNotFound    = errors.New("INDEX_NOT_FOUND")
)

const snippetLength = 200

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	Index string
	Size  int
}

type Retriever struct {
	config *Config
	client *elasticsearch.Client
	logger Logger
}

func NewRetriever(config *Config, client *elasticsearch.Client, log Logger) *Retriever {
	return &Retriever{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{
			"component": "docindex",
			"index":     config.Index,
		}),
	}
}

// buildQuery matches the query against document names, body text and OCR
// output, with names weighted highest.
func buildQuery(query string, size int) map[string]interface{} {
	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^2", "content", "ocr_text"},
				"type":   "best_fields",
			},
		},
		"highlight": map[string]interface{}{
			"fragment_size":       snippetLength,
			"number_of_fragments": 1,
			"fields": map[string]interface{}{
				"content":  map[string]interface{}{},
				"ocr_text": map[string]interface{}{},
			},
		},
		"_source": []string{"name", "url", "content"},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Content string `json:"content"`
			} `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *Retriever) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	body, _ := json.Marshal(buildQuery(query, r.config.Size))

	req := esapi.SearchRequest{
		Index: []string{r.config.Index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrRetrievalTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, r.config.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrRetrievalFailed, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrRetrievalFailed, err)
	}

	sources := make([]models.DocumentReference, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		sources = append(sources, models.DocumentReference{
			ID:      hit.ID,
			Name:    hit.Source.Name,
			Snippet: snippet(hit.Highlight, hit.Source.Content),
			URL:     hit.Source.URL,
		})
	}

	answer := models.FallbackAnswer
	if len(sources) > 0 && sources[0].Snippet != "" {
		answer = sources[0].Snippet
	}

	r.logger.Info("index search completed", map[string]interface{}{
		"query": query,
		"hits":  len(sources),
	})

	return &models.SearchResult{Answer: answer, Sources: sources}, nil
}

func snippet(highlight map[string][]string, content string) string {
	for _, field := range []string{"content", "ocr_text"} {
		if frags := highlight[field]; len(frags) > 0 {
			return frags[0]
		}
	}
	if runes := []rune(content); len(runes) > snippetLength {
		return strings.TrimSpace(string(runes[:snippetLength])) + "..."
	}
	return content
}
