package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/models"
)

var ErrRetrievalFailed = errors.New("RETRIEVAL_FAILED")

// VectorSearcher finds documents by similarity to a query.
type VectorSearcher interface {
	SearchDocuments(ctx context.Context, query string, limit int) ([]models.DocumentReference, error)
}

// SimilarityRetriever answers a query from the closest stored documents. When
// the vector search finds nothing it defers to the fallback retriever.
type SimilarityRetriever struct {
	searcher  VectorSearcher
	generator TextGenerator
	fallback  DocumentRetriever
	limit     int
	logger    Logger
}

// NewSimilarityRetriever builds a retriever. fallback may be nil.
func NewSimilarityRetriever(searcher VectorSearcher, generator TextGenerator, fallback DocumentRetriever, limit int, log Logger) *SimilarityRetriever {
	if limit <= 0 {
		limit = 5
	}
	return &SimilarityRetriever{
		searcher:  searcher,
		generator: generator,
		fallback:  fallback,
		limit:     limit,
		logger: log.With(map[string]interface{}{
			"component": "similarity-retriever",
		}),
	}
}

func (r *SimilarityRetriever) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	docs, err := r.searcher.SearchDocuments(ctx, query, r.limit)
	if err != nil {
		if r.fallback == nil || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
		}
		serr := apperrors.NewVectorSearchFailedError(err)
		r.logger.Warn("vector search failed, using fallback retriever", map[string]interface{}{
			"code":  serr.Code,
			"error": serr.Details,
		})
		return r.fallback.Search(ctx, query)
	}

	if len(docs) == 0 {
		if r.fallback != nil {
			r.logger.Info("vector search returned no documents, using fallback retriever", nil)
			return r.fallback.Search(ctx, query)
		}
		return &models.SearchResult{Sources: []models.DocumentReference{}}, nil
	}

	answer, err := r.generator.Generate(ctx, BuildAnswerPrompt(query, docs))
	if err != nil || strings.TrimSpace(answer) == "" {
		fields := map[string]interface{}{"documentCount": len(docs)}
		if err != nil {
			fields["error"] = err.Error()
		}
		r.logger.Warn("answer generation failed, returning documents only", fields)

		answer = docs[0].Snippet
		if answer == "" {
			answer = models.FallbackAnswer
		}
	}

	return &models.SearchResult{Answer: answer, Sources: docs}, nil
}
