// Package vectorstore reads and writes the managed Postgres database: the
// search_documents similarity function and the work_entries table.
package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"voice-agent/internal/models"
)

var (
	ErrVectorSearchFailed    = errors.New("VECTOR_SEARCH_FAILED")
	ErrSearchFunctionMissing = errors.New("SEARCH_FUNCTION_MISSING")
	ErrEntryBackupFailed     = errors.New("ENTRY_BACKUP_FAILED")
)

// undefined_function
const pqUndefinedFunction = "42883"

const (
	searchDocumentsQuery = `SELECT name, content FROM search_documents($1, $2)`

	insertWorkEntryQuery = `
		INSERT INTO work_entries (trainset, system, problem, action_taken, status, employee_id, session_id, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'voice')
		RETURNING id`
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Store struct {
	db     *sql.DB
	logger Logger
}

func NewStore(db *sql.DB, log Logger) *Store {
	return &Store{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "vectorstore"}),
	}
}

// SearchDocuments returns up to limit documents ordered by similarity.
func (s *Store) SearchDocuments(ctx context.Context, query string, limit int) ([]models.DocumentReference, error) {
	rows, err := s.db.QueryContext(ctx, searchDocumentsQuery, query, limit)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUndefinedFunction {
			return nil, fmt.Errorf("%w: %v", ErrSearchFunctionMissing, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrVectorSearchFailed, err)
	}
	defer rows.Close()

	docs := make([]models.DocumentReference, 0, limit)
	for rows.Next() {
		var name string
		var content sql.NullString
		if err := rows.Scan(&name, &content); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrVectorSearchFailed, err)
		}
		docs = append(docs, models.DocumentReference{Name: name, Snippet: content.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVectorSearchFailed, err)
	}

	s.logger.Debug("vector search completed", map[string]interface{}{
		"limit":   limit,
		"results": len(docs),
	})
	return docs, nil
}

// BackupEntry stores a copy of a submitted work entry and returns its id.
func (s *Store) BackupEntry(ctx context.Context, entry models.WorkEntryDraft, session *models.Session) (int64, error) {
	var employeeID, sessionID sql.NullString
	if session != nil {
		employeeID = sql.NullString{String: session.EmployeeID, Valid: session.EmployeeID != ""}
		sessionID = sql.NullString{String: session.ID, Valid: session.ID != ""}
	}

	var id int64
	err := s.db.QueryRowContext(ctx, insertWorkEntryQuery,
		entry.Trainset,
		entry.System,
		entry.Problem,
		entry.ActionTaken,
		string(models.StatusPending),
		employeeID,
		sessionID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEntryBackupFailed, err)
	}

	s.logger.Info("work entry backed up", map[string]interface{}{
		"entryId":  id,
		"trainset": entry.Trainset,
	})
	return id, nil
}
