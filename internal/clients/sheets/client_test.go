package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-agent/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

// ==========================
// Test Helper Functions
// ==========================

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)

	client := NewClient(&Config{BaseURL: server.URL, Timeout: 2 * time.Second}, NewTestLogger(t))
	return client, server
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// ==========================
// Search Tests
// ==========================

func TestClient_Search_RequestShape(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "aiSearch", r.PostForm.Get("action"))
		assert.Equal(t, "for brake system fault", r.PostForm.Get("query"))
		writeJSON(w, `{"success":true,"answer":"ok","sources":[]}`)
	})

	_, err := client.Search(context.Background(), "for brake system fault")
	require.NoError(t, err)
}

func TestClient_Search_ResponseMapping(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected *models.SearchResult
	}{
		{
			name: "answer and sources",
			body: `{"success":true,"answer":"Replace the brake pads.","sources":[{"id":"d1","name":"Brake Manual","snippet":"pad wear limits"}]}`,
			expected: &models.SearchResult{
				Answer:  "Replace the brake pads.",
				Sources: []models.DocumentReference{{ID: "d1", Name: "Brake Manual", Snippet: "pad wear limits"}},
			},
		},
		{
			name: "results used when sources missing",
			body: `{"success":true,"results":[{"fileId":"f9","title":"Door Guide","content":"sensor alignment"}]}`,
			expected: &models.SearchResult{
				Answer:  models.FallbackAnswer,
				Sources: []models.DocumentReference{{ID: "f9", Name: "Door Guide", Snippet: "sensor alignment"}},
			},
		},
		{
			name: "answer falls back to first result snippet",
			body: `{"success":true,"results":[{"name":"HVAC Notes","snippet":"clean the filters"}]}`,
			expected: &models.SearchResult{
				Answer:  "clean the filters",
				Sources: []models.DocumentReference{{Name: "HVAC Notes", Snippet: "clean the filters"}},
			},
		},
		{
			name: "empty sources list is not replaced by results",
			body: `{"success":true,"sources":[],"results":[{"name":"Stale Doc","snippet":"old text"}]}`,
			expected: &models.SearchResult{
				Answer:  models.FallbackAnswer,
				Sources: []models.DocumentReference{},
			},
		},
		{
			name: "answer falls back to first source snippet",
			body: `{"success":true,"sources":[{"name":"Bogie Manual","snippet":"check the dampers"}],"results":[{"snippet":"ignored"}]}`,
			expected: &models.SearchResult{
				Answer:  "check the dampers",
				Sources: []models.DocumentReference{{Name: "Bogie Manual", Snippet: "check the dampers"}},
			},
		},
		{
			name: "no sources at all",
			body: `{"success":true}`,
			expected: &models.SearchResult{
				Answer:  models.FallbackAnswer,
				Sources: []models.DocumentReference{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})

			res, err := client.Search(context.Background(), "brakes")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res)
		})
	}
}

func TestClient_Search_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
		errText string
	}{
		{
			name: "backend reports failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"success":false,"error":"Index not built"}`)
			},
			errText: "Index not built",
		},
		{
			name: "backend failure without message",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `{"success":false}`)
			},
			errText: "AI Search failed",
		},
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			errText: "status 502",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, `<html>`)
			},
			errText: "decode error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, tt.handler)

			res, err := client.Search(context.Background(), "brakes")
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRetrievalFailed))
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestClient_Search_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(&Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, NewTestLogger(t))

	res, err := client.Search(context.Background(), "brakes")
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrRetrievalTimeout), "got %v", err)
}

// ==========================
// Submit Entry Tests
// ==========================

func TestClient_SubmitEntry(t *testing.T) {
	entry := models.WorkEntryDraft{
		Trainset:    "TS04",
		System:      "Door System",
		Problem:     "door not closing",
		ActionTaken: "replaced sensor",
	}
	session := &models.Session{ID: "s1", EmployeeID: "EMP042", Name: "R. Iyer", Role: models.RoleTechnician}

	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "submitEntry", r.PostForm.Get("action"))
		assert.Equal(t, "TS04", r.PostForm.Get("trainset"))
		assert.Equal(t, "Door System", r.PostForm.Get("system"))
		assert.Equal(t, "door not closing", r.PostForm.Get("problem"))
		assert.Equal(t, "replaced sensor", r.PostForm.Get("actionTaken"))
		assert.Equal(t, "Pending", r.PostForm.Get("status"))
		assert.Equal(t, "EMP042", r.PostForm.Get("employeeId"))
		assert.Equal(t, "R. Iyer", r.PostForm.Get("employeeName"))
		writeJSON(w, `{"success":true}`)
	})

	require.NoError(t, client.SubmitEntry(context.Background(), entry, session))
}

func TestClient_SubmitEntry_Rejected(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"success":false,"error":"Sheet locked"}`)
	})

	err := client.SubmitEntry(context.Background(), models.WorkEntryDraft{Trainset: "TS01"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmitFailed))
	assert.Contains(t, err.Error(), "Sheet locked")
}
