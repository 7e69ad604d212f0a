package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voice-agent/internal/clients/searchcache"
	"voice-agent/internal/common/config"
	apperrors "voice-agent/internal/common/errors"
	"voice-agent/internal/models"
	"voice-agent/internal/server"
)

// backendStub stands in for the spreadsheet backend and the AI gateway.
type backendStub struct {
	mu       sync.Mutex
	searches int
	entries  []map[string]string
}

func (b *backendStub) sheets(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Form.Get("action") {
	case "aiSearch":
		b.searches++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"answer":  "Replace the brake caliper seals.",
			"sources": []map[string]string{
				{"id": "d1", "name": "Brake Manual", "snippet": "caliper seals", "url": "https://docs/brake"},
			},
		})
	case "submitEntry":
		entry := make(map[string]string)
		for k := range r.Form {
			entry[k] = r.Form.Get(k)
		}
		b.entries = append(b.entries, entry)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	default:
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "unknown action"})
	}
}

func (b *backendStub) generate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"text":    "Likely worn caliper seals.",
	})
}

func newTestApp(t *testing.T) (*app, *backendStub, *miniredis.Miniredis) {
	t.Helper()

	stub := &backendStub{}
	sheetsSrv := httptest.NewServer(http.HandlerFunc(stub.sheets))
	t.Cleanup(sheetsSrv.Close)
	genaiSrv := httptest.NewServer(http.HandlerFunc(stub.generate))
	t.Cleanup(genaiSrv.Close)

	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.App.Name = "voice-agent-test"
	cfg.Speech.Locale = "en-IN"
	cfg.Speech.Rate = 1.0
	cfg.Pipeline = config.PipelineConfig{
		StageTimeout:     5000,
		RetrievalMode:    config.RetrievalModeDirect,
		RetrievalBackend: config.RetrievalBackendSheets,
		SimilarityLimit:  5,
		CacheTTL:         60000,
	}
	cfg.Database.Redis = config.RedisConfig{Enabled: true, Address: mr.Addr()}
	cfg.APIs.GenAI.Provider = config.GenAIProviderHTTP
	cfg.APIs.GenAI.BaseURL = genaiSrv.URL
	cfg.APIs.GenAI.Timeout = 5000
	cfg.APIs.Sheets.BaseURL = sheetsSrv.URL
	cfg.APIs.Sheets.Timeout = 5000

	a, err := newApp(context.Background(), cfg, zap.NewNop(), 1)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, stub, mr
}

func postJSON(t *testing.T, url string, body interface{}) map[string]interface{} {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ==========================
// Wiring
// ==========================

func TestNewApp_ConnectionFailureIsReported(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Redis = config.RedisConfig{Enabled: true, Address: "127.0.0.1:1"}

	_, err := newApp(context.Background(), cfg, zap.NewNop(), 1)

	var serr *apperrors.StandardError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, apperrors.ErrCodeDatabaseConnection, serr.Code)
	assert.Contains(t, serr.Details, "Redis connection failed after 1 attempts")
}

func TestNewApp_ReadinessChecksCoverConnectedBackends(t *testing.T) {
	a, _, _ := newTestApp(t)

	checks := a.readinessChecks()

	assert.Contains(t, checks, "redis")
	assert.NotContains(t, checks, "postgres")
	assert.NoError(t, checks["redis"](context.Background()))
}

func TestApp_SearchCommandIsCached(t *testing.T) {
	a, stub, mr := newTestApp(t)
	d := a.newDispatcher(nil)

	first := d.ProcessCommand(context.Background(), "search brake caliper")
	second := d.ProcessCommand(context.Background(), "find brake caliper")

	require.True(t, first.Success, first.Error)
	require.True(t, second.Success, second.Error)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, 1, stub.searches)
	assert.True(t, mr.Exists(searchcache.Key("brake caliper")))
}

func TestApp_WorkEntrySubmittedWithSession(t *testing.T) {
	a, stub, _ := newTestApp(t)
	d := a.newDispatcher(nil)
	ctx := models.WithSession(context.Background(), &models.Session{
		ID:         "s-1",
		EmployeeID: "E042",
		Role:       models.RoleTechnician,
	})

	out := d.ProcessCommand(ctx, "submit entry trainset TS04 system Door System problem door not closing action replaced sensor")

	require.True(t, out.Success, out.Error)
	require.Len(t, stub.entries, 1)
	assert.Equal(t, "E042", stub.entries[0]["employeeId"])
	assert.Equal(t, "TS04", stub.entries[0]["trainset"])
	assert.Equal(t, string(models.StatusPending), stub.entries[0]["status"])
}

// ==========================
// HTTP surface
// ==========================

func TestApp_ServesCommandsAndSearch(t *testing.T) {
	a, _, _ := newTestApp(t)
	srv := server.New(&server.Config{}, server.Dependencies{
		Commands: a.newDispatcher(nil),
		Search:   a.pipeline,
		Sessions: a.newVoiceSession,
		Checks:   a.readinessChecks(),
	}, serverLogger{a.log})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	nav := postJSON(t, ts.URL+"/api/voice/command", map[string]string{"transcript": "go to dashboard"})
	assert.Equal(t, true, nav["success"])
	assert.Equal(t, "/dashboard", nav["route"])

	res := postJSON(t, ts.URL+"/api/voice/search", map[string]interface{}{
		"query":  "brake caliper",
		"agents": []string{"document", "fault"},
	})
	assert.Equal(t, true, res["success"])
	results, ok := res["results"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, results, models.AgentDocuments)
	assert.Contains(t, results, models.AgentFaultPatterns)
	assert.NotContains(t, results, models.AgentRecommendations)

	resp, err := http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_UnrecognizedCommandOverHTTP(t *testing.T) {
	a, _, _ := newTestApp(t)
	srv := server.New(&server.Config{}, server.Dependencies{
		Commands: a.newDispatcher(nil),
		Search:   a.pipeline,
	}, serverLogger{a.log})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	out := postJSON(t, ts.URL+"/api/voice/command", map[string]string{"transcript": "make me a coffee"})

	assert.Equal(t, false, out["success"])
	assert.True(t, strings.HasPrefix(out["message"].(string), "Command not recognized"))
}
