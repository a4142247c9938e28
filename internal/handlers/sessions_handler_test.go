package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/zenorc/zenorc/internal/sessions"
)

type mockLLM struct {
	analysis   string
	analyzeErr error
	saved      string
	reply      string
}

func (m *mockLLM) UploadContext(ctx context.Context, path, displayName string) (string, error) {
	return "files/ctx-1", nil
}

func (m *mockLLM) Analyze(ctx context.Context, fileName string) (string, error) {
	if m.analyzeErr != nil {
		return "", m.analyzeErr
	}
	return m.analysis, nil
}

func (m *mockLLM) Refactor(ctx context.Context, fileName, analysis string) (string, string, error) {
	return m.saved, "raw model text", nil
}

func (m *mockLLM) Chat(ctx context.Context, fileName, systemContext string) (string, error) {
	return m.reply, nil
}

func (m *mockLLM) OutputPath(filename string) string {
	return "ai_agents/" + filename
}

func newTestRouter(llm LLM, store *sessions.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterSessionRoutes(r, HandlerConfig{LLM: llm, Sessions: store})
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	r := newTestRouter(&mockLLM{}, sessions.NewStore())

	w := doJSON(t, r, http.MethodGet, "/api/history/none", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sess sessions.Session
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if len(sess.History) != 0 || sess.FileName != "" {
		t.Fatalf("expected empty session, got %+v", sess)
	}
}

func TestAnalyzeRequiresIngest(t *testing.T) {
	r := newTestRouter(&mockLLM{analysis: "x.go is messy"}, sessions.NewStore())

	w := doJSON(t, r, http.MethodPost, "/api/analyze", `{"session_id":"s1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before ingest, got %d", w.Code)
	}
}

func TestAnalyzeStoresResultInSession(t *testing.T) {
	store := sessions.NewStore()
	store.SetFileName("s1", "files/ctx-1")
	r := newTestRouter(&mockLLM{analysis: "x.go is messy"}, store)

	w := doJSON(t, r, http.MethodPost, "/api/analyze", `{"session_id":"s1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	sess := store.Get("s1")
	if sess.Analysis != "x.go is messy" {
		t.Fatalf("analysis not stored: %+v", sess)
	}
	if len(sess.History) != 1 || sess.History[0].Role != "model" {
		t.Fatalf("expected model history entry, got %v", sess.History)
	}
}

func TestRefactorRequiresAnalysis(t *testing.T) {
	store := sessions.NewStore()
	store.SetFileName("s1", "files/ctx-1")
	r := newTestRouter(&mockLLM{saved: "x_refactored.go"}, store)

	w := doJSON(t, r, http.MethodPost, "/api/refactor", `{"session_id":"s1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before analysis, got %d", w.Code)
	}

	store.SetAnalysis("s1", "x.go is messy")
	w = doJSON(t, r, http.MethodPost, "/api/refactor", `{"session_id":"s1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if store.Get("s1").GeneratedFile != "x_refactored.go" {
		t.Fatalf("generated file not stored")
	}
}

func TestChatAppendsBothTurns(t *testing.T) {
	store := sessions.NewStore()
	r := newTestRouter(&mockLLM{reply: "hi there"}, store)

	w := doJSON(t, r, http.MethodPost, "/api/chat", `{"session_id":"s1","data":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	hist := store.Get("s1").History
	if len(hist) != 2 || hist[0].Role != "user" || hist[1].Role != "model" {
		t.Fatalf("unexpected history: %v", hist)
	}
}

func TestMissingSessionIDRejected(t *testing.T) {
	r := newTestRouter(&mockLLM{}, sessions.NewStore())

	w := doJSON(t, r, http.MethodPost, "/api/chat", `{"data":"hello"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing session_id, got %d", w.Code)
	}
}

func TestIngestRejectsUntrustedURL(t *testing.T) {
	r := newTestRouter(&mockLLM{}, sessions.NewStore())

	w := doJSON(t, r, http.MethodPost, "/api/ingest",
		`{"session_id":"s1","data":"https://gitlab.com/a/b"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for untrusted url, got %d", w.Code)
	}
}

func TestBuildChatContextInjectsMemory(t *testing.T) {
	sess := sessions.Session{
		History: []sessions.Message{
			{Role: "system", Content: "ingested"},
			{Role: "user", Content: "what changed?"},
		},
		Analysis:      "x.go is messy",
		GeneratedFile: "x_refactored.go",
	}
	got := buildChatContext(sess)

	for _, want := range []string{
		"CODEBASE ANALYSIS",
		"x.go is messy",
		"x_refactored.go",
		"user: what changed?",
		"Assistant:",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("context missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "system: ingested") {
		t.Fatalf("system messages must be excluded from chat context")
	}
}
