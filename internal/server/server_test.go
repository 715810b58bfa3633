package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ruleseek/internal/rules"
	"github.com/Aman-CERP/ruleseek/internal/search"
	"github.com/Aman-CERP/ruleseek/internal/session"
	"github.com/Aman-CERP/ruleseek/pkg/version"
)

func newTestServer(t *testing.T, cfg Config, opts ...Option) *Server {
	t.Helper()
	store := rules.NewStore(rules.DefaultRules(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), rules.SourceDefaults)
	engine, err := search.NewEngine(store, search.WithMaxQueryLength(50))
	require.NoError(t, err)
	s, err := New(cfg, engine, opts...)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_RequiresEngine(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, search.ErrNilDependency)
}

func TestStatus(t *testing.T) {
	// Given: a server with the default corpus and one visitor
	s := newTestServer(t, Config{})
	h := s.Handler()

	// When: the visitor asks for status
	rec := do(t, h, http.MethodGet, "/api/status", "", map[string]string{"X-Session-ID": "session_1"})

	// Then: counts and version are reported
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	st := decode[StatusResponse](t, rec)
	assert.Equal(t, StatusResponse{
		Status:         "ready",
		Message:        ReadyMessage,
		RulesCount:     3,
		UsersCount:     1,
		ActiveSessions: 1,
		Version:        version.Version,
	}, st)
}

func TestSessionTracking(t *testing.T) {
	// Given: a tracker shared with the server
	tracker := session.NewTracker()
	s := newTestServer(t, Config{}, WithTracker(tracker))
	h := s.Handler()

	// When: two visitors make several requests, by header and query
	do(t, h, http.MethodGet, "/api/categories", "", map[string]string{"X-Session-ID": "a"})
	do(t, h, http.MethodGet, "/api/categories", "", map[string]string{"X-Session-ID": "a"})
	do(t, h, http.MethodGet, "/api/categories?sessionId=b", "", nil)
	do(t, h, http.MethodGet, "/api/categories", "", nil)
	do(t, h, http.MethodGet, "/api/categories", "", map[string]string{"X-Session-ID": "bad id!"})

	// Then: exactly two users are registered
	assert.Equal(t, 2, tracker.UserCount())
	assert.Equal(t, 2, tracker.SessionCount())
	assert.Same(t, tracker, s.Tracker())
}

func TestUserStats(t *testing.T) {
	s := newTestServer(t, Config{})
	h := s.Handler()
	do(t, h, http.MethodGet, "/", "", map[string]string{"X-Session-ID": "first"})

	// When: a second visitor asks for stats
	rec := do(t, h, http.MethodGet, "/api/users/stats?sessionId=second", "", nil)

	// Then: it is user number 2 of 2
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body["totalUsers"])
	assert.EqualValues(t, 2, body["activeUsers"])
	assert.EqualValues(t, 2, body["totalSessions"])
	assert.EqualValues(t, 2, body["userNumber"])
	assert.NotEmpty(t, body["currentUserId"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestUserStats_Anonymous(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/users/stats", "", nil)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body["currentUserId"])
	assert.EqualValues(t, 0, body["userNumber"])
}

func TestAsk(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/ask", `{"question":"форма одежды"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AskResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "форма одежды", resp.Question)
	require.NotEmpty(t, resp.Rules)
	assert.Equal(t, "2", resp.Rules[0].Point)
	assert.True(t, resp.Rules[0].Scored)
	assert.Equal(t, len(resp.Rules), resp.TotalFound)
	assert.GreaterOrEqual(t, resp.ProcessingTime, int64(0))
}

func TestAsk_NothingFoundIsEmptyArray(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/ask", `{"question":"абракадабра"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rules":[]`)
	assert.Contains(t, rec.Body.String(), `"totalFound":0`)
}

func TestAsk_BadRequests(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"empty body", "", search.EmptyQuestionMessage},
		{"missing question", `{}`, search.EmptyQuestionMessage},
		{"blank question", `{"question":"   "}`, search.EmptyQuestionMessage},
		{"invalid json", `{"question":`, BadRequestMessage},
		{"wrong type", `{"question":5}`, BadRequestMessage},
		{"too long", `{"question":"` + strings.Repeat("я", 51) + `"}`, "Вопрос слишком длинный"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/api/ask", tt.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.wantErr)
		})
	}
}

func TestRules(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		name       string
		target     string
		wantPoints []string
	}{
		{"all", "/api/rules", []string{"1", "2", "6"}},
		{"all keyword", "/api/rules?category=all", []string{"1", "2", "6"}},
		{"category", "/api/rules?category=" + url.QueryEscape("Внешний вид"), []string{"2"}},
		{"unknown category", "/api/rules?category=nope", []string{}},
		{"search replaces category", "/api/rules?category=nope&search=" + url.QueryEscape("изъятие"), []string{"6"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodGet, tt.target, "", nil)

			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode[RulesResponse](t, rec)
			assert.True(t, resp.Success)
			points := []string{}
			for _, r := range resp.Rules {
				points = append(points, r.Point)
			}
			assert.Equal(t, tt.wantPoints, points)
			assert.Equal(t, len(tt.wantPoints), resp.Total)
		})
	}
}

func TestRules_LongSearchIsBadRequest(t *testing.T) {
	// Given: a server with a 50-rune question limit
	s := newTestServer(t, Config{})

	// When: the search parameter is over the limit
	target := "/api/rules?search=" + url.QueryEscape(strings.Repeat("я", 51))
	rec := do(t, s.Handler(), http.MethodGet, target, "", nil)

	// Then: the request is rejected like an over-long question
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "Вопрос слишком длинный")
}

func TestCategories(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/categories", "", nil)

	resp := decode[CategoriesResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"Общие правила", "Внешний вид", "Процедуры"}, resp.Categories)
}

func TestUnknownAPIPath(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode[ErrorResponse](t, rec).Success)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Config{CORSOrigin: "*"})

	// Preflight is answered without reaching the handlers.
	rec := do(t, s.Handler(), http.MethodOptions, "/api/ask", "", map[string]string{
		"Origin":                        "http://example.com",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID")

	// Normal responses carry the origin header.
	rec = do(t, s.Handler(), http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Disabled(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/categories", "", nil)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverer(t *testing.T) {
	// Given: a handler that panics
	s := newTestServer(t, Config{})
	h := s.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	// When: it is called
	rec := do(t, h, http.MethodGet, "/", "", nil)

	// Then: the generic 500 body is returned
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, ErrorResponse{Success: false, Error: InternalErrorMessage}, resp)
}

func TestStatusRecorder_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}

	var f http.Flusher = sr
	f.Flush()

	assert.True(t, rec.Flushed)
	assert.Same(t, rec, sr.Unwrap())
}

func TestStatic_Embedded(t *testing.T) {
	s := newTestServer(t, Config{StaticDir: filepath.Join(t.TempDir(), "missing")})

	rec := do(t, s.Handler(), http.MethodGet, "/", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Поиск по правилам")

	rec = do(t, s.Handler(), http.MethodPost, "/", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatic_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>custom</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "script.js"), []byte("console.log(1)"), 0o644))
	s := newTestServer(t, Config{StaticDir: dir})

	rec := do(t, s.Handler(), http.MethodGet, "/", "", nil)
	assert.Contains(t, rec.Body.String(), "custom")

	rec = do(t, s.Handler(), http.MethodGet, "/script.js", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")
}

func TestMCPMount(t *testing.T) {
	var hits int
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusAccepted)
	})
	s := newTestServer(t, Config{}, WithMCP("/mcp", mcpHandler))

	rec := do(t, s.Handler(), http.MethodPost, "/mcp", `{}`, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, hits)
}

func TestServe_GracefulShutdown(t *testing.T) {
	// Given: a server on a random port
	s := newTestServer(t, Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	// When: a request succeeds and the context is cancelled
	resp, err := http.Get("http://" + ln.Addr().String() + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	cancel()

	// Then: Serve returns cleanly
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(DefaultShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
