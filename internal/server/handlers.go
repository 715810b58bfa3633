package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	rerrors "github.com/Aman-CERP/ruleseek/internal/errors"
	"github.com/Aman-CERP/ruleseek/internal/search"
	"github.com/Aman-CERP/ruleseek/pkg/version"
)

// User-facing messages.
const (
	ReadyMessage         = "Система готова к работе"
	InternalErrorMessage = "Внутренняя ошибка сервера"
	BadRequestMessage    = "Некорректный запрос"
	NotFoundMessage      = "Не найдено"
)

// maxBodyBytes caps POST bodies. Questions are limited far below this.
const maxBodyBytes = 64 << 10

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	RulesCount     int    `json:"rulesCount"`
	UsersCount     int    `json:"usersCount"`
	ActiveSessions int    `json:"activeSessions"`
	Version        string `json:"version"`
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the success body of POST /api/ask.
type AskResponse struct {
	Success        bool                `json:"success"`
	Question       string              `json:"question"`
	Rules          []search.ScoredRule `json:"rules"`
	TotalFound     int                 `json:"totalFound"`
	ProcessingTime int64               `json:"processingTime"`
}

// RulesResponse is the body of GET /api/rules.
type RulesResponse struct {
	Success bool                `json:"success"`
	Rules   []search.ScoredRule `json:"rules"`
	Total   int                 `json:"total"`
}

// CategoriesResponse is the body of GET /api/categories.
type CategoriesResponse struct {
	Success    bool     `json:"success"`
	Categories []string `json:"categories"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	n := s.engine.Store().Len()
	s.logger.DebugContext(r.Context(), "status requested", slog.Int("rules", n))
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Status:         "ready",
		Message:        ReadyMessage,
		RulesCount:     n,
		UsersCount:     s.tracker.UserCount(),
		ActiveSessions: s.tracker.SessionCount(),
		Version:        version.Version,
	})
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.tracker.Stats(sessionIDFrom(r)))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, BadRequestMessage)
		return
	}

	answer, err := s.engine.Ask(r.Context(), req.Question)
	if err != nil {
		if re, ok := rerrors.As(err); ok && re.Category == rerrors.CategoryValidation {
			s.writeError(w, http.StatusBadRequest, re.Message)
			return
		}
		s.logger.ErrorContext(r.Context(), "search failed",
			slog.String("question", req.Question),
			slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, InternalErrorMessage)
		return
	}

	s.logger.InfoContext(r.Context(), "question answered",
		slog.String("question", req.Question),
		slog.Int("found", answer.TotalFound),
		slog.Duration("elapsed", answer.ProcessingTime))

	s.writeJSON(w, http.StatusOK, AskResponse{
		Success:        true,
		Question:       req.Question,
		Rules:          nonNil(answer.Rules),
		TotalFound:     answer.TotalFound,
		ProcessingTime: answer.ProcessingTime.Milliseconds(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, search := q.Get("category"), q.Get("search")

	list, err := s.engine.Rules(r.Context(), category, search)
	if err != nil {
		if re, ok := rerrors.As(err); ok && re.Category == rerrors.CategoryValidation {
			s.writeError(w, http.StatusBadRequest, re.Message)
			return
		}
		s.logger.ErrorContext(r.Context(), "rules listing failed", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, InternalErrorMessage)
		return
	}

	s.logger.DebugContext(r.Context(), "rules listed",
		slog.String("category", category),
		slog.String("search", search),
		slog.Int("total", len(list)))
	s.writeJSON(w, http.StatusOK, RulesResponse{
		Success: true,
		Rules:   nonNil(list),
		Total:   len(list),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	categories := s.engine.Categories()
	if categories == nil {
		categories = []string{}
	}
	s.writeJSON(w, http.StatusOK, CategoriesResponse{Success: true, Categories: categories})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusNotFound, NotFoundMessage)
}

// writeJSON encodes value as JSON. Encoding errors usually mean the client
// went away, so they are only logged.
func (s *Server) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.logger.Warn("writing JSON response", slog.String("error", err.Error()), slog.Int("status", status))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Success: false, Error: message})
}

// sessionIDFrom reads the visitor session from the X-Session-ID header,
// falling back to the sessionId query parameter.
func sessionIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Session-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("sessionId"))
}

func nonNil(rules []search.ScoredRule) []search.ScoredRule {
	if rules == nil {
		return []search.ScoredRule{}
	}
	return rules
}
