package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/gatekeepertriage/internal/domain"
	apimw "github.com/hamed0406/gatekeepertriage/internal/httpapi/middleware"
	"github.com/hamed0406/gatekeepertriage/internal/repo"
	"github.com/hamed0406/gatekeepertriage/internal/triage"
)

type Marker interface {
	Mark(ctx context.Context, status, alertID string) (*domain.State, error)
}

type Server struct {
	Logger *zap.Logger
	Store  repo.StateStore
	Marker Marker

	// MarksPerMinute throttles POST /api/marks per caller; 0 disables it.
	MarksPerMinute int
	// TrustForwardedFor identifies callers by X-Forwarded-For.
	TrustForwardedFor bool

	// marks are read-modify-write on the state document
	mu sync.Mutex
}

func NewServer(l *zap.Logger, store repo.StateStore, m Marker) *Server {
	return &Server{Logger: l, Store: store, Marker: m}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAny(keys))
		r.Get("/api/state", s.handleGetState)
		r.Get("/api/handled/{id}", s.handleGetHandled)
	})
	r.Group(func(r chi.Router) {
		r.Use(apimw.RequireAdmin(keys))
		r.Use(apimw.RateLimit(apimw.RateLimitConfig{
			PerMinute:         s.MarksPerMinute,
			Burst:             10,
			Keys:              keys,
			TrustForwardedFor: s.TrustForwardedFor,
		}))
		r.Post("/api/marks", s.handleMark)
	})

	return r
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	st, err := s.Store.Load(r.Context())
	if err != nil {
		s.Logger.Error("state_load_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load state")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetHandled(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	st, err := s.Store.Load(r.Context())
	if err != nil {
		s.Logger.Error("state_load_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load state")
		return
	}
	resp := map[string]any{"id": id, "status": st.StatusOf(id)}
	if e, ok := st.Handled[id]; ok && e.AtIso != nil {
		resp["atIso"] = e.AtIso
	}
	writeJSON(w, http.StatusOK, resp)
}

type markPayload struct {
	AlertID string `json:"alertId"`
	Status  string `json:"status"`
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	var p markPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	s.mu.Lock()
	st, err := s.Marker.Mark(r.Context(), p.Status, p.AlertID)
	s.mu.Unlock()
	switch {
	case errors.Is(err, triage.ErrInvalidStatus), errors.Is(err, triage.ErrEmptyAlertID):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.Logger.Error("mark_failed", zap.String("alert_id", p.AlertID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not save state")
		return
	}

	id := strings.TrimSpace(p.AlertID)
	s.Logger.Info("api_mark", zap.String("alert_id", id), zap.String("status", string(st.StatusOf(id))))
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"alertId": id,
		"status":  st.StatusOf(id),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
