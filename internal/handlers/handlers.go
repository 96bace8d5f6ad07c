package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"reciclaai/db"
	"reciclaai/internal/auth"
	"reciclaai/internal/httperr"
)

// Geocoder — внешний сборщик координат, сбои не прерывают операции
type Geocoder interface {
	Lookup(ctx context.Context, street, number, district, city, state, postalCode string) (float64, float64, error)
}

// Handler оборачивает Storage и резолвер авторизации
type Handler struct {
	Store StorageInterface
	Auth  *auth.TokenManager
	Geo   Geocoder
	Log   *zap.Logger
}

// NewHandler создает новый Handler
func NewHandler(store StorageInterface, tokens *auth.TokenManager, geo Geocoder, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Store: store, Auth: tokens, Geo: geo, Log: log}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError сводит ошибки хранилища и бизнес-ошибки к таксономии ответов.
// ErrNoMatch означает проигранную гонку: предварительные проверки обработчика
// уже прошли, но условное обновление не нашло строку в ожидаемом состоянии.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var he *httperr.Error
	switch {
	case errors.As(err, &he):
	case errors.Is(err, sql.ErrNoRows):
		err = httperr.NotFound("not found")
	case errors.Is(err, db.ErrNoMatch):
		err = httperr.Conflict("request state changed concurrently")
	case errors.Is(err, db.ErrDuplicate):
		err = httperr.Conflict("already exists")
	default:
		h.Log.Error("internal error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	httperr.Write(w, err)
}

// resolveRole резолвит контекст авторизации и требует конкретную роль
func (h *Handler) resolveRole(r *http.Request, role string) (*auth.Context, error) {
	actor, err := h.Auth.Resolve(r)
	if err != nil {
		return nil, err
	}
	if actor.Role != role {
		return nil, httperr.Forbidden("requires " + role + " role")
	}
	return actor, nil
}
