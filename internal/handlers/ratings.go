package handlers

import (
	"encoding/json"
	"net/http"

	"reciclaai/internal/httperr"
	"reciclaai/internal/lifecycle"
	"reciclaai/internal/reputation"
	"reciclaai/models"
)

type ratingRequest struct {
	CollectionID int         `json:"collectionId"`
	Score        json.Number `json:"score"`
	// Комментарий принимается для совместимости, но не сохраняется:
	// агрегат хранит только среднее и счётчик
	Comment string `json:"comment"`
}

type ratingResponse struct {
	CollectionID   int    `json:"collectionId"`
	UpdatedAverage string `json:"updatedAverage"`
}

func (h *Handler) decodeRating(w http.ResponseWriter, r *http.Request) (*ratingRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, httperr.Validation("invalid JSON format")
	}
	defer r.Body.Close()
	if req.CollectionID <= 0 {
		return nil, httperr.Validation("collectionId field is required")
	}
	return &req, nil
}

// RateProducerHandler обрабатывает POST /api/ratings/producer:
// коллектор, закреплённый за заявкой, оценивает её производителя
func (h *Handler) RateProducerHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCollector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	input, err := h.decodeRating(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	score, err := reputation.ParseScore(input.Score.String())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	request, err := h.getRequest(r, input.CollectionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !lifecycle.IsRatable(request.Status) {
		h.writeError(w, r, httperr.InvalidState("request cannot be rated in status "+request.Status))
		return
	}
	if request.CollectorID == nil || *request.CollectorID != actor.ActorID {
		h.writeError(w, r, httperr.Forbidden("only the collector assigned to the request may rate its producer"))
		return
	}

	updated, err := h.Store.SubmitProducerRating(r.Context(), request.ID, request.ProducerID, score)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, ratingResponse{CollectionID: request.ID, UpdatedAverage: updated})
}

// RateCollectorHandler обрабатывает POST /api/ratings/collector:
// производитель-владелец заявки оценивает её коллектора тем же алгоритмом
func (h *Handler) RateCollectorHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleProducer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	input, err := h.decodeRating(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	score, err := reputation.ParseScore(input.Score.String())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	request, err := h.getRequest(r, input.CollectionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !lifecycle.IsRatable(request.Status) {
		h.writeError(w, r, httperr.InvalidState("request cannot be rated in status "+request.Status))
		return
	}
	if request.ProducerID != actor.ActorID {
		h.writeError(w, r, httperr.Forbidden("only the owning producer may rate the collector"))
		return
	}
	if request.CollectorID == nil {
		h.writeError(w, r, httperr.InvalidState("request has no assigned collector"))
		return
	}

	updated, err := h.Store.SubmitCollectorRating(r.Context(), request.ID, *request.CollectorID, score)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, ratingResponse{CollectionID: request.ID, UpdatedAverage: updated})
}
