package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"reciclaai/internal/httperr"
	"reciclaai/internal/lifecycle"
	"reciclaai/models"
)

func parseTimestamp(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, httperr.Validation(field + " is required")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, httperr.Validation(field + " must be an RFC3339 timestamp")
	}
	return t, nil
}

func parseRequestID(r *http.Request) (int, error) {
	idStr := chi.URLParam(r, "collectionId")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, httperr.Validation("invalid collectionId")
	}
	return id, nil
}

func (h *Handler) getRequest(r *http.Request, id int) (*models.CollectionRequest, error) {
	req, err := h.Store.GetCollectionRequest(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperr.NotFound("collection request not found")
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

type createCollectionRequest struct {
	PickupStart string                `json:"pickupStart"`
	PickupEnd   string                `json:"pickupEnd"`
	Notes       string                `json:"notes"`
	Items       []createCollectionItem `json:"items"`
}

type createCollectionItem struct {
	Material string      `json:"material"`
	Quantity json.Number `json:"quantity"`
	Unit     string      `json:"unit"`
}

func validateCollectionItems(items []createCollectionItem) ([]models.CollectionItem, error) {
	allowedMaterials := map[string]bool{
		models.MaterialGlass: true, models.MaterialMetal: true,
		models.MaterialPaper: true, models.MaterialPlastic: true,
	}
	allowedUnits := map[string]bool{
		models.UnitKG: true, models.UnitCount: true, models.UnitVolume: true,
	}

	out := make([]models.CollectionItem, 0, len(items))
	for _, it := range items {
		if !allowedMaterials[it.Material] {
			return nil, httperr.Validation("invalid material: " + it.Material)
		}
		if !allowedUnits[it.Unit] {
			return nil, httperr.Validation("invalid unit: " + it.Unit)
		}
		qty := it.Quantity.String()
		if qty == "" {
			qty = "0"
		}
		q, ok := new(big.Rat).SetString(qty)
		if !ok || q.Sign() < 0 {
			return nil, httperr.Validation("quantity must be a non-negative number")
		}
		out = append(out, models.CollectionItem{Material: it.Material, Quantity: qty, Unit: it.Unit})
	}
	return out, nil
}

// CreateCollectionHandler обрабатывает POST /api/collections/new.
// requested_at всегда ставит сервер, клиентское значение игнорируется.
func (h *Handler) CreateCollectionHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleProducer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, httperr.Validation("failed to read request body"))
		return
	}
	defer r.Body.Close()

	var input createCollectionRequest
	if err := json.Unmarshal(body, &input); err != nil {
		h.writeError(w, r, httperr.Validation("invalid JSON format"))
		return
	}
	if len(input.Notes) > 200 {
		h.writeError(w, r, httperr.Validation("notes max length is 200"))
		return
	}

	request := models.CollectionRequest{
		ProducerID: actor.ActorID,
		Notes:      input.Notes,
	}
	if request.PickupStart, err = parseTimestamp(input.PickupStart, "pickupStart"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if request.PickupEnd, err = parseTimestamp(input.PickupEnd, "pickupEnd"); err != nil {
		h.writeError(w, r, err)
		return
	}

	items, err := validateCollectionItems(input.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request.Items = items
	if len(items) == 0 {
		// Пустые заявки допустимы, но подозрительны — фиксируем в логе
		h.Log.Warn("collection request created with zero items", zap.Int("producerId", actor.ActorID))
	}

	if err := h.Store.CreateCollectionRequest(r.Context(), &request); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, request)
}

// MyCollectionsHandler возвращает заявки производителя
func (h *Handler) MyCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleProducer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.Store.ListProducerRequests(r.Context(), actor.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, requests)
}

// AvailableCollectionsHandler возвращает открытые заявки (status=REQUESTED)
func (h *Handler) AvailableCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Auth.Resolve(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.Store.ListAvailableRequests(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, requests)
}

// AssignedCollectionsHandler возвращает заявки, принятые коллектором
func (h *Handler) AssignedCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCollector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.Store.ListCollectorRequests(r.Context(), actor.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, requests)
}

// PendingCollectionsHandler возвращает заявки кооператива, ждущие подтверждения
func (h *Handler) PendingCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCooperative)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	requests, err := h.Store.ListCooperativePending(r.Context(), actor.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, requests)
}

// GetCollectionHandler возвращает одну заявку по id
func (h *Handler) GetCollectionHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Auth.Resolve(r); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := parseRequestID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.getRequest(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, request)
}

// DeleteCollectionHandler удаляет заявку. Разрешено только владельцу
// и только пока заявка в статусе REQUESTED.
func (h *Handler) DeleteCollectionHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleProducer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := parseRequestID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.getRequest(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if request.ProducerID != actor.ActorID {
		h.writeError(w, r, httperr.Forbidden("only the owning producer may delete the request"))
		return
	}
	if !lifecycle.CanDelete(request.Status) {
		h.writeError(w, r, httperr.InvalidState("only REQUESTED requests may be deleted"))
		return
	}

	if err := h.Store.DeleteCollectionRequest(r.Context(), id, actor.ActorID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptCollectionHandler обрабатывает POST /api/collections/{collectionId}/accept.
// Принятие строго однократное: из двух конкурирующих коллекторов выигрывает
// один, второй получает Conflict.
func (h *Handler) AcceptCollectionHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCollector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := parseRequestID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Store.AcceptCollectionRequest(r.Context(), id, actor.ActorID); err != nil {
		// Промах CAS: либо заявки нет, либо её уже приняли
		if _, getErr := h.getRequest(r, id); getErr != nil {
			h.writeError(w, r, getErr)
			return
		}
		h.writeError(w, r, httperr.Conflict("request is no longer available for acceptance"))
		return
	}

	request, err := h.getRequest(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, request)
}

// UpdateCollectionStatusHandler обрабатывает PUT /api/collections/{collectionId}/status.
// Единственный способ менять статус: целевой статус проверяется по таблице
// переходов, произвольная установка статуса не поддерживается.
func (h *Handler) UpdateCollectionStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.Auth.Resolve(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := parseRequestID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, r, httperr.Validation("invalid JSON format"))
		return
	}
	defer r.Body.Close()
	if input.Status == "" {
		h.writeError(w, r, httperr.Validation("status field is required"))
		return
	}

	request, err := h.getRequest(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := lifecycle.Authorize(request.Status, input.Status, actor.Role); err != nil {
		h.writeError(w, r, err)
		return
	}

	switch input.Status {
	case lifecycle.StatusCancelled:
		if request.ProducerID != actor.ActorID {
			h.writeError(w, r, httperr.Forbidden("only the owning producer may cancel"))
			return
		}
		err = h.Store.CancelCollectionRequest(r.Context(), id, actor.ActorID)

	case lifecycle.StatusAwaiting:
		if request.CollectorID == nil || *request.CollectorID != actor.ActorID {
			h.writeError(w, r, httperr.Forbidden("only the assigned collector may mark awaiting confirmation"))
			return
		}
		if request.CooperativeID == nil {
			h.writeError(w, r, httperr.InvalidState("a cooperative must be associated first"))
			return
		}
		err = h.Store.MarkAwaitingConfirmation(r.Context(), id, actor.ActorID)

	case lifecycle.StatusConfirmed:
		if request.CooperativeID == nil || *request.CooperativeID != actor.ActorID {
			h.writeError(w, r, httperr.Forbidden("only the associated cooperative may confirm"))
			return
		}
		err = h.Store.ConfirmDelivery(r.Context(), id, actor.ActorID)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	request, err = h.getRequest(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, request)
}

// AssociateCooperativeHandler обрабатывает PATCH /api/collections/{collectionId}/cooperative.
// Привязку ставит только назначенный коллектор, повторная привязка им же идемпотентна.
func (h *Handler) AssociateCooperativeHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCollector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := parseRequestID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var input struct {
		CooperativeID int `json:"cooperativeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, r, httperr.Validation("invalid JSON format"))
		return
	}
	defer r.Body.Close()
	if input.CooperativeID <= 0 {
		h.writeError(w, r, httperr.Validation("cooperativeId field is required"))
		return
	}

	request, err := h.getRequest(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if request.CollectorID == nil || *request.CollectorID != actor.ActorID {
		h.writeError(w, r, httperr.Forbidden("only the assigned collector may associate a cooperative"))
		return
	}
	if !lifecycle.CanAssociateCooperative(request.Status) {
		h.writeError(w, r, httperr.InvalidState("cooperative can be associated only while ACCEPTED or AWAITING_CONFIRMATION"))
		return
	}

	if _, err := h.Store.GetCooperative(r.Context(), input.CooperativeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(w, r, httperr.NotFound("cooperative not found"))
			return
		}
		h.writeError(w, r, err)
		return
	}

	if err := h.Store.AssociateCooperative(r.Context(), id, actor.ActorID, input.CooperativeID); err != nil {
		h.writeError(w, r, err)
		return
	}

	request, err = h.getRequest(r, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, request)
}
