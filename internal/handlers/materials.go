package handlers

import (
	"encoding/json"
	"math/big"
	"net/http"

	"reciclaai/internal/httperr"
	"reciclaai/models"
)

// GetInterestsHandler возвращает прайс-лист кооператива
func (h *Handler) GetInterestsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCooperative)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	materials, err := h.Store.ListCooperativeMaterials(r.Context(), actor.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"interests": materials})
}

type updateInterestsRequest struct {
	Interests []struct {
		Material string      `json:"material"`
		Price    json.Number `json:"price"`
	} `json:"interests"`
}

// UpdateInterestsHandler заменяет прайс-лист кооператива целиком:
// позиции вне присланного списка удаляются
func (h *Handler) UpdateInterestsHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCooperative)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var input updateInterestsRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, r, httperr.Validation("invalid JSON format"))
		return
	}
	defer r.Body.Close()
	if input.Interests == nil {
		h.writeError(w, r, httperr.Validation("interests field is required"))
		return
	}

	allowed := map[string]bool{
		models.MaterialGlass: true, models.MaterialMetal: true,
		models.MaterialPaper: true, models.MaterialPlastic: true,
	}
	materials := make([]models.CooperativeMaterial, 0, len(input.Interests))
	for _, item := range input.Interests {
		if !allowed[item.Material] {
			h.writeError(w, r, httperr.Validation("invalid material: "+item.Material))
			return
		}
		price := item.Price.String()
		p, ok := new(big.Rat).SetString(price)
		if !ok || p.Sign() < 0 {
			h.writeError(w, r, httperr.Validation("price must be a non-negative number"))
			return
		}
		materials = append(materials, models.CooperativeMaterial{
			CooperativeID: actor.ActorID,
			Material:      item.Material,
			OfferedPrice:  price,
		})
	}

	if err := h.Store.ReplaceCooperativeMaterials(r.Context(), actor.ActorID, materials); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"detail": "interests updated"})
}
