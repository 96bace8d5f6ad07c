package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"reciclaai/internal/auth"
	"reciclaai/internal/httperr"
	"reciclaai/models"
)

const maxBodySize = 1048576

type registerRequest struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
	Document    string `json:"document"`
	PostalCode  string `json:"postalCode"`
	Street      string `json:"street"`
	Number      string `json:"number"`
	District    string `json:"district"`
	City        string `json:"city"`
	State       string `json:"state"`
}

func (h *Handler) decodeRegister(w http.ResponseWriter, r *http.Request) (*registerRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, httperr.Validation("failed to read request body")
	}
	defer r.Body.Close()

	var req registerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, httperr.Validation("invalid JSON format")
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Document = strings.TrimSpace(req.Document)
	if req.Email == "" || len(req.Email) > 100 {
		return nil, httperr.Validation("email is required and max length 100")
	}
	if req.Password == "" {
		return nil, httperr.Validation("password is required")
	}
	if req.Document == "" {
		return nil, httperr.Validation("document is required")
	}
	return &req, nil
}

// geocode подставляет координаты адреса, если их удалось получить.
// Сбой геокодера не прерывает регистрацию.
func (h *Handler) geocode(r *http.Request, req *registerRequest) (lat, lon *float64) {
	if h.Geo == nil || req.City == "" {
		return nil, nil
	}
	la, lo, err := h.Geo.Lookup(r.Context(), req.Street, req.Number, req.District, req.City, req.State, req.PostalCode)
	if err != nil {
		h.Log.Warn("geocoding failed", zap.String("city", req.City), zap.Error(err))
		return nil, nil
	}
	return &la, &lo
}

// RegisterProducerHandler обрабатывает POST /api/register/producer
func (h *Handler) RegisterProducerHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRegister(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		h.writeError(w, r, httperr.Validation("name is required and max length 100"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lat, lon := h.geocode(r, req)

	producer := models.Producer{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Document:   req.Document,
		PostalCode: req.PostalCode,
		Street:     req.Street,
		Number:     req.Number,
		District:   req.District,
		City:       req.City,
		State:      req.State,
		Latitude:   lat,
		Longitude:  lon,

		PasswordHash: hash,
	}
	if err := h.Store.CreateProducer(r.Context(), &producer); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, producer)
}

// RegisterCollectorHandler обрабатывает POST /api/register/collector
func (h *Handler) RegisterCollectorHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRegister(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		h.writeError(w, r, httperr.Validation("name is required and max length 100"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lat, lon := h.geocode(r, req)

	collector := models.Collector{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Document:   req.Document,
		PostalCode: req.PostalCode,
		City:       req.City,
		State:      req.State,
		Latitude:   lat,
		Longitude:  lon,

		PasswordHash: hash,
	}
	if err := h.Store.CreateCollector(r.Context(), &collector); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, collector)
}

// RegisterCooperativeHandler обрабатывает POST /api/register/cooperative
func (h *Handler) RegisterCooperativeHandler(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRegister(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.CompanyName == "" || len(req.CompanyName) > 150 {
		h.writeError(w, r, httperr.Validation("companyName is required and max length 150"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	lat, lon := h.geocode(r, req)

	coop := models.Cooperative{
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Phone:       req.Phone,
		Document:    req.Document,
		PostalCode:  req.PostalCode,
		Street:      req.Street,
		Number:      req.Number,
		District:    req.District,
		City:        req.City,
		State:       req.State,
		Latitude:    lat,
		Longitude:   lon,

		PasswordHash: hash,
	}
	if err := h.Store.CreateCooperative(r.Context(), &coop); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, coop)
}

type loginRequest struct {
	// Идентификатор — email либо документ (CPF/CNPJ)
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
	UserType string `json:"userType"`
	Name     string `json:"name"`
}

// LoginHandler обрабатывает POST /api/login: идентификатор ищется
// последовательно среди производителей, коллекторов и кооперативов
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, httperr.Validation("invalid JSON format"))
		return
	}
	defer r.Body.Close()
	if req.Identifier == "" || req.Password == "" {
		h.writeError(w, r, httperr.Validation("identifier and password are required"))
		return
	}

	var (
		accountID int
		role      string
		hash      string
		name      string
	)
	if p, err := h.Store.FindProducerByIdentifier(r.Context(), req.Identifier); err == nil {
		accountID, role, hash, name = p.ID, models.RoleProducer, p.PasswordHash, p.Name
	} else if c, err := h.Store.FindCollectorByIdentifier(r.Context(), req.Identifier); err == nil {
		accountID, role, hash, name = c.ID, models.RoleCollector, c.PasswordHash, c.Name
	} else if co, err := h.Store.FindCooperativeByIdentifier(r.Context(), req.Identifier); err == nil {
		accountID, role, hash, name = co.ID, models.RoleCooperative, co.PasswordHash, co.CompanyName
	} else {
		h.writeError(w, r, httperr.Unauthenticated("no active account found with the given credentials"))
		return
	}

	if !auth.CheckPassword(hash, req.Password) {
		h.writeError(w, r, httperr.Unauthenticated("no active account found with the given credentials"))
		return
	}

	access, refresh, err := h.Auth.IssuePair(accountID, role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, loginResponse{
		Access: access, Refresh: refresh, UserType: role, Name: name,
	})
}

// ListCooperativesHandler возвращает список кооперативов
func (h *Handler) ListCooperativesHandler(w http.ResponseWriter, r *http.Request) {
	coops, err := h.Store.ListCooperatives(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, coops)
}

// ProducerProfileHandler возвращает профиль производителя с рейтингом и балансом
func (h *Handler) ProducerProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleProducer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	producer, err := h.Store.GetProducer(r.Context(), actor.ActorID)
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, r, httperr.NotFound("producer not found"))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":          producer.Name,
		"email":         producer.Email,
		"ratingAverage": producer.RatingAverage,
		"ratingCount":   producer.RatingCount,
		"pointsBalance": producer.PointsBalance,
	})
}

// CollectorProfileHandler возвращает профиль коллектора с рейтингом
func (h *Handler) CollectorProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, err := h.resolveRole(r, models.RoleCollector)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	collector, err := h.Store.GetCollector(r.Context(), actor.ActorID)
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, r, httperr.NotFound("collector not found"))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":          collector.Name,
		"email":         collector.Email,
		"ratingAverage": collector.RatingAverage,
		"ratingCount":   collector.RatingCount,
	})
}
