package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-api/internal/core/domain"
	"github.com/rl1809/inventory-api/internal/core/service"
	"github.com/rl1809/inventory-api/internal/port"
)

type HTTPHandler struct {
	sessions  *service.SessionService
	inventory *service.InventoryService
	health    *HealthChecker
	metrics   port.Metrics
	logger    *zap.Logger
}

type RegisterHTTPRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type LoginHTTPRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginHTTPResponse struct {
	Username    string `json:"username"`
	UserID      int64  `json:"userid"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Refresh     string `json:"refresh"`
	Access      string `json:"access"`
}

type LogoutHTTPRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPairHTTPResponse struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type RefreshHTTPRequest struct {
	Refresh string `json:"refresh"`
}

type MessageHTTPResponse struct {
	Message string `json:"message"`
}

type ErrorHTTPResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(sessions *service.SessionService, inventory *service.InventoryService, health *HealthChecker, metrics port.Metrics, logger *zap.Logger) *HTTPHandler {
	if metrics == nil {
		metrics = port.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		sessions:  sessions,
		inventory: inventory,
		health:    health,
		metrics:   metrics,
		logger:    logger,
	}
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.sessions.Register(r.Context(), req.Username, req.Password, req.Email, req.Phone)
	switch {
	case errors.Is(err, service.ErrUserExists):
		writeError(w, http.StatusConflict, "User already exists")
	case errors.Is(err, service.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.internalError(w, r, "register", err)
	default:
		writeJSON(w, http.StatusCreated, MessageHTTPResponse{Message: "User created successfully"})
	}
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrBadCredentials) {
		h.metrics.AuthFailure("bad_credentials")
		writeError(w, http.StatusUnauthorized, "Wrong Credentials")
		return
	}
	if err != nil {
		h.internalError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginHTTPResponse{
		Username:    result.User.Username,
		UserID:      result.User.ID,
		Email:       result.User.Email,
		PhoneNumber: result.User.PhoneNumber(),
		Refresh:     result.Tokens.Refresh,
		Access:      result.Tokens.Access,
	})
}

// ObtainTokenPair is the token-only variant of Login.
func (h *HTTPHandler) ObtainTokenPair(w http.ResponseWriter, r *http.Request) {
	var req LoginHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrBadCredentials) {
		h.metrics.AuthFailure("bad_credentials")
		writeError(w, http.StatusUnauthorized, "Wrong Credentials")
		return
	}
	if err != nil {
		h.internalError(w, r, "obtain token", err)
		return
	}

	writeJSON(w, http.StatusOK, TokenPairHTTPResponse{
		Refresh: result.Tokens.Refresh,
		Access:  result.Tokens.Access,
	})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.sessions.Logout(r.Context(), req.RefreshToken)
	if errors.Is(err, service.ErrBadRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "logout", err)
		return
	}

	w.WriteHeader(http.StatusResetContent)
}

func (h *HTTPHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	access, err := h.sessions.Refresh(r.Context(), req.Refresh)
	if errors.Is(err, service.ErrUnauthenticated) {
		h.metrics.AuthFailure("bad_refresh")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, r, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == nil || req.Quantity == nil || req.Price == nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	item, err := h.inventory.Create(r.Context(), req.Apply(domain.InventoryItem{}))
	if err != nil {
		h.itemError(w, r, "create item", err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list items", err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	item, err := h.inventory.GetByID(r.Context(), id)
	if err != nil {
		h.itemError(w, r, "get item", err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var patch domain.ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.inventory.Update(r.Context(), id, patch)
	if err != nil {
		h.itemError(w, r, "update item", err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := h.inventory.Delete(r.Context(), id); err != nil {
		h.itemError(w, r, "delete item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	snapshot := h.health.Snapshot()
	status := http.StatusOK
	if snapshot["status"] == statusUnavailable {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snapshot)
}

func (h *HTTPHandler) itemError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Item not found.")
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrDuplicateName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.internalError(w, r, action, err)
	}
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, action string, err error) {
	fields := []zap.Field{zap.Error(err), zap.String("req_id", middleware.GetReqID(r.Context()))}
	if p, ok := PrincipalFrom(r.Context()); ok {
		fields = append(fields, zap.String("user", p.Username))
	}
	h.logger.Error(action+" failed", fields...)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "Item not found.")
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorHTTPResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
