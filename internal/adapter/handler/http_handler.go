package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/core/service"
	"github.com/storefront-bot/storefront/internal/metrics"
)

// Pinger is a dependency the health endpoint checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	catalog    *service.CatalogService
	currency   string
	adminToken string
	checks     map[string]Pinger
	logger     *slog.Logger
}

type ItemHTTPResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	PriceDisplay string `json:"price_display"`
}

type CreateItemHTTPRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Price is a decimal string in major units, e.g. "5.99".
	Price string `json:"price"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(catalog *service.CatalogService, currency, adminToken string, checks map[string]Pinger, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{
		catalog:    catalog,
		currency:   currency,
		adminToken: adminToken,
		checks:     checks,
		logger:     logger.With("component", "http"),
	}
}

// Routes builds the server mux. webhook may be nil when the bot uses long
// polling.
func (h *HTTPHandler) Routes(m *metrics.Metrics, webhook http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	mux.HandleFunc("GET /api/items", h.requireAdmin(h.ListItems))
	mux.HandleFunc("POST /api/items", h.requireAdmin(h.CreateItem))
	mux.HandleFunc("DELETE /api/items/{id}", h.requireAdmin(h.RemoveItem))
	if webhook != nil {
		mux.Handle("POST /telegram/webhook", webhook)
	}
	return mux
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for name, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			status[name] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	writeJSON(w, code, status)
}

func (h *HTTPHandler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			writeJSON(w, http.StatusForbidden, ErrorHTTPResponse{Message: "admin api disabled"})
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, ErrorHTTPResponse{Message: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (h *HTTPHandler) itemResponse(item domain.Item) ItemHTTPResponse {
	return ItemHTTPResponse{
		ID:           item.ID,
		Name:         item.Name,
		Description:  item.Description,
		Price:        item.Price,
		PriceDisplay: domain.FormatMoney(item.Price, h.currency),
	}
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		h.logger.Error("failed to list items", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Message: "internal error"})
		return
	}

	out := make([]ItemHTTPResponse, 0, len(items))
	for _, item := range items {
		out = append(out, h.itemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	price, err := domain.ParseMoney(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid price"})
		return
	}

	item, err := h.catalog.CreateItem(r.Context(), req.Name, req.Description, price)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "missing required fields"})
			return
		}
		h.logger.Error("failed to create item", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Message: "internal error"})
		return
	}

	h.logger.Info("catalog item created", "item_id", item.ID, "name", item.Name)
	writeJSON(w, http.StatusCreated, h.itemResponse(item))
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePositiveInt(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid item id"})
		return
	}

	if err := h.catalog.RemoveItem(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorHTTPResponse{Message: "item not found"})
			return
		}
		h.logger.Error("failed to remove item", "item_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Message: "internal error"})
		return
	}

	h.logger.Info("catalog item removed", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
