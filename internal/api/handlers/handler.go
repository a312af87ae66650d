// handler.go — основной обработчик API Feedhub.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/gofeedhub/internal/service"
	"github.com/bigkaa/gofeedhub/internal/token"
)

// APIHandler — основной обработчик API Feedhub.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health   *HealthHandler
	auth     *service.AuthService
	projects *service.ProjectService
	feedback *service.FeedbackService
	issuer   *token.Issuer
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	auth *service.AuthService,
	projects *service.ProjectService,
	feedback *service.FeedbackService,
	issuer *token.Issuer,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		auth:     auth,
		projects: projects,
		feedback: feedback,
		issuer:   issuer,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// JWKS — публичные ключи проверки подписи токенов.
// GET /.well-known/jwks.json
func (h *APIHandler) JWKS(w http.ResponseWriter, r *http.Request) {
	raw, err := h.issuer.JWKS(r.Context())
	if err != nil {
		h.logger.Error("Ошибка сериализации JWKS", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
