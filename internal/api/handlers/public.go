// public.go — публичные endpoints формы фидбека.
// Доступны без аутентификации по публичному slug проекта:
// GET /api/public/{slug} — карточка проекта для формы
// POST /api/public/{slug}/feedback — отправка фидбека
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gofeedhub/internal/api/errors"
	"github.com/bigkaa/gofeedhub/internal/service"
)

// publicProjectResponse — карточка проекта для публичной формы.
// Не раскрывает владельца и внутренние поля.
type publicProjectResponse struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ProductURL  string    `json:"product_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// publicSubmitRequest — тело POST /api/public/{slug}/feedback.
type publicSubmitRequest struct {
	Type           string  `json:"type" validate:"required"`
	Description    string  `json:"description" validate:"required,max=4000"`
	SubmitterEmail *string `json:"submitter_email" validate:"omitempty,email,max=120"`
}

// publicSubmitResponse — подтверждение принятого фидбека.
type publicSubmitResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// GetPublicProject — GET /api/public/{slug}.
// 404 для неизвестного slug, 410 если окно приёма закрыто.
func (h *APIHandler) GetPublicProject(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	p, err := h.projects.GetBySlug(r.Context(), slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Проект не найден")
		case errors.Is(err, service.ErrExpired):
			apierrors.Expired(w, "Приём фидбека для этого проекта завершён")
		default:
			h.logger.Error("Ошибка получения публичного проекта", "slug", slug, "error", err)
			apierrors.InternalError(w, "Ошибка получения проекта")
		}
		return
	}

	writeJSON(w, http.StatusOK, publicProjectResponse{
		Name:        p.Name,
		Description: p.Description,
		ProductURL:  p.ProductURL,
		ExpiresAt:   p.ExpiryDate(),
	})
}

// SubmitPublicFeedback — POST /api/public/{slug}/feedback.
// Принимает фидбек анонимно или с email отправителя.
func (h *APIHandler) SubmitPublicFeedback(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req publicSubmitRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	f, err := h.feedback.SubmitPublic(r.Context(), slug, service.SubmitParams{
		Type:           req.Type,
		Description:    req.Description,
		SubmitterEmail: req.SubmitterEmail,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Проект не найден")
		case errors.Is(err, service.ErrExpired):
			apierrors.Expired(w, "Приём фидбека для этого проекта завершён")
		default:
			h.logger.Error("Ошибка приёма фидбека", "slug", slug, "error", err)
			apierrors.InternalError(w, "Ошибка отправки фидбека")
		}
		return
	}

	writeJSON(w, http.StatusCreated, publicSubmitResponse{
		ID:        f.ID,
		Type:      string(f.Type),
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
	})
}
