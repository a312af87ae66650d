// projects.go — обработчики /api/projects endpoints.
// CRUD проектов владельца.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/gofeedhub/internal/api/errors"
	"github.com/bigkaa/gofeedhub/internal/api/middleware"
	"github.com/bigkaa/gofeedhub/internal/domain/model"
	"github.com/bigkaa/gofeedhub/internal/service"
)

// projectCreateRequest — тело POST /api/projects.
type projectCreateRequest struct {
	Name               string `json:"name" validate:"required,max=120"`
	Description        string `json:"description" validate:"max=2000"`
	ProductURL         string `json:"product_url" validate:"omitempty,url,max=200"`
	FeedbackExpiryDays *int   `json:"feedback_expiry_days" validate:"omitempty,gte=0,lte=365"`
}

// projectUpdateRequest — тело PUT /api/projects/{id}. nil-поля не изменяются.
type projectUpdateRequest struct {
	Name               *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description        *string `json:"description" validate:"omitempty,max=2000"`
	ProductURL         *string `json:"product_url" validate:"omitempty,url,max=200"`
	FeedbackExpiryDays *int    `json:"feedback_expiry_days" validate:"omitempty,gte=0,lte=365"`
}

// projectResponse — представление проекта в ответах API владельца.
type projectResponse struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	ProductURL         string    `json:"product_url"`
	PublicSlug         string    `json:"public_slug"`
	FeedbackExpiryDays int       `json:"feedback_expiry_days"`
	ExpiresAt          time.Time `json:"expires_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func mapProject(p *model.Project) projectResponse {
	return projectResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		ProductURL:         p.ProductURL,
		PublicSlug:         p.PublicSlug,
		FeedbackExpiryDays: p.FeedbackExpiryDays,
		ExpiresAt:          p.ExpiryDate(),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// projectIDFromRequest извлекает и проверяет UUID проекта из пути.
func projectIDFromRequest(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// CreateProject — POST /api/projects.
func (h *APIHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	var req projectCreateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	p, err := h.projects.Create(r.Context(), userID, service.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		ProductURL:  req.ProductURL,
		ExpiryDays:  req.FeedbackExpiryDays,
	})
	if err != nil {
		h.logger.Error("Ошибка создания проекта", "owner_id", userID, "error", err)
		apierrors.InternalError(w, "Ошибка создания проекта")
		return
	}

	writeJSON(w, http.StatusCreated, mapProject(p))
}

// ListProjects — GET /api/projects.
// Проекты текущего владельца, новые первыми.
func (h *APIHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("Ошибка получения проектов", "owner_id", userID, "error", err)
		apierrors.InternalError(w, "Ошибка получения списка проектов")
		return
	}

	resp := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, mapProject(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProject — GET /api/projects/{id}.
func (h *APIHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := projectIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "Некорректный UUID проекта")
		return
	}

	p, err := h.projects.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Проект не найден")
			return
		}
		h.logger.Error("Ошибка получения проекта", "project_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения проекта")
		return
	}

	writeJSON(w, http.StatusOK, mapProject(p))
}

// UpdateProject — PUT /api/projects/{id}.
func (h *APIHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := projectIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "Некорректный UUID проекта")
		return
	}

	var req projectUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	p, err := h.projects.Update(r.Context(), id, userID, service.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		ProductURL:  req.ProductURL,
		ExpiryDays:  req.FeedbackExpiryDays,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Проект не найден")
			return
		}
		h.logger.Error("Ошибка обновления проекта", "project_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка обновления проекта")
		return
	}

	writeJSON(w, http.StatusOK, mapProject(p))
}

// DeleteProject — DELETE /api/projects/{id}.
// Удаляет проект вместе с его фидбеком.
func (h *APIHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := projectIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "Некорректный UUID проекта")
		return
	}

	if err := h.projects.Delete(r.Context(), id, userID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Проект не найден")
			return
		}
		h.logger.Error("Ошибка удаления проекта", "project_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка удаления проекта")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
