// feedback.go — обработчики триажа фидбека владельцем.
// Список фидбека проекта, переход статуса, история статусов.
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

// statusUpdateRequest — тело PATCH /api/feedback/{id}/status.
type statusUpdateRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note" validate:"omitempty,max=2000"`
}

// feedbackResponse — представление фидбека в ответах API владельца.
// AllowedTransitions — статусы, в которые разрешён переход из текущего.
type feedbackResponse struct {
	ID                 string     `json:"id"`
	ProjectID          string     `json:"project_id"`
	Type               string     `json:"type"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	SubmitterEmail     *string    `json:"submitter_email"`
	CreatedAt          time.Time  `json:"created_at"`
	ResolvedAt         *time.Time `json:"resolved_at"`
	AllowedTransitions []string   `json:"allowed_transitions"`
}

// historyEntryResponse — элемент истории статусов.
type historyEntryResponse struct {
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Note      *string   `json:"note"`
	ChangedAt time.Time `json:"changed_at"`
}

func (h *APIHandler) mapFeedback(f *model.Feedback) feedbackResponse {
	targets := h.feedback.AllowedTargets(f.Status)
	allowed := make([]string, 0, len(targets))
	for _, t := range targets {
		allowed = append(allowed, string(t))
	}
	return feedbackResponse{
		ID:                 f.ID,
		ProjectID:          f.ProjectID,
		Type:               string(f.Type),
		Description:        f.Description,
		Status:             string(f.Status),
		SubmitterEmail:     f.SubmitterEmail,
		CreatedAt:          f.CreatedAt,
		ResolvedAt:         f.ResolvedAt,
		AllowedTransitions: allowed,
	}
}

// feedbackIDFromRequest извлекает и проверяет UUID фидбека из пути.
func feedbackIDFromRequest(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// ListProjectFeedback — GET /api/projects/{id}/feedback.
// Фидбек проекта владельца, старые записи первыми.
func (h *APIHandler) ListProjectFeedback(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	projectID, ok := projectIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "Некорректный UUID проекта")
		return
	}

	list, err := h.feedback.ListForProject(r.Context(), projectID, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Проект не найден")
			return
		}
		h.logger.Error("Ошибка получения фидбека", "project_id", projectID, "error", err)
		apierrors.InternalError(w, "Ошибка получения фидбека")
		return
	}

	resp := make([]feedbackResponse, 0, len(list))
	for _, f := range list {
		resp = append(resp, h.mapFeedback(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFeedback — GET /api/feedback/{id}.
func (h *APIHandler) GetFeedback(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := feedbackIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "Некорректный UUID фидбека")
		return
	}

	f, err := h.feedback.Get(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Фидбек не найден")
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Фидбек принадлежит другому владельцу")
		default:
			h.logger.Error("Ошибка получения фидбека", "feedback_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка получения фидбека")
		}
		return
	}

	writeJSON(w, http.StatusOK, h.mapFeedback(f))
}

// UpdateFeedbackStatus — PATCH /api/feedback/{id}/status.
// Переход по workflow триажа: 400 для недопустимого перехода или
// отсутствующего комментария, 403 для чужого фидбека,
// 409 для конкурирующего перехода.
func (h *APIHandler) UpdateFeedbackStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := feedbackIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "Некорректный UUID фидбека")
		return
	}

	var req statusUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	f, err := h.feedback.UpdateStatus(r.Context(), id, userID, req.Status, req.Note)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Фидбек не найден")
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Фидбек принадлежит другому владельцу")
		case errors.Is(err, service.ErrValidation),
			errors.Is(err, service.ErrInvalidTransition),
			errors.Is(err, service.ErrNoteRequired):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrStaleStatus):
			apierrors.Conflict(w, "Статус фидбека уже изменён другим запросом")
		default:
			h.logger.Error("Ошибка перехода статуса", "feedback_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка перехода статуса")
		}
		return
	}

	writeJSON(w, http.StatusOK, h.mapFeedback(f))
}

// GetFeedbackHistory — GET /api/feedback/{id}/history.
// История статусов фидбека, старые записи первыми.
func (h *APIHandler) GetFeedbackHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id, ok := feedbackIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "Некорректный UUID фидбека")
		return
	}

	history, err := h.feedback.History(r.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Фидбек не найден")
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Фидбек принадлежит другому владельцу")
		default:
			h.logger.Error("Ошибка получения истории", "feedback_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка получения истории статусов")
		}
		return
	}

	resp := make([]historyEntryResponse, 0, len(history))
	for _, e := range history {
		resp = append(resp, historyEntryResponse{
			OldStatus: string(e.OldStatus),
			NewStatus: string(e.NewStatus),
			Note:      e.Note,
			ChangedAt: e.ChangedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
