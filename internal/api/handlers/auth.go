// auth.go — обработчики /api/auth endpoints.
// Регистрация, вход, информация о текущем пользователе.
package handlers

import (
	"errors"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/gofeedhub/internal/api/errors"
	"github.com/bigkaa/gofeedhub/internal/api/middleware"
	"github.com/bigkaa/gofeedhub/internal/domain/model"
	"github.com/bigkaa/gofeedhub/internal/service"
)

// registerRequest — тело POST /api/auth/register.
type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// loginRequest — тело POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// userResponse — представление пользователя в ответах API.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// loginResponse — ответ POST /api/auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
}

func mapUser(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Register — POST /api/auth/register.
// Создаёт пользователя, 409 если email уже занят.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	u, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			apierrors.Conflict(w, err.Error())
			return
		}
		h.logger.Error("Ошибка регистрации пользователя", "error", err)
		apierrors.InternalError(w, "Ошибка регистрации")
		return
	}

	writeJSON(w, http.StatusCreated, mapUser(u))
}

// Login — POST /api/auth/login.
// Проверяет пароль и выдаёт access token, 401 при неверных данных.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	accessToken, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apierrors.Unauthorized(w, "Неверный email или пароль")
			return
		}
		h.logger.Error("Ошибка входа", "error", err)
		apierrors.InternalError(w, "Ошибка входа")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: accessToken})
}

// Me — GET /api/auth/me.
// Возвращает текущего пользователя из токена.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		apierrors.Unauthorized(w, "Отсутствуют claims")
		return
	}

	u, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.Unauthorized(w, "Пользователь не найден")
			return
		}
		h.logger.Error("Ошибка получения пользователя", "user_id", userID, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(u))
}
