// Пакет apiclient — HTTP-клиент REST API Feedhub.
// Используется CLI fhctl. Ошибки API ({"error":{"code","message"}})
// разворачиваются в APIError с HTTP-статусом и машиночитаемым кодом.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TokenProvider — функция, возвращающая access token для авторизации запросов.
// Может быть nil — тогда запросы идут без заголовка Authorization.
type TokenProvider func() (string, error)

// APIError — ошибка, возвращённая сервером Feedhub.
type APIError struct {
	// StatusCode — HTTP статус-код ответа.
	StatusCode int
	// Code — машиночитаемый код из тела ошибки.
	Code string
	// Message — описание из тела ошибки.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsStatus сообщает, является ли err ошибкой API с указанным статусом.
func IsStatus(err error, statusCode int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == statusCode
}

// User — пользователь в ответах API.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Project — проект владельца в ответах API.
type Project struct {
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

// ProjectCreate — параметры создания проекта.
type ProjectCreate struct {
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	ProductURL         string `json:"product_url,omitempty"`
	FeedbackExpiryDays *int   `json:"feedback_expiry_days,omitempty"`
}

// ProjectUpdate — параметры обновления проекта. nil-поля не изменяются.
type ProjectUpdate struct {
	Name               *string `json:"name,omitempty"`
	Description        *string `json:"description,omitempty"`
	ProductURL         *string `json:"product_url,omitempty"`
	FeedbackExpiryDays *int    `json:"feedback_expiry_days,omitempty"`
}

// Feedback — фидбек в ответах API владельца.
type Feedback struct {
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

// StatusChange — элемент истории статусов фидбека.
type StatusChange struct {
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Note      *string   `json:"note"`
	ChangedAt time.Time `json:"changed_at"`
}

// PublicProject — карточка проекта публичной формы.
type PublicProject struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ProductURL  string    `json:"product_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// FeedbackSubmit — параметры публичной отправки фидбека.
type FeedbackSubmit struct {
	Type           string  `json:"type"`
	Description    string  `json:"description"`
	SubmitterEmail *string `json:"submitter_email,omitempty"`
}

// SubmitReceipt — подтверждение принятого фидбека.
type SubmitReceipt struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Client — HTTP-клиент Feedhub API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// New создаёт клиент Feedhub API.
// baseURL — адрес сервера, tokenProvider может быть nil.
func New(baseURL string, tokenProvider TokenProvider, logger *slog.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "api_client")),
	}
}

// do выполняет запрос к API: сериализует body, подставляет Bearer token,
// декодирует ответ в out (если out != nil) либо APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("сериализация запроса: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokenProvider != nil {
		accessToken, err := c.tokenProvider()
		if err != nil {
			return fmt.Errorf("получение access token: %w", err)
		}
		if accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+accessToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp)
		c.logger.Debug("Запрос к API завершился ошибкой",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", apiErr.Error()),
		)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("декодирование ответа %s %s: %w", method, path, err)
		}
	}
	return nil
}

// parseAPIError разбирает тело ошибки в формате Feedhub.
// Нестандартное тело сворачивается в APIError с кодом UNKNOWN.
func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       "UNKNOWN",
		Message:    resp.Status,
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Code != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

// --- Аутентификация ---

// Register регистрирует нового пользователя.
func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	req := map[string]string{"email": email, "password": password}
	var u User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login выполняет вход и возвращает access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	req := map[string]string{"email": email, "password": password}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Me возвращает текущего пользователя.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Проекты ---

// ListProjects возвращает проекты текущего владельца.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject создаёт проект.
func (c *Client) CreateProject(ctx context.Context, params ProjectCreate) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProject возвращает проект по ID.
func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProject обновляет проект.
func (c *Client) UpdateProject(ctx context.Context, id string, params ProjectUpdate) (*Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodPut, "/api/projects/"+id, params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProject удаляет проект вместе с фидбеком.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+id, nil, nil)
}

// --- Фидбек ---

// ListFeedback возвращает фидбек проекта, старые записи первыми.
func (c *Client) ListFeedback(ctx context.Context, projectID string) ([]Feedback, error) {
	var list []Feedback
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/feedback", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetFeedback возвращает фидбек по ID.
func (c *Client) GetFeedback(ctx context.Context, id string) (*Feedback, error) {
	var f Feedback
	if err := c.do(ctx, http.MethodGet, "/api/feedback/"+id, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFeedbackStatus переводит фидбек в новый статус.
func (c *Client) UpdateFeedbackStatus(ctx context.Context, id, status string, note *string) (*Feedback, error) {
	req := map[string]any{"status": status}
	if note != nil {
		req["note"] = *note
	}
	var f Feedback
	if err := c.do(ctx, http.MethodPatch, "/api/feedback/"+id+"/status", req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FeedbackHistory возвращает историю статусов фидбека.
func (c *Client) FeedbackHistory(ctx context.Context, id string) ([]StatusChange, error) {
	var history []StatusChange
	if err := c.do(ctx, http.MethodGet, "/api/feedback/"+id+"/history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// --- Публичная форма ---

// PublicProject возвращает карточку проекта по публичному slug.
func (c *Client) PublicProject(ctx context.Context, slug string) (*PublicProject, error) {
	var p PublicProject
	if err := c.do(ctx, http.MethodGet, "/api/public/"+slug, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SubmitFeedback отправляет фидбек по публичному slug.
func (c *Client) SubmitFeedback(ctx context.Context, slug string, params FeedbackSubmit) (*SubmitReceipt, error) {
	var receipt SubmitReceipt
	if err := c.do(ctx, http.MethodPost, "/api/public/"+slug+"/feedback", params, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
