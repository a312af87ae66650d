// projects.go — сервис управления проектами.
// CRUD проектов владельца и разрешение публичного slug.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bigkaa/gofeedhub/internal/domain/model"
	"github.com/bigkaa/gofeedhub/internal/repository"
)

// slugAlphabet — алфавит публичных slug. Только [a-z0-9]:
// slug попадает в URL и не должен требовать экранирования.
const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// maxSlugAttempts — число попыток генерации при коллизии slug.
const maxSlugAttempts = 5

// ProjectService — сервис управления проектами.
type ProjectService struct {
	projectRepo       repository.ProjectRepository
	slugLength        int
	defaultExpiryDays int
	logger            *slog.Logger
}

// NewProjectService создаёт сервис проектов.
func NewProjectService(
	projectRepo repository.ProjectRepository,
	slugLength int,
	defaultExpiryDays int,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo:       projectRepo,
		slugLength:        slugLength,
		defaultExpiryDays: defaultExpiryDays,
		logger:            logger.With(slog.String("component", "project_service")),
	}
}

// CreateParams — параметры создания проекта.
type CreateParams struct {
	Name        string
	Description string
	ProductURL  string
	// ExpiryDays — срок приёма фидбека в днях; nil — значение по умолчанию
	ExpiryDays *int
}

// Create создаёт проект с уникальным публичным slug.
// Коллизия slug (уникальный индекс) разрешается перегенерацией.
func (s *ProjectService) Create(ctx context.Context, ownerID string, params CreateParams) (*model.Project, error) {
	expiryDays := s.defaultExpiryDays
	if params.ExpiryDays != nil {
		expiryDays = *params.ExpiryDays
	}

	p := &model.Project{
		ID:                 uuid.New().String(),
		OwnerID:            ownerID,
		Name:               params.Name,
		Description:        params.Description,
		ProductURL:         params.ProductURL,
		FeedbackExpiryDays: expiryDays,
	}

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug, err := generateSlug(s.slugLength)
		if err != nil {
			return nil, fmt.Errorf("генерация slug: %w", err)
		}
		p.PublicSlug = slug

		err = s.projectRepo.Create(ctx, p)
		if err == nil {
			s.logger.Info("Проект создан",
				slog.String("project_id", p.ID),
				slog.String("owner_id", ownerID),
				slog.String("slug", p.PublicSlug),
			)
			return p, nil
		}
		if errors.Is(err, repository.ErrConflict) {
			// Коллизия slug — пробуем с новым
			s.logger.Warn("Коллизия публичного slug, перегенерация",
				slog.String("slug", slug),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, fmt.Errorf("создание проекта: %w", err)
	}

	return nil, fmt.Errorf("не удалось сгенерировать уникальный slug за %d попыток", maxSlugAttempts)
}

// List возвращает проекты владельца, новые первыми.
func (s *ProjectService) List(ctx context.Context, ownerID string) ([]*model.Project, error) {
	projects, err := s.projectRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение списка проектов: %w", err)
	}
	return projects, nil
}

// Get возвращает проект владельца по ID.
// Чужой проект неотличим от несуществующего — ErrNotFound в обоих случаях.
func (s *ProjectService) Get(ctx context.Context, id, ownerID string) (*model.Project, error) {
	p, err := s.projectRepo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение проекта: %w", err)
	}
	return p, nil
}

// UpdateParams — параметры обновления проекта. nil-поля не изменяются.
type UpdateParams struct {
	Name        *string
	Description *string
	ProductURL  *string
	ExpiryDays  *int
}

// Update обновляет проект владельца.
func (s *ProjectService) Update(ctx context.Context, id, ownerID string, params UpdateParams) (*model.Project, error) {
	p, err := s.projectRepo.GetByIDForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение проекта для обновления: %w", err)
	}

	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.ProductURL != nil {
		p.ProductURL = *params.ProductURL
	}
	if params.ExpiryDays != nil {
		p.FeedbackExpiryDays = *params.ExpiryDays
	}

	if err := s.projectRepo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("обновление проекта: %w", err)
	}

	s.logger.Info("Проект обновлён",
		slog.String("project_id", id),
	)

	return p, nil
}

// Delete удаляет проект владельца вместе с фидбеком (ON DELETE CASCADE).
func (s *ProjectService) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.projectRepo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление проекта: %w", err)
	}

	s.logger.Info("Проект удалён",
		slog.String("project_id", id),
	)

	return nil
}

// GetBySlug возвращает проект по публичному slug.
// Возвращает ErrNotFound для неизвестного slug и ErrExpired,
// если окно приёма фидбека уже закрыто.
func (s *ProjectService) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	p, err := s.projectRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение проекта по slug: %w", err)
	}
	if p.IsExpired(timeNow()) {
		return nil, ErrExpired
	}
	return p, nil
}

// generateSlug генерирует slug из slugAlphabet через crypto/rand.
// Байты вне наибольшего кратного len(slugAlphabet) отбрасываются,
// иначе остаток от деления перекашивает распределение символов.
func generateSlug(length int) (string, error) {
	limit := byte(256 - 256%len(slugAlphabet))
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, slugAlphabet[int(b)%len(slugAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
