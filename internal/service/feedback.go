// feedback.go — сервис приёма и триажа фидбека.
//
// Публичная отправка проверяет окно приёма проекта, триаж владельца
// проходит через машину состояний workflow. Переход статуса и запись
// истории выполняются в одной транзакции; конкурирующие переходы
// отсекаются compare-and-set на уровне репозитория.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gofeedhub/internal/domain/model"
	"github.com/bigkaa/gofeedhub/internal/domain/workflow"
	"github.com/bigkaa/gofeedhub/internal/repository"
)

// timeNow — источник времени сервисного слоя, подменяется в тестах.
var timeNow = time.Now

// submissionNote — комментарий начальной записи истории при приёме фидбека.
const submissionNote = "Feedback submitted"

// FeedbackService — сервис приёма и триажа фидбека.
type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
	projectRepo  repository.ProjectRepository
	txRunner     *repository.TxRunner
	logger       *slog.Logger
}

// NewFeedbackService создаёт сервис фидбека.
func NewFeedbackService(
	feedbackRepo repository.FeedbackRepository,
	projectRepo repository.ProjectRepository,
	txRunner *repository.TxRunner,
	logger *slog.Logger,
) *FeedbackService {
	return &FeedbackService{
		feedbackRepo: feedbackRepo,
		projectRepo:  projectRepo,
		txRunner:     txRunner,
		logger:       logger.With(slog.String("component", "feedback_service")),
	}
}

// SubmitParams — параметры публичной отправки фидбека.
type SubmitParams struct {
	Type        string
	Description string
	// SubmitterEmail — email отправителя; nil — анонимная отправка
	SubmitterEmail *string
}

// SubmitPublic принимает фидбек по публичному slug проекта.
// Возвращает ErrNotFound для неизвестного slug, ErrExpired — если окно
// приёма закрыто, ErrValidation — для неизвестной категории.
func (s *FeedbackService) SubmitPublic(ctx context.Context, slug string, params SubmitParams) (*model.Feedback, error) {
	if !model.ValidFeedbackType(params.Type) {
		return nil, fmt.Errorf("%w: неизвестная категория '%s'", ErrValidation, params.Type)
	}

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

	f := &model.Feedback{
		ID:             uuid.New().String(),
		ProjectID:      p.ID,
		Type:           model.FeedbackType(params.Type),
		Description:    params.Description,
		Status:         model.StatusNew,
		SubmitterEmail: params.SubmitterEmail,
	}

	// Создание фидбека и начальная запись истории — одна транзакция
	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		txRepo := repository.NewFeedbackRepository(tx)
		if err := txRepo.Create(ctx, f); err != nil {
			return err
		}
		note := submissionNote
		return txRepo.AppendHistory(ctx, &model.StatusChange{
			ID:         uuid.New().String(),
			FeedbackID: f.ID,
			OldStatus:  model.StatusNew,
			NewStatus:  model.StatusNew,
			Note:       &note,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("создание фидбека: %w", err)
	}

	s.logger.Info("Принят публичный фидбек",
		slog.String("feedback_id", f.ID),
		slog.String("project_id", p.ID),
		slog.String("type", string(f.Type)),
	)

	return f, nil
}

// ListForProject возвращает фидбек проекта владельца, старые записи первыми.
// Чужой проект неотличим от несуществующего.
func (s *FeedbackService) ListForProject(ctx context.Context, projectID, ownerID string) ([]*model.Feedback, error) {
	if _, err := s.projectRepo.GetByIDForOwner(ctx, projectID, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение проекта: %w", err)
	}

	list, err := s.feedbackRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("получение фидбека проекта: %w", err)
	}
	return list, nil
}

// Get возвращает фидбек владельца по ID.
// Чужой фидбек — ErrForbidden, несуществующий — ErrNotFound.
func (s *FeedbackService) Get(ctx context.Context, feedbackID, ownerID string) (*model.Feedback, error) {
	f, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение фидбека: %w", err)
	}
	if err := s.checkOwnership(ctx, f.ProjectID, ownerID); err != nil {
		return nil, err
	}
	return f, nil
}

// UpdateStatus переводит фидбек в новый статус от имени владельца проекта.
//
// Последовательность: проверка владения → валидация перехода по машине
// состояний → транзакция (compare-and-set статуса + запись истории).
// Для статусов RESOLVED и REJECTED выставляется resolved_at.
func (s *FeedbackService) UpdateStatus(ctx context.Context, feedbackID, ownerID, newStatus string, note *string) (*model.Feedback, error) {
	if !model.ValidFeedbackStatus(newStatus) {
		return nil, fmt.Errorf("%w: неизвестный статус '%s'", ErrValidation, newStatus)
	}
	target := model.FeedbackStatus(newStatus)

	f, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение фидбека: %w", err)
	}
	if err := s.checkOwnership(ctx, f.ProjectID, ownerID); err != nil {
		return nil, err
	}

	if err := workflow.Validate(f.Status, target, note); err != nil {
		if errors.Is(err, workflow.ErrNoteRequired) {
			return nil, ErrNoteRequired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, err)
	}

	// Терминальные статусы фиксируют время закрытия
	var resolvedAt *time.Time
	if workflow.IsTerminal(target) {
		now := timeNow().UTC()
		resolvedAt = &now
	}

	oldStatus := f.Status
	err = s.txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
		txRepo := repository.NewFeedbackRepository(tx)
		if err := txRepo.TransitionStatus(ctx, feedbackID, oldStatus, target, resolvedAt); err != nil {
			return err
		}
		return txRepo.AppendHistory(ctx, &model.StatusChange{
			ID:         uuid.New().String(),
			FeedbackID: feedbackID,
			OldStatus:  oldStatus,
			NewStatus:  target,
			Note:       note,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, ErrStaleStatus
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("переход статуса: %w", err)
	}

	f.Status = target
	f.ResolvedAt = resolvedAt

	s.logger.Info("Статус фидбека изменён",
		slog.String("feedback_id", feedbackID),
		slog.String("old_status", string(oldStatus)),
		slog.String("new_status", string(target)),
	)

	return f, nil
}

// History возвращает историю статусов фидбека владельца, старые записи первыми.
func (s *FeedbackService) History(ctx context.Context, feedbackID, ownerID string) ([]*model.StatusChange, error) {
	f, err := s.feedbackRepo.GetByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение фидбека: %w", err)
	}
	if err := s.checkOwnership(ctx, f.ProjectID, ownerID); err != nil {
		return nil, err
	}

	history, err := s.feedbackRepo.History(ctx, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("получение истории статусов: %w", err)
	}
	return history, nil
}

// AllowedTargets возвращает допустимые целевые статусы для текущего статуса.
func (s *FeedbackService) AllowedTargets(status model.FeedbackStatus) []model.FeedbackStatus {
	return workflow.AllowedTargets(status)
}

// checkOwnership убеждается, что проект фидбека принадлежит ownerID.
// Несуществующий проект — ErrNotFound, чужой — ErrForbidden.
func (s *FeedbackService) checkOwnership(ctx context.Context, projectID, ownerID string) error {
	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("проверка владения проектом: %w", err)
	}
	if p.OwnerID != ownerID {
		return ErrForbidden
	}
	return nil
}
