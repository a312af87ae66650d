package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gofeedhub/internal/domain/model"
)

// FeedbackRepository — интерфейс доступа к таблицам feedback и
// feedback_status_history.
type FeedbackRepository interface {
	// Create создаёт новый фидбек.
	Create(ctx context.Context, f *model.Feedback) error
	// GetByID возвращает фидбек по UUID.
	GetByID(ctx context.Context, id string) (*model.Feedback, error)
	// ListByProject возвращает фидбек проекта в хронологическом порядке.
	ListByProject(ctx context.Context, projectID string) ([]*model.Feedback, error)
	// TransitionStatus атомарно переводит фидбек из from в to.
	// Возвращает ErrStaleStatus, если текущий статус записи уже не from —
	// так два конкурирующих перехода не могут выполниться оба.
	TransitionStatus(ctx context.Context, id string, from, to model.FeedbackStatus, resolvedAt *time.Time) error
	// AppendHistory добавляет запись в историю статусов.
	AppendHistory(ctx context.Context, h *model.StatusChange) error
	// History возвращает историю статусов фидбека, старые записи первыми.
	History(ctx context.Context, feedbackID string) ([]*model.StatusChange, error)
}

// feedbackRepo — реализация FeedbackRepository.
type feedbackRepo struct {
	db DBTX
}

// NewFeedbackRepository создаёт репозиторий фидбека.
func NewFeedbackRepository(db DBTX) FeedbackRepository {
	return &feedbackRepo{db: db}
}

const feedbackColumns = `id, project_id, type, description, status,
		submitter_email, created_at, resolved_at`

func scanFeedback(row pgx.Row) (*model.Feedback, error) {
	f := &model.Feedback{}
	err := row.Scan(
		&f.ID, &f.ProjectID, &f.Type, &f.Description, &f.Status,
		&f.SubmitterEmail, &f.CreatedAt, &f.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *feedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	query := `
		INSERT INTO feedback (id, project_id, type, description, status, submitter_email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		f.ID, f.ProjectID, f.Type, f.Description, f.Status, f.SubmitterEmail,
	).Scan(&f.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания фидбека: %w", err)
	}
	return nil
}

func (r *feedbackRepo) GetByID(ctx context.Context, id string) (*model.Feedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM feedback WHERE id = $1`, feedbackColumns)

	f, err := scanFeedback(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения фидбека: %w", err)
	}
	return f, nil
}

func (r *feedbackRepo) ListByProject(ctx context.Context, projectID string) ([]*model.Feedback, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM feedback
		WHERE project_id = $1
		ORDER BY created_at ASC`, feedbackColumns)

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка фидбека: %w", err)
	}
	defer rows.Close()

	var result []*model.Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования фидбека: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *feedbackRepo) TransitionStatus(ctx context.Context, id string, from, to model.FeedbackStatus, resolvedAt *time.Time) error {
	// Условие status = from — защита от конкурирующих переходов:
	// второй запрос с уже неактуальным from не обновит ни одной строки.
	query := `
		UPDATE feedback
		SET status = $3, resolved_at = COALESCE($4, resolved_at)
		WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, id, from, to, resolvedAt)
	if err != nil {
		return fmt.Errorf("ошибка перехода статуса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо записи нет, либо статус изменился — различаем по наличию записи
		var exists bool
		if checkErr := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM feedback WHERE id = $1)`, id,
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("ошибка проверки фидбека: %w", checkErr)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

func (r *feedbackRepo) AppendHistory(ctx context.Context, h *model.StatusChange) error {
	query := `
		INSERT INTO feedback_status_history (id, feedback_id, old_status, new_status, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING changed_at`

	err := r.db.QueryRow(ctx, query,
		h.ID, h.FeedbackID, h.OldStatus, h.NewStatus, h.Note,
	).Scan(&h.ChangedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи истории статусов: %w", err)
	}
	return nil
}

func (r *feedbackRepo) History(ctx context.Context, feedbackID string) ([]*model.StatusChange, error) {
	query := `
		SELECT id, feedback_id, old_status, new_status, note, changed_at
		FROM feedback_status_history
		WHERE feedback_id = $1
		ORDER BY changed_at ASC`

	rows, err := r.db.Query(ctx, query, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории статусов: %w", err)
	}
	defer rows.Close()

	var result []*model.StatusChange
	for rows.Next() {
		h := &model.StatusChange{}
		if err := rows.Scan(&h.ID, &h.FeedbackID, &h.OldStatus, &h.NewStatus, &h.Note, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования истории: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}
