package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gofeedhub/internal/domain/model"
)

// ProjectRepository — интерфейс CRUD для таблицы projects.
type ProjectRepository interface {
	// Create создаёт новый проект.
	Create(ctx context.Context, p *model.Project) error
	// GetByID возвращает проект по UUID без проверки владельца.
	GetByID(ctx context.Context, id string) (*model.Project, error)
	// GetByIDForOwner возвращает проект по UUID, принадлежащий ownerID.
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Project, error)
	// GetBySlug возвращает проект по публичному slug.
	GetBySlug(ctx context.Context, slug string) (*model.Project, error)
	// ListByOwner возвращает проекты владельца, новые первыми.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Project, error)
	// Update обновляет изменяемые поля проекта владельца.
	Update(ctx context.Context, p *model.Project) error
	// Delete удаляет проект владельца вместе с фидбеком (каскадно).
	Delete(ctx context.Context, id, ownerID string) error
}

// projectRepo — реализация ProjectRepository.
type projectRepo struct {
	db DBTX
}

// NewProjectRepository создаёт репозиторий проектов.
func NewProjectRepository(db DBTX) ProjectRepository {
	return &projectRepo{db: db}
}

const projectColumns = `id, owner_id, name, description, product_url, public_slug,
		feedback_expiry_days, created_at, updated_at`

func scanProject(row pgx.Row) (*model.Project, error) {
	p := &model.Project{}
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.ProductURL, &p.PublicSlug,
		&p.FeedbackExpiryDays, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	query := `
		INSERT INTO projects (id, owner_id, name, description, product_url,
			public_slug, feedback_expiry_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Description, p.ProductURL,
		p.PublicSlug, p.FeedbackExpiryDays,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: public_slug уже занят", ErrConflict)
		}
		return fmt.Errorf("ошибка создания проекта: %w", err)
	}
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1`, projectColumns)

	p, err := scanProject(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проекта: %w", err)
	}
	return p, nil
}

func (r *projectRepo) GetByIDForOwner(ctx context.Context, id, ownerID string) (*model.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 AND owner_id = $2`, projectColumns)

	p, err := scanProject(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проекта владельца: %w", err)
	}
	return p, nil
}

func (r *projectRepo) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE public_slug = $1`, projectColumns)

	p, err := scanProject(r.db.QueryRow(ctx, query, slug))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения проекта по slug: %w", err)
	}
	return p, nil
}

func (r *projectRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM projects
		WHERE owner_id = $1
		ORDER BY created_at DESC`, projectColumns)

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка проектов: %w", err)
	}
	defer rows.Close()

	var result []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования проекта: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project) error {
	query := `
		UPDATE projects
		SET name = $3, description = $4, product_url = $5,
			feedback_expiry_days = $6, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Description, p.ProductURL, p.FeedbackExpiryDays,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления проекта: %w", err)
	}
	return nil
}

func (r *projectRepo) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления проекта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
