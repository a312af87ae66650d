package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/gofeedhub/internal/config"
	"github.com/bigkaa/gofeedhub/internal/database"
	"github.com/bigkaa/gofeedhub/internal/domain/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool, контейнер останавливается через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("feedhub_test"),
		postgres.WithUsername("feedhub"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	os.Setenv("FH_DB_HOST", host)
	os.Setenv("FH_DB_PORT", port.Port())
	os.Setenv("FH_DB_NAME", "feedhub_test")
	os.Setenv("FH_DB_USER", "feedhub")
	os.Setenv("FH_DB_PASSWORD", "test-password")
	os.Setenv("FH_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// seedUser создаёт пользователя (FK для проектов).
func seedUser(t *testing.T, pool *pgxpool.Pool) *model.User {
	t.Helper()
	repo := NewUserRepository(pool)
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "$2a$10$fakehashfortests",
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Создание пользователя: %v", err)
	}
	return u
}

// seedProject создаёт проект (FK для фидбека).
func seedProject(t *testing.T, pool *pgxpool.Pool, ownerID string) *model.Project {
	t.Helper()
	repo := NewProjectRepository(pool)
	p := &model.Project{
		ID:                 uuid.New().String(),
		OwnerID:            ownerID,
		Name:               "test-project",
		PublicSlug:         uuid.New().String()[:8],
		FeedbackExpiryDays: 3,
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Создание проекта: %v", err)
	}
	return p
}

// --- Тесты UserRepository ---

func TestUserRepository(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(pool)

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        "owner@example.com",
		PasswordHash: "$2a$10$fakehashfortests",
	}

	// Create
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Дублирующийся email
	dup := &model.User{
		ID:           uuid.New().String(),
		Email:        "owner@example.com",
		PasswordHash: "$2a$10$fakehashfortests",
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("дублирующийся email: ожидали ErrConflict, получили: %v", err)
	}

	// GetByEmail
	got, err := repo.GetByEmail(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() ошибка: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %q, хотели %q", got.ID, u.ID)
	}

	// GetByID
	got2, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got2.Email != "owner@example.com" {
		t.Errorf("Email = %q, хотели %q", got2.Email, "owner@example.com")
	}

	// Несуществующий пользователь
	if _, err := repo.GetByEmail(ctx, "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("неизвестный email: ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты ProjectRepository ---

func TestProjectCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewProjectRepository(pool)
	owner := seedUser(t, pool)

	p := &model.Project{
		ID:                 uuid.New().String(),
		OwnerID:            owner.ID,
		Name:               "My App",
		Description:        "Описание",
		ProductURL:         "https://example.com",
		PublicSlug:         "abc12345",
		FeedbackExpiryDays: 7,
	}

	// Create
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("CreatedAt/UpdatedAt не установлены")
	}

	// Дублирующийся slug
	dup := &model.Project{
		ID:                 uuid.New().String(),
		OwnerID:            owner.ID,
		Name:               "Other App",
		PublicSlug:         "abc12345",
		FeedbackExpiryDays: 3,
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("дублирующийся slug: ожидали ErrConflict, получили: %v", err)
	}

	// GetBySlug
	got, err := repo.GetBySlug(ctx, "abc12345")
	if err != nil {
		t.Fatalf("GetBySlug() ошибка: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID = %q, хотели %q", got.ID, p.ID)
	}

	// GetByIDForOwner — чужой владелец неотличим от несуществующего
	if _, err := repo.GetByIDForOwner(ctx, p.ID, uuid.New().String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("чужой владелец: ожидали ErrNotFound, получили: %v", err)
	}
	if _, err := repo.GetByIDForOwner(ctx, p.ID, owner.ID); err != nil {
		t.Errorf("свой проект: %v", err)
	}

	// ListByOwner
	list, err := repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ListByOwner() ошибка: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListByOwner() вернул %d записей, хотели 1", len(list))
	}

	// Update
	p.Name = "Renamed"
	p.FeedbackExpiryDays = 14
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	got2, _ := repo.GetByID(ctx, p.ID)
	if got2.Name != "Renamed" || got2.FeedbackExpiryDays != 14 {
		t.Errorf("После Update: Name=%q, FeedbackExpiryDays=%d", got2.Name, got2.FeedbackExpiryDays)
	}

	// Update чужим владельцем
	foreign := *p
	foreign.OwnerID = uuid.New().String()
	if err := repo.Update(ctx, &foreign); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update чужим владельцем: ожидали ErrNotFound, получили: %v", err)
	}

	// Delete
	if err := repo.Delete(ctx, p.ID, owner.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Тесты FeedbackRepository ---

func TestFeedbackCRUDAndHistory(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFeedbackRepository(pool)
	owner := seedUser(t, pool)
	project := seedProject(t, pool, owner.ID)

	email := "reporter@example.com"
	f := &model.Feedback{
		ID:             uuid.New().String(),
		ProjectID:      project.ID,
		Type:           model.TypeBug,
		Description:    "Кнопка не работает",
		Status:         model.StatusNew,
		SubmitterEmail: &email,
	}

	// Create
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if f.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Второй фидбек без email
	f2 := &model.Feedback{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		Type:        model.TypeFeature,
		Description: "Хочу тёмную тему",
		Status:      model.StatusNew,
	}
	if err := repo.Create(ctx, f2); err != nil {
		t.Fatalf("Create() второй фидбек: %v", err)
	}

	// GetByID
	got, err := repo.GetByID(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.SubmitterEmail == nil || *got.SubmitterEmail != email {
		t.Errorf("SubmitterEmail = %v, хотели %q", got.SubmitterEmail, email)
	}

	// ListByProject — старые записи первыми
	list, err := repo.ListByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("ListByProject() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListByProject() вернул %d записей, хотели 2", len(list))
	}
	if list[0].ID != f.ID {
		t.Error("ListByProject: первая запись должна быть самой старой")
	}

	// AppendHistory + History
	note := "смотрим"
	entries := []*model.StatusChange{
		{ID: uuid.New().String(), FeedbackID: f.ID, OldStatus: model.StatusNew, NewStatus: model.StatusNew},
		{ID: uuid.New().String(), FeedbackID: f.ID, OldStatus: model.StatusNew, NewStatus: model.StatusAccepted, Note: &note},
	}
	for _, e := range entries {
		if err := repo.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory() ошибка: %v", err)
		}
		if e.ChangedAt.IsZero() {
			t.Error("ChangedAt не установлен")
		}
	}

	history, err := repo.History(ctx, f.ID)
	if err != nil {
		t.Fatalf("History() ошибка: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History() вернул %d записей, хотели 2", len(history))
	}
	if history[0].NewStatus != model.StatusNew || history[1].NewStatus != model.StatusAccepted {
		t.Error("History: записи должны идти в хронологическом порядке")
	}
	if history[1].Note == nil || *history[1].Note != note {
		t.Errorf("History: note = %v, хотели %q", history[1].Note, note)
	}
}

func TestFeedbackTransitionStatus(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFeedbackRepository(pool)
	owner := seedUser(t, pool)
	project := seedProject(t, pool, owner.ID)

	f := &model.Feedback{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		Type:        model.TypeBug,
		Description: "текст",
		Status:      model.StatusNew,
	}
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Успешный переход NEW -> ACCEPTED
	if err := repo.TransitionStatus(ctx, f.ID, model.StatusNew, model.StatusAccepted, nil); err != nil {
		t.Fatalf("TransitionStatus() ошибка: %v", err)
	}
	got, _ := repo.GetByID(ctx, f.ID)
	if got.Status != model.StatusAccepted {
		t.Errorf("Status = %q, хотели ACCEPTED", got.Status)
	}
	if got.ResolvedAt != nil {
		t.Error("ResolvedAt должен оставаться NULL для нетерминального статуса")
	}

	// Конкурирующий переход: статус уже не NEW
	if err := repo.TransitionStatus(ctx, f.ID, model.StatusNew, model.StatusRejected, nil); !errors.Is(err, ErrStaleStatus) {
		t.Errorf("устаревший статус: ожидали ErrStaleStatus, получили: %v", err)
	}

	// Терминальный переход с resolved_at
	now := time.Now().UTC().Truncate(time.Microsecond)
	if err := repo.TransitionStatus(ctx, f.ID, model.StatusAccepted, model.StatusResolved, &now); err != nil {
		t.Fatalf("TransitionStatus() в RESOLVED: %v", err)
	}
	got2, _ := repo.GetByID(ctx, f.ID)
	if got2.ResolvedAt == nil || !got2.ResolvedAt.Equal(now) {
		t.Errorf("ResolvedAt = %v, хотели %v", got2.ResolvedAt, now)
	}

	// Несуществующий фидбек
	err := repo.TransitionStatus(ctx, uuid.New().String(), model.StatusNew, model.StatusAccepted, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующий фидбек: ожидали ErrNotFound, получили: %v", err)
	}
}

// --- Транзакция переход + история через TxRunner ---

func TestTxRunnerRollback(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	owner := seedUser(t, pool)
	project := seedProject(t, pool, owner.ID)
	repo := NewFeedbackRepository(pool)

	f := &model.Feedback{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		Type:        model.TypeBug,
		Description: "текст",
		Status:      model.StatusNew,
	}
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	runner := NewTxRunner(pool)
	boom := errors.New("boom")

	// Ошибка внутри fn откатывает уже выполненный переход
	err := runner.RunInTx(ctx, func(tx pgx.Tx) error {
		txRepo := NewFeedbackRepository(tx)
		if err := txRepo.TransitionStatus(ctx, f.ID, model.StatusNew, model.StatusAccepted, nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx: ожидали boom, получили: %v", err)
	}
	got, _ := repo.GetByID(ctx, f.ID)
	if got.Status != model.StatusNew {
		t.Errorf("после отката Status = %q, хотели NEW", got.Status)
	}

	// Успешная транзакция: переход + история атомарно
	note := "принято"
	err = runner.RunInTx(ctx, func(tx pgx.Tx) error {
		txRepo := NewFeedbackRepository(tx)
		if err := txRepo.TransitionStatus(ctx, f.ID, model.StatusNew, model.StatusAccepted, nil); err != nil {
			return err
		}
		return txRepo.AppendHistory(ctx, &model.StatusChange{
			ID:         uuid.New().String(),
			FeedbackID: f.ID,
			OldStatus:  model.StatusNew,
			NewStatus:  model.StatusAccepted,
			Note:       &note,
		})
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
	got2, _ := repo.GetByID(ctx, f.ID)
	if got2.Status != model.StatusAccepted {
		t.Errorf("после коммита Status = %q, хотели ACCEPTED", got2.Status)
	}
	history, err := repo.History(ctx, f.ID)
	if err != nil {
		t.Fatalf("History() ошибка: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("History() вернул %d записей, хотели 1", len(history))
	}
}
