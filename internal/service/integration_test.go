package service

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
	"github.com/bigkaa/gofeedhub/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupIntegration запускает PostgreSQL контейнер и собирает сервисы
// поверх реальных репозиториев. Транзакционные пути (TxRunner)
// покрываются только здесь.
func setupIntegration(t *testing.T) (*FeedbackService, *ProjectService, *pgxpool.Pool) {
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

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	projectRepo := repository.NewProjectRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	projectSvc := NewProjectService(projectRepo, 8, 3, logger)
	feedbackSvc := NewFeedbackService(feedbackRepo, projectRepo, txRunner, logger)

	return feedbackSvc, projectSvc, pool
}

// seedOwner создаёт пользователя напрямую (FK для проектов).
func seedOwner(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "$2a$10$fakehashfortests",
	}
	if err := repository.NewUserRepository(pool).Create(context.Background(), u); err != nil {
		t.Fatalf("Создание пользователя: %v", err)
	}
	return u.ID
}

func TestSubmitPublicWritesInitialHistory(t *testing.T) {
	feedbackSvc, projectSvc, pool := setupIntegration(t)
	ctx := context.Background()
	owner := seedOwner(t, pool)

	p, err := projectSvc.Create(ctx, owner, CreateParams{Name: "My App"})
	if err != nil {
		t.Fatalf("Create project: %v", err)
	}

	email := "reporter@example.com"
	f, err := feedbackSvc.SubmitPublic(ctx, p.PublicSlug, SubmitParams{
		Type:           "BUG",
		Description:    "Кнопка не работает",
		SubmitterEmail: &email,
	})
	if err != nil {
		t.Fatalf("SubmitPublic: %v", err)
	}
	if f.Status != model.StatusNew {
		t.Errorf("Status = %q, ожидался NEW", f.Status)
	}

	// Начальная запись истории: NEW -> NEW с комментарием о приёме
	history, err := feedbackSvc.History(ctx, f.ID, owner)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("History вернула %d записей, ожидалась 1", len(history))
	}
	first := history[0]
	if first.OldStatus != model.StatusNew || first.NewStatus != model.StatusNew {
		t.Errorf("начальная запись: %s -> %s, ожидалось NEW -> NEW", first.OldStatus, first.NewStatus)
	}
	if first.Note == nil || *first.Note != submissionNote {
		t.Errorf("начальная запись: note = %v, ожидалось %q", first.Note, submissionNote)
	}
}

func TestUpdateStatusFullTriage(t *testing.T) {
	feedbackSvc, projectSvc, pool := setupIntegration(t)
	ctx := context.Background()
	owner := seedOwner(t, pool)

	p, err := projectSvc.Create(ctx, owner, CreateParams{Name: "My App"})
	if err != nil {
		t.Fatalf("Create project: %v", err)
	}
	f, err := feedbackSvc.SubmitPublic(ctx, p.PublicSlug, SubmitParams{
		Type:        "FEATURE",
		Description: "Хочу тёмную тему",
	})
	if err != nil {
		t.Fatalf("SubmitPublic: %v", err)
	}

	// NEW -> ACCEPTED без комментария
	accepted, err := feedbackSvc.UpdateStatus(ctx, f.ID, owner, "ACCEPTED", nil)
	if err != nil {
		t.Fatalf("NEW -> ACCEPTED: %v", err)
	}
	if accepted.Status != model.StatusAccepted || accepted.ResolvedAt != nil {
		t.Errorf("после ACCEPTED: Status=%q, ResolvedAt=%v", accepted.Status, accepted.ResolvedAt)
	}

	// ACCEPTED -> RESOLVED с обязательным комментарием
	note := "реализовано в v2"
	resolved, err := feedbackSvc.UpdateStatus(ctx, f.ID, owner, "RESOLVED", &note)
	if err != nil {
		t.Fatalf("ACCEPTED -> RESOLVED: %v", err)
	}
	if resolved.Status != model.StatusResolved {
		t.Errorf("Status = %q, ожидался RESOLVED", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("ResolvedAt не установлен для терминального статуса")
	}

	// Переход из терминального статуса запрещён
	if _, err := feedbackSvc.UpdateStatus(ctx, f.ID, owner, "ACCEPTED", nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("переход из RESOLVED: ожидался ErrInvalidTransition, получено %v", err)
	}

	// История: приём, ACCEPTED, RESOLVED — в хронологическом порядке
	history, err := feedbackSvc.History(ctx, f.ID, owner)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History вернула %d записей, ожидались 3", len(history))
	}
	if history[1].NewStatus != model.StatusAccepted || history[2].NewStatus != model.StatusResolved {
		t.Errorf("порядок истории: %s, %s, %s",
			history[0].NewStatus, history[1].NewStatus, history[2].NewStatus)
	}
	if history[2].Note == nil || *history[2].Note != note {
		t.Errorf("note закрытия = %v, ожидалось %q", history[2].Note, note)
	}
}
