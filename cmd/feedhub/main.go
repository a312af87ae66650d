// Точка входа Feedhub — сервис сбора фидбека о продуктах.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует издателя токенов, сервисный слой и API handlers,
// запускает мониторинг зависимостей (topologymetrics),
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/gofeedhub/internal/api/handlers"
	"github.com/bigkaa/gofeedhub/internal/api/middleware"
	"github.com/bigkaa/gofeedhub/internal/config"
	"github.com/bigkaa/gofeedhub/internal/database"
	"github.com/bigkaa/gofeedhub/internal/repository"
	"github.com/bigkaa/gofeedhub/internal/server"
	"github.com/bigkaa/gofeedhub/internal/service"
	"github.com/bigkaa/gofeedhub/internal/token"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Feedhub запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждение о дефолтном значении topologymetrics
	if os.Getenv("FH_DEPHEALTH_GROUP") == "" {
		logger.Warn("FH_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Издатель access-токенов (RS256 + JWKS)
	issuer, err := token.NewIssuer(token.Options{
		PrivateKeyPath: cfg.JWTPrivateKeyPath,
		Issuer:         cfg.JWTIssuer,
		AccessTTL:      cfg.JWTAccessTTL,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания издателя токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Repositories
	userRepo := repository.NewUserRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 7. Services
	authSvc := service.NewAuthService(userRepo, issuer, logger)
	projectSvc := service.NewProjectService(projectRepo, cfg.SlugLength, cfg.DefaultExpiryDays, logger)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, projectRepo, txRunner, logger)

	// 8. Readiness checker PostgreSQL
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		authSvc,
		projectSvc,
		feedbackSvc,
		issuer,
		logger,
	)

	// 10. JWT middleware поверх keyfunc издателя токенов
	kf, err := issuer.Keyfunc()
	if err != nil {
		logger.Error("Ошибка создания keyfunc", slog.String("error", err.Error()))
		os.Exit(1)
	}
	jwtAuth := middleware.NewJWTAuth(kf, cfg.JWTIssuer, cfg.JWTLeeway, logger)
	logger.Info("JWT middleware инициализирован",
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 11. Ограничитель частоты публичных endpoints
	publicLimiter := middleware.NewRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst)
	defer publicLimiter.Stop()

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"feedhub",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
			defer dephealthSvc.Stop()
		}
	}

	// 13. HTTP-сервер с graceful shutdown
	srv := server.New(cfg, logger, apiHandler, jwtAuth, publicLimiter)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
