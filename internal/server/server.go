// Пакет server — HTTP-сервер Feedhub с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/gofeedhub/internal/api/handlers"
	"github.com/bigkaa/gofeedhub/internal/api/middleware"
	"github.com/bigkaa/gofeedhub/internal/config"
)

// Server — HTTP-сервер Feedhub.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
// publicLimiter — ограничитель частоты публичных endpoints (может быть nil).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	publicLimiter *middleware.RateLimiter,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth,
			"/health/",
			"/metrics",
			"/.well-known/",
			"/api/auth/register",
			"/api/auth/login",
			"/api/public/",
		))
	}

	// Служебные endpoints
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)
	router.Get("/.well-known/jwks.json", handler.JWKS)

	// Аутентификация
	router.Post("/api/auth/register", handler.Register)
	router.Post("/api/auth/login", handler.Login)
	router.Get("/api/auth/me", handler.Me)

	// Проекты владельца
	router.Route("/api/projects", func(r chi.Router) {
		r.Get("/", handler.ListProjects)
		r.Post("/", handler.CreateProject)
		r.Get("/{id}", handler.GetProject)
		r.Put("/{id}", handler.UpdateProject)
		r.Delete("/{id}", handler.DeleteProject)
		r.Get("/{id}/feedback", handler.ListProjectFeedback)
	})

	// Триаж фидбека
	router.Route("/api/feedback", func(r chi.Router) {
		r.Get("/{id}", handler.GetFeedback)
		r.Patch("/{id}/status", handler.UpdateFeedbackStatus)
		r.Get("/{id}/history", handler.GetFeedbackHistory)
	})

	// Публичная форма фидбека, с ограничением частоты
	router.Route("/api/public", func(r chi.Router) {
		if publicLimiter != nil {
			r.Use(publicLimiter.Middleware())
		}
		r.Get("/{slug}", handler.GetPublicProject)
		r.Post("/{slug}/feedback", handler.SubmitPublicFeedback)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Проверяем, начинается ли путь с исключённого префикса
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Применяем JWT middleware
			jwtMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
