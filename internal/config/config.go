// Пакет config — загрузка и валидация конфигурации Feedhub
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Feedhub.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- JWT ---

	// Путь к приватному RSA ключу (PEM). Пусто — ключ генерируется при старте.
	JWTPrivateKeyPath string
	// Issuer выдаваемых токенов
	JWTIssuer string
	// Время жизни access token
	JWTAccessTTL time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Публичные endpoints ---

	// Длина публичного slug проекта
	SlugLength int
	// Срок приёма фидбека по умолчанию (дней), если не задан при создании проекта
	DefaultExpiryDays int
	// Лимит запросов к публичным endpoints (запросов в секунду на IP)
	PublicRateLimit float64
	// Burst публичного rate limiter
	PublicRateBurst int

	// --- Мониторинг зависимостей ---

	// Группа topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FH_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("FH_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FH_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FH_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// FH_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FH_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FH_LOG_LEVEL: %w", err)
	}

	// FH_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FH_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FH_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// FH_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("FH_DB_HOST")
	if err != nil {
		return nil, err
	}

	// FH_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("FH_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FH_DB_PORT: %w", err)
	}

	// FH_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("FH_DB_NAME")
	if err != nil {
		return nil, err
	}

	// FH_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("FH_DB_USER")
	if err != nil {
		return nil, err
	}

	// FH_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("FH_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// FH_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("FH_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("FH_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	// FH_JWT_PRIVATE_KEY_PATH — путь к PEM с RSA ключом (опционально)
	cfg.JWTPrivateKeyPath = getEnvDefault("FH_JWT_PRIVATE_KEY_PATH", "")

	// FH_JWT_ISSUER — issuer токенов (по умолчанию feedhub)
	cfg.JWTIssuer = getEnvDefault("FH_JWT_ISSUER", "feedhub")

	// FH_JWT_ACCESS_TTL — время жизни access token (по умолчанию 1h)
	cfg.JWTAccessTTL, err = getEnvDuration("FH_JWT_ACCESS_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FH_JWT_ACCESS_TTL: %w", err)
	}

	// FH_JWT_LEEWAY — допустимое отклонение времени (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("FH_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FH_JWT_LEEWAY: %w", err)
	}

	// --- Публичные endpoints ---

	// FH_SLUG_LENGTH — длина публичного slug (по умолчанию 8)
	cfg.SlugLength, err = getEnvInt("FH_SLUG_LENGTH", 8)
	if err != nil {
		return nil, fmt.Errorf("FH_SLUG_LENGTH: %w", err)
	}
	if cfg.SlugLength < 6 || cfg.SlugLength > 32 {
		return nil, fmt.Errorf("FH_SLUG_LENGTH: значение %d вне допустимого диапазона 6-32", cfg.SlugLength)
	}

	// FH_DEFAULT_EXPIRY_DAYS — срок приёма фидбека по умолчанию (по умолчанию 3)
	cfg.DefaultExpiryDays, err = getEnvInt("FH_DEFAULT_EXPIRY_DAYS", 3)
	if err != nil {
		return nil, fmt.Errorf("FH_DEFAULT_EXPIRY_DAYS: %w", err)
	}
	if cfg.DefaultExpiryDays < 0 {
		return nil, fmt.Errorf("FH_DEFAULT_EXPIRY_DAYS: значение %d не может быть отрицательным", cfg.DefaultExpiryDays)
	}

	// FH_PUBLIC_RATE_LIMIT — запросов в секунду на IP (по умолчанию 2)
	cfg.PublicRateLimit, err = getEnvFloat("FH_PUBLIC_RATE_LIMIT", 2)
	if err != nil {
		return nil, fmt.Errorf("FH_PUBLIC_RATE_LIMIT: %w", err)
	}
	if cfg.PublicRateLimit <= 0 {
		return nil, fmt.Errorf("FH_PUBLIC_RATE_LIMIT: значение должно быть положительным")
	}

	// FH_PUBLIC_RATE_BURST — burst rate limiter (по умолчанию 5)
	cfg.PublicRateBurst, err = getEnvInt("FH_PUBLIC_RATE_BURST", 5)
	if err != nil {
		return nil, fmt.Errorf("FH_PUBLIC_RATE_BURST: %w", err)
	}
	if cfg.PublicRateBurst < 1 {
		return nil, fmt.Errorf("FH_PUBLIC_RATE_BURST: значение должно быть не меньше 1")
	}

	// --- Мониторинг зависимостей ---

	// FH_DEPHEALTH_GROUP — группа topologymetrics (по умолчанию feedhub)
	cfg.DephealthGroup = getEnvDefault("FH_DEPHEALTH_GROUP", "feedhub")

	// FH_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("FH_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FH_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// FH_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("FH_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FH_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для метрик и мониторинга).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvFloat возвращает значение переменной окружения как float64 или значение по умолчанию.
func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное число: %q", val)
	}
	return f, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
