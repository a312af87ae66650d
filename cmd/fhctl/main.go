// fhctl — CLI для Feedhub: управление проектами и триаж фидбека
// от имени владельца, публичная отправка фидбека по slug.
// Access token хранится в системном keychain (или FH_TOKEN).
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/gofeedhub/internal/apiclient"
	"github.com/bigkaa/gofeedhub/internal/cli/session"
)

// version подставляется при сборке через -ldflags.
var version = "dev"

var serverURL string

var rootCmd = &cobra.Command{
	Use:     "fhctl",
	Short:   "CLI сервиса сбора фидбека Feedhub",
	Version: version,
	Long: `fhctl — клиент REST API Feedhub.

Владелец регистрируется, создаёт проекты и получает публичные ссылки
для сбора фидбека. Команды feedback accept/reject/resolve проводят
фидбек по workflow триажа. Команды public доступны без входа.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("FH_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer,
		"адрес сервера Feedhub (или переменная окружения FH_SERVER)")
}

// cliLogger — logger CLI: предупреждения и ошибки в stderr.
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// newClient создаёт клиент API с токеном из хранилища сессии.
func newClient() *apiclient.Client {
	store := session.NewStore()
	return apiclient.New(serverURL, store.Get, cliLogger())
}

// newAnonClient создаёт клиент API без авторизации (публичные endpoints).
func newAnonClient() *apiclient.Client {
	return apiclient.New(serverURL, nil, cliLogger())
}

// strOrDash возвращает "-" вместо nil.
func strOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
