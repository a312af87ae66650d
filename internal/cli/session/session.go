// Пакет session — хранение access token CLI в системном keychain.
// macOS: Keychain, Windows: Credential Manager, Linux: Secret Service.
// Переменная окружения FH_TOKEN имеет приоритет над keychain —
// удобно для CI и headless-окружений без Secret Service.
package session

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService — имя сервиса в системном keychain.
	keyringService = "Feedhub"
	// keyringUser — идентификатор записи токена.
	keyringUser = "access-token"
	// envToken — переменная окружения с приоритетом над keychain.
	envToken = "FH_TOKEN"
)

// Store — хранилище access token текущей сессии CLI.
type Store struct{}

// NewStore создаёт хранилище сессии.
func NewStore() *Store {
	return &Store{}
}

// Set сохраняет access token в keychain.
func (s *Store) Set(accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("пустой access token")
	}
	if err := keyring.Set(keyringService, keyringUser, accessToken); err != nil {
		return fmt.Errorf("сохранение токена в keychain: %w", err)
	}
	return nil
}

// Get возвращает access token: сначала FH_TOKEN, затем keychain.
// Отсутствие токена — не ошибка, возвращается пустая строка.
func (s *Store) Get() (string, error) {
	if envTok := os.Getenv(envToken); envTok != "" {
		return envTok, nil
	}

	accessToken, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("чтение токена из keychain: %w", err)
	}
	return accessToken, nil
}

// Clear удаляет access token из keychain.
// Отсутствие токена — не ошибка.
func (s *Store) Clear() error {
	err := keyring.Delete(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("удаление токена из keychain: %w", err)
	}
	return nil
}
