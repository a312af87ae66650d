package session

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestStoreRoundTrip(t *testing.T) {
	keyring.MockInit()
	s := NewStore()

	// Пустое хранилище — нет токена, нет ошибки
	got, err := s.Get()
	if err != nil {
		t.Fatalf("Get из пустого хранилища: %v", err)
	}
	if got != "" {
		t.Fatalf("ожидался пустой токен, получено %q", got)
	}

	if err := s.Set("token-abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err = s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "token-abc" {
		t.Errorf("Get = %q, ожидалось token-abc", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err = s.Get()
	if err != nil {
		t.Fatalf("Get после Clear: %v", err)
	}
	if got != "" {
		t.Errorf("после Clear ожидался пустой токен, получено %q", got)
	}

	// Повторный Clear — не ошибка
	if err := s.Clear(); err != nil {
		t.Errorf("повторный Clear: %v", err)
	}
}

func TestStoreSetEmpty(t *testing.T) {
	keyring.MockInit()
	s := NewStore()

	if err := s.Set(""); err == nil {
		t.Error("Set с пустым токеном должен возвращать ошибку")
	}
}

func TestStoreEnvOverride(t *testing.T) {
	keyring.MockInit()
	s := NewStore()

	if err := s.Set("keychain-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	t.Setenv("FH_TOKEN", "env-token")
	got, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "env-token" {
		t.Errorf("FH_TOKEN должен иметь приоритет: получено %q", got)
	}
}
