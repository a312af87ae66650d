// auth.go — сервис регистрации и аутентификации владельцев проектов.
// Пароли хранятся как bcrypt-хеши, вход выдаёт подписанный access token.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/gofeedhub/internal/domain/model"
	"github.com/bigkaa/gofeedhub/internal/repository"
	"github.com/bigkaa/gofeedhub/internal/token"
)

// AuthService — сервис регистрации и входа пользователей.
type AuthService struct {
	userRepo repository.UserRepository
	issuer   *token.Issuer
	logger   *slog.Logger
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(userRepo repository.UserRepository, issuer *token.Issuer, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		issuer:   issuer,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// Register создаёт нового пользователя с bcrypt-хешем пароля.
// Возвращает ErrConflict, если email уже занят.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	u := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: email '%s' уже зарегистрирован", ErrConflict, email)
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	s.logger.Info("Пользователь зарегистрирован",
		slog.String("user_id", u.ID),
		slog.String("email", u.Email),
	)

	return u, nil
}

// Login проверяет пароль и выдаёт access token.
// Для несуществующего email и неверного пароля возвращается одна и та же
// ошибка ErrInvalidCredentials — ответ не раскрывает, зарегистрирован ли email.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	accessToken, err := s.issuer.Issue(u.ID, u.Email)
	if err != nil {
		return "", fmt.Errorf("выпуск токена: %w", err)
	}

	s.logger.Info("Пользователь вошёл в систему",
		slog.String("user_id", u.ID),
	)

	return accessToken, nil
}

// Me возвращает пользователя по ID из токена.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}
