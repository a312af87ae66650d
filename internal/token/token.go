// Пакет token — выпуск и проверка access-токенов Feedhub.
//
// Сервис подписывает JWT самостоятельно (RS256). Публичный ключ
// публикуется через JWKS (/.well-known/jwks.json), а middleware
// проверяет подписи через keyfunc поверх того же jwkset-хранилища.
// Приватный ключ загружается из PEM (FH_JWT_PRIVATE_KEY_PATH) либо
// генерируется при старте — тогда все токены инвалидируются рестартом.
package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Claims — структура JWT claims Feedhub.
type Claims struct {
	jwt.RegisteredClaims
	// Email пользователя — дублируется в токене для журналирования
	Email string `json:"email,omitempty"`
}

// Issuer выпускает подписанные access-токены и отдаёт JWKS.
type Issuer struct {
	privateKey *rsa.PrivateKey
	keyID      string
	issuer     string
	accessTTL  time.Duration
	storage    jwkset.Storage
	logger     *slog.Logger
}

// Options — параметры создания Issuer.
type Options struct {
	// Путь к приватному RSA ключу в PEM (пусто — сгенерировать)
	PrivateKeyPath string
	// Issuer выдаваемых токенов
	Issuer string
	// Время жизни access token
	AccessTTL time.Duration
}

// NewIssuer создаёт Issuer: загружает или генерирует ключ
// и регистрирует его в jwkset-хранилище.
func NewIssuer(opts Options, logger *slog.Logger) (*Issuer, error) {
	var key *rsa.PrivateKey
	var err error

	if opts.PrivateKeyPath != "" {
		key, err = loadPrivateKey(opts.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка приватного ключа: %w", err)
		}
		logger.Info("Приватный ключ JWT загружен",
			slog.String("path", opts.PrivateKeyPath),
		)
	} else {
		key, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("генерация RSA ключа: %w", err)
		}
		logger.Warn("FH_JWT_PRIVATE_KEY_PATH не задан, ключ сгенерирован — токены не переживут рестарт")
	}

	kid := keyIDFor(&key.PublicKey)

	// Регистрируем ключ в jwkset-хранилище: из него же строится
	// keyfunc для middleware и JSON для /.well-known/jwks.json
	storage := jwkset.NewMemoryStorage()
	jwk, err := jwkset.NewJWKFromKey(key, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			KID: kid,
			ALG: jwkset.AlgRS256,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}
	if err := storage.KeyWrite(context.Background(), jwk); err != nil {
		return nil, fmt.Errorf("запись JWK в хранилище: %w", err)
	}

	return &Issuer{
		privateKey: key,
		keyID:      kid,
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		storage:    storage,
		logger:     logger.With(slog.String("component", "token_issuer")),
	}, nil
}

// Issue выпускает access-токен для пользователя.
func (i *Issuer) Issue(userID, email string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Email: email,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = i.keyID

	signed, err := t.SignedString(i.privateKey)
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, nil
}

// Keyfunc возвращает keyfunc для проверки подписей выпущенных токенов.
func (i *Issuer) Keyfunc() (keyfunc.Keyfunc, error) {
	kf, err := keyfunc.New(keyfunc.Options{
		Storage: i.storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}
	return kf, nil
}

// JWKS возвращает JSON публичной части ключей (RFC 7517).
func (i *Issuer) JWKS(ctx context.Context) (json.RawMessage, error) {
	raw, err := i.storage.JSONPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("сериализация JWKS: %w", err)
	}
	return raw, nil
}

// loadPrivateKey читает RSA приватный ключ из PEM-файла.
// Поддерживаются форматы PKCS#1 и PKCS#8.
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("файл %s не содержит PEM-блока", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("парсинг приватного ключа: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("ключ в %s не является RSA", path)
	}
	return rsaKey, nil
}

// keyIDFor вычисляет стабильный kid из публичного ключа.
func keyIDFor(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return hex.EncodeToString(sum[:8])
}
