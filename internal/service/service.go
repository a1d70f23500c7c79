// service содержит бизнес-логику аутентификации:
// вход, регистрацию, перевыпуск access-токена и проверку токенов для HTTP-гейта.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования, если переданные зависимости потокобезопасны;
//   - токены stateless: сервер их не хранит и не отзывает, logout сводится
//     к очистке cookie на транспорте;
//   - ошибки возвращаются сентинелами ниже и маппятся транспортом в HTTP-статусы
//     (см. internal/errors).
package service

import (
	"errors"
	"time"

	"github.com/pribylovaa/go-starwars-api/internal/config"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/storage"
	"github.com/pribylovaa/go-starwars-api/internal/token"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна или пользователь не найден.
	// Какое именно поле неверно, не раскрывается. HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken — e-mail уже занят. HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrTokenExpired — срок действия токена истёк. HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid — подпись, структура или claims токена неверны. HTTP 401.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrUnauthenticated — учётные данные не предъявлены (нет заголовка/cookie). HTTP 401.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden — субъект аутентифицирован, но его роль не допускается маршрутом. HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrTokenIssuance — не удалось подписать токен (конфигурация или сбой библиотеки). HTTP 500.
	ErrTokenIssuance = errors.New("token issuance failed")

	// ErrInvalidInput — входные данные регистрации не прошли проверку. HTTP 400.
	// Всегда сопровождается одной из ошибок поля ниже.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidEmail — e-mail не является корректным адресом вида user@domain.tld.
	ErrInvalidEmail = errors.New("email must be a valid address")

	// ErrInvalidPassword — длина пароля вне 6..50 символов или больше 72 байт.
	ErrInvalidPassword = errors.New("password must be 6 to 50 characters")

	// ErrInvalidName — имя или фамилия пусты после обрезки пробелов.
	ErrInvalidName = errors.New("first and last name are required")

	// ErrUserNotFound — пользователь с таким идентификатором не найден. HTTP 404.
	ErrUserNotFound = errors.New("user not found")
)

// PasswordHasher — одностороннее хэширование и сравнение паролей.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// TokenSigner — выпуск и проверка подписанных токенов.
type TokenSigner interface {
	Issue(payload models.TokenPayload, key token.Key) (string, time.Time, error)
	Verify(tok string, key token.Key) (models.TokenPayload, error)
}

// Service описывает бизнес-логику аутентификации.
type Service struct {
	users  storage.UserStorage
	hasher PasswordHasher
	signer TokenSigner
	keys   token.Keys
	cfg    config.AuthConfig
	now    func() time.Time
}

// New создаёт новый экземпляр Service. Ключи access/refresh строятся из cfg.
func New(users storage.UserStorage, hasher PasswordHasher, signer TokenSigner, cfg config.AuthConfig) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		signer: signer,
		keys:   token.KeysFrom(cfg),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Keys возвращает ключи, которыми сервис выпускает токены.
func (s *Service) Keys() token.Keys {
	return s.keys
}
