package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/models"
)

//go:generate mockgen -source=storage.go -destination=../../mocks/storage_mock.go -package=mocks

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id).
	ErrAlreadyExists = errors.New("already exists")
)

// UserFilter — параметры выборки списка пользователей.
// Пустой Email означает отсутствие фильтра.
type UserFilter struct {
	Email string
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (точное совпадение).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListUsers возвращает пользователей в порядке создания.
	ListUsers(ctx context.Context, filter UserFilter) ([]*models.User, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	// Ping проверяет доступность БД (readiness).
	Ping(ctx context.Context) error
	Close()
}
