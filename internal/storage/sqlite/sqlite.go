// sqlite — реализация storage.Storage поверх GORM и SQLite.
// Используется для локального запуска без PostgreSQL и в тестах.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/models"
	"github.com/pribylovaa/go-starwars-api/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Storage struct {
	db *gorm.DB
}

// New открывает базу по dsn (например, "file:starwars.db" или ":memory:")
// и приводит схему таблицы users к актуальной через AutoMigrate.
func New(dsn string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// SQLite не допускает параллельной записи; для :memory: каждое соединение — отдельная база.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userEntity{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Ping проверяет доступность БД.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close закрывает соединение с базой.
func (s *Storage) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.sqlite.SaveUser"

	if err := s.db.WithContext(ctx).Create(toEntity(user)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByEmail находит пользователя по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.sqlite.UserByEmail"

	return s.first(ctx, op, "email = ?", email)
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.sqlite.UserByID"

	return s.first(ctx, op, "id = ?", id.String())
}

// ListUsers возвращает пользователей в порядке создания.
func (s *Storage) ListUsers(ctx context.Context, filter storage.UserFilter) ([]*models.User, error) {
	const op = "storage.sqlite.ListUsers"

	q := s.db.WithContext(ctx).Order("created_at").Order("id")
	if filter.Email != "" {
		q = q.Where("email = ?", filter.Email)
	}

	var entities []userEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users := make([]*models.User, 0, len(entities))
	for i := range entities {
		u, err := entities[i].toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}

	return users, nil
}

func (s *Storage) first(ctx context.Context, op, cond string, arg any) (*models.User, error) {
	var e userEntity
	if err := s.db.WithContext(ctx).Where(cond, arg).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := e.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
