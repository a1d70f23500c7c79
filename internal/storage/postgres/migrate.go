package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pribylovaa/go-starwars-api/migrations"
)

// Migrator применяет встроенные SQL-миграции через golang-migrate.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator создает мигратор для базы по dbURL.
// Схема postgres:// (postgresql://) заменяется на pgx5:// для драйвера pgx/v5.
func NewMigrator(dbURL string) (*Migrator, error) {
	const op = "storage.postgres.NewMigrator"

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dbURL))
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Migrator{m: m}, nil
}

// Up применяет все новые миграции. Отсутствие изменений ошибкой не считается.
func (m *Migrator) Up() error {
	const op = "storage.postgres.Migrator.Up"

	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Version возвращает текущую версию схемы; 0 — миграции ещё не применялись.
func (m *Migrator) Version() (uint, bool, error) {
	const op = "storage.postgres.Migrator.Version"

	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	return v, dirty, nil
}

// Close освобождает источник и соединение мигратора.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Migrate — однократный прогон миграций при старте сервиса.
func Migrate(dbURL string) error {
	m, err := NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up()
}

func migrateURL(dbURL string) string {
	if rest, ok := strings.CutPrefix(dbURL, "postgres://"); ok {
		return "pgx5://" + rest
	}
	if rest, ok := strings.CutPrefix(dbURL, "postgresql://"); ok {
		return "pgx5://" + rest
	}

	return dbURL
}
