package sqlite

import (
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-starwars-api/internal/models"
)

// userEntity — строка таблицы users в SQLite.
type userEntity struct {
	ID           string    `gorm:"primaryKey;type:text"`
	Email        string    `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `gorm:"type:text;not null"`
	Role         string    `gorm:"type:text;not null;default:USER"`
	FirstName    string    `gorm:"type:text;not null"`
	LastName     string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"not null;index"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (userEntity) TableName() string { return "users" }

func toEntity(u *models.User) *userEntity {
	return &userEntity{
		ID:           u.ID.String(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (e *userEntity) toModel() (*models.User, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, err
	}

	role, err := models.ParseRole(e.Role)
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:           id,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		Role:         role,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}, nil
}
