package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает сущность пользователя платформы.
type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Name             string     `db:"name" json:"name"`
	Role             string     `db:"role" json:"role"`
	AssignedSchemaID *uuid.UUID `db:"assigned_schema_id" json:"assigned_schema_id,omitempty"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// UserStats агрегирует предложения пользователя по статусам.
type UserStats struct {
	Total    int `db:"total" json:"total"`
	Drafts   int `db:"drafts" json:"drafts"`
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
}

// Actor представляет аутентифицированного инициатора операции.
// Заполняется middleware из проверенного токена и передаётся во все сервисы явно.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// IsAdmin сообщает, имеет ли инициатор права администратора.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
