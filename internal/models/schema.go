package models

import (
	"time"

	"github.com/google/uuid"
)

// Rule описывает правило валидации контента секции или всей схемы.
// Формат JSON является частью контракта с сервисом генерации.
type Rule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Severity    string         `json:"severity"`
}

// SectionDef описывает секцию, которую должно содержать предложение по схеме.
type SectionDef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description"`
	Order        int    `json:"order"`
	Required     bool   `json:"required"`
	MinLength    int    `json:"min_length"`
	MaxLength    int    `json:"max_length"`
	OutputFormat string `json:"output_format"`
	Rules        []Rule `json:"rules"`
}

// Schema описывает шаблон предложения: именованные секции плюс глобальные правила.
// Колонки sections и global_rules хранятся в базе как сериализованный JSON,
// поэтому поля помечены db:"-" и заполняются репозиторием.
type Schema struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Version     string       `db:"version" json:"version"`
	Description string       `db:"description" json:"description"`
	Sections    []SectionDef `db:"-" json:"sections"`
	GlobalRules []Rule       `db:"-" json:"global_rules"`
	IsActive    bool         `db:"is_active" json:"is_active"`
	CreatedBy   uuid.UUID    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// SchemaVersion хранит неизменяемый снимок схемы, сделанный перед её обновлением.
type SchemaVersion struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	SchemaID      uuid.UUID    `db:"schema_id" json:"schema_id"`
	VersionNumber int          `db:"version_number" json:"version_number"`
	Name          string       `db:"name" json:"name"`
	Version       string       `db:"version" json:"version"`
	Description   string       `db:"description" json:"description"`
	Sections      []SectionDef `db:"-" json:"sections"`
	GlobalRules   []Rule       `db:"-" json:"global_rules"`
	ChangeSummary string       `db:"change_summary" json:"change_summary"`
	CreatedBy     uuid.UUID    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// SchemaChange описывает новое состояние схемы при обновлении.
// Снимок прежнего состояния делается репозиторием до применения изменений.
type SchemaChange struct {
	Name          string
	Version       string
	Description   string
	Sections      []SectionDef
	GlobalRules   []Rule
	ChangeSummary string
}

// SchemaSyncStatus описывает результат сверки схем с сервисом генерации.
type SchemaSyncStatus struct {
	Synced  []uuid.UUID `json:"synced"`
	Missing []uuid.UUID `json:"missing"`
}
