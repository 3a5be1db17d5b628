package models

import (
	"time"

	"github.com/google/uuid"
)

// RuleEnforcement содержит отчёт сервиса генерации о применении правил к секции.
type RuleEnforcement struct {
	Passed           bool  `json:"passed"`
	Violations       []any `json:"violations"`
	Warnings         []any `json:"warnings"`
	StrictViolations int   `json:"strict_violations"`
}

// GeneratedSection хранит сгенерированный контент одной секции вместе с метаданными.
// Формат JSON является частью контракта с сервисом генерации.
type GeneratedSection struct {
	Type             string          `json:"type"`
	Content          string          `json:"content"`
	ConfidenceScore  float64         `json:"confidence_score"`
	Rationale        string          `json:"rationale"`
	SourceReferences []string        `json:"source_references"`
	MissingInfo      []string        `json:"missing_info"`
	Order            int             `json:"order"`
	RuleEnforcement  RuleEnforcement `json:"rule_enforcement"`
}

// Proposal описывает предложение пользователя по выбранной схеме.
// sections и attachments хранятся в базе как сериализованный JSON.
type Proposal struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	Title           string             `db:"title" json:"title"`
	SchemaID        uuid.UUID          `db:"schema_id" json:"schema_id"`
	UserID          uuid.UUID          `db:"user_id" json:"user_id"`
	Status          string             `db:"status" json:"status"`
	CurrentVersion  int                `db:"current_version" json:"current_version"`
	ApprovedVersion *int               `db:"approved_version" json:"approved_version,omitempty"`
	SurveyNotes     string             `db:"survey_notes" json:"survey_notes"`
	Sections        []GeneratedSection `db:"-" json:"sections"`
	Attachments     []string           `db:"-" json:"attachments"`
	AdminComments   *string            `db:"admin_comments" json:"admin_comments,omitempty"`
	ReviewedBy      *uuid.UUID         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	SubmittedAt     *time.Time         `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// ProposalDetails расширяет предложение данными создателя, ревьюера и схемы.
type ProposalDetails struct {
	Proposal
	CreatorName  string            `json:"creator_name"`
	CreatorEmail string            `json:"creator_email"`
	ReviewerName *string           `json:"reviewer_name,omitempty"`
	SchemaName   string            `json:"schema_name"`
	Versions     []ProposalVersion `json:"versions"`
}

// ProposalSummary возвращается в списках: без полного контента секций.
type ProposalSummary struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Status         string    `db:"status" json:"status"`
	CurrentVersion int       `db:"current_version" json:"current_version"`
	SchemaName     string    `db:"schema_name" json:"schema_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ProposalVersion хранит неизменяемый снимок контента предложения.
// version_number всегда совпадает с current_version предложения на момент записи.
type ProposalVersion struct {
	ID                uuid.UUID          `db:"id" json:"id"`
	ProposalID        uuid.UUID          `db:"proposal_id" json:"proposal_id"`
	VersionNumber     int                `db:"version_number" json:"version_number"`
	Sections          []GeneratedSection `db:"-" json:"sections"`
	ChangeDescription string             `db:"change_description" json:"change_description"`
	CreatedBy         uuid.UUID          `db:"created_by" json:"created_by"`
	CreatedByName     *string            `db:"created_by_name" json:"created_by_name,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
}

// ProposalStatusChange описывает полное новое состояние статусных колонок предложения.
// Неизменяемые значения переносятся из текущей строки вызывающей стороной.
type ProposalStatusChange struct {
	Status          string
	SubmittedAt     *time.Time
	AdminComments   *string
	ReviewedBy      *uuid.UUID
	ReviewedAt      *time.Time
	ApprovedVersion *int
}

// ProposalContentUpdate описывает частичное обновление контента предложения.
// nil означает «поле не передано»; непустое значение записывается как есть,
// включая пустую строку и пустой список.
type ProposalContentUpdate struct {
	Title             *string
	Sections          *[]GeneratedSection
	SurveyNotes       *string
	Attachments       *[]string
	ChangeDescription string
}
