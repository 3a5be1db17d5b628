package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/proposal-backend/internal/ai"
	"github.com/ignatzorin/proposal-backend/internal/logger"
	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/proposal-backend/internal/validation"
)

// SchemaRepo описывает зависимости SchemaService от слоя хранилища.
type SchemaRepo interface {
	CreateWithSync(ctx context.Context, schema *models.Schema, sync func(context.Context, *models.Schema) error) error
	Update(ctx context.Context, id uuid.UUID, actorID uuid.UUID, apply func(current *models.Schema) (*models.SchemaChange, error)) (*models.Schema, error)
	List(ctx context.Context) ([]models.Schema, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schema, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListVersions(ctx context.Context, schemaID uuid.UUID) ([]models.SchemaVersion, error)
	ActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SchemaGenerator описывает зависимости SchemaService от сервиса генерации.
type SchemaGenerator interface {
	UploadSchema(ctx context.Context, schema *models.Schema) error
	ListSchemas(ctx context.Context) ([]ai.KnownSchema, error)
}

// SchemaService управляет схемами предложений и их синхронизацией с генератором.
type SchemaService struct {
	repo      SchemaRepo
	generator SchemaGenerator
}

// SchemaInput содержит данные для создания или обновления схемы.
type SchemaInput struct {
	Name          string
	Version       string
	Description   string
	Sections      []models.SectionDef
	GlobalRules   []models.Rule
	ChangeSummary string
}

// SchemaUpdateResult возвращает обновлённую схему и, возможно, предупреждение
// о несинхронизированном генераторе.
type SchemaUpdateResult struct {
	Schema  *models.Schema
	Warning string
}

// SchemaSyncFailure описывает схему, которую не удалось выгрузить при SyncAll.
type SchemaSyncFailure struct {
	SchemaID uuid.UUID `json:"schema_id"`
	Error    string    `json:"error"`
}

// SchemaSyncAllResult — итог массовой досинхронизации.
type SchemaSyncAllResult struct {
	Pushed []uuid.UUID         `json:"pushed"`
	Failed []SchemaSyncFailure `json:"failed"`
}

// NewSchemaService создаёт сервис схем.
func NewSchemaService(repo SchemaRepo, generator SchemaGenerator) *SchemaService {
	return &SchemaService{
		repo:      repo,
		generator: generator,
	}
}

// Create создаёт схему и выгружает её в сервис генерации в одной транзакции:
// если генератор недоступен, схемы не появляется. Только для администраторов.
func (s *SchemaService) Create(ctx context.Context, actor models.Actor, in SchemaInput) (*models.Schema, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	if err := validateSchemaInput(in); err != nil {
		return nil, err
	}

	version := in.Version
	if version == "" {
		version = "1.0.0"
	}

	schema := &models.Schema{
		ID:          uuid.New(),
		Name:        in.Name,
		Version:     version,
		Description: in.Description,
		Sections:    fillSectionIDs(in.Sections),
		GlobalRules: fillRuleIDs(in.GlobalRules),
		CreatedBy:   actor.ID,
	}

	err := s.repo.CreateWithSync(ctx, schema, func(ctx context.Context, created *models.Schema) error {
		if err := s.generator.UploadSchema(ctx, created); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeUpstream, "не удалось выгрузить схему в сервис генерации")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithOperation("schema.create").WithFields(logrus.Fields{
		"schema_id": schema.ID,
		"actor_id":  actor.ID,
	}).Info("schema service: схема создана и выгружена в генератор")

	return schema, nil
}

// Update снимает версию прежнего состояния и применяет изменения. Выгрузка в
// генератор идёт после коммита: её сбой не откатывает обновление, а возвращается
// предупреждением — расхождение можно закрыть через SyncAll.
func (s *SchemaService) Update(ctx context.Context, actor models.Actor, id uuid.UUID, in SchemaInput) (*SchemaUpdateResult, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	if err := validateSchemaInput(in); err != nil {
		return nil, err
	}

	changeSummary := in.ChangeSummary
	if changeSummary == "" {
		changeSummary = "Schema updated"
	}

	updated, err := s.repo.Update(ctx, id, actor.ID, func(current *models.Schema) (*models.SchemaChange, error) {
		version := in.Version
		if version == "" {
			version = current.Version
		}

		return &models.SchemaChange{
			Name:          in.Name,
			Version:       version,
			Description:   in.Description,
			Sections:      fillSectionIDs(in.Sections),
			GlobalRules:   fillRuleIDs(in.GlobalRules),
			ChangeSummary: changeSummary,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	result := &SchemaUpdateResult{Schema: updated}

	if err := s.generator.UploadSchema(ctx, updated); err != nil {
		logger.WithOperation("schema.update").WithFields(logrus.Fields{
			"schema_id": id,
			"error":     err.Error(),
		}).Warn("schema service: схема обновлена, но выгрузка в генератор не удалась")
		result.Warning = "схема обновлена, но сервис генерации не синхронизирован"
	}

	return result, nil
}

// List возвращает активные схемы.
func (s *SchemaService) List(ctx context.Context) ([]models.Schema, error) {
	return s.repo.List(ctx)
}

// Get возвращает схему по идентификатору, включая деактивированные.
func (s *SchemaService) Get(ctx context.Context, id uuid.UUID) (*models.Schema, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete деактивирует схему. Существующие предложения по ней продолжают жить.
func (s *SchemaService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperror.ErrForbidden
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	logger.WithOperation("schema.delete").WithFields(logrus.Fields{
		"schema_id": id,
		"actor_id":  actor.ID,
	}).Info("schema service: схема деактивирована")

	return nil
}

// ListVersions возвращает историю изменений схемы.
func (s *SchemaService) ListVersions(ctx context.Context, id uuid.UUID) ([]models.SchemaVersion, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, id)
}

// SyncStatus сверяет активные схемы со списком, который знает генератор.
func (s *SchemaService) SyncStatus(ctx context.Context) (*models.SchemaSyncStatus, error) {
	activeIDs, err := s.repo.ActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	known, err := s.generator.ListSchemas(ctx)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, "сервис генерации недоступен")
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k.ID] = struct{}{}
	}

	status := &models.SchemaSyncStatus{
		Synced:  []uuid.UUID{},
		Missing: []uuid.UUID{},
	}
	for _, id := range activeIDs {
		if _, ok := knownSet[id.String()]; ok {
			status.Synced = append(status.Synced, id)
		} else {
			status.Missing = append(status.Missing, id)
		}
	}

	return status, nil
}

// SyncAll выгружает в генератор все схемы, которых он не знает.
// Ошибки собираются по каждой схеме отдельно, выгрузка остальных продолжается.
func (s *SchemaService) SyncAll(ctx context.Context, actor models.Actor) (*SchemaSyncAllResult, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	status, err := s.SyncStatus(ctx)
	if err != nil {
		return nil, err
	}

	result := &SchemaSyncAllResult{
		Pushed: []uuid.UUID{},
		Failed: []SchemaSyncFailure{},
	}

	for _, id := range status.Missing {
		schema, err := s.repo.GetByID(ctx, id)
		if err != nil {
			result.Failed = append(result.Failed, SchemaSyncFailure{SchemaID: id, Error: err.Error()})
			continue
		}
		if err := s.generator.UploadSchema(ctx, schema); err != nil {
			result.Failed = append(result.Failed, SchemaSyncFailure{SchemaID: id, Error: err.Error()})
			continue
		}
		result.Pushed = append(result.Pushed, id)
	}

	logger.WithOperation("schema.sync_all").WithFields(logrus.Fields{
		"pushed": len(result.Pushed),
		"failed": len(result.Failed),
	}).Info("schema service: массовая синхронизация завершена")

	return result, nil
}

// validateSchemaInput проверяет входные данные схемы.
func validateSchemaInput(in SchemaInput) error {
	if err := validation.ValidateSchemaName(in.Name); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if len(in.Sections) == 0 {
		return apperror.New(apperror.ErrCodeValidation, "схема должна содержать хотя бы одну секцию")
	}
	if len(in.Sections) > validation.MaxSectionsCount {
		return apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("количество секций не может превышать %d", validation.MaxSectionsCount))
	}

	for _, section := range in.Sections {
		if err := validation.ValidateNonEmpty("название секции", section.Name); err != nil {
			return apperror.New(apperror.ErrCodeValidation, err.Error())
		}
		for _, rule := range section.Rules {
			if err := validateRule(rule); err != nil {
				return err
			}
		}
	}

	for _, rule := range in.GlobalRules {
		if err := validateRule(rule); err != nil {
			return err
		}
	}

	return nil
}

// validateRule проверяет одно правило схемы.
func validateRule(rule models.Rule) error {
	if err := validation.ValidateNonEmpty("название правила", rule.Name); err != nil {
		return apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if rule.Severity != models.RuleSeverityError && rule.Severity != models.RuleSeverityWarning {
		return apperror.New(apperror.ErrCodeValidation, "строгость правила должна быть error или warning")
	}
	return nil
}

// fillSectionIDs присваивает идентификаторы секциям и вложенным правилам, у которых их нет.
func fillSectionIDs(sections []models.SectionDef) []models.SectionDef {
	out := make([]models.SectionDef, len(sections))
	for i, section := range sections {
		if section.ID == "" {
			section.ID = "section-" + uuid.NewString()
		}
		section.Rules = fillRuleIDs(section.Rules)
		out[i] = section
	}
	return out
}

// fillRuleIDs присваивает идентификаторы правилам, у которых их нет.
func fillRuleIDs(rules []models.Rule) []models.Rule {
	out := make([]models.Rule, len(rules))
	for i, rule := range rules {
		if rule.ID == "" {
			rule.ID = "rule-" + uuid.NewString()
		}
		out[i] = rule
	}
	return out
}
