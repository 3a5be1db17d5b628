package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/proposal-backend/internal/repository/common"
)

// SchemaRepository отвечает за работу с таблицами schemas и schema_versions.
// Колонки sections и global_rules хранятся как сериализованный JSON и
// разбираются/сериализуются на каждой границе чтения и записи.
type SchemaRepository struct {
	db *sqlx.DB
}

// NewSchemaRepository создаёт экземпляр репозитория.
func NewSchemaRepository(db *sqlx.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// schemaRow — строка schemas c сырыми JSON колонками.
type schemaRow struct {
	models.Schema
	SectionsRaw    []byte `db:"sections"`
	GlobalRulesRaw []byte `db:"global_rules"`
}

// schemaVersionRow — строка schema_versions c сырыми JSON колонками.
type schemaVersionRow struct {
	models.SchemaVersion
	SectionsRaw    []byte `db:"sections"`
	GlobalRulesRaw []byte `db:"global_rules"`
}

func (row *schemaRow) toSchema() (*models.Schema, error) {
	s := row.Schema
	if err := json.Unmarshal(row.SectionsRaw, &s.Sections); err != nil {
		return nil, fmt.Errorf("schema repository: parse sections %w", err)
	}
	if err := json.Unmarshal(row.GlobalRulesRaw, &s.GlobalRules); err != nil {
		return nil, fmt.Errorf("schema repository: parse global rules %w", err)
	}
	return &s, nil
}

func (row *schemaVersionRow) toVersion() (*models.SchemaVersion, error) {
	v := row.SchemaVersion
	if err := json.Unmarshal(row.SectionsRaw, &v.Sections); err != nil {
		return nil, fmt.Errorf("schema repository: parse version sections %w", err)
	}
	if err := json.Unmarshal(row.GlobalRulesRaw, &v.GlobalRules); err != nil {
		return nil, fmt.Errorf("schema repository: parse version global rules %w", err)
	}
	return &v, nil
}

// CreateWithSync вставляет схему и в той же транзакции вызывает sync —
// выгрузку схемы в сервис генерации. Если выгрузка не удалась, вставка
// откатывается: схема не должна существовать, пока генератор о ней не знает.
func (r *SchemaRepository) CreateWithSync(
	ctx context.Context,
	schema *models.Schema,
	sync func(context.Context, *models.Schema) error,
) error {
	sectionsJSON, err := json.Marshal(schema.Sections)
	if err != nil {
		return fmt.Errorf("schema repository: marshal sections %w", err)
	}
	rulesJSON, err := json.Marshal(schema.GlobalRules)
	if err != nil {
		return fmt.Errorf("schema repository: marshal global rules %w", err)
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO schemas (id, name, version, description, sections, global_rules, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, query,
			schema.ID, schema.Name, schema.Version, schema.Description,
			string(sectionsJSON), string(rulesJSON), schema.CreatedBy,
		).Scan(&schema.CreatedAt, &schema.UpdatedAt); err != nil {
			return fmt.Errorf("schema repository: create %w", err)
		}
		schema.IsActive = true

		return sync(ctx, schema)
	})
}

// Update делает снимок текущего состояния схемы в schema_versions и применяет
// изменения. Снимок и обновление идут в одной транзакции под блокировкой строки,
// номер версии вычисляется там же, поэтому параллельные обновления либо
// выстраиваются в очередь, либо падают на уникальном ограничении.
func (r *SchemaRepository) Update(
	ctx context.Context,
	id uuid.UUID,
	actorID uuid.UUID,
	apply func(current *models.Schema) (*models.SchemaChange, error),
) (*models.Schema, error) {
	var updated *models.Schema

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var row schemaRow
		lockQuery := `
			SELECT id, name, version, description, sections, global_rules, is_active, created_by, created_at, updated_at
			FROM schemas
			WHERE id = $1
			FOR UPDATE
		`
		if err := tx.GetContext(ctx, &row, lockQuery, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.ErrSchemaNotFound
			}
			return fmt.Errorf("schema repository: lock %w", err)
		}

		current, err := row.toSchema()
		if err != nil {
			return err
		}

		change, err := apply(current)
		if err != nil {
			return err
		}

		var nextVersion int
		if err := tx.GetContext(ctx, &nextVersion,
			`SELECT COALESCE(MAX(version_number), 0) + 1 FROM schema_versions WHERE schema_id = $1`, id); err != nil {
			return fmt.Errorf("schema repository: next version number %w", err)
		}

		// Снимок состояния до обновления: сырые JSON колонки переносятся как есть.
		snapshotQuery := `
			INSERT INTO schema_versions (schema_id, version_number, name, version, description, sections, global_rules, change_summary, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		if _, err := tx.ExecContext(
			ctx, snapshotQuery,
			id, nextVersion, current.Name, current.Version, current.Description,
			string(row.SectionsRaw), string(row.GlobalRulesRaw), change.ChangeSummary, actorID,
		); err != nil {
			if isUniqueViolation(err) {
				return apperror.Wrap(err, apperror.ErrCodeConflict, "конфликт нумерации версий схемы")
			}
			return fmt.Errorf("schema repository: insert version %w", err)
		}

		sectionsJSON, err := json.Marshal(change.Sections)
		if err != nil {
			return fmt.Errorf("schema repository: marshal sections %w", err)
		}
		rulesJSON, err := json.Marshal(change.GlobalRules)
		if err != nil {
			return fmt.Errorf("schema repository: marshal global rules %w", err)
		}

		updateQuery := `
			UPDATE schemas
			SET name = $2, version = $3, description = $4, sections = $5, global_rules = $6, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, updateQuery,
			id, change.Name, change.Version, change.Description,
			string(sectionsJSON), string(rulesJSON),
		).Scan(&current.UpdatedAt); err != nil {
			return fmt.Errorf("schema repository: update %w", err)
		}

		current.Name = change.Name
		current.Version = change.Version
		current.Description = change.Description
		current.Sections = change.Sections
		current.GlobalRules = change.GlobalRules
		updated = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// List возвращает активные схемы, новые первыми.
func (r *SchemaRepository) List(ctx context.Context) ([]models.Schema, error) {
	query := `
		SELECT id, name, version, description, sections, global_rules, is_active, created_by, created_at, updated_at
		FROM schemas
		WHERE is_active = TRUE
		ORDER BY created_at DESC
	`

	var rows []schemaRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("schema repository: list %w", err)
	}

	schemas := make([]models.Schema, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toSchema()
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, *s)
	}

	return schemas, nil
}

// GetByID возвращает схему независимо от флага активности.
func (r *SchemaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Schema, error) {
	query := `
		SELECT id, name, version, description, sections, global_rules, is_active, created_by, created_at, updated_at
		FROM schemas
		WHERE id = $1
	`

	var row schemaRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrSchemaNotFound
		}
		return nil, fmt.Errorf("schema repository: get by id %w", err)
	}

	return row.toSchema()
}

// SoftDelete помечает схему неактивной. Предложения, ссылающиеся на неё, не трогаются.
func (r *SchemaRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE schemas SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("schema repository: soft delete %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schema repository: soft delete rows affected %w", err)
	}
	if affected == 0 {
		return apperror.ErrSchemaNotFound
	}

	return nil
}

// ListVersions возвращает историю версий схемы, новые первыми.
func (r *SchemaRepository) ListVersions(ctx context.Context, schemaID uuid.UUID) ([]models.SchemaVersion, error) {
	query := `
		SELECT id, schema_id, version_number, name, version, description, sections, global_rules, change_summary, created_by, created_at
		FROM schema_versions
		WHERE schema_id = $1
		ORDER BY version_number DESC
	`

	var rows []schemaVersionRow
	if err := r.db.SelectContext(ctx, &rows, query, schemaID); err != nil {
		return nil, fmt.Errorf("schema repository: list versions %w", err)
	}

	versions := make([]models.SchemaVersion, 0, len(rows))
	for i := range rows {
		v, err := rows[i].toVersion()
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}

	return versions, nil
}

// ActiveIDs возвращает идентификаторы активных схем для сверки с генератором.
func (r *SchemaRepository) ActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM schemas WHERE is_active = TRUE ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("schema repository: active ids %w", err)
	}
	return ids, nil
}
