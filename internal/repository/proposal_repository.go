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

// ProposalRepository отвечает за работу с таблицами proposals и proposal_versions.
type ProposalRepository struct {
	db *sqlx.DB
}

// NewProposalRepository создаёт экземпляр репозитория.
func NewProposalRepository(db *sqlx.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// ProposalListFilter ограничивает выборку списка предложений.
// Нулевые значения означают отсутствие фильтра.
type ProposalListFilter struct {
	UserID   *uuid.UUID
	SchemaID *uuid.UUID
	Status   string
	Search   string
}

// proposalRow — строка proposals c сырыми JSON колонками.
type proposalRow struct {
	models.Proposal
	SectionsRaw    []byte `db:"sections"`
	AttachmentsRaw []byte `db:"attachments"`
}

// proposalDetailsRow дополняет строку данными создателя, ревьюера и схемы.
type proposalDetailsRow struct {
	proposalRow
	CreatorName  string         `db:"creator_name"`
	CreatorEmail string         `db:"creator_email"`
	ReviewerName sql.NullString `db:"reviewer_name"`
	SchemaName   string         `db:"schema_name"`
}

// proposalVersionRow — строка proposal_versions c сырой JSON колонкой.
type proposalVersionRow struct {
	models.ProposalVersion
	SectionsRaw []byte `db:"sections"`
}

func (row *proposalRow) toProposal() (*models.Proposal, error) {
	p := row.Proposal
	if err := json.Unmarshal(row.SectionsRaw, &p.Sections); err != nil {
		return nil, fmt.Errorf("proposal repository: parse sections %w", err)
	}
	if err := json.Unmarshal(row.AttachmentsRaw, &p.Attachments); err != nil {
		return nil, fmt.Errorf("proposal repository: parse attachments %w", err)
	}
	return &p, nil
}

func (row *proposalVersionRow) toVersion() (*models.ProposalVersion, error) {
	v := row.ProposalVersion
	if err := json.Unmarshal(row.SectionsRaw, &v.Sections); err != nil {
		return nil, fmt.Errorf("proposal repository: parse version sections %w", err)
	}
	return &v, nil
}

const proposalColumns = `id, title, schema_id, user_id, status, current_version, approved_version,
	survey_notes, sections, attachments, admin_comments, reviewed_by, submitted_at, reviewed_at,
	created_at, updated_at`

// CreateWithInitialVersion вставляет предложение, запускает генерацию черновика
// и записывает результат вместе с версией 1 в одной транзакции. Падение
// генерации откатывает вставку: предложений без сгенерированного контента
// в базе не бывает.
func (r *ProposalRepository) CreateWithInitialVersion(
	ctx context.Context,
	p *models.Proposal,
	generate func(context.Context) ([]models.GeneratedSection, error),
) error {
	attachmentsJSON, err := json.Marshal(p.Attachments)
	if err != nil {
		return fmt.Errorf("proposal repository: marshal attachments %w", err)
	}

	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		insertQuery := `
			INSERT INTO proposals (id, title, schema_id, user_id, status, current_version, survey_notes, sections, attachments)
			VALUES ($1, $2, $3, $4, $5, 1, $6, '[]', $7)
			RETURNING created_at, updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, insertQuery,
			p.ID, p.Title, p.SchemaID, p.UserID, models.ProposalStatusDraft,
			p.SurveyNotes, string(attachmentsJSON),
		).Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("proposal repository: create %w", err)
		}

		sections, err := generate(ctx)
		if err != nil {
			return err
		}

		sectionsJSON, err := json.Marshal(sections)
		if err != nil {
			return fmt.Errorf("proposal repository: marshal sections %w", err)
		}

		if err := tx.QueryRowxContext(
			ctx,
			`UPDATE proposals SET sections = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
			p.ID, string(sectionsJSON),
		).Scan(&p.UpdatedAt); err != nil {
			return fmt.Errorf("proposal repository: store generated sections %w", err)
		}

		versionQuery := `
			INSERT INTO proposal_versions (proposal_id, version_number, sections, change_description, created_by)
			VALUES ($1, 1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, versionQuery, p.ID, string(sectionsJSON), "Initial draft created", p.UserID); err != nil {
			return fmt.Errorf("proposal repository: insert initial version %w", err)
		}

		p.Status = models.ProposalStatusDraft
		p.CurrentVersion = 1
		p.Sections = sections

		return nil
	})
}

// GetByID возвращает предложение без связанных данных.
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var row proposalRow
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = $1`, proposalColumns)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get by id %w", err)
	}

	return row.toProposal()
}

// GetDetails возвращает предложение вместе с данными создателя, ревьюера,
// названием схемы и полной историей версий.
func (r *ProposalRepository) GetDetails(ctx context.Context, id uuid.UUID) (*models.ProposalDetails, error) {
	query := `
		SELECT p.id, p.title, p.schema_id, p.user_id, p.status, p.current_version, p.approved_version,
			p.survey_notes, p.sections, p.attachments, p.admin_comments, p.reviewed_by,
			p.submitted_at, p.reviewed_at, p.created_at, p.updated_at,
			u.name AS creator_name, u.email AS creator_email,
			rev.name AS reviewer_name,
			s.name AS schema_name
		FROM proposals p
		JOIN users u ON u.id = p.user_id
		JOIN schemas s ON s.id = p.schema_id
		LEFT JOIN users rev ON rev.id = p.reviewed_by
		WHERE p.id = $1
	`

	var row proposalDetailsRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: get details %w", err)
	}

	p, err := row.toProposal()
	if err != nil {
		return nil, err
	}

	versions, err := r.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}

	details := &models.ProposalDetails{
		Proposal:     *p,
		CreatorName:  row.CreatorName,
		CreatorEmail: row.CreatorEmail,
		SchemaName:   row.SchemaName,
		Versions:     versions,
	}
	if row.ReviewerName.Valid {
		name := row.ReviewerName.String
		details.ReviewerName = &name
	}

	return details, nil
}

// List возвращает краткие карточки предложений, новые первыми.
func (r *ProposalRepository) List(ctx context.Context, filter ProposalListFilter) ([]models.ProposalSummary, error) {
	query := `
		SELECT p.id, p.title, p.status, p.current_version, s.name AS schema_name, p.created_at, p.updated_at
		FROM proposals p
		JOIN schemas s ON s.id = p.schema_id
		WHERE 1=1
	`
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND p.user_id = $%d", len(args))
	}
	if filter.SchemaID != nil {
		args = append(args, *filter.SchemaID)
		query += fmt.Sprintf(" AND p.schema_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND p.status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND p.title ILIKE $%d", len(args))
	}

	query += " ORDER BY p.updated_at DESC"

	var summaries []models.ProposalSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("proposal repository: list %w", err)
	}

	return summaries, nil
}

// UpdateContent применяет изменение контента под блокировкой строки и
// записывает новую версию. Проверки прав и статуса делает переданная функция:
// она видит свежезагруженную строку, её ошибка откатывает транзакцию.
func (r *ProposalRepository) UpdateContent(
	ctx context.Context,
	id uuid.UUID,
	actorID uuid.UUID,
	apply func(current *models.Proposal) (*models.ProposalContentUpdate, error),
) (*models.Proposal, error) {
	var updated *models.Proposal

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := lockProposal(ctx, tx, id)
		if err != nil {
			return err
		}

		update, err := apply(current)
		if err != nil {
			return err
		}

		if update.Title != nil {
			current.Title = *update.Title
		}
		if update.Sections != nil {
			current.Sections = *update.Sections
		}
		if update.SurveyNotes != nil {
			current.SurveyNotes = *update.SurveyNotes
		}
		if update.Attachments != nil {
			current.Attachments = *update.Attachments
		}

		sectionsJSON, err := json.Marshal(current.Sections)
		if err != nil {
			return fmt.Errorf("proposal repository: marshal sections %w", err)
		}
		attachmentsJSON, err := json.Marshal(current.Attachments)
		if err != nil {
			return fmt.Errorf("proposal repository: marshal attachments %w", err)
		}

		nextVersion := current.CurrentVersion + 1

		updateQuery := `
			UPDATE proposals
			SET title = $2, sections = $3, survey_notes = $4, attachments = $5, current_version = $6, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, updateQuery,
			id, current.Title, string(sectionsJSON), current.SurveyNotes, string(attachmentsJSON), nextVersion,
		).Scan(&current.UpdatedAt); err != nil {
			return fmt.Errorf("proposal repository: update content %w", err)
		}

		versionQuery := `
			INSERT INTO proposal_versions (proposal_id, version_number, sections, change_description, created_by)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(
			ctx, versionQuery,
			id, nextVersion, string(sectionsJSON), update.ChangeDescription, actorID,
		); err != nil {
			if isUniqueViolation(err) {
				return apperror.Wrap(err, apperror.ErrCodeConflict, "конфликт нумерации версий предложения")
			}
			return fmt.Errorf("proposal repository: insert version %w", err)
		}

		current.CurrentVersion = nextVersion
		updated = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// ChangeStatus применяет переход статуса под блокировкой строки. Допустимость
// перехода проверяет переданная функция на свежезагруженной строке.
func (r *ProposalRepository) ChangeStatus(
	ctx context.Context,
	id uuid.UUID,
	apply func(current *models.Proposal) (*models.ProposalStatusChange, error),
) (*models.Proposal, error) {
	var updated *models.Proposal

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		current, err := lockProposal(ctx, tx, id)
		if err != nil {
			return err
		}

		change, err := apply(current)
		if err != nil {
			return err
		}

		query := `
			UPDATE proposals
			SET status = $2, submitted_at = $3, admin_comments = $4, reviewed_by = $5, reviewed_at = $6,
				approved_version = $7, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		if err := tx.QueryRowxContext(
			ctx, query,
			id, change.Status, change.SubmittedAt, change.AdminComments,
			change.ReviewedBy, change.ReviewedAt, change.ApprovedVersion,
		).Scan(&current.UpdatedAt); err != nil {
			return fmt.Errorf("proposal repository: change status %w", err)
		}

		current.Status = change.Status
		current.SubmittedAt = change.SubmittedAt
		current.AdminComments = change.AdminComments
		current.ReviewedBy = change.ReviewedBy
		current.ReviewedAt = change.ReviewedAt
		current.ApprovedVersion = change.ApprovedVersion
		updated = current

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete удаляет предложение вместе с историей версий в одной транзакции.
func (r *ProposalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM proposal_versions WHERE proposal_id = $1`, id); err != nil {
			return fmt.Errorf("proposal repository: delete versions %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("proposal repository: delete %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("proposal repository: delete rows affected %w", err)
		}
		if affected == 0 {
			return apperror.ErrProposalNotFound
		}

		return nil
	})
}

// ListVersions возвращает историю версий предложения с именами авторов, новые первыми.
func (r *ProposalRepository) ListVersions(ctx context.Context, proposalID uuid.UUID) ([]models.ProposalVersion, error) {
	query := `
		SELECT pv.id, pv.proposal_id, pv.version_number, pv.sections, pv.change_description,
			pv.created_by, u.name AS created_by_name, pv.created_at
		FROM proposal_versions pv
		LEFT JOIN users u ON u.id = pv.created_by
		WHERE pv.proposal_id = $1
		ORDER BY pv.version_number DESC
	`

	var rows []proposalVersionRow
	if err := r.db.SelectContext(ctx, &rows, query, proposalID); err != nil {
		return nil, fmt.Errorf("proposal repository: list versions %w", err)
	}

	versions := make([]models.ProposalVersion, 0, len(rows))
	for i := range rows {
		v, err := rows[i].toVersion()
		if err != nil {
			return nil, err
		}
		versions = append(versions, *v)
	}

	return versions, nil
}

// StatusCounts считает предложения пользователя в разрезе статусов.
func (r *ProposalRepository) StatusCounts(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	var stats models.UserStats
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'draft') AS drafts,
			COUNT(*) FILTER (WHERE status = 'pending_approval') AS pending,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
		FROM proposals
		WHERE user_id = $1
	`
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("proposal repository: status counts %w", err)
	}

	return &stats, nil
}

// lockProposal загружает строку предложения под блокировкой FOR UPDATE.
func lockProposal(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Proposal, error) {
	var row proposalRow
	query := fmt.Sprintf(`SELECT %s FROM proposals WHERE id = $1 FOR UPDATE`, proposalColumns)
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, fmt.Errorf("proposal repository: lock %w", err)
	}

	return row.toProposal()
}
