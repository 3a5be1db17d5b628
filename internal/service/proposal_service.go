package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/proposal-backend/internal/ai"
	"github.com/ignatzorin/proposal-backend/internal/export"
	"github.com/ignatzorin/proposal-backend/internal/logger"
	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/pkg/apperror"
	"github.com/ignatzorin/proposal-backend/internal/repository"
	"github.com/ignatzorin/proposal-backend/internal/validation"
)

// ProposalRepo описывает зависимости ProposalService от слоя хранилища.
type ProposalRepo interface {
	CreateWithInitialVersion(ctx context.Context, p *models.Proposal, generate func(context.Context) ([]models.GeneratedSection, error)) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	GetDetails(ctx context.Context, id uuid.UUID) (*models.ProposalDetails, error)
	List(ctx context.Context, filter repository.ProposalListFilter) ([]models.ProposalSummary, error)
	UpdateContent(ctx context.Context, id uuid.UUID, actorID uuid.UUID, apply func(current *models.Proposal) (*models.ProposalContentUpdate, error)) (*models.Proposal, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, apply func(current *models.Proposal) (*models.ProposalStatusChange, error)) (*models.Proposal, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListVersions(ctx context.Context, proposalID uuid.UUID) ([]models.ProposalVersion, error)
}

// ProposalSchemaRepo — доступ к схемам из сервиса предложений.
type ProposalSchemaRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schema, error)
}

// ProposalUserRepo — доступ к пользователям из сервиса предложений.
type ProposalUserRepo interface {
	GetActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ProposalGenerator описывает зависимость от сервиса генерации.
type ProposalGenerator interface {
	GenerateDraft(ctx context.Context, req ai.GenerateDraftRequest) (*ai.GenerateDraftResponse, error)
}

// ProposalService управляет жизненным циклом предложений:
// draft -> pending_approval -> approved | rejected, отклонённое можно доработать
// и отправить снова.
type ProposalService struct {
	repo      ProposalRepo
	schemas   ProposalSchemaRepo
	users     ProposalUserRepo
	generator ProposalGenerator
}

// CreateProposalInput содержит данные для создания предложения.
type CreateProposalInput struct {
	Title              string
	SchemaID           uuid.UUID
	SurveyNotes        string
	Attachments        []string
	AdditionalGuidance string
}

// UpdateProposalInput содержит частичное обновление контента.
// nil означает «поле не передано».
type UpdateProposalInput struct {
	Title             *string
	Sections          *[]models.GeneratedSection
	SurveyNotes       *string
	Attachments       *[]string
	ChangeDescription string
}

// ListProposalsInput содержит фильтры списка предложений.
type ListProposalsInput struct {
	Status string
	Search string
}

// ExportResult содержит готовый документ и имя файла для выдачи.
type ExportResult struct {
	Filename string
	Content  []byte
}

// NewProposalService создаёт сервис предложений.
func NewProposalService(repo ProposalRepo, schemas ProposalSchemaRepo, users ProposalUserRepo, generator ProposalGenerator) *ProposalService {
	return &ProposalService{
		repo:      repo,
		schemas:   schemas,
		users:     users,
		generator: generator,
	}
}

// Create создаёт предложение и генерирует черновик в одной транзакции:
// если генерация провалилась, предложения не остаётся.
func (s *ProposalService) Create(ctx context.Context, actor models.Actor, in CreateProposalInput) (*models.ProposalDetails, error) {
	if err := validation.ValidateProposalTitle(in.Title); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateSurveyNotes(in.SurveyNotes); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateAttachments(in.Attachments); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	schema, err := s.schemas.GetByID(ctx, in.SchemaID)
	if err != nil {
		return nil, err
	}
	if !schema.IsActive {
		return nil, apperror.ErrSchemaNotFound
	}

	if _, err := s.users.GetActiveByID(ctx, actor.ID); err != nil {
		return nil, err
	}

	attachments := in.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	proposal := &models.Proposal{
		ID:          uuid.New(),
		Title:       in.Title,
		SchemaID:    in.SchemaID,
		UserID:      actor.ID,
		SurveyNotes: in.SurveyNotes,
		Attachments: attachments,
	}

	err = s.repo.CreateWithInitialVersion(ctx, proposal, func(ctx context.Context) ([]models.GeneratedSection, error) {
		resp, err := s.generator.GenerateDraft(ctx, ai.GenerateDraftRequest{
			ProposalID:         proposal.ID,
			SchemaID:           in.SchemaID,
			SurveyNotes:        in.SurveyNotes,
			Attachments:        attachments,
			AdditionalGuidance: in.AdditionalGuidance,
		})
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, "сервис генерации не смог создать черновик")
		}
		return resp.Sections, nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithOperation("proposal.create").WithFields(logrus.Fields{
		"proposal_id": proposal.ID,
		"schema_id":   in.SchemaID,
		"actor_id":    actor.ID,
		"sections":    len(proposal.Sections),
	}).Info("proposal service: предложение создано")

	return s.repo.GetDetails(ctx, proposal.ID)
}

// Get возвращает предложение с историей версий. Доступно владельцу и администраторам.
func (s *ProposalService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.ProposalDetails, error) {
	details, err := s.repo.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && details.UserID != actor.ID {
		return nil, apperror.ErrForbidden
	}

	details.Versions = capVersionsForActor(actor, &details.Proposal, details.Versions)

	return details, nil
}

// List возвращает карточки предложений: администраторы видят все, остальные — свои.
func (s *ProposalService) List(ctx context.Context, actor models.Actor, in ListProposalsInput) ([]models.ProposalSummary, error) {
	if in.Status != "" {
		if _, ok := models.ValidProposalStatuses[in.Status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "недопустимый статус")
		}
	}

	filter := repository.ProposalListFilter{
		Status: in.Status,
		Search: in.Search,
	}
	if !actor.IsAdmin() {
		userID := actor.ID
		filter.UserID = &userID
	}

	return s.repo.List(ctx, filter)
}

// Update применяет частичное обновление контента. Владелец может редактировать
// только черновик или отклонённое предложение; администратор — любое.
func (s *ProposalService) Update(ctx context.Context, actor models.Actor, id uuid.UUID, in UpdateProposalInput) (*models.Proposal, error) {
	if in.Title != nil {
		if err := validation.ValidateProposalTitle(*in.Title); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}
	if in.SurveyNotes != nil {
		if err := validation.ValidateSurveyNotes(*in.SurveyNotes); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}
	if in.Attachments != nil {
		if err := validation.ValidateAttachments(*in.Attachments); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}

	description := in.ChangeDescription
	if description == "" {
		description = "Content updated"
	}

	return s.repo.UpdateContent(ctx, id, actor.ID, func(current *models.Proposal) (*models.ProposalContentUpdate, error) {
		if err := checkEditable(actor, current); err != nil {
			return nil, err
		}

		return &models.ProposalContentUpdate{
			Title:             in.Title,
			Sections:          in.Sections,
			SurveyNotes:       in.SurveyNotes,
			Attachments:       in.Attachments,
			ChangeDescription: description,
		}, nil
	})
}

// Regenerate перегенерирует контент: одну секцию по типу или всё предложение.
// Генерация идёт вне транзакции, запись результата — под блокировкой строки
// с повторной проверкой прав и статуса.
func (s *ProposalService) Regenerate(ctx context.Context, actor models.Actor, id uuid.UUID, sectionType, guidance string) (*models.Proposal, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(actor, current); err != nil {
		return nil, err
	}

	resp, err := s.generator.GenerateDraft(ctx, ai.GenerateDraftRequest{
		ProposalID:         id,
		SchemaID:           current.SchemaID,
		SurveyNotes:        current.SurveyNotes,
		Attachments:        current.Attachments,
		AdditionalGuidance: guidance,
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUpstream, "сервис генерации не смог перегенерировать контент")
	}

	description := "Regenerated entire proposal"
	if sectionType != "" {
		description = "Regenerated section: " + sectionType
	}

	return s.repo.UpdateContent(ctx, id, actor.ID, func(locked *models.Proposal) (*models.ProposalContentUpdate, error) {
		if err := checkEditable(actor, locked); err != nil {
			return nil, err
		}

		var sections []models.GeneratedSection
		if sectionType == "" {
			sections = resp.Sections
		} else {
			replaced, err := replaceSection(locked.Sections, resp.Sections, sectionType)
			if err != nil {
				return nil, err
			}
			sections = replaced
		}

		return &models.ProposalContentUpdate{
			Sections:          &sections,
			ChangeDescription: description,
		}, nil
	})
}

// Submit отправляет предложение на рассмотрение. Только владелец: администратор
// не может отправить чужое предложение от имени автора.
func (s *ProposalService) Submit(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Proposal, error) {
	return s.repo.ChangeStatus(ctx, id, func(current *models.Proposal) (*models.ProposalStatusChange, error) {
		if current.UserID != actor.ID {
			return nil, apperror.ErrForbidden
		}
		if !models.IsEditableStatus(current.Status) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "отправить можно только черновик или отклонённое предложение")
		}

		now := time.Now()
		return &models.ProposalStatusChange{
			Status:          models.ProposalStatusPendingApproval,
			SubmittedAt:     &now,
			ApprovedVersion: current.ApprovedVersion,
		}, nil
	})
}

// Approve утверждает предложение и фиксирует номер утверждённой версии.
// Только для администраторов.
func (s *ProposalService) Approve(ctx context.Context, actor models.Actor, id uuid.UUID, comments string) (*models.Proposal, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	return s.repo.ChangeStatus(ctx, id, func(current *models.Proposal) (*models.ProposalStatusChange, error) {
		if current.Status != models.ProposalStatusPendingApproval {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "утвердить можно только предложение на рассмотрении")
		}

		now := time.Now()
		approvedVersion := current.CurrentVersion
		change := &models.ProposalStatusChange{
			Status:          models.ProposalStatusApproved,
			SubmittedAt:     current.SubmittedAt,
			ReviewedBy:      &actor.ID,
			ReviewedAt:      &now,
			ApprovedVersion: &approvedVersion,
		}
		if comments != "" {
			change.AdminComments = &comments
		}
		return change, nil
	})
}

// Reject отклоняет предложение с обязательным комментарием. Только для администраторов.
func (s *ProposalService) Reject(ctx context.Context, actor models.Actor, id uuid.UUID, comments string) (*models.Proposal, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if err := validation.ValidateAdminComments(comments); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	return s.repo.ChangeStatus(ctx, id, func(current *models.Proposal) (*models.ProposalStatusChange, error) {
		if current.Status != models.ProposalStatusPendingApproval {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "отклонить можно только предложение на рассмотрении")
		}

		now := time.Now()
		return &models.ProposalStatusChange{
			Status:          models.ProposalStatusRejected,
			SubmittedAt:     current.SubmittedAt,
			AdminComments:   &comments,
			ReviewedBy:      &actor.ID,
			ReviewedAt:      &now,
			ApprovedVersion: current.ApprovedVersion,
		}, nil
	})
}

// Delete удаляет предложение вместе с историей версий. Удалить можно только черновик.
func (s *ProposalService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && current.UserID != actor.ID {
		return apperror.ErrForbidden
	}
	if current.Status != models.ProposalStatusDraft {
		return apperror.New(apperror.ErrCodeInvalidState, "удалить можно только черновик")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.WithOperation("proposal.delete").WithFields(logrus.Fields{
		"proposal_id": id,
		"actor_id":    actor.ID,
	}).Info("proposal service: предложение удалено")

	return nil
}

// GetVersions возвращает историю версий. Не-администратор на утверждённом
// предложении видит только версии до утверждённой включительно.
func (s *ProposalService) GetVersions(ctx context.Context, actor models.Actor, id uuid.UUID) ([]models.ProposalVersion, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && current.UserID != actor.ID {
		return nil, apperror.ErrForbidden
	}

	versions, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return nil, err
	}

	return capVersionsForActor(actor, current, versions), nil
}

// Export собирает .docx документ утверждённого предложения.
func (s *ProposalService) Export(ctx context.Context, actor models.Actor, id uuid.UUID) (*ExportResult, error) {
	details, err := s.repo.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && details.UserID != actor.ID {
		return nil, apperror.ErrForbidden
	}
	if details.Status != models.ProposalStatusApproved {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "экспорт доступен только для утверждённых предложений")
	}

	content, err := export.BuildDocx(details)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось собрать документ")
	}

	return &ExportResult{
		Filename: export.Filename(details.Title, details.CurrentVersion),
		Content:  content,
	}, nil
}

// checkEditable проверяет право инициатора менять контент предложения.
func checkEditable(actor models.Actor, p *models.Proposal) error {
	if !actor.IsAdmin() && p.UserID != actor.ID {
		return apperror.ErrForbidden
	}
	if !actor.IsAdmin() && !models.IsEditableStatus(p.Status) {
		return apperror.New(apperror.ErrCodeInvalidState, "предложение нельзя редактировать в текущем статусе")
	}
	return nil
}

// replaceSection подменяет в текущем наборе секцию указанного типа на свежесгенерированную.
func replaceSection(current, generated []models.GeneratedSection, sectionType string) ([]models.GeneratedSection, error) {
	var fresh *models.GeneratedSection
	for i := range generated {
		if generated[i].Type == sectionType {
			fresh = &generated[i]
			break
		}
	}
	if fresh == nil {
		return nil, apperror.New(apperror.ErrCodeUpstream, "сервис генерации не вернул секцию запрошенного типа")
	}

	out := make([]models.GeneratedSection, len(current))
	replaced := false
	for i, section := range current {
		if section.Type == sectionType {
			out[i] = *fresh
			replaced = true
		} else {
			out[i] = section
		}
	}
	if !replaced {
		return nil, apperror.New(apperror.ErrCodeValidation, "в предложении нет секции указанного типа")
	}

	return out, nil
}

// capVersionsForActor скрывает от не-администраторов версии, сделанные после утверждения.
func capVersionsForActor(actor models.Actor, p *models.Proposal, versions []models.ProposalVersion) []models.ProposalVersion {
	if actor.IsAdmin() || p.Status != models.ProposalStatusApproved || p.ApprovedVersion == nil {
		return versions
	}

	capped := make([]models.ProposalVersion, 0, len(versions))
	for _, v := range versions {
		if v.VersionNumber <= *p.ApprovedVersion {
			capped = append(capped, v)
		}
	}
	return capped
}
