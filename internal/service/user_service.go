package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/proposal-backend/internal/logger"
	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/pkg/apperror"
)

// UserDirectoryRepo описывает зависимости UserService от таблицы пользователей.
type UserDirectoryRepo interface {
	ListActive(ctx context.Context) ([]models.User, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	AssignSchema(ctx context.Context, id uuid.UUID, schemaID *uuid.UUID) error
}

// UserStatsRepo — счётчики предложений пользователя.
type UserStatsRepo interface {
	StatusCounts(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
}

// UserSchemaRepo — доступ к схемам для проверки назначаемой схемы.
type UserSchemaRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schema, error)
}

// UserService обслуживает административный справочник пользователей:
// список, карточка, назначение схемы по умолчанию и счётчики предложений.
type UserService struct {
	users     UserDirectoryRepo
	proposals UserStatsRepo
	schemas   UserSchemaRepo
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users UserDirectoryRepo, proposals UserStatsRepo, schemas UserSchemaRepo) *UserService {
	return &UserService{
		users:     users,
		proposals: proposals,
		schemas:   schemas,
	}
}

// List возвращает активных пользователей. Только для администраторов.
func (s *UserService) List(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	return s.users.ListActive(ctx)
}

// Get возвращает активного пользователя: свою карточку видит каждый,
// чужую — только администратор.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.User, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	return s.users.GetActiveByID(ctx, id)
}

// AssignSchema назначает пользователю схему по умолчанию, nil снимает
// назначение. Только для администраторов; схема должна быть активной.
func (s *UserService) AssignSchema(ctx context.Context, actor models.Actor, id uuid.UUID, schemaID *uuid.UUID) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	if schemaID != nil {
		schema, err := s.schemas.GetByID(ctx, *schemaID)
		if err != nil {
			return nil, err
		}
		if !schema.IsActive {
			return nil, apperror.ErrSchemaNotFound
		}
	}

	if err := s.users.AssignSchema(ctx, id, schemaID); err != nil {
		return nil, err
	}

	logger.WithOperation("user.assign_schema").WithFields(logrus.Fields{
		"user_id":  id,
		"actor_id": actor.ID,
	}).Info("user service: пользователю назначена схема")

	return s.users.GetActiveByID(ctx, id)
}

// Stats возвращает счётчики предложений пользователя по статусам:
// свои — каждому, чужие — администратору.
func (s *UserService) Stats(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.UserStats, error) {
	if actor.ID != id && !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}

	if _, err := s.users.GetActiveByID(ctx, id); err != nil {
		return nil, err
	}

	return s.proposals.StatusCounts(ctx, id)
}
