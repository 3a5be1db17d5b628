package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/pkg/apperror"
)

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) ListActive(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockUserDirectory) GetActiveByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserDirectory) AssignSchema(ctx context.Context, id uuid.UUID, schemaID *uuid.UUID) error {
	args := m.Called(ctx, id, schemaID)
	return args.Error(0)
}

type mockUserStats struct {
	mock.Mock
}

func (m *mockUserStats) StatusCounts(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

func newUserService() (*UserService, *mockUserDirectory, *mockUserStats, *mockSchemaLookup) {
	users := new(mockUserDirectory)
	stats := new(mockUserStats)
	schemas := new(mockSchemaLookup)
	return NewUserService(users, stats, schemas), users, stats, schemas
}

func TestUserService_List_AdminOnly(t *testing.T) {
	svc, users, _, _ := newUserService()

	_, err := svc.List(context.Background(), userActor(uuid.New()))

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	users.AssertNotCalled(t, "ListActive", mock.Anything)
}

func TestUserService_List_Success(t *testing.T) {
	svc, users, _, _ := newUserService()

	expected := []models.User{
		{ID: uuid.New(), Email: "a@example.com", Role: models.RoleUser},
		{ID: uuid.New(), Email: "b@example.com", Role: models.RoleAdmin},
	}
	users.On("ListActive", mock.Anything).Return(expected, nil)

	got, err := svc.List(context.Background(), adminActor())

	assert.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestUserService_Get_SelfAllowed(t *testing.T) {
	svc, users, _, _ := newUserService()

	id := uuid.New()
	users.On("GetActiveByID", mock.Anything, id).Return(&models.User{ID: id}, nil)

	got, err := svc.Get(context.Background(), userActor(id), id)

	assert.NoError(t, err)
	assert.Equal(t, id, got.ID)
}

func TestUserService_Get_StrangerForbidden(t *testing.T) {
	svc, users, _, _ := newUserService()

	_, err := svc.Get(context.Background(), userActor(uuid.New()), uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	users.AssertNotCalled(t, "GetActiveByID", mock.Anything, mock.Anything)
}

func TestUserService_AssignSchema_AdminOnly(t *testing.T) {
	svc, users, _, _ := newUserService()

	schemaID := uuid.New()
	_, err := svc.AssignSchema(context.Background(), userActor(uuid.New()), uuid.New(), &schemaID)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	users.AssertNotCalled(t, "AssignSchema", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_AssignSchema_InactiveSchema(t *testing.T) {
	svc, users, _, schemas := newUserService()

	schemaID := uuid.New()
	schemas.On("GetByID", mock.Anything, schemaID).Return(&models.Schema{ID: schemaID, IsActive: false}, nil)

	_, err := svc.AssignSchema(context.Background(), adminActor(), uuid.New(), &schemaID)

	assert.ErrorIs(t, err, apperror.ErrSchemaNotFound)
	users.AssertNotCalled(t, "AssignSchema", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_AssignSchema_Success(t *testing.T) {
	svc, users, _, schemas := newUserService()

	userID := uuid.New()
	schemaID := uuid.New()

	schemas.On("GetByID", mock.Anything, schemaID).Return(&models.Schema{ID: schemaID, IsActive: true}, nil)
	users.On("AssignSchema", mock.Anything, userID, &schemaID).Return(nil)
	users.On("GetActiveByID", mock.Anything, userID).Return(&models.User{ID: userID, AssignedSchemaID: &schemaID}, nil)

	got, err := svc.AssignSchema(context.Background(), adminActor(), userID, &schemaID)

	assert.NoError(t, err)
	assert.Equal(t, &schemaID, got.AssignedSchemaID)
}

func TestUserService_AssignSchema_ClearSkipsSchemaLookup(t *testing.T) {
	svc, users, _, schemas := newUserService()

	userID := uuid.New()
	users.On("AssignSchema", mock.Anything, userID, (*uuid.UUID)(nil)).Return(nil)
	users.On("GetActiveByID", mock.Anything, userID).Return(&models.User{ID: userID}, nil)

	got, err := svc.AssignSchema(context.Background(), adminActor(), userID, nil)

	assert.NoError(t, err)
	assert.Nil(t, got.AssignedSchemaID)
	schemas.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUserService_Stats_StrangerForbidden(t *testing.T) {
	svc, _, stats, _ := newUserService()

	_, err := svc.Stats(context.Background(), userActor(uuid.New()), uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	stats.AssertNotCalled(t, "StatusCounts", mock.Anything, mock.Anything)
}

func TestUserService_Stats_Success(t *testing.T) {
	svc, users, stats, _ := newUserService()

	userID := uuid.New()
	users.On("GetActiveByID", mock.Anything, userID).Return(&models.User{ID: userID}, nil)
	stats.On("StatusCounts", mock.Anything, userID).Return(&models.UserStats{
		Total:    5,
		Drafts:   2,
		Pending:  1,
		Approved: 1,
		Rejected: 1,
	}, nil)

	got, err := svc.Stats(context.Background(), adminActor(), userID)

	assert.NoError(t, err)
	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 2, got.Drafts)
}

func TestUserService_Stats_UnknownUser(t *testing.T) {
	svc, users, stats, _ := newUserService()

	userID := uuid.New()
	users.On("GetActiveByID", mock.Anything, userID).Return(nil, apperror.ErrUserNotFound)

	_, err := svc.Stats(context.Background(), adminActor(), userID)

	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	stats.AssertNotCalled(t, "StatusCounts", mock.Anything, mock.Anything)
}
