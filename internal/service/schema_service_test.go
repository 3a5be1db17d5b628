package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/proposal-backend/internal/ai"
	"github.com/ignatzorin/proposal-backend/internal/models"
	"github.com/ignatzorin/proposal-backend/internal/pkg/apperror"
)

type mockSchemaRepo struct {
	mock.Mock
}

func (m *mockSchemaRepo) CreateWithSync(ctx context.Context, schema *models.Schema, sync func(context.Context, *models.Schema) error) error {
	args := m.Called(ctx, schema)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return sync(ctx, schema)
}

// Update запускает переданную функцию над строкой из мока, как это делает
// настоящий репозиторий под блокировкой.
func (m *mockSchemaRepo) Update(ctx context.Context, id uuid.UUID, actorID uuid.UUID, apply func(current *models.Schema) (*models.SchemaChange, error)) (*models.Schema, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	current := args.Get(0).(*models.Schema)

	change, err := apply(current)
	if err != nil {
		return nil, err
	}

	current.Name = change.Name
	current.Version = change.Version
	current.Description = change.Description
	current.Sections = change.Sections
	current.GlobalRules = change.GlobalRules

	return current, nil
}

func (m *mockSchemaRepo) List(ctx context.Context) ([]models.Schema, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Schema), args.Error(1)
}

func (m *mockSchemaRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Schema, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schema), args.Error(1)
}

func (m *mockSchemaRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSchemaRepo) ListVersions(ctx context.Context, schemaID uuid.UUID) ([]models.SchemaVersion, error) {
	args := m.Called(ctx, schemaID)
	return args.Get(0).([]models.SchemaVersion), args.Error(1)
}

func (m *mockSchemaRepo) ActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockSchemaGenerator struct {
	mock.Mock
}

func (m *mockSchemaGenerator) UploadSchema(ctx context.Context, schema *models.Schema) error {
	args := m.Called(ctx, schema)
	return args.Error(0)
}

func (m *mockSchemaGenerator) ListSchemas(ctx context.Context) ([]ai.KnownSchema, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ai.KnownSchema), args.Error(1)
}

func validSchemaInput() SchemaInput {
	return SchemaInput{
		Name: "Стандартное КП",
		Sections: []models.SectionDef{
			{
				Name:  "intro",
				Order: 1,
				Rules: []models.Rule{{Name: "min-words", Severity: models.RuleSeverityError}},
			},
		},
		GlobalRules: []models.Rule{{Name: "tone", Severity: models.RuleSeverityWarning}},
	}
}

func TestSchemaService_Create_NonAdmin(t *testing.T) {
	repo := new(mockSchemaRepo)
	generator := new(mockSchemaGenerator)
	svc := NewSchemaService(repo, generator)

	_, err := svc.Create(context.Background(), models.Actor{ID: uuid.New(), Role: models.RoleUser}, validSchemaInput())

	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "CreateWithSync")
}

func TestSchemaService_Create_FillsIDsAndSyncs(t *testing.T) {
	repo := new(mockSchemaRepo)
	generator := new(mockSchemaGenerator)
	svc := NewSchemaService(repo, generator)
	ctx := context.Background()
	admin := adminActor()

	repo.On("CreateWithSync", ctx, mock.AnythingOfType("*models.Schema")).Return(nil)
	generator.On("UploadSchema", ctx, mock.AnythingOfType("*models.Schema")).Return(nil)

	schema, err := svc.Create(ctx, admin, validSchemaInput())

	assert.NoError(t, err)
	assert.Equal(t, "1.0.0", schema.Version)
	assert.Contains(t, schema.Sections[0].ID, "section-")
	assert.Contains(t, schema.Sections[0].Rules[0].ID, "rule-")
	assert.Contains(t, schema.GlobalRules[0].ID, "rule-")
	assert.Equal(t, admin.ID, schema.CreatedBy)
	generator.AssertExpectations(t)
}

func TestSchemaService_Create_SyncFailureIsUpstream(t *testing.T) {
	repo := new(mockSchemaRepo)
	generator := new(mockSchemaGenerator)
	svc := NewSchemaService(repo, generator)
	ctx := context.Background()

	repo.On("CreateWithSync", ctx, mock.AnythingOfType("*models.Schema")).Return(nil)
	generator.On("UploadSchema", ctx, mock.AnythingOfType("*models.Schema")).Return(errors.New("connection refused"))

	_, err := svc.Create(ctx, adminActor(), validSchemaInput())

	assert.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.ErrCodeUpstream, appErr.Code)
}

func TestSchemaService_Create_InvalidSeverity(t *testing.T) {
	repo := new(mockSchemaRepo)
	svc := NewSchemaService(repo, new(mockSchemaGenerator))

	in := validSchemaInput()
	in.GlobalRules[0].Severity = "critical"

	_, err := svc.Create(context.Background(), adminActor(), in)
	assert.True(t, apperror.IsValidation(err))
}

func TestSchemaService_Update_WarningOnSyncFailure(t *testing.T) {
	repo := new(mockSchemaRepo)
	generator := new(mockSchemaGenerator)
	svc := NewSchemaService(repo, generator)
	ctx := context.Background()
	admin := adminActor()
	id := uuid.New()

	repo.On("Update", ctx, id, admin.ID).Return(&models.Schema{ID: id, Version: "1.0.0"}, nil)
	generator.On("UploadSchema", ctx, mock.AnythingOfType("*models.Schema")).Return(errors.New("timeout"))

	result, err := svc.Update(ctx, admin, id, validSchemaInput())

	// Обновление сохраняется, рассинхронизация отдаётся предупреждением.
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Warning)
	assert.Equal(t, "Стандартное КП", result.Schema.Name)
}

func TestSchemaService_Update_KeepsVersionWhenOmitted(t *testing.T) {
	repo := new(mockSchemaRepo)
	generator := new(mockSchemaGenerator)
	svc := NewSchemaService(repo, generator)
	ctx := context.Background()
	admin := adminActor()
	id := uuid.New()

	repo.On("Update", ctx, id, admin.ID).Return(&models.Schema{ID: id, Version: "2.1.0"}, nil)
	generator.On("UploadSchema", ctx, mock.AnythingOfType("*models.Schema")).Return(nil)

	result, err := svc.Update(ctx, admin, id, validSchemaInput())

	assert.NoError(t, err)
	assert.Equal(t, "2.1.0", result.Schema.Version)
	assert.Empty(t, result.Warning)
}

func TestSchemaService_Delete_NonAdmin(t *testing.T) {
	repo := new(mockSchemaRepo)
	svc := NewSchemaService(repo, new(mockSchemaGenerator))

	err := svc.Delete(context.Background(), models.Actor{ID: uuid.New(), Role: models.RoleUser}, uuid.New())

	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "SoftDelete")
}

func TestSchemaService_SyncStatus(t *testing.T) {
	repo := new(mockSchemaRepo)
	generator := new(mockSchemaGenerator)
	svc := NewSchemaService(repo, generator)
	ctx := context.Background()

	knownID := uuid.New()
	missingID := uuid.New()

	repo.On("ActiveIDs", ctx).Return([]uuid.UUID{knownID, missingID}, nil)
	generator.On("ListSchemas", ctx).Return([]ai.KnownSchema{{ID: knownID.String()}}, nil)

	status, err := svc.SyncStatus(ctx)

	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{knownID}, status.Synced)
	assert.Equal(t, []uuid.UUID{missingID}, status.Missing)
}

func TestSchemaService_SyncAll_CollectsPerSchemaErrors(t *testing.T) {
	repo := new(mockSchemaRepo)
	generator := new(mockSchemaGenerator)
	svc := NewSchemaService(repo, generator)
	ctx := context.Background()

	okID := uuid.New()
	badID := uuid.New()

	repo.On("ActiveIDs", ctx).Return([]uuid.UUID{okID, badID}, nil)
	generator.On("ListSchemas", ctx).Return([]ai.KnownSchema{}, nil)

	okSchema := &models.Schema{ID: okID}
	badSchema := &models.Schema{ID: badID}
	repo.On("GetByID", ctx, okID).Return(okSchema, nil)
	repo.On("GetByID", ctx, badID).Return(badSchema, nil)
	generator.On("UploadSchema", ctx, okSchema).Return(nil)
	generator.On("UploadSchema", ctx, badSchema).Return(errors.New("schema rejected"))

	result, err := svc.SyncAll(ctx, adminActor())

	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{okID}, result.Pushed)
	assert.Len(t, result.Failed, 1)
	assert.Equal(t, badID, result.Failed[0].SchemaID)
}
