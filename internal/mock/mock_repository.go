package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/depdiscover/internal/repository"
	"github.com/depdiscover/pkg/model"
)

// MockRunStore is a mock implementation of the repository.RunStore interface.
type MockRunStore struct {
	mock.Mock
}

// SaveRun mocks the SaveRun method.
func (m *MockRunStore) SaveRun(ctx context.Context, report *model.Report) (int64, error) {
	args := m.Called(ctx, report)
	return args.Get(0).(int64), args.Error(1)
}

// GetRun mocks the GetRun method.
func (m *MockRunStore) GetRun(ctx context.Context, runUUID string) (*model.Run, error) {
	args := m.Called(ctx, runUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

// GetReport mocks the GetReport method.
func (m *MockRunStore) GetReport(ctx context.Context, runUUID string) (*model.Report, error) {
	args := m.Called(ctx, runUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockRunStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

// ListDependencies mocks the ListDependencies method.
func (m *MockRunStore) ListDependencies(ctx context.Context, runUUID string, filter repository.DependencyFilter) ([]model.Dependency, error) {
	args := m.Called(ctx, runUUID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Dependency), args.Error(1)
}

// ExpectSaveRun sets up an expectation for SaveRun with any report.
func (m *MockRunStore) ExpectSaveRun(id int64, err error) *mock.Call {
	return m.On("SaveRun", mock.Anything, mock.AnythingOfType("*model.Report")).Return(id, err)
}

// Verify interface compliance
var _ repository.RunStore = (*MockRunStore)(nil)
