package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCypherRunner is a mock implementation of the graph.CypherRunner interface.
type MockCypherRunner struct {
	mock.Mock
}

// Run mocks the Run method.
func (m *MockCypherRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	args := m.Called(ctx, cypher, params)
	return args.Error(0)
}

// ExpectAnyRun accepts every statement and returns err.
func (m *MockCypherRunner) ExpectAnyRun(err error) *mock.Call {
	return m.On("Run", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(err)
}
