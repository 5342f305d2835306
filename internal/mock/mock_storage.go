package mock

import (
	"context"
	"os"
	"path/filepath"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface.
type MockStorage struct {
	mock.Mock

	// Objects, when set, supplies the content Fetch writes for a key.
	Objects map[string][]byte
}

// Fetch mocks the Fetch method. On success the matching entry of Objects is
// written to localPath.
func (m *MockStorage) Fetch(ctx context.Context, key string, localPath string) error {
	args := m.Called(ctx, key, localPath)
	if err := args.Error(0); err != nil {
		return err
	}
	data, ok := m.Objects[key]
	if !ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0644)
}

// Publish mocks the Publish method.
func (m *MockStorage) Publish(ctx context.Context, key string, localPath string) error {
	args := m.Called(ctx, key, localPath)
	return args.Error(0)
}

// Exists mocks the Exists method.
func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// URL mocks the URL method.
func (m *MockStorage) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// ExpectFetch sets up an expectation for Fetch.
func (m *MockStorage) ExpectFetch(key string, err error) *mock.Call {
	return m.On("Fetch", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectPublish sets up an expectation for Publish.
func (m *MockStorage) ExpectPublish(key string, err error) *mock.Call {
	return m.On("Publish", mock.Anything, key, mock.Anything).Return(err)
}

// ExpectExists sets up an expectation for Exists.
func (m *MockStorage) ExpectExists(key string, exists bool, err error) *mock.Call {
	return m.On("Exists", mock.Anything, key).Return(exists, err)
}
