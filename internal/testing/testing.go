// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/machinemessiah/tagify-sub000/internal/models"
	"github.com/machinemessiah/tagify-sub000/internal/services"
)

// MockService is an inert test double for [services.Service]: every call
// succeeds with zero values. Tests that need behavior use their own fakes.
type MockService struct{}

func (m *MockService) ListMembers(ctx context.Context, collectionID string) ([]string, error) {
	return []string{}, nil
}

func (m *MockService) AddMember(ctx context.Context, itemKey, collectionID string) (services.AddResult, error) {
	return services.AddResult{Success: true, WasAdded: true}, nil
}

func (m *MockService) RemoveMember(ctx context.Context, itemKey, collectionID string) (bool, error) {
	return false, nil
}

func (m *MockService) IsMember(ctx context.Context, itemKey, collectionID string) (bool, error) {
	return false, nil
}

func (m *MockService) ListCollectionIDs(ctx context.Context) ([]string, error) {
	return []string{}, nil
}

func (m *MockService) CreateCollection(ctx context.Context, name, description string) (string, error) {
	return "mock-collection", nil
}

func (m *MockService) GetTrack(ctx context.Context, itemKey string) (*models.Track, error) {
	return &models.Track{ID: itemKey}, nil
}

func (m *MockService) GetTracks(ctx context.Context, itemKeys []string) ([]models.Track, error) {
	return []models.Track{}, nil
}

func (m *MockService) GetTempo(ctx context.Context, itemKey string) (models.NullInt, error) {
	return models.NullInt{}, nil
}

func (m *MockService) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
