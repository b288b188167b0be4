package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/service"
)

var _ service.BudgetExporter = (*MockWriter)(nil)
var _ service.BudgetExporter = (*Writer)(nil)

// MockWriter is a mock implementation of service.BudgetExporter for testing.
type MockWriter struct {
	WriteFunc  func(ctx context.Context, title string, result model.BudgetResult) (string, error)
	LastResult *model.BudgetResult
	LastTitle  string
	WriteCalls []WriteCall
	mu         sync.Mutex
}

// WriteCall represents a single call to WriteBudget.
type WriteCall struct {
	Error  error
	Title  string
	Result model.BudgetResult
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// WriteBudget implements service.BudgetExporter.
func (m *MockWriter) WriteBudget(ctx context.Context, title string, result model.BudgetResult) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastTitle = title
	m.LastResult = &result

	id := "mock-spreadsheet"
	var err error
	if m.WriteFunc != nil {
		id, err = m.WriteFunc(ctx, title, result)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Title:  title,
		Result: result,
		Error:  err,
	})

	return id, err
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to fail every WriteBudget call.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, string, model.BudgetResult) (string, error) {
		return "", err
	}
}
