package contract

import (
	"context"
	"time"

	"github.com/huangsam/hotswarm/schema"
	"github.com/stretchr/testify/mock"
)

// MockTracker is a testify mock for the Tracker interface.
type MockTracker struct {
	mock.Mock
}

var _ Tracker = &MockTracker{} // Compile-time check

// FetchItems implements the Tracker interface.
func (m *MockTracker) FetchItems(ctx context.Context, ids []string) []schema.Item {
	items, _ := m.Called(ctx, ids).Get(0).([]schema.Item)
	return items
}

// ListOpenItems implements the Tracker interface.
func (m *MockTracker) ListOpenItems(ctx context.Context, limit int) []schema.Item {
	items, _ := m.Called(ctx, limit).Get(0).([]schema.Item)
	return items
}

// UpdateItemStatus implements the Tracker interface.
func (m *MockTracker) UpdateItemStatus(ctx context.Context, id string, status string) bool {
	return m.Called(ctx, id, status).Bool(0)
}

// MockHistoryStore is a testify mock for the HistoryStore interface.
type MockHistoryStore struct {
	mock.Mock
}

var _ HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(swarmID string, baseBranch string, itemCount int, startTime time.Time, configParams map[string]any) (int64, error) {
	ret := m.Called(swarmID, baseBranch, itemCount, startTime, configParams)
	id, _ := ret.Get(0).(int64)
	return id, ret.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(runID int64, endTime time.Time, phase schema.Phase) error {
	return m.Called(runID, endTime, phase).Error(0)
}

// RecordWorkerOutcome implements the HistoryStore interface.
func (m *MockHistoryStore) RecordWorkerOutcome(runID int64, outcome schema.WorkerOutcomeRecord) error {
	return m.Called(runID, outcome).Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	ret := m.Called()
	status, _ := ret.Get(0).(schema.HistoryStatus)
	return status, ret.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	return m.Called().Error(0)
}
