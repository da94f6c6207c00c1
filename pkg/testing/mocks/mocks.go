// Package mocks provides function-field test doubles for the shared
// interfaces. A nil field falls back to a benign default so tests only
// stub the calls they assert on.
package mocks

import (
	"context"
	"fmt"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/carbonpath/server/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	GetUserFunc              func(ctx context.Context, id string) (*types.UserRecord, error)
	UpdateUserFunc           func(ctx context.Context, id string, data map[string]interface{}) error
	TransportDatesFunc       func(ctx context.Context, userID string) ([]string, error)
	NoTransportDatesFunc     func(ctx context.Context, userID string) ([]string, error)
	InsertTransportsFunc     func(ctx context.Context, userID string, records []*types.TransportRecord) error
	ListTransportsByDateFunc func(ctx context.Context, userID string, date string) ([]*types.TransportRecord, error)
	GetTransportFunc         func(ctx context.Context, userID string, id string) (*types.TransportRecord, error)
	MarkNoTransportFunc      func(ctx context.Context, userID string, date string) error
}

func (m *MockDatabase) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, fmt.Errorf("user not found")
}

func (m *MockDatabase) UpdateUser(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateUserFunc != nil {
		return m.UpdateUserFunc(ctx, id, data)
	}
	return nil
}

func (m *MockDatabase) TransportDates(ctx context.Context, userID string) ([]string, error) {
	if m.TransportDatesFunc != nil {
		return m.TransportDatesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockDatabase) NoTransportDates(ctx context.Context, userID string) ([]string, error) {
	if m.NoTransportDatesFunc != nil {
		return m.NoTransportDatesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockDatabase) InsertTransports(ctx context.Context, userID string, records []*types.TransportRecord) error {
	if m.InsertTransportsFunc != nil {
		return m.InsertTransportsFunc(ctx, userID, records)
	}
	return nil
}

func (m *MockDatabase) ListTransportsByDate(ctx context.Context, userID string, date string) ([]*types.TransportRecord, error) {
	if m.ListTransportsByDateFunc != nil {
		return m.ListTransportsByDateFunc(ctx, userID, date)
	}
	return nil, nil
}

func (m *MockDatabase) GetTransport(ctx context.Context, userID string, id string) (*types.TransportRecord, error) {
	if m.GetTransportFunc != nil {
		return m.GetTransportFunc(ctx, userID, id)
	}
	return nil, nil
}

func (m *MockDatabase) MarkNoTransport(ctx context.Context, userID string, date string) error {
	if m.MarkNoTransportFunc != nil {
		return m.MarkNoTransportFunc(ctx, userID, date)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}

func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}
