package shared

import (
	"context"

	"github.com/carbonpath/server/pkg/types"
	"github.com/cloudevents/sdk-go/v2/event"
)

// --- Persistence Interfaces ---

type Database interface {
	GetUser(ctx context.Context, id string) (*types.UserRecord, error)
	UpdateUser(ctx context.Context, id string, data map[string]interface{}) error

	// Resolved-date state for the gap resolver
	TransportDates(ctx context.Context, userID string) ([]string, error)
	NoTransportDates(ctx context.Context, userID string) ([]string, error)

	// Transports
	InsertTransports(ctx context.Context, userID string, records []*types.TransportRecord) error
	ListTransportsByDate(ctx context.Context, userID string, date string) ([]*types.TransportRecord, error)
	GetTransport(ctx context.Context, userID string, id string) (*types.TransportRecord, error)

	// No-transport markers
	MarkNoTransport(ctx context.Context, userID string, date string) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
	Read(ctx context.Context, bucket, object string) ([]byte, error)
}
