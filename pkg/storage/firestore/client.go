// Package firestore wraps the Firestore client with typed collection views
// for this project's document layout.
package firestore

import (
	"cloud.google.com/go/firestore"

	shared "github.com/carbonpath/server/pkg"
	"github.com/carbonpath/server/pkg/types"
)

type Client struct {
	fs *firestore.Client
}

func NewClient(client *firestore.Client) *Client {
	return &Client{fs: client}
}

func (c *Client) Close() error {
	return c.fs.Close()
}

// Raw exposes the underlying client for bulk operations.
func (c *Client) Raw() *firestore.Client {
	return c.fs
}

func (c *Client) Users() *Collection[types.UserRecord] {
	return &Collection[types.UserRecord]{
		Ref: c.fs.Collection(shared.CollectionUsers),
	}
}

// Transports are sub-collections of Users: users/{uid}/transports/{id}.
// Document IDs are derived from date + start time so re-writing the same
// underlying activity is an upsert, not a duplicate.
func (c *Client) Transports(userID string) *Collection[types.TransportRecord] {
	return &Collection[types.TransportRecord]{
		Ref: c.fs.Collection(shared.CollectionUsers).Doc(userID).Collection(shared.CollectionTransports),
	}
}

// NoTransportDates are sub-collections of Users keyed by date:
// users/{uid}/no_transport_dates/{YYYY-MM-DD}. Exactly one marker per
// confirmed-empty date.
func (c *Client) NoTransportDates(userID string) *Collection[types.NoTransportMarker] {
	return &Collection[types.NoTransportMarker]{
		Ref: c.fs.Collection(shared.CollectionUsers).Doc(userID).Collection(shared.CollectionNoTransportDates),
	}
}
