// Package database implements the shared.Database interface on Firestore.
// All store access flows through this adapter: no pipeline component reaches
// Firestore directly.
package database

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	storage "github.com/carbonpath/server/pkg/storage/firestore"
	"github.com/carbonpath/server/pkg/types"
)

// FailedWrite identifies one record that could not be persisted in a bulk
// insert.
type FailedWrite struct {
	ID  string
	Err error
}

// PartialWriteError reports a bulk insert where a subset of records failed.
// The successfully-inserted records are NOT rolled back; the caller decides
// whether the covered dates count as resolved.
type PartialWriteError struct {
	Attempted int
	Failed    []FailedWrite
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("bulk insert: %d of %d records failed", len(e.Failed), e.Attempted)
}

// TotalFailure reports whether no record of the batch was persisted.
func (e *PartialWriteError) TotalFailure() bool {
	return len(e.Failed) == e.Attempted
}

// FirestoreAdapter provides database operations using Firestore.
type FirestoreAdapter struct {
	storage *storage.Client
}

func NewFirestoreAdapter(client *firestore.Client) *FirestoreAdapter {
	return &FirestoreAdapter{
		storage: storage.NewClient(client),
	}
}

// GetUser returns nil without error for an unknown user; callers branch on
// the nil rather than unpacking a store-specific error.
func (a *FirestoreAdapter) GetUser(ctx context.Context, id string) (*types.UserRecord, error) {
	user, err := a.storage.Users().Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	return user, err
}

func isNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}

func (a *FirestoreAdapter) UpdateUser(ctx context.Context, id string, data map[string]interface{}) error {
	return a.storage.Users().Doc(id).Update(ctx, data)
}

// TransportDates returns the distinct dates with at least one persisted
// transport for the user.
func (a *FirestoreAdapter) TransportDates(ctx context.Context, userID string) ([]string, error) {
	return a.storage.Transports(userID).Distinct(ctx, "date")
}

// NoTransportDates returns the dates marked as having no qualifying
// transport.
func (a *FirestoreAdapter) NoTransportDates(ctx context.Context, userID string) ([]string, error) {
	return a.storage.NoTransportDates(userID).Distinct(ctx, "date")
}

// InsertTransports bulk-upserts transport records. A failure on a subset
// does not lose the successfully-inserted subset; per-record failures are
// reported through PartialWriteError rather than silently discarded.
func (a *FirestoreAdapter) InsertTransports(ctx context.Context, userID string, records []*types.TransportRecord) error {
	if len(records) == 0 {
		return nil
	}

	col := a.storage.Transports(userID)
	bw := a.storage.Raw().BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(records))
	for _, record := range records {
		job, err := bw.Set(col.Doc(record.ID).Ref, record)
		if err != nil {
			bw.End()
			return fmt.Errorf("enqueue transport %s: %w", record.ID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var failed []FailedWrite
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			failed = append(failed, FailedWrite{ID: records[i].ID, Err: err})
		}
	}
	if len(failed) > 0 {
		return &PartialWriteError{Attempted: len(records), Failed: failed}
	}
	return nil
}

func (a *FirestoreAdapter) ListTransportsByDate(ctx context.Context, userID string, date string) ([]*types.TransportRecord, error) {
	return a.storage.Transports(userID).Find(ctx, "date", "==", date)
}

// GetTransport returns nil without error for an unknown transport.
func (a *FirestoreAdapter) GetTransport(ctx context.Context, userID string, id string) (*types.TransportRecord, error) {
	record, err := a.storage.Transports(userID).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, nil
	}
	return record, err
}

// MarkNoTransport writes the marker for a confirmed-empty date. Keyed by
// date, so a re-run writes the same document rather than a duplicate.
func (a *FirestoreAdapter) MarkNoTransport(ctx context.Context, userID string, date string) error {
	marker := &types.NoTransportMarker{
		UserID:    userID,
		Date:      date,
		CreatedAt: time.Now().UTC(),
	}
	return a.storage.NoTransportDates(userID).Doc(date).Set(ctx, marker)
}
