package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Collection is a typed view over a Firestore collection. Documents
// marshal/unmarshal through the record struct's firestore tags.
type Collection[T any] struct {
	Ref *firestore.CollectionRef
}

func (c *Collection[T]) Doc(id string) *DocumentRef[T] {
	return &DocumentRef[T]{Ref: c.Ref.Doc(id)}
}

// Distinct collects the distinct values of a string field across the
// collection. Firestore has no server-side distinct, so this selects the
// single field and deduplicates client-side.
func (c *Collection[T]) Distinct(ctx context.Context, field string) ([]string, error) {
	iter := c.Ref.Select(field).Documents(ctx)
	defer iter.Stop()

	seen := make(map[string]bool)
	var values []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("distinct %s: %w", field, err)
		}
		v, err := snap.DataAt(field)
		if err != nil {
			continue
		}
		s, ok := v.(string)
		if !ok || seen[s] {
			continue
		}
		seen[s] = true
		values = append(values, s)
	}
	return values, nil
}

// Find returns all documents matching a single field predicate.
func (c *Collection[T]) Find(ctx context.Context, field, op string, value interface{}) ([]*T, error) {
	iter := c.Ref.Where(field, op, value).Documents(ctx)
	defer iter.Stop()

	var out []*T
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("find %s %s: %w", field, op, err)
		}
		var record T
		if err := snap.DataTo(&record); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", snap.Ref.ID, err)
		}
		out = append(out, &record)
	}
	return out, nil
}

type DocumentRef[T any] struct {
	Ref *firestore.DocumentRef
}

func (d *DocumentRef[T]) ID() string {
	return d.Ref.ID
}

func (d *DocumentRef[T]) Get(ctx context.Context) (*T, error) {
	snap, err := d.Ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	var record T
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", d.Ref.ID, err)
	}
	return &record, nil
}

func (d *DocumentRef[T]) Set(ctx context.Context, data *T) error {
	_, err := d.Ref.Set(ctx, data)
	return err
}

// Update applies a partial update. Dotted keys address nested fields, so an
// update to integrations.moves.access_token leaves its siblings intact.
func (d *DocumentRef[T]) Update(ctx context.Context, updates map[string]interface{}) error {
	ops := make([]firestore.Update, 0, len(updates))
	for path, value := range updates {
		ops = append(ops, firestore.Update{Path: path, Value: value})
	}
	_, err := d.Ref.Update(ctx, ops)
	return err
}
