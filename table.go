package gtfstables

import (
	"context"
	"errors"
	"fmt"
)

// Table binds a record type to a store. It is the entry point for importing,
// exporting and editing one GTFS table.
type Table[T any] struct {
	typ   *RecordType[T]
	store Store
}

func NewTable[T any](store Store, rt *RecordType[T]) *Table[T] {
	if store == nil {
		panic("Missing store")
	}
	if rt == nil {
		panic("Missing record type")
	}
	rt.init()
	return &Table[T]{typ: rt, store: store}
}

func (t *Table[T]) Type() *RecordType[T] {
	return t.typ
}

// List returns every record of the feed in export order.
func (t *Table[T]) List(ctx context.Context, feed FeedID) ([]T, error) {
	rows, err := t.store.ReadRows(ctx, feed, t.typ.table())
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := t.decode(feed, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (t *Table[T]) Get(ctx context.Context, feed FeedID, key string) (T, error) {
	row, err := t.store.ReadRow(ctx, feed, t.typ.table(), key)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.decode(feed, row)
}

// Put stores a directly constructed record in feed. The record is validated
// first, and an existing record with the same key is handled per policy.
func (t *Table[T]) Put(ctx context.Context, feed FeedID, rec T, policy DuplicatePolicy) error {
	*t.typ.FeedRef(&rec) = feed
	if issues := t.typ.Validate(&rec); len(issues) > 0 {
		return errors.Join(issues...)
	}
	row := StoredRow{Key: t.typ.KeyOf(&rec), Values: t.typ.Serialize(&rec)}
	return t.store.WriteRows(ctx, feed, t.typ.table(), []StoredRow{row}, policy)
}

func (t *Table[T]) Delete(ctx context.Context, feed FeedID, key string) error {
	return t.store.DeleteRow(ctx, feed, t.typ.table(), key)
}

// decode turns a stored row back into a record. Stored rows are always in
// column map order.
func (t *Table[T]) decode(feed FeedID, row StoredRow) (T, error) {
	idx := make(headerIndex, len(t.typ.Columns))
	for i := range idx {
		idx[i] = i
	}
	rec, issues := t.typ.parseRow(idx, row.Values, 0)
	if len(issues) > 0 {
		var zero T
		return zero, fmt.Errorf("stored %s %q: %w", t.typ.Name, row.Key, errors.Join(issues...))
	}
	*t.typ.FeedRef(&rec) = feed
	return rec, nil
}
