package gtfstables

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FeedID identifies a feed. Every stored record is scoped by one.
type FeedID = uuid.UUID

func ParseFeedID(s string) (FeedID, error) {
	return uuid.Parse(s)
}

type Feed struct {
	ID      FeedID
	Name    string
	Created time.Time
}

// DuplicatePolicy decides what happens when a record's key already exists in
// its feed, either earlier in the same file or from an earlier commit.
type DuplicatePolicy int

const (
	// RejectDuplicates fails the whole batch with a DuplicateKeyError per
	// offending record.
	RejectDuplicates DuplicatePolicy = iota
	// OverwriteDuplicates keeps the last record written for a key. The record
	// keeps the export position of the one it replaced.
	OverwriteDuplicates
)

func (p DuplicatePolicy) String() string {
	switch p {
	case RejectDuplicates:
		return "reject"
	case OverwriteDuplicates:
		return "overwrite"
	default:
		return "unknown"
	}
}

// TableDef is the storage layout of a record type.
type TableDef struct {
	Name      string
	KeyColumn string
	Columns   []string
}

// StoredRow is a record in its serialized form. Values follow
// TableDef.Columns and an empty value means null.
type StoredRow struct {
	Key    string
	Values []string
}

// Store persists feeds and their rows. Implementations must isolate rows by
// feed and be safe for concurrent use.
type Store interface {
	CreateFeed(ctx context.Context, name string) (Feed, error)
	Feed(ctx context.Context, id FeedID) (Feed, error)
	Feeds(ctx context.Context) ([]Feed, error)
	// DeleteFeed removes the feed and every row it owns.
	DeleteFeed(ctx context.Context, id FeedID) error

	// WriteRows commits rows to a feed all-or-nothing. Keys within rows are
	// unique. Under RejectDuplicates a key that is already stored fails the
	// whole write with one *DuplicateKeyError per such key.
	WriteRows(ctx context.Context, feed FeedID, table TableDef, rows []StoredRow, policy DuplicatePolicy) error
	// ReadRows returns a feed's rows in the order they were first written.
	ReadRows(ctx context.Context, feed FeedID, table TableDef) ([]StoredRow, error)
	ReadRow(ctx context.Context, feed FeedID, table TableDef, key string) (StoredRow, error)
	DeleteRow(ctx context.Context, feed FeedID, table TableDef, key string) error
}
