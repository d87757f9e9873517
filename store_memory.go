package gtfstables

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	feeds map[FeedID]*memFeed
	order []FeedID
}

type memFeed struct {
	feed   Feed
	tables map[string]*memTable
}

type memTable struct {
	rows  []StoredRow
	index map[string]int // key -> position in rows
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{feeds: make(map[FeedID]*memFeed)}
}

func (s *MemoryStore) CreateFeed(ctx context.Context, name string) (Feed, error) {
	if err := ctx.Err(); err != nil {
		return Feed{}, err
	}
	feed := Feed{ID: uuid.New(), Name: name, Created: time.Now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[feed.ID] = &memFeed{feed: feed, tables: make(map[string]*memTable)}
	s.order = append(s.order, feed.ID)
	return feed, nil
}

func (s *MemoryStore) Feed(ctx context.Context, id FeedID) (Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.feeds[id]
	if !ok {
		return Feed{}, &UnknownFeedError{Feed: id}
	}
	return f.feed, nil
}

func (s *MemoryStore) Feeds(ctx context.Context) ([]Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Feed, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.feeds[id].feed)
	}
	return out, nil
}

func (s *MemoryStore) DeleteFeed(ctx context.Context, id FeedID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.feeds[id]; !ok {
		return &UnknownFeedError{Feed: id}
	}
	delete(s.feeds, id)
	s.order = slices.DeleteFunc(s.order, func(other FeedID) bool { return other == id })
	return nil
}

func (s *MemoryStore) WriteRows(ctx context.Context, feed FeedID, table TableDef, rows []StoredRow, policy DuplicatePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feeds[feed]
	if !ok {
		return &UnknownFeedError{Feed: feed}
	}
	t := f.tables[table.Name]
	if t == nil {
		t = &memTable{index: make(map[string]int)}
	}

	if policy == RejectDuplicates {
		var dups []error
		for _, row := range rows {
			if _, exists := t.index[row.Key]; exists {
				dups = append(dups, &DuplicateKeyError{Feed: feed, Key: row.Key})
			}
		}
		if len(dups) > 0 {
			return errors.Join(dups...)
		}
	}

	// Last chance to back out before anything is changed.
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, row := range rows {
		row = StoredRow{Key: row.Key, Values: slices.Clone(row.Values)}
		if i, exists := t.index[row.Key]; exists {
			t.rows[i] = row
			continue
		}
		t.index[row.Key] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	f.tables[table.Name] = t
	return nil
}

func (s *MemoryStore) ReadRows(ctx context.Context, feed FeedID, table TableDef) ([]StoredRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.feeds[feed]
	if !ok {
		return nil, &UnknownFeedError{Feed: feed}
	}
	t := f.tables[table.Name]
	if t == nil {
		return nil, nil
	}
	out := make([]StoredRow, len(t.rows))
	for i, row := range t.rows {
		out[i] = StoredRow{Key: row.Key, Values: slices.Clone(row.Values)}
	}
	return out, nil
}

func (s *MemoryStore) ReadRow(ctx context.Context, feed FeedID, table TableDef, key string) (StoredRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.feeds[feed]
	if !ok {
		return StoredRow{}, &UnknownFeedError{Feed: feed}
	}
	t := f.tables[table.Name]
	if t == nil {
		return StoredRow{}, ErrNotFound
	}
	i, ok := t.index[key]
	if !ok {
		return StoredRow{}, ErrNotFound
	}
	row := t.rows[i]
	return StoredRow{Key: row.Key, Values: slices.Clone(row.Values)}, nil
}

func (s *MemoryStore) DeleteRow(ctx context.Context, feed FeedID, table TableDef, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feeds[feed]
	if !ok {
		return &UnknownFeedError{Feed: feed}
	}
	t := f.tables[table.Name]
	if t == nil {
		return ErrNotFound
	}
	i, ok := t.index[key]
	if !ok {
		return ErrNotFound
	}
	t.rows = slices.Delete(t.rows, i, i+1)
	delete(t.index, key)
	for j := i; j < len(t.rows); j++ {
		t.index[t.rows[j].Key] = j
	}
	return nil
}
