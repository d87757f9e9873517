package gtfstables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/google/uuid"
)

var connPragmas = map[string]string{
	"foreign_keys": "ON",
	"synchronous":  "NORMAL",
}

// SQLiteStore keeps feeds in a sqlite database. Each record type gets its own
// table, keyed by (feed_id, key column), with every column stored as TEXT.
type SQLiteStore struct {
	pool *sqlitex.Pool

	mu     sync.Mutex
	tables map[string]bool
}

func OpenSQLiteStore(path string, poolSize int) (*SQLiteStore, error) {
	if path == "" {
		panic("Missing path")
	}
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := sqlitex.Open(path, 0, poolSize)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{pool: pool, tables: make(map[string]bool)}

	conn, err := s.conn(context.Background())
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	defer s.pool.Put(conn)

	err = sqlitex.ExecTransient(conn,
		"CREATE TABLE IF NOT EXISTS feeds (feed_id TEXT PRIMARY KEY, name TEXT NOT NULL, created TEXT NOT NULL)",
		sqlitexNoop)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	slog.Info(fmt.Sprintf("Opened %s", path))
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func (s *SQLiteStore) conn(ctx context.Context) (*sqlite.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn := s.pool.Get(ctx)
	if conn == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("sqlite pool closed")
	}
	for pragma, value := range connPragmas {
		if err := sqlitex.ExecTransient(conn, "PRAGMA "+pragma+" = "+value, sqlitexNoop); err != nil {
			s.pool.Put(conn)
			return nil, ctxErr(ctx, err)
		}
	}
	return conn, nil
}

func (s *SQLiteStore) ensureTable(conn *sqlite.Conn, table TableDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[table.Name] {
		return nil
	}

	columnFragments := []string{
		"feed_id TEXT NOT NULL REFERENCES feeds(feed_id) ON DELETE CASCADE",
		"seq INTEGER NOT NULL",
	}
	for _, column := range table.Columns {
		columnFragments = append(columnFragments, quoteIdent(column)+" TEXT")
	}
	columnFragments = append(columnFragments, fmt.Sprintf("PRIMARY KEY (feed_id, %s)", quoteIdent(table.KeyColumn)))

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table.Name), strings.Join(columnFragments, ", "))
	if err := sqlitex.ExecTransient(conn, query, sqlitexNoop); err != nil {
		return err
	}
	s.tables[table.Name] = true
	return nil
}

func (s *SQLiteStore) CreateFeed(ctx context.Context, name string) (Feed, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return Feed{}, err
	}
	defer s.pool.Put(conn)

	feed := Feed{ID: uuid.New(), Name: name, Created: time.Now().UTC()}
	err = sqlitex.Exec(conn, "INSERT INTO feeds (feed_id, name, created) VALUES (?, ?, ?)", sqlitexNoop,
		feed.ID.String(), feed.Name, feed.Created.Format(time.RFC3339Nano))
	if err != nil {
		return Feed{}, ctxErr(ctx, err)
	}
	return feed, nil
}

func (s *SQLiteStore) Feed(ctx context.Context, id FeedID) (Feed, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return Feed{}, err
	}
	defer s.pool.Put(conn)

	feeds, err := readFeeds(conn, "SELECT feed_id, name, created FROM feeds WHERE feed_id = ?", id.String())
	if err != nil {
		return Feed{}, ctxErr(ctx, err)
	}
	if len(feeds) == 0 {
		return Feed{}, &UnknownFeedError{Feed: id}
	}
	return feeds[0], nil
}

func (s *SQLiteStore) Feeds(ctx context.Context) ([]Feed, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	feeds, err := readFeeds(conn, "SELECT feed_id, name, created FROM feeds ORDER BY created, rowid")
	return feeds, ctxErr(ctx, err)
}

func readFeeds(conn *sqlite.Conn, query string, args ...any) ([]Feed, error) {
	var feeds []Feed
	err := sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
		id, err := uuid.Parse(stmt.GetText("feed_id"))
		if err != nil {
			return fmt.Errorf("feeds.feed_id: %w", err)
		}
		created, err := time.Parse(time.RFC3339Nano, stmt.GetText("created"))
		if err != nil {
			return fmt.Errorf("feeds.created: %w", err)
		}
		feeds = append(feeds, Feed{ID: id, Name: stmt.GetText("name"), Created: created})
		return nil
	}, args...)
	return feeds, err
}

func (s *SQLiteStore) DeleteFeed(ctx context.Context, id FeedID) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Exec(conn, "DELETE FROM feeds WHERE feed_id = ?", sqlitexNoop, id.String())
	if err != nil {
		return ctxErr(ctx, err)
	}
	if conn.Changes() == 0 {
		return &UnknownFeedError{Feed: id}
	}
	return nil
}

func (s *SQLiteStore) WriteRows(ctx context.Context, feed FeedID, table TableDef, rows []StoredRow, policy DuplicatePolicy) (err error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := s.ensureTable(conn, table); err != nil {
		return err
	}

	defer func() { err = ctxErr(ctx, err) }()
	release, err := beginImmediate(conn)
	if err != nil {
		return err
	}
	defer release(&err)

	if err := requireFeed(conn, feed); err != nil {
		return err
	}

	tableName := quoteIdent(table.Name)
	keyColumn := quoteIdent(table.KeyColumn)

	if policy == RejectDuplicates {
		var dups []error
		query := fmt.Sprintf("SELECT 1 FROM %s WHERE feed_id = ? AND %s = ?", tableName, keyColumn)
		for _, row := range rows {
			exists := false
			err := sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			}, feed.String(), row.Key)
			if err != nil {
				return err
			}
			if exists {
				dups = append(dups, &DuplicateKeyError{Feed: feed, Key: row.Key})
			}
		}
		if len(dups) > 0 {
			return errors.Join(dups...)
		}
	}

	var seq int64
	err = sqlitex.Exec(conn, fmt.Sprintf("SELECT coalesce(max(seq), 0) AS seq FROM %s WHERE feed_id = ?", tableName),
		func(stmt *sqlite.Stmt) error {
			seq = stmt.GetInt64("seq")
			return nil
		}, feed.String())
	if err != nil {
		return err
	}

	var columns, setFragments, argFragments []string
	for i, column := range table.Columns {
		columns = append(columns, quoteIdent(column))
		setFragments = append(setFragments, fmt.Sprintf("%s = ?%d", quoteIdent(column), i+1))
		argFragments = append(argFragments, fmt.Sprintf("?%d", i+1))
	}
	n := len(table.Columns)
	updateQuery := fmt.Sprintf("UPDATE %s SET %s WHERE feed_id = ?%d AND %s = ?%d",
		tableName, strings.Join(setFragments, ", "), n+1, keyColumn, n+2)
	insertQuery := fmt.Sprintf("INSERT INTO %s (%s, feed_id, seq) VALUES (%s, ?%d, ?%d)",
		tableName, strings.Join(columns, ", "), strings.Join(argFragments, ", "), n+1, n+2)

	for _, row := range rows {
		args := make([]any, 0, n+2)
		for _, v := range row.Values {
			if v == "" {
				args = append(args, nil)
			} else {
				args = append(args, v)
			}
		}

		if policy == OverwriteDuplicates {
			if err := sqlitex.Exec(conn, updateQuery, sqlitexNoop, append(args, feed.String(), row.Key)...); err != nil {
				return err
			}
			if conn.Changes() > 0 {
				continue
			}
		}

		seq++
		if err := sqlitex.Exec(conn, insertQuery, sqlitexNoop, append(args, feed.String(), seq)...); err != nil {
			return err
		}
	}

	return ctx.Err()
}

func (s *SQLiteStore) ReadRows(ctx context.Context, feed FeedID, table TableDef) ([]StoredRow, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	if err := s.ensureTable(conn, table); err != nil {
		return nil, err
	}
	if err := requireFeed(conn, feed); err != nil {
		return nil, ctxErr(ctx, err)
	}

	rows, err := readRows(conn, table, "ORDER BY seq", feed.String())
	return rows, ctxErr(ctx, err)
}

func (s *SQLiteStore) ReadRow(ctx context.Context, feed FeedID, table TableDef, key string) (StoredRow, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return StoredRow{}, err
	}
	defer s.pool.Put(conn)

	if err := s.ensureTable(conn, table); err != nil {
		return StoredRow{}, err
	}
	if err := requireFeed(conn, feed); err != nil {
		return StoredRow{}, ctxErr(ctx, err)
	}

	rows, err := readRows(conn, table, fmt.Sprintf("AND %s = ?", quoteIdent(table.KeyColumn)), feed.String(), key)
	if err != nil {
		return StoredRow{}, ctxErr(ctx, err)
	}
	if len(rows) == 0 {
		return StoredRow{}, ErrNotFound
	}
	return rows[0], nil
}

func readRows(conn *sqlite.Conn, table TableDef, suffix string, args ...any) ([]StoredRow, error) {
	var columns []string
	for _, column := range table.Columns {
		columns = append(columns, quoteIdent(column))
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE feed_id = ? %s",
		strings.Join(columns, ", "), quoteIdent(table.Name), suffix)

	var rows []StoredRow
	err := sqlitex.Exec(conn, query, func(stmt *sqlite.Stmt) error {
		row := StoredRow{Key: stmt.GetText(table.KeyColumn), Values: make([]string, len(table.Columns))}
		for i, column := range table.Columns {
			row.Values[i] = stmt.GetText(column)
		}
		rows = append(rows, row)
		return nil
	}, args...)
	return rows, err
}

func (s *SQLiteStore) DeleteRow(ctx context.Context, feed FeedID, table TableDef, key string) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := s.ensureTable(conn, table); err != nil {
		return err
	}
	if err := requireFeed(conn, feed); err != nil {
		return ctxErr(ctx, err)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE feed_id = ? AND %s = ?", quoteIdent(table.Name), quoteIdent(table.KeyColumn))
	if err := sqlitex.Exec(conn, query, sqlitexNoop, feed.String(), key); err != nil {
		return ctxErr(ctx, err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

func requireFeed(conn *sqlite.Conn, feed FeedID) error {
	found := false
	err := sqlitex.Exec(conn, "SELECT 1 FROM feeds WHERE feed_id = ?", func(stmt *sqlite.Stmt) error {
		found = true
		return nil
	}, feed.String())
	if err != nil {
		return err
	}
	if !found {
		return &UnknownFeedError{Feed: feed}
	}
	return nil
}

// beginImmediate takes the write lock up front so that concurrent writers wait
// on the busy handler instead of failing when a read lock cannot be upgraded.
func beginImmediate(conn *sqlite.Conn) (func(*error), error) {
	if err := sqlitex.ExecTransient(conn, "BEGIN IMMEDIATE", sqlitexNoop); err != nil {
		return nil, err
	}
	return func(errp *error) {
		if *errp == nil {
			*errp = sqlitex.ExecTransient(conn, "COMMIT", sqlitexNoop)
			if *errp == nil {
				return
			}
		}
		// ROLLBACK has to run even when the connection was interrupted.
		oldDoneCh := conn.SetInterrupt(nil)
		defer conn.SetInterrupt(oldDoneCh)
		_ = sqlitex.ExecTransient(conn, "ROLLBACK", sqlitexNoop)
	}, nil
}

// ctxErr reports cancellation instead of the interrupted-statement error
// sqlite returns when the context of a pooled connection is done.
func ctxErr(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlitexNoop(_ *sqlite.Stmt) error {
	return nil
}
