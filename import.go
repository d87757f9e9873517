package gtfstables

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ImportOpts struct {
	Duplicates DuplicatePolicy
}

// contextCheckInterval is how often, in rows, an import checks for
// cancellation.
var contextCheckInterval = 100

// Import builds a record from every data row, scopes each to feed, and commits
// them as one batch. If any row is invalid nothing is committed and the
// returned *ImportError lists every issue found.
func (t *Table[T]) Import(ctx context.Context, feed FeedID, header []string, rows [][]string, opts *ImportOpts) ([]T, error) {
	if opts == nil {
		opts = &ImportOpts{}
	}
	filename := t.typ.Name + ".txt"

	if _, err := t.store.Feed(ctx, feed); err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Importing %s into feed %s: %s", filename, feed, strings.Join(header, ",")))

	idx, issues := bindHeader(t.typ.Name, t.typ.Columns, t.typ.bound, header)
	if len(issues) > 0 {
		return nil, t.reject(feed, issues)
	}

	records := make([]T, 0, len(rows))
	stored := make([]StoredRow, 0, len(rows))
	position := make(map[string]int) // key -> index into records
	rowOf := make(map[string]int)    // key -> data row that last wrote it

	for i, cells := range rows {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rowNum := i + 1

		rec, rowIssues := t.typ.parseRow(idx, cells, rowNum)
		if len(rowIssues) > 0 {
			issues = append(issues, rowIssues...)
			continue
		}
		*t.typ.FeedRef(&rec) = feed
		key := t.typ.KeyOf(&rec)
		row := StoredRow{Key: key, Values: t.typ.Serialize(&rec)}

		if pos, dup := position[key]; dup {
			if opts.Duplicates == RejectDuplicates {
				issues = append(issues, &DuplicateKeyError{Feed: feed, Key: key, Row: rowNum})
				continue
			}
			records[pos] = rec
			stored[pos] = row
			rowOf[key] = rowNum
			continue
		}

		position[key] = len(records)
		rowOf[key] = rowNum
		records = append(records, rec)
		stored = append(stored, row)
	}

	if len(issues) > 0 {
		return nil, t.reject(feed, issues)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := t.store.WriteRows(ctx, feed, t.typ.table(), stored, opts.Duplicates)
	if errors.Is(err, ErrDuplicateKey) {
		for _, issue := range splitErrors(err) {
			var dup *DuplicateKeyError
			if errors.As(issue, &dup) {
				dup.Row = rowOf[dup.Key]
			}
			issues = append(issues, issue)
		}
		return nil, t.reject(feed, issues)
	} else if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Wrote %d rows", len(stored)))
	return records, nil
}

// ImportCSV reads a whole table, header first, and imports it.
func (t *Table[T]) ImportCSV(ctx context.Context, feed FeedID, r io.Reader, opts *ImportOpts) ([]T, error) {
	filename := t.typ.Name + ".txt"

	inputCSV := csv.NewReader(r)
	inputCSV.FieldsPerRecord = -1 // Allow variable numbers of fields

	header, err := inputCSV.Read()
	if errors.Is(err, io.EOF) {
		header = nil
	} else if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	var rows [][]string
	for {
		if len(rows)%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := inputCSV.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("read %s: %w", filename, err)
		}
		rows = append(rows, row)
	}

	return t.Import(ctx, feed, header, rows, opts)
}

func (t *Table[T]) ImportFile(ctx context.Context, feed FeedID, inputPath string, opts *ImportOpts) ([]T, error) {
	if inputPath == "" {
		panic("Missing inputPath")
	}

	inputF, err := os.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = inputF.Close() }()

	return t.ImportCSV(ctx, feed, inputF, opts)
}

func (t *Table[T]) reject(feed FeedID, issues []error) error {
	for _, issue := range issues {
		slog.Error(fmt.Sprintf("%s.txt: %s", t.typ.Name, issue))
	}
	return &ImportError{Table: t.typ.Name, Feed: feed, Issues: issues}
}

func splitErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
