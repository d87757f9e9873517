package gtfstables

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrMissingRequiredColumn = errors.New("missing required column")
	ErrInvalidFieldValue     = errors.New("invalid field value")
	ErrDuplicateKey          = errors.New("duplicate key")
	ErrUnknownFeed           = errors.New("unknown feed")
	ErrNotFound              = errors.New("not found")
)

type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s.txt is missing required column %s", e.Table, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingRequiredColumn }

// FieldError reports a cell that failed validation. Row is the 1-based data
// row number (the header is row 0).
type FieldError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("header: %s %q: %s", e.Column, e.Value, e.Reason)
	}
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Column, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidFieldValue }

// DuplicateKeyError reports a key that already exists in the feed, either
// earlier in the same file or from a previous commit. Row is 0 when the
// record did not come from a file.
type DuplicateKeyError struct {
	Feed FeedID
	Key  string
	Row  int
}

func (e *DuplicateKeyError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("duplicate key %q in feed %s", e.Key, e.Feed)
	}
	return fmt.Sprintf("row %d: duplicate key %q in feed %s", e.Row, e.Key, e.Feed)
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateKey }

type UnknownFeedError struct {
	Feed FeedID
}

func (e *UnknownFeedError) Error() string {
	return fmt.Sprintf("unknown feed %s", e.Feed)
}

func (e *UnknownFeedError) Unwrap() error { return ErrUnknownFeed }

// ImportError is the batch report for one table. Nothing from the table was
// committed.
type ImportError struct {
	Table  string
	Feed   FeedID
	Issues []error
}

func (e *ImportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.txt: %d issue(s)", e.Table, len(e.Issues))
	for _, issue := range e.Issues {
		b.WriteString("\n  ")
		b.WriteString(issue.Error())
	}
	return b.String()
}

func (e *ImportError) Is(target error) bool { return target == ErrInvalidInput }

func (e *ImportError) Unwrap() []error { return e.Issues }
