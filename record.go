package gtfstables

import (
	"fmt"
	"slices"
	"sync"
)

// RecordType describes how one GTFS table maps onto the Go type T.
//
// Get and Set read and write a single field of a record by its internal name.
// FeedRef returns the record's owning-feed slot so the engine can scope records
// it builds. Key names the field that identifies a record within a feed.
type RecordType[T any] struct {
	Name    string
	Fields  []FieldDescriptor
	Columns ColumnMap
	Key     string

	Get     func(rec *T, field string) Value
	Set     func(rec *T, field string, v Value)
	FeedRef func(rec *T) *FeedID

	once sync.Once
	// Per column, the descriptor of the field it maps to.
	bound []*FieldDescriptor
	key   int
}

// init resolves the column map against the fields. A record type that does
// not resolve is a programming error.
func (rt *RecordType[T]) init() {
	rt.once.Do(rt.resolve)
}

func (rt *RecordType[T]) resolve() {
	if rt.Get == nil || rt.Set == nil || rt.FeedRef == nil {
		panic(fmt.Sprintf("record type %s: missing accessors", rt.Name))
	}

	bound := make([]*FieldDescriptor, len(rt.Columns))
	key := -1
	for i, c := range rt.Columns {
		fi := slices.IndexFunc(rt.Fields, func(f FieldDescriptor) bool { return f.Name == c.Field })
		if fi == -1 {
			panic(fmt.Sprintf("record type %s: column %s maps to unknown field %s", rt.Name, c.Column, c.Field))
		}
		f := &rt.Fields[fi]
		if !f.Required && !f.Nullable && f.Default == "" {
			panic(fmt.Sprintf("record type %s: optional field %s needs a default or must be nullable", rt.Name, f.Name))
		}
		if f.Default != "" {
			if _, err := f.Coerce(f.Default); err != nil {
				panic(fmt.Sprintf("record type %s: bad default for %s: %s", rt.Name, f.Name, err))
			}
		}
		if f.Name == rt.Key {
			key = i
		}
		bound[i] = f
	}
	if key == -1 {
		panic(fmt.Sprintf("record type %s: key field %s has no column", rt.Name, rt.Key))
	}
	if !bound[key].Required || bound[key].Nullable {
		panic(fmt.Sprintf("record type %s: key field %s must be required", rt.Name, rt.Key))
	}

	rt.key = key
	rt.bound = bound
}

// Header is the column row written at the top of an exported table.
func (rt *RecordType[T]) Header() []string {
	return rt.Columns.Columns()
}

// Serialize renders rec in column map order.
func (rt *RecordType[T]) Serialize(rec *T) []string {
	rt.init()
	row := make([]string, len(rt.Columns))
	for i, c := range rt.Columns {
		row[i] = rt.bound[i].Format(rt.Get(rec, c.Field))
	}
	return row
}

// KeyOf returns the value of rec's key field as written in a table.
func (rt *RecordType[T]) KeyOf(rec *T) string {
	rt.init()
	return rt.bound[rt.key].Format(rt.Get(rec, rt.Columns[rt.key].Field))
}

// Validate checks every field of rec against its descriptor.
func (rt *RecordType[T]) Validate(rec *T) []error {
	rt.init()
	var issues []error
	for i, c := range rt.Columns {
		v := rt.Get(rec, c.Field)
		if err := rt.bound[i].Check(v); err != nil {
			issues = append(issues, &FieldError{
				Column: c.Column,
				Value:  rt.bound[i].Format(v),
				Reason: err.Error(),
			})
		}
	}
	return issues
}

// parseRow builds a record from one data row. row is the 1-based data row
// number used in reported issues.
func (rt *RecordType[T]) parseRow(idx headerIndex, cells []string, row int) (T, []error) {
	rt.init()
	var rec T
	var issues []error
	for i, c := range rt.Columns {
		f := rt.bound[i]
		raw, present := idx.cell(cells, i)
		if !present {
			raw = f.Default
		}
		v, err := f.Coerce(raw)
		if err != nil {
			issues = append(issues, &FieldError{Row: row, Column: c.Column, Value: raw, Reason: err.Error()})
			continue
		}
		rt.Set(&rec, c.Field, v)
	}
	return rec, issues
}

// table describes how a record type is laid out in a Store.
func (rt *RecordType[T]) table() TableDef {
	rt.init()
	return TableDef{Name: rt.Name, KeyColumn: rt.Columns[rt.key].Column, Columns: rt.Header()}
}
