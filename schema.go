package gtfstables

import "regexp"

// NOTE: agency_id is not modelled; fares here are scoped by feed only.

var currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// FareAttributes is the record type for fare_attributes.txt.
var FareAttributes = &RecordType[Fare]{
	Name: "fare_attributes",
	Key:  "fare_id",
	Fields: []FieldDescriptor{
		{Name: "fare_id", Kind: KindText, Required: true, MaxLength: 255},
		{Name: "price", Kind: KindDecimal, Required: true, Scale: 4, MaxDigits: 17, NonNegative: true},
		{Name: "currency_type", Kind: KindText, Required: true, MaxLength: 3, Pattern: currencyCodeRegex},
		{Name: "payment_method", Kind: KindEnum, Default: "1", Choices: []int64{0, 1}},
		{Name: "transfers", Kind: KindEnum, Nullable: true, Choices: []int64{0, 1, 2}},
		{Name: "transfer_duration", Kind: KindInteger, Nullable: true, NonNegative: true},
	},
	Columns: ColumnMap{
		{Column: "fare_id", Field: "fare_id"},
		{Column: "price", Field: "price"},
		{Column: "currency_type", Field: "currency_type"},
		{Column: "payment_method", Field: "payment_method"},
		{Column: "transfers", Field: "transfers"},
		{Column: "transfer_duration", Field: "transfer_duration"},
	},
	Get:     getFare,
	Set:     setFare,
	FeedRef: func(f *Fare) *FeedID { return &f.Feed },
}
