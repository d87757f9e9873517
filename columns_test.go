package gtfstables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindHeaderByName(t *testing.T) {
	FareAttributes.init()
	header := []string{"\ufefftransfers", "currency_type", " fare_id ", "extra", "price"}

	idx, issues := bindHeader("fare_attributes", FareAttributes.Columns, FareAttributes.bound, header)
	require.Empty(t, issues)
	// fare_id, price, currency_type, payment_method, transfers, transfer_duration
	assert.Equal(t, headerIndex{2, 4, 1, -1, 0, -1}, idx)

	raw, present := idx.cell([]string{"", "USD", "x", "ignored", "3"}, 1)
	assert.True(t, present)
	assert.Equal(t, "3", raw)

	_, present = idx.cell([]string{"", "USD", "x", "ignored", "3"}, 3)
	assert.False(t, present)

	raw, present = idx.cell([]string{"", "USD", "x"}, 1)
	assert.True(t, present, "a short row still has the column")
	assert.Equal(t, "", raw)
}

func TestBindHeaderReportsEveryMissingColumn(t *testing.T) {
	FareAttributes.init()
	_, issues := bindHeader("fare_attributes", FareAttributes.Columns, FareAttributes.bound, []string{"transfers"})
	require.Len(t, issues, 3)

	var columns []string
	for _, issue := range issues {
		var missing *MissingColumnError
		require.ErrorAs(t, issue, &missing)
		columns = append(columns, missing.Column)
	}
	assert.Equal(t, []string{"fare_id", "price", "currency_type"}, columns)
}

func TestSerializeInColumnMapOrder(t *testing.T) {
	FareAttributes.init()
	idx := headerIndex{0, 1, 2, 3, 4, 5}
	fare, issues := FareAttributes.parseRow(idx, []string{"p", "1.25", "USD", "0", "0", "1800"}, 1)
	require.Empty(t, issues)

	assert.Equal(t, []string{"p", "1.2500", "USD", "0", "0", "1800"}, FareAttributes.Serialize(&fare))
	assert.Equal(t, "p", FareAttributes.KeyOf(&fare))
}

func TestRecordTypeRejectsBadColumnMap(t *testing.T) {
	rt := &RecordType[Fare]{
		Name:    "broken",
		Key:     "fare_id",
		Fields:  []FieldDescriptor{{Name: "fare_id", Kind: KindText, Required: true}},
		Columns: ColumnMap{{Column: "fare_id", Field: "fare_id"}, {Column: "price", Field: "price"}},
		Get:     getFare,
		Set:     setFare,
		FeedRef: func(f *Fare) *FeedID { return &f.Feed },
	}
	assert.Panics(t, func() { rt.Header(); rt.KeyOf(&Fare{}) })
}
