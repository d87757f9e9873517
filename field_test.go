package gtfstables

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fareField(t *testing.T, name string) *FieldDescriptor {
	t.Helper()
	for i := range FareAttributes.Fields {
		if FareAttributes.Fields[i].Name == name {
			return &FareAttributes.Fields[i]
		}
	}
	t.Fatalf("no field %s", name)
	return nil
}

func TestCoerceValid(t *testing.T) {
	cases := []struct {
		field string
		raw   string
		want  string
	}{
		{"fare_id", "p", "p"},
		{"price", "1.25", "1.2500"},
		{"price", "0", "0.0000"},
		{"price", ".5", "0.5000"},
		{"price", "1.25000", "1.2500"},
		{"price", "1234567890123.4567", "1234567890123.4567"},
		{"currency_type", "USD", "USD"},
		{"payment_method", "0", "0"},
		{"payment_method", "1", "1"},
		{"transfers", "2", "2"},
		{"transfers", "", ""},
		{"transfer_duration", "1800", "1800"},
		{"transfer_duration", "", ""},
	}
	for _, c := range cases {
		t.Run(c.field+"/"+c.raw, func(t *testing.T) {
			f := fareField(t, c.field)
			v, err := f.Coerce(c.raw)
			require.NoError(t, err)
			assert.Equal(t, c.want, f.Format(v))
		})
	}
}

func TestCoerceInvalid(t *testing.T) {
	cases := []struct {
		field  string
		raw    string
		reason string
	}{
		{"fare_id", "", "value is required"},
		{"price", "", "value is required"},
		{"price", "abc", "not a decimal number"},
		{"price", "1e3", "not a decimal number"},
		{"price", "-0.01", "must not be negative"},
		{"price", "0.00001", "more than 4 decimal places"},
		{"price", "12345678901234", "more than 17 digits"},
		{"currency_type", "US", "does not match ^[A-Z]{3}$"},
		{"currency_type", "USDX", "longer than 3 characters"},
		{"payment_method", "", "value is required"},
		{"payment_method", "2", "must be one of 0, 1"},
		{"payment_method", "one", "not an integer"},
		{"transfers", "3", "must be one of 0, 1, 2, empty"},
		{"transfer_duration", "-1", "must not be negative"},
		{"transfer_duration", "1.5", "not an integer"},
	}
	for _, c := range cases {
		t.Run(c.field+"/"+c.raw, func(t *testing.T) {
			_, err := fareField(t, c.field).Coerce(c.raw)
			require.Error(t, err)
			assert.Equal(t, c.reason, err.Error())
		})
	}
}

func TestNullOnlyForNullableFields(t *testing.T) {
	transfers := fareField(t, "transfers")
	v, err := transfers.Coerce("")
	require.NoError(t, err)
	assert.True(t, v.Null)

	zero, err := transfers.Coerce("0")
	require.NoError(t, err)
	assert.False(t, zero.Null, "0 transfers is not unlimited")
	assert.Equal(t, "0", transfers.Format(zero))

	require.Error(t, fareField(t, "payment_method").Check(NullValue()))
}

func TestFormatDecimalScale(t *testing.T) {
	price := fareField(t, "price")
	assert.Equal(t, "5.2500", price.Format(DecimalValue(decimal.RequireFromString("5.25"))))
	assert.Equal(t, "", price.Format(NullValue()))
}
