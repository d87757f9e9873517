package gtfstables

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

type PaymentMethod int

const (
	PaidOnBoard        PaymentMethod = 0
	PaidBeforeBoarding PaymentMethod = 1
)

// Fare is a row of fare_attributes.txt: a fare class.
type Fare struct {
	Feed         FeedID
	FareID       string
	Price        decimal.Decimal
	CurrencyType string // ISO 4217

	PaymentMethod PaymentMethod

	// Transfers is the number of transfers permitted (0, 1 or 2). When not
	// Valid, unlimited transfers are permitted.
	Transfers sql.Null[int]

	// TransferDuration is the number of seconds before a transfer or ticket
	// expires.
	TransferDuration sql.Null[int]
}

func (f Fare) UnlimitedTransfers() bool {
	return !f.Transfers.Valid
}

func (f Fare) String() string {
	return fmt.Sprintf("%s-%s(%s %s)", f.Feed, f.FareID, f.Price, f.CurrencyType)
}

func Limited(n int) sql.Null[int] {
	return sql.Null[int]{V: n, Valid: true}
}

// Unlimited is the Transfers value for a fare with no transfer limit.
var Unlimited = sql.Null[int]{}

// NewFareTable binds fare_attributes.txt to a store.
func NewFareTable(store Store) *Table[Fare] {
	return NewTable(store, FareAttributes)
}

func getFare(f *Fare, field string) Value {
	switch field {
	case "fare_id":
		return TextValue(f.FareID)
	case "price":
		return DecimalValue(f.Price)
	case "currency_type":
		return TextValue(f.CurrencyType)
	case "payment_method":
		return IntValue(int64(f.PaymentMethod))
	case "transfers":
		return nullIntValue(f.Transfers)
	case "transfer_duration":
		return nullIntValue(f.TransferDuration)
	default:
		panic("fare: unknown field " + field)
	}
}

func setFare(f *Fare, field string, v Value) {
	switch field {
	case "fare_id":
		f.FareID = v.Text
	case "price":
		f.Price = v.Decimal
	case "currency_type":
		f.CurrencyType = v.Text
	case "payment_method":
		f.PaymentMethod = PaymentMethod(v.Int)
	case "transfers":
		f.Transfers = nullInt(v)
	case "transfer_duration":
		f.TransferDuration = nullInt(v)
	default:
		panic("fare: unknown field " + field)
	}
}

func nullIntValue(n sql.Null[int]) Value {
	if !n.Valid {
		return NullValue()
	}
	return IntValue(int64(n.V))
}

func nullInt(v Value) sql.Null[int] {
	if v.Null {
		return sql.Null[int]{}
	}
	return sql.Null[int]{V: int(v.Int), Valid: true}
}
