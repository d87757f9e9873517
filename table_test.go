package gtfstables

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		feed := testFeed(t, store)
		fares := NewFareTable(store)

		fare := Fare{
			FareID:        "day",
			Price:         decimal.RequireFromString("12.5"),
			CurrencyType:  "EUR",
			PaymentMethod: PaidBeforeBoarding,
			Transfers:     Unlimited,
		}
		require.NoError(t, fares.Put(ctx, feed, fare, RejectDuplicates))

		got, err := fares.Get(ctx, feed, "day")
		require.NoError(t, err)
		assert.Equal(t, feed, got.Feed)
		assert.Equal(t, "EUR", got.CurrencyType)
		assert.True(t, got.Price.Equal(fare.Price))
		assert.True(t, got.UnlimitedTransfers())

		err = fares.Put(ctx, feed, fare, RejectDuplicates)
		require.ErrorIs(t, err, ErrDuplicateKey)

		fare.Price = decimal.RequireFromString("13")
		require.NoError(t, fares.Put(ctx, feed, fare, OverwriteDuplicates))
		got, err = fares.Get(ctx, feed, "day")
		require.NoError(t, err)
		assert.True(t, got.Price.Equal(decimal.NewFromInt(13)))

		require.NoError(t, fares.Delete(ctx, feed, "day"))
		_, err = fares.Get(ctx, feed, "day")
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, fares.Delete(ctx, feed, "day"), ErrNotFound)
	})
}

func TestPutValidates(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		feed := testFeed(t, store)
		fares := NewFareTable(store)

		err := fares.Put(ctx, feed, Fare{
			FareID:        "bad",
			Price:         decimal.NewFromInt(-2),
			CurrencyType:  "euro",
			PaymentMethod: 7,
			Transfers:     Limited(5),
		}, RejectDuplicates)
		require.ErrorIs(t, err, ErrInvalidFieldValue)

		var columns []string
		for _, issue := range splitErrors(err) {
			var fieldErr *FieldError
			require.ErrorAs(t, issue, &fieldErr)
			columns = append(columns, fieldErr.Column)
		}
		assert.Equal(t, []string{"price", "currency_type", "payment_method", "transfers"}, columns)

		stored, err := fares.List(ctx, feed)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})
}

func TestDeleteFeedCascades(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		keep := testFeed(t, store)
		drop := testFeed(t, store)
		fares := NewFareTable(store)

		for _, feed := range []FeedID{keep, drop} {
			_, err := fares.ImportFile(ctx, feed, "./sample_data/fare_attributes.txt", nil)
			require.NoError(t, err)
		}

		require.NoError(t, store.DeleteFeed(ctx, drop))

		_, err := fares.List(ctx, drop)
		require.ErrorIs(t, err, ErrUnknownFeed)
		require.ErrorIs(t, store.DeleteFeed(ctx, drop), ErrUnknownFeed)

		kept, err := fares.List(ctx, keep)
		require.NoError(t, err)
		assert.Len(t, kept, 2)

		feeds, err := store.Feeds(ctx)
		require.NoError(t, err)
		require.Len(t, feeds, 1)
		assert.Equal(t, keep, feeds[0].ID)
	})
}

func TestFeedLookup(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		created, err := store.CreateFeed(ctx, "Sample Transit")
		require.NoError(t, err)

		got, err := store.Feed(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Sample Transit", got.Name)
		assert.True(t, created.Created.Equal(got.Created))
	})
}

func TestFareString(t *testing.T) {
	feed, err := ParseFeedID("0b5e4c14-0a8e-4a7c-a0f4-6a3d3a4bb8a2")
	require.NoError(t, err)
	fare := Fare{Feed: feed, FareID: "p", Price: decimal.RequireFromString("1.25"), CurrencyType: "USD"}
	assert.Equal(t, "0b5e4c14-0a8e-4a7c-a0f4-6a3d3a4bb8a2-p(1.25 USD)", fare.String())
}

func TestDeletedRecordFreesExportSlot(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		feed := testFeed(t, store)
		fares := NewFareTable(store)

		_, err := fares.ImportCSV(ctx, feed, strings.NewReader(
			"fare_id,price,currency_type\na,1,USD\nb,2,USD\nc,3,USD\n"), nil)
		require.NoError(t, err)
		require.NoError(t, fares.Delete(ctx, feed, "b"))

		_, err = fares.ImportCSV(ctx, feed, strings.NewReader(
			"fare_id,price,currency_type\nb,4,USD\n"), nil)
		require.NoError(t, err)

		var ids []string
		list, err := fares.List(ctx, feed)
		require.NoError(t, err)
		for _, f := range list {
			ids = append(ids, f.FareID)
		}
		assert.Equal(t, []string{"a", "c", "b"}, ids)
	})
}
