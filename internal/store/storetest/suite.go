// Package storetest holds a conformance suite any store.Store backend
// must pass, shared across backend implementations via a newStore
// constructor function supplied by the caller.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logrelay/logrelay/internal/model"
	"github.com/logrelay/logrelay/internal/store"
)

// Suite runs the shared conformance tests against a fresh store built
// by newStore for every subtest.
func Suite(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("InsertAssignsIDAndReceiveTime", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "hello"})
		require.NoError(t, err)
		assert.NotZero(t, r.ID)
		assert.NotZero(t, r.ReceiveTime)
	})

	t.Run("QueryReturnsInsertedRecordBySessionAndInstance", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r, err := s.Insert(ctx, model.Record{
			Source: "client", Category: "c", Message: "hi",
			SessionID: "s1", InstanceID: "i1",
		})
		require.NoError(t, err)

		got, err := s.Query(ctx, model.Filter{SessionID: "s1", HasSession: true, InstanceID: "i1", HasInstance: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, r.ID, got[0].ID)
	})

	t.Run("SearchFindsMessageToken", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "connection refused by peer", SessionID: "s1"})
		require.NoError(t, err)

		got, err := s.Search(ctx, "refused", model.Filter{SessionID: "s1", HasSession: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Contains(t, got[0].Message, "refused")
	})

	t.Run("SearchRejectsUnbalancedQuotes", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Search(context.Background(), `"unterminated`, model.Filter{AllSessions: true})
		assert.ErrorIs(t, err, store.ErrInvalid)
	})

	t.Run("SearchRejectsEmptyQuery", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Search(context.Background(), "", model.Filter{AllSessions: true})
		assert.ErrorIs(t, err, store.ErrInvalid)
	})

	t.Run("SessionsReportsLogCountAndInstances", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, inst := range []string{"i1", "i1", "i2"} {
			_, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "m", SessionID: "s1", InstanceID: inst})
			require.NoError(t, err)
		}

		summaries, err := s.Sessions(ctx, "client")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "s1", summaries[0].SessionID)
		assert.EqualValues(t, 3, summaries[0].LogCount)
		assert.ElementsMatch(t, []string{"i1", "i2"}, summaries[0].Instances)
	})

	t.Run("ClearRemovesOnlyMatchingSource", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, model.Record{Source: "a", Category: "c", Message: "m"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, model.Record{Source: "b", Category: "c", Message: "m"})
		require.NoError(t, err)

		n, err := s.Clear(ctx, "a", nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		got, err := s.Query(ctx, model.Filter{Source: "a", AllSessions: true})
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.Query(ctx, model.Filter{Source: "b", AllSessions: true})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("DefaultFilterScopesToLatestSession", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "old", SessionID: "s1"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "new", SessionID: "s2"})
		require.NoError(t, err)

		got, err := s.Query(ctx, model.Filter{})
		require.NoError(t, err)
		for _, r := range got {
			assert.Equal(t, "s2", r.SessionID)
		}
	})

	t.Run("DefaultFilterOnEmptyStoreReturnsEmpty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Query(context.Background(), model.Filter{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("AllSessionsBypassesDefaultScoping", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "a", SessionID: "s1"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "b", SessionID: "s2"})
		require.NoError(t, err)

		got, err := s.Query(ctx, model.Filter{AllSessions: true})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("SubscribersNotifiedInOrderPerInsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var gotA, gotB []int64
		s.Subscribe(func(r model.Record) error { gotA = append(gotA, r.ID); return nil })
		s.Subscribe(func(r model.Record) error { gotB = append(gotB, r.ID); return nil })

		var ids []int64
		for i := 0; i < 3; i++ {
			r, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "m"})
			require.NoError(t, err)
			ids = append(ids, r.ID)
		}

		assert.Equal(t, ids, gotA)
		assert.Equal(t, ids, gotB)
	})

	t.Run("SubscriberErrorDoesNotAbortInsert", func(t *testing.T) {
		s := newStore(t)
		s.Subscribe(func(r model.Record) error { return assertError })

		r, err := s.Insert(context.Background(), model.Record{Source: "client", Category: "c", Message: "m"})
		require.NoError(t, err)
		assert.NotZero(t, r.ID)
	})

	t.Run("SubscriberPanicDoesNotAbortInsert", func(t *testing.T) {
		s := newStore(t)
		s.Subscribe(func(r model.Record) error { panic("boom") })

		r, err := s.Insert(context.Background(), model.Record{Source: "client", Category: "c", Message: "m"})
		require.NoError(t, err)
		assert.NotZero(t, r.ID)
	})

	t.Run("StatsSeparatesErrorAndWarningAsymmetrically", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		severities := []model.Severity{model.Fatal, model.Error, model.Warning, model.Warning, model.Log}
		for _, sev := range severities {
			_, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "m", Severity: sev})
			require.NoError(t, err)
		}

		stats, err := s.Stats(ctx, model.StatsFilter{Source: "client"})
		require.NoError(t, err)
		assert.EqualValues(t, 5, stats.Total)
		assert.EqualValues(t, 2, stats.ErrorCount)
		assert.EqualValues(t, 2, stats.WarningCount)
	})

	t.Run("CountReflectsAllInsertedRecords", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 4; i++ {
			_, err := s.Insert(ctx, model.Record{Source: "client", Category: "c", Message: "m"})
			require.NoError(t, err)
		}
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
	})

	t.Run("CategoriesReturnsSortedDistinctValues", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, c := range []string{"b", "a", "b"} {
			_, err := s.Insert(ctx, model.Record{Source: "client", Category: c, Message: "m"})
			require.NoError(t, err)
		}
		cats, err := s.Categories(ctx, "client")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, cats)
	})

	t.Run("OperationsFailAfterClose", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())

		_, err := s.Insert(context.Background(), model.Record{Source: "client", Category: "c", Message: "m"})
		assert.ErrorIs(t, err, store.ErrClosed)
	})
}

var assertError = fmtError("subscriber failed")

type fmtError string

func (e fmtError) Error() string { return string(e) }
