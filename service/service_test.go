package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/randvec/internal/storetest"
	"github.com/viant/randvec/metrics"
	"github.com/viant/randvec/runner"
	"github.com/viant/randvec/sorter"
	"github.com/viant/randvec/vector"
	"golang.org/x/sync/errgroup"
)

func seed(t *testing.T, store vector.Store, p runner.Params) []vector.Record {
	t.Helper()
	records, err := runner.New(store).RunBatch(context.Background(), p)
	require.NoError(t, err)
	return records
}

// TestEndToEnd generates one small reproducible vector and reads it back
// sorted in both modes.
func TestEndToEnd(t *testing.T) {
	store := storetest.NewSQLite(t)
	records := seed(t, store, runner.Params{Runs: 1, Length: 5, UpperBound: 10, Reproducible: true})
	require.Len(t, records, 1)
	rec := records[0]

	require.Len(t, rec.Values, 5)
	seen := map[int]bool{}
	for _, v := range rec.Values {
		require.True(t, v >= 0 && v < 10, "value %d out of range", v)
		require.False(t, seen[v])
		seen[v] = true
	}
	assert.GreaterOrEqual(t, rec.GenerationDuration, 0.0)

	for _, mode := range []SortMode{SortQuery, SortPartition} {
		t.Run(string(mode), func(t *testing.T) {
			svc := New(store, WithSortMode(mode))
			values, elapsed, err := svc.GetSorted(context.Background(), rec.ID)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, elapsed, time.Duration(0))
			assert.Equal(t, sorter.Sort(rec.Values), values)
			for i := 1; i < len(values); i++ {
				assert.Less(t, values[i-1], values[i])
			}
		})
	}
}

func TestGetVector_RoundTrip(t *testing.T) {
	store := storetest.NewSQLite(t)
	records := seed(t, store, runner.Params{Runs: 2, Length: 500, UpperBound: 2000})
	svc := New(store)

	for _, want := range records {
		got, err := svc.GetVector(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Description, got.Description)
		assert.Equal(t, want.GenerationDuration, got.GenerationDuration)
		assert.ElementsMatch(t, want.Values, got.Values)
	}
}

func TestNotFound(t *testing.T) {
	store := storetest.NewSQLite(t)
	seed(t, store, runner.Params{Runs: 1, Length: 3, UpperBound: 3})
	obs := &metrics.Basic{}
	svc := New(store, WithObserver(obs))
	ctx := context.Background()

	_, err := svc.GetVector(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = svc.GetSorted(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.VectorDetail(ctx, 999)
	assert.True(t, IsNotFound(err))
	_, err = svc.SortedDetail(ctx, 999)
	assert.True(t, IsNotFound(err))

	assert.Equal(t, ErrorResponse{Error: "vector not found"}, NewErrorResponse(err))
	assert.Zero(t, obs.Sorts.Load(), "missing vectors are rejected before timing")
}

func TestListVectors(t *testing.T) {
	store := storetest.NewSQLite(t)
	svc := New(store)

	empty, err := svc.ListVectors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, empty)

	records := seed(t, store, runner.Params{Runs: 3, Length: 4, UpperBound: 8})
	list, err := svc.ListVectors(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, s := range list {
		assert.Equal(t, records[i].ID, s.ID)
		assert.Equal(t, records[i].Name, s.Name)
		assert.Equal(t, runner.Description, s.Description)
	}
}

func TestSortedDetail_RoundsDuration(t *testing.T) {
	store := storetest.NewSQLite(t)
	records := seed(t, store, runner.Params{Runs: 1, Length: 10, UpperBound: 10})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Duration{0, 123456789 * time.Nanosecond}
	i := 0
	clock := func() time.Time {
		d := ticks[i]
		i++
		return base.Add(d)
	}
	obs := &metrics.Basic{}
	svc := New(store, WithClock(clock), WithObserver(obs), WithSortMode(SortPartition))

	detail, err := svc.SortedDetail(context.Background(), records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0.1235, detail.SortDuration)
	assert.Equal(t, "0.1235 seconds", detail.SortTime)
	assert.Equal(t, SortPartition, detail.Mode)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, detail.Values)
	assert.Equal(t, int64(1), obs.Sorts.Load())

	body, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":1,"sort_duration":0.1235,"sort_time":"0.1235 seconds","mode":"partition","sorted_values":[0,1,2,3,4,5,6,7,8,9]}`,
		string(body))
}

func TestVectorDetail(t *testing.T) {
	store := storetest.NewSQLite(t)
	records := seed(t, store, runner.Params{Runs: 1, Length: 6, UpperBound: 60})

	detail, err := New(store).VectorDetail(context.Background(), records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, records[0].ID, detail.ID)
	assert.Equal(t, "Vector_1", detail.Name)
	assert.Equal(t, records[0].Values, detail.Values)
}

// TestGetSorted_Concurrent runs many reads in parallel, each with its own
// session.
func TestGetSorted_Concurrent(t *testing.T) {
	store := storetest.NewSQLite(t)
	records := seed(t, store, runner.Params{Runs: 3, Length: 1000, UpperBound: 5000})
	svc := New(store)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 12; i++ {
		rec := records[i%len(records)]
		g.Go(func() error {
			values, _, err := svc.GetSorted(ctx, rec.ID)
			if err != nil {
				return err
			}
			if !sorter.IsSorted(values) || len(values) != len(rec.Values) {
				return errors.New("unexpected sorted result")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestParseSortMode(t *testing.T) {
	m, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, SortQuery, m)

	m, err = ParseSortMode("partition")
	require.NoError(t, err)
	assert.Equal(t, SortPartition, m)

	_, err = ParseSortMode("bubble")
	assert.Error(t, err)
}

func TestRoundSeconds(t *testing.T) {
	assert.Equal(t, 0.0, RoundSeconds(0))
	assert.Equal(t, 1.5, RoundSeconds(1500*time.Millisecond))
	assert.Equal(t, 0.0001, RoundSeconds(60*time.Microsecond))
}
