package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velolab/internal/analysis"
)

func TestAddLoad_RequiresStore(t *testing.T) {
	a := newTestAnalyzer(t)

	_, err := a.AddLoad(context.Background(), "rider-1", testDay, 50)
	assert.ErrorIs(t, err, ErrNoStore)

	_, _, err = a.History(context.Background(), "rider-1", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrNoStore)

	_, err = a.Replay(context.Background(), "rider-1")
	assert.ErrorIs(t, err, ErrNoStore)

	_, err = a.Performance(context.Background(), "rider-1")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestAddLoad_RequiresAthlete(t *testing.T) {
	a := newTestAnalyzer(t, WithStore(newTestStore(t)))

	_, err := a.AddLoad(context.Background(), "", testDay, 50)
	var invalid *analysis.InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestAddLoadAndHistory(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalyzer(t, WithStore(newTestStore(t)))

	_, err := a.AddLoad(ctx, "rider-1", testDay, 70)
	require.NoError(t, err)

	update, err := a.AddLoad(ctx, "rider-1", testDay.AddDate(0, 0, 3), 90)
	require.NoError(t, err)
	assert.Len(t, update.Appended, 3, "two rest days are backfilled")

	states, alert, err := a.History(ctx, "rider-1", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, states, 4)
	assert.Equal(t, 70.0, states[0].Load)
	assert.Equal(t, 0.0, states[1].Load)
	assert.Equal(t, 90.0, states[3].Load)
	assert.InDelta(t, update.Current.TSB, states[3].TSB, 1e-9)

	want := analysis.EvaluateFreshness(states, a.Config().PMC)
	assert.Equal(t, want, alert)

	_, err = a.AddLoad(ctx, "rider-1", testDay, 10)
	var invalid *analysis.InvalidInputError
	assert.ErrorAs(t, err, &invalid, "loads before the latest day are rejected")
}

func TestReplay(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalyzer(t, WithStore(newTestStore(t)))

	loads := []float64{60, 0, 80, 40}
	for i, l := range loads {
		if l == 0 {
			continue
		}
		_, err := a.AddLoad(ctx, "rider-2", testDay.AddDate(0, 0, i), l)
		require.NoError(t, err)
	}
	before, _, err := a.History(ctx, "rider-2", time.Time{}, time.Time{})
	require.NoError(t, err)

	states, err := a.Replay(ctx, "rider-2")
	require.NoError(t, err)
	require.Len(t, states, len(before))
	for i := range states {
		assert.True(t, states[i].Date.Equal(before[i].Date))
		assert.InDelta(t, before[i].CTL, states[i].CTL, 1e-9)
		assert.InDelta(t, before[i].ATL, states[i].ATL, 1e-9)
	}

	after, _, err := a.History(ctx, "rider-2", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, after, len(states))
}

func TestReplay_CoversTrailingRestDays(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	a := newTestAnalyzer(t, WithStore(db))

	_, err := a.AddLoad(ctx, "rider-3", testDay, 90)
	require.NoError(t, err)
	_, err = a.AddLoad(ctx, "rider-3", testDay.AddDate(0, 0, 4), 0)
	require.NoError(t, err)

	// a stale revision for the last day that the replay must shadow
	require.NoError(t, db.SupersedePMC(ctx, "rider-3", []analysis.PMCState{
		{Date: testDay.AddDate(0, 0, 4), CTL: 99, ATL: 99},
	}))

	states, err := a.Replay(ctx, "rider-3")
	require.NoError(t, err)
	require.Len(t, states, 5)

	history, _, err := a.History(ctx, "rider-3", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, history, 5)
	last := history[4]
	assert.InDelta(t, states[4].CTL, last.CTL, 1e-9)
	assert.Less(t, last.CTL, 90.0)
}

func TestPerformance(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalyzer(t, WithStore(newTestStore(t)))

	states, err := a.Performance(ctx, "rider-4")
	require.NoError(t, err)
	assert.Nil(t, states)

	_, err = a.AddLoad(ctx, "rider-4", testDay, 100)
	require.NoError(t, err)
	_, err = a.AddLoad(ctx, "rider-4", testDay.AddDate(0, 0, 5), 0)
	require.NoError(t, err)

	states, err = a.Performance(ctx, "rider-4")
	require.NoError(t, err)
	require.Len(t, states, 6)
	assert.True(t, states[5].Date.Equal(testDay.AddDate(0, 0, 5)))

	want := analysis.BanisterPerformance([]analysis.DailyLoad{
		{Date: testDay, Load: 100},
		{Date: testDay.AddDate(0, 0, 5)},
	}, a.Config().Banister)
	for i := range want {
		assert.InDelta(t, want[i].Performance, states[i].Performance, 1e-9)
	}
	assert.Less(t, states[0].Performance, states[5].Performance, "fatigue clears faster than fitness")
}
