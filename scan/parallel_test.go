package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	collatz "github.com/Mearkatz/beetle-collatz"
)

func TestMaxRecordParallel_MatchesSequential(t *testing.T) {
	ranges := [][2]uint64{
		{1, 73},
		{1, 5000},
		{100, 2000},
	}
	for _, bounds := range ranges {
		r := rng(t, bounds[0], bounds[1])
		want, err := MaxRecord(context.Background(), r)
		require.NoError(t, err)

		for workers := 1; workers <= 8; workers++ {
			got, err := MaxRecordParallel(context.Background(), r, workers)
			require.NoError(t, err)
			assert.Equal(t, want, got, "range [%d, %d) with %d workers", bounds[0], bounds[1], workers)
		}
	}
}

func TestMaxRecordParallel_TieSurvivesPartitioning(t *testing.T) {
	// 54 and 55 both take 112 steps. Whatever segment boundary falls
	// between them, the earlier value must win.
	r := rng(t, 50, 60)
	for workers := 1; workers <= 10; workers++ {
		got, err := MaxRecordParallel(context.Background(), r, workers)
		require.NoError(t, err)
		assert.Equal(t, Record[uint64]{Value: 54, Steps: 112}, got, "%d workers", workers)
	}
}

func TestMaxRecordParallel_EmptyRange(t *testing.T) {
	_, err := MaxRecordParallel(context.Background(), rng(t, 7, 7), 4)
	assert.ErrorIs(t, err, ErrEmptyRange)
}

func TestMaxRecordParallel_WorkersBelowOne(t *testing.T) {
	got, err := MaxRecordParallel(context.Background(), rng(t, 1, 73), 0)
	require.NoError(t, err)
	assert.Equal(t, Record[uint64]{Value: 54, Steps: 112}, got)
}

func TestMaxRecordParallel_OverflowAborts(t *testing.T) {
	_, err := MaxRecordParallel(context.Background(), rng8(t, 1, 100), 4)
	require.Error(t, err)
	assert.True(t, collatz.IsOverflow(err))

	// 1 through 26 all fit in uint8, so the lowest failing segment fails
	// at 27 no matter how the segments are scheduled.
	failed, ok := FailedValue(err)
	require.True(t, ok)
	assert.Equal(t, uint64(27), failed)
}

func TestMaxRecordParallel_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := MaxRecordParallel(ctx, rng(t, 1, 10000000), 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckRangeParallel_MatchesSequential(t *testing.T) {
	for workers := 1; workers <= 8; workers++ {
		err := CheckRangeParallel(context.Background(), rng(t, 1, 10000), workers)
		assert.NoError(t, err, "%d workers", workers)
	}
}

func TestCheckRangeParallel_EmptyRange(t *testing.T) {
	err := CheckRangeParallel(context.Background(), rng(t, 3, 3), 4)
	assert.NoError(t, err)
}

func TestCheckRangeParallel_OverflowAborts(t *testing.T) {
	err := CheckRangeParallel(context.Background(), rng8(t, 1, 255), 3)
	require.Error(t, err)

	failed, ok := FailedValue(err)
	require.True(t, ok)
	assert.Equal(t, uint64(27), failed)
}

func TestSplit_CoversExactly(t *testing.T) {
	r := rng(t, 1, 100)
	parts := Split(r, 7)
	require.NotEmpty(t, parts)
	assert.LessOrEqual(t, len(parts), 7)

	assert.Equal(t, r.Start(), parts[0].Start())
	assert.Equal(t, r.Stop(), parts[len(parts)-1].Stop())
	var total uint64
	for i, p := range parts {
		total += p.Len()
		if i > 0 {
			assert.Equal(t, parts[i-1].Stop(), p.Start(), "gap before segment %d", i)
		}
	}
	assert.Equal(t, r.Len(), total)
}

func TestSplit_MoreSegmentsThanElements(t *testing.T) {
	parts := Split(rng(t, 10, 13), 8)
	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.Equal(t, uint64(1), p.Len())
	}
}

func TestSplit_EmptyRange(t *testing.T) {
	parts := Split(rng(t, 5, 5), 4)
	assert.Empty(t, parts)
}
