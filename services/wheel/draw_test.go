package wheel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	t      *testing.T
	values []int64
	next   int
}

func (s *fixedSource) Int63n(n int64) (int64, error) {
	v := s.values[s.next%len(s.values)]
	s.next++
	require.Less(s.t, v, n, "fixed draw must stay below the total weight")
	return v, nil
}

type brokenSource struct{}

func (brokenSource) Int63n(int64) (int64, error) {
	return 0, errors.New("entropy unavailable")
}

func prizesWith(probabilities ...float64) []*WheelPrize {
	out := make([]*WheelPrize, 0, len(probabilities))
	for i, p := range probabilities {
		out = append(out, &WheelPrize{ID: string(rune('a' + i)), Probability: p, Position: i})
	}
	return out
}

func TestWeight(t *testing.T) {
	require.Equal(t, int64(300000), (&WheelPrize{Probability: 0.1 + 0.2}).Weight())
	require.Equal(t, int64(50000), (&WheelPrize{Probability: 0.05}).Weight())
	require.Equal(t, int64(0), (&WheelPrize{Probability: -1}).Weight())
	require.Equal(t, int64(1000000), (&WheelPrize{Probability: 1}).Weight())
}

func TestSelectBoundaries(t *testing.T) {
	prizes := prizesWith(0.3, 0.25, 0.2, 0.1, 0.1, 0.05)

	cases := []struct {
		draw int64
		want int
	}{
		{0, 0},
		{299999, 0},
		{300000, 1},
		{549999, 1},
		{550000, 2},
		{749999, 2},
		{750000, 3},
		{850000, 4},
		{949999, 4},
		{950000, 5},
		{999999, 5},
	}

	for _, tc := range cases {
		d, err := Select(prizes, &fixedSource{t: t, values: []int64{tc.draw}})
		require.NoError(t, err)
		require.Equal(t, tc.want, d.Index, "draw %d", tc.draw)
		require.Equal(t, int64(1000000), d.TotalWeight)
		require.Equal(t, tc.draw, d.Value)
	}
}

func TestSelectUnnormalizedWeights(t *testing.T) {
	prizes := prizesWith(0.5, 0.2)

	for draw, want := range map[int64]int{0: 0, 499999: 0, 500000: 1, 699999: 1} {
		d, err := Select(prizes, &fixedSource{t: t, values: []int64{draw}})
		require.NoError(t, err)
		require.Equal(t, want, d.Index, "draw %d", draw)
		require.Equal(t, int64(700000), d.TotalWeight)
	}
}

func TestSelectSkipsZeroWeight(t *testing.T) {
	prizes := prizesWith(0, 0.5, 0)

	d, err := Select(prizes, &fixedSource{t: t, values: []int64{0}})
	require.NoError(t, err)
	require.Equal(t, 1, d.Index)
}

func TestSelectEmptyWheel(t *testing.T) {
	_, err := Select(nil, NewCryptoSource())
	require.ErrorIs(t, err, ErrWheelEmpty)

	_, err = Select(prizesWith(0, 0), NewCryptoSource())
	require.ErrorIs(t, err, ErrWheelEmpty)
}

func TestSeededSourceReplays(t *testing.T) {
	prizes := prizesWith(0.3, 0.25, 0.2, 0.1, 0.1, 0.05)
	a, b := NewSeededSource(42), NewSeededSource(42)

	for i := 0; i < 1000; i++ {
		da, err := Select(prizes, a)
		require.NoError(t, err)
		db, err := Select(prizes, b)
		require.NoError(t, err)
		require.Equal(t, da, db)
	}
}

func TestSelectSourceFailure(t *testing.T) {
	_, err := Select(prizesWith(0.5), brokenSource{})
	require.ErrorIs(t, err, ErrDrawFailed)
}

func TestSelectDistribution(t *testing.T) {
	prizes := prizesWith(0.5, 0.2)
	src := NewSeededSource(7)

	const n = 70000
	counts := make([]int, len(prizes))
	for i := 0; i < n; i++ {
		d, err := Select(prizes, src)
		require.NoError(t, err)
		counts[d.Index]++
	}

	require.InDelta(t, 5.0/7.0, float64(counts[0])/n, 0.01)
	require.InDelta(t, 2.0/7.0, float64(counts[1])/n, 0.01)
}
