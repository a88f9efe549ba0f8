package stats

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func direct(samples []float64) (mean, variance float64) {
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))
	for _, s := range samples {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(samples))
	return mean, variance
}

func relClose(t *testing.T, want, got float64) {
	t.Helper()
	if want == 0 {
		assert.InDelta(t, want, got, 1e-9)
		return
	}
	assert.InDelta(t, 0, (got-want)/want, 1e-9, "want %v got %v", want, got)
}

func TestAccumulator_InitialState(t *testing.T) {
	a := NewAccumulator()
	s := a.Stats()

	assert.True(t, math.IsInf(s.Min, 1))
	assert.Equal(t, 0.0, s.Max)
	assert.Equal(t, 0.0, s.Mean)
	assert.Equal(t, 0.0, s.Variance)
	assert.Equal(t, uint64(0), a.Count())
}

func TestAccumulator_FirstSampleSetsBothBounds(t *testing.T) {
	a := NewAccumulator()
	a.Update(-5)

	s := a.Stats()
	assert.Equal(t, -5.0, s.Min)
	assert.Equal(t, -5.0, s.Max)
	assert.Equal(t, -5.0, s.Mean)
	assert.Equal(t, 0.0, s.Variance)
}

func TestAccumulator_MatchesDirectComputation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a := NewAccumulator()
	samples := make([]float64, 0, 5000)

	for i := 0; i < 5000; i++ {
		v := float64(rng.Intn(600)) - 20
		samples = append(samples, v)
		a.Update(v)
	}

	mean, variance := direct(samples)
	s := a.Stats()
	relClose(t, mean, s.Mean)
	relClose(t, variance, s.Variance)

	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	assert.Equal(t, lo, s.Min)
	assert.Equal(t, hi, s.Max)
}

func TestAccumulator_LargeOffsetStaysStable(t *testing.T) {
	a := NewAccumulator()
	samples := []float64{1e9 + 4, 1e9 + 7, 1e9 + 13, 1e9 + 16}
	for _, v := range samples {
		a.Update(v)
	}

	_, variance := direct(samples)
	relClose(t, variance, a.Stats().Variance)
}

func TestAccumulator_Reset(t *testing.T) {
	a := NewAccumulator()
	a.Update(10)
	a.Update(30)
	a.Reset()

	assert.Equal(t, Empty(), a.Stats())
	assert.Equal(t, uint64(0), a.Count())

	a.Update(7)
	assert.Equal(t, 7.0, a.Stats().Min)
	assert.Equal(t, 7.0, a.Stats().Max)
}

func TestRestore_ContinuesSeries(t *testing.T) {
	samples := []float64{3, 9, 1, 40, 22, -2, 17, 5}

	full := NewAccumulator()
	for _, v := range samples {
		full.Update(v)
	}

	head := NewAccumulator()
	for _, v := range samples[:5] {
		head.Update(v)
	}
	resumed := Restore(head.Stats(), head.Count())
	for _, v := range samples[5:] {
		resumed.Update(v)
	}

	relClose(t, full.Stats().Mean, resumed.Stats().Mean)
	relClose(t, full.Stats().Variance, resumed.Stats().Variance)
	assert.Equal(t, full.Stats().Min, resumed.Stats().Min)
	assert.Equal(t, full.Stats().Max, resumed.Stats().Max)
	assert.Equal(t, full.Count(), resumed.Count())
}

func TestRestore_ZeroCountIsEmpty(t *testing.T) {
	a := Restore(Stats{Min: 4, Max: 9, Mean: 6, Variance: 1}, 0)
	assert.Equal(t, Empty(), a.Stats())
}

func TestStats_JSONInfinity(t *testing.T) {
	data, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":null,"max":0,"mean":0,"variance":0}`, string(data))

	var decoded Stats
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, math.IsInf(decoded.Min, 1))

	data, err = json.Marshal(Stats{Min: -3, Max: 8, Mean: 2.5, Variance: 4})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Stats{Min: -3, Max: 8, Mean: 2.5, Variance: 4}, decoded)
}
