package processor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	df := frame(
		[]string{"A", "B", "C", "D", "E"},
		[]int{2015, 2015, 2016, 2016, 2016},
		[]float64{1, 2, 3, 4, math.NaN()},
	)
	stats, err := Describe(df)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, ColHappiness, s.Column)
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.InDelta(t, 1.75, s.Q25, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, 3.25, s.Q75, 1e-12)
	assert.Equal(t, 4.0, s.Max)
}

func TestDescribeSingleValue(t *testing.T) {
	s := describe("x", []float64{7})
	assert.Equal(t, 1, s.Count)
	assert.True(t, math.IsNaN(s.Std))
	assert.Equal(t, 7.0, s.Median)

	empty := describe("x", []float64{math.NaN()})
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestDescribeSkipsYear(t *testing.T) {
	stats, err := Describe(FillNA(loadTwoYears(t)))
	require.NoError(t, err)
	require.Len(t, stats, 7)
	for _, s := range stats {
		assert.NotEqual(t, ColYear, s.Column)
		assert.Equal(t, 4, s.Count)
	}
}
