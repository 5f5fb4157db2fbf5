package processor

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataProcessorMetrics(t *testing.T) {
	p := NewDataProcessor(loadTwoYears(t))
	require.NoError(t, p.CleanData())

	m, err := p.CalculateMetrics()
	require.NoError(t, err)
	assert.Equal(t, 4, m.Rows)
	assert.Equal(t, 2, m.Countries)
	assert.InDelta(t, 6.175, m.AvgHappiness, 1e-9)
	assert.Equal(t, "CountryA", m.TopGDPCountry)
	assert.InDelta(t, 1.4, m.TopGDP, 1e-9)
	assert.InDelta(t, 0.75, m.AvgLifeExpectancy, 1e-9)
}

func TestDataProcessorEmpty(t *testing.T) {
	df := FillNA(loadTwoYears(t))
	empty, err := ThresholdFilter(df, ColHappiness, 100, ColGenerosity, 1)
	require.NoError(t, err)

	_, err = NewDataProcessor(empty).CalculateMetrics()
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestToRecords(t *testing.T) {
	records, err := ToRecords(loadTwoYears(t))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, Record{
		Country:        "CountryA",
		Year:           2015,
		HappinessScore: 7.2,
		Economy:        1.3,
		SocialSupport:  1.1,
		Health:         0.9,
		Freedom:        0.6,
		Trust:          0.4,
		Generosity:     0.3,
	}, records[0])
	assert.True(t, math.IsNaN(records[2].Generosity))
	assert.Equal(t, 2016, records[3].Year)
}

func TestToRecordsMissingColumns(t *testing.T) {
	df := frame([]string{"A"}, []int{2015}, []float64{5})
	records, err := ToRecords(df)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 5.0, records[0].HappinessScore)
	assert.True(t, math.IsNaN(records[0].Economy))
}
