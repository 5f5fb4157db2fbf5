package processor

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Country,Happiness Score,Economy (GDP per Capita),Social support,Health (Life Expectancy),Freedom,Trust (Government Corruption),Generosity"

func writeSource(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

// twoYears 2015和2016两年的合成数据
func twoYears(t *testing.T) []Source {
	t.Helper()
	dir := t.TempDir()
	return []Source{
		{Year: 2015, Path: writeSource(t, dir, "2015.csv", header,
			"CountryA,7.2,1.3,1.1,0.9,0.6,0.4,0.3",
			"CountryB,5.1,0.8,0.9,0.6,0.4,0.1,0.2")},
		{Year: 2016, Path: writeSource(t, dir, "2016.csv", header,
			"CountryA,7.5,1.4,1.2,0.95,0.65,0.45,",
			"CountryB,4.9,0.7,,0.55,0.35,0.05,0.25")},
	}
}

func loadTwoYears(t *testing.T) dataframe.DataFrame {
	t.Helper()
	df, err := LoadSources(twoYears(t), DefaultSchema(), LoadOptions{})
	require.NoError(t, err)
	return df
}

func TestLoadSources(t *testing.T) {
	df := loadTwoYears(t)

	assert.Equal(t, DefaultSchema().OutputNames(), df.Names())
	assert.Equal(t, 4, df.Nrow())

	years, err := df.Col(ColYear).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2015, 2016, 2016}, years)
	assert.Equal(t, []string{"CountryA", "CountryB", "CountryA", "CountryB"}, df.Col(ColCountry).Records())

	gen := df.Col(ColGenerosity).Float()
	assert.True(t, math.IsNaN(gen[2]))
}

func TestLoadSourcesColumnOrder(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		{Year: 2017, Path: writeSource(t, dir, "2017.csv",
			"Generosity,Country,Freedom,Happiness Score,Economy (GDP per Capita),Trust (Government Corruption),Social support,Health (Life Expectancy)",
			"0.3,Norway,0.6,7.5,1.6,0.3,1.5,0.8")},
	}
	df, err := LoadSources(sources, DefaultSchema(), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema().OutputNames(), df.Names())
	assert.Equal(t, []string{"Norway"}, df.Col(ColCountry).Records())
	assert.InDelta(t, 7.5, df.Col(ColHappiness).Float()[0], 1e-9)
}

func TestLoadSourcesErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		sources := twoYears(t)
		sources[1].Path = filepath.Join(t.TempDir(), "nope.csv")

		df, err := LoadSources(sources, DefaultSchema(), LoadOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingSource))
		assert.Equal(t, 0, df.Nrow())

		var missing *MissingSourceError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, 2016, missing.Year)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("schema mismatch", func(t *testing.T) {
		dir := t.TempDir()
		sources := []Source{{Year: 2018, Path: writeSource(t, dir, "2018.csv",
			"Country,Happiness Score,Economy (GDP per Capita),Social support,Health (Life Expectancy),Freedom,Perceptions of corruption,Generosity",
			"Finland,7.6,1.3,1.5,0.9,0.7,0.4,0.2")}}

		_, err := LoadSources(sources, DefaultSchema(), LoadOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSchemaMismatch))

		var mismatch *SchemaMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, []string{ColTrust}, mismatch.Missing)
		assert.Equal(t, []string{"Perceptions of corruption"}, mismatch.Unexpected)
		assert.Contains(t, err.Error(), "2018")
	})

	t.Run("empty file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "2019.csv")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		_, err := LoadSources([]Source{{Year: 2019, Path: path}}, DefaultSchema(), LoadOptions{})
		assert.True(t, errors.Is(err, ErrSchemaMismatch))
	})

	t.Run("row without country", func(t *testing.T) {
		dir := t.TempDir()
		sources := []Source{{Year: 2015, Path: writeSource(t, dir, "2015.csv", header,
			"CountryA,7.2,1.3,1.1,0.9,0.6,0.4,0.3",
			",5.1,0.8,0.9,0.6,0.4,0.1,0.2")}}

		_, err := LoadSources(sources, DefaultSchema(), LoadOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSchemaMismatch))
		assert.Contains(t, err.Error(), "row 2")
	})

	t.Run("value not a number", func(t *testing.T) {
		dir := t.TempDir()
		sources := []Source{{Year: 2015, Path: writeSource(t, dir, "2015.csv", header,
			"Norway,7.5,1.4,1.5,0.9,0.7,0.4,0.3",
			"Togo,seven point two,0.2,0.1,0.2,0.3,0.1,0.2")}}

		df, err := LoadSources(sources, DefaultSchema(), LoadOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSchemaMismatch))
		assert.False(t, errors.Is(err, ErrMissingSource))
		assert.Equal(t, 0, df.Nrow())
		assert.Contains(t, err.Error(), `row 2 column "Happiness Score": not a float`)
	})

	t.Run("decimal comma", func(t *testing.T) {
		dir := t.TempDir()
		sources := []Source{{Year: 2015, Path: writeSource(t, dir, "2015.csv", header,
			"Norway,7.5,1.4,1.5,0.9,0.7,0.4,0.3",
			`Chad,"4,3",0.3,0.4,0.1,0.2,0.1,0.2`)}}

		_, err := LoadSources(sources, DefaultSchema(), LoadOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSchemaMismatch))
		assert.Contains(t, err.Error(), `"4,3"`)
	})

	t.Run("ragged row", func(t *testing.T) {
		dir := t.TempDir()
		sources := []Source{{Year: 2015, Path: writeSource(t, dir, "2015.csv", header,
			"Norway,7.5,1.4,1.5,0.9,0.7,0.4,0.3,extra")}}

		_, err := LoadSources(sources, DefaultSchema(), LoadOptions{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSchemaMismatch))
		assert.False(t, errors.Is(err, ErrMissingSource))
		assert.Contains(t, err.Error(), "wrong number of fields")
	})

	t.Run("invalid settings", func(t *testing.T) {
		_, err := LoadSources(nil, DefaultSchema(), LoadOptions{})
		assert.True(t, errors.Is(err, ErrInvalidSourceSettings))

		sources := twoYears(t)
		sources[1].Year = 2015
		_, err = LoadSources(sources, DefaultSchema(), LoadOptions{})
		assert.True(t, errors.Is(err, ErrInvalidSourceSettings))
	})
}

func TestNullCounts(t *testing.T) {
	df := loadTwoYears(t)
	counts := make(map[string]int)
	for _, c := range NullCounts(df) {
		counts[c.Column] = c.Count
	}
	assert.Equal(t, 1, counts[ColGenerosity])
	assert.Equal(t, 1, counts[ColSocial])
	assert.Equal(t, 0, counts[ColCountry])
	assert.Equal(t, 0, counts[ColYear])
}

func TestFillNA(t *testing.T) {
	df := loadTwoYears(t)
	filled := FillNA(df)
	require.NoError(t, filled.Err)

	assert.Equal(t, df.Nrow(), filled.Nrow())
	assert.Equal(t, df.Names(), filled.Names())
	for _, c := range NullCounts(filled) {
		assert.Zero(t, c.Count, c.Column)
	}
	assert.Equal(t, 0.0, filled.Col(ColGenerosity).Float()[2])
	assert.Equal(t, 0.0, filled.Col(ColSocial).Float()[3])
	// 非缺失值不变
	assert.InDelta(t, 0.25, filled.Col(ColGenerosity).Float()[3], 1e-9)

	// 幂等
	again := FillNA(filled)
	assert.Equal(t, filled.Records(), again.Records())
}

func TestFillNAIntColumn(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"A", "B"}, series.String, ColCountry),
		series.New([]interface{}{3, nil}, series.Int, "Rank"),
	)
	filled := FillNA(df)
	ranks, err := filled.Col("Rank").Int()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0}, ranks)
}
