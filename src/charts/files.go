package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"HappinessInsights/src/datasource/file"
	"HappinessInsights/src/processor"

	"github.com/go-gota/gota/dataframe"
)

// SaveFile 创建path并调用draw写入
func SaveFile(path string, draw func(io.Writer) error) error {
	if err := file.EnsureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := draw(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// WriteAll 在dir下生成全部图表，返回生成的文件列表
func WriteAll(dir string, df dataframe.DataFrame, topN int) ([]string, error) {
	means, err := processor.MeanByYear(df, processor.ColHappiness)
	if err != nil {
		return nil, err
	}
	groups, err := processor.SumByYearCountry(df, processor.ColHappiness)
	if err != nil {
		return nil, err
	}
	years := make([]int, len(means))
	for i, m := range means {
		years[i] = m.Year
	}
	// 从最近一年开始
	for i, j := 0, len(years)-1; i < j; i, j = i+1, j-1 {
		years[i], years[j] = years[j], years[i]
	}
	factors, err := processor.FactorContributions(df, years, processor.Factors)
	if err != nil {
		return nil, err
	}
	ngo, err := processor.GroupMeans(df, processor.ColCountry, []string{processor.ColSocial, processor.ColHealth})
	if err != nil {
		return nil, err
	}
	lowSocial, err := processor.LowestN(ngo, processor.ColSocial, topN)
	if err != nil {
		return nil, err
	}
	lowHealth, err := processor.LowestN(ngo, processor.ColHealth, topN)
	if err != nil {
		return nil, err
	}
	corr, err := processor.CorrelationMatrix(df, []string{processor.ColHappiness, processor.ColEconomy, processor.ColSocial, processor.ColHealth})
	if err != nil && !errors.Is(err, processor.ErrUndefinedCorrelation) {
		return nil, err
	}

	jobs := []struct {
		name string
		draw func(io.Writer) error
	}{
		{"happiness_distribution.png", func(w io.Writer) error { return Histogram(w, df, processor.ColHappiness, 20) }},
		{"happiness_by_year.png", func(w io.Writer) error { return YearMeans(w, means, processor.ColHappiness) }},
		{"happiness_vs_social_support.png", func(w io.Writer) error {
			return Scatter(w, df, processor.ColHappiness, processor.ColSocial, math.NaN())
		}},
		{"gdp_vs_happiness.png", func(w io.Writer) error {
			return Scatter(w, df, processor.ColEconomy, processor.ColHappiness, 5)
		}},
		{"correlation_matrix.png", func(w io.Writer) error { return CorrelationHeatmap(w, corr) }},
		{"top_countries.png", func(w io.Writer) error {
			return TopBar(w, processor.TopN(groups, topN), processor.ColHappiness)
		}},
		{"factor_contributions.png", func(w io.Writer) error { return FactorContributions(w, factors) }},
		{"lowest_social_support.png", func(w io.Writer) error { return LowestBar(w, lowSocial, processor.ColSocial) }},
		{"lowest_life_expectancy.png", func(w io.Writer) error { return LowestBar(w, lowHealth, processor.ColHealth) }},
	}

	written := make([]string, 0, len(jobs))
	for _, job := range jobs {
		path := filepath.Join(dir, job.name)
		if err := SaveFile(path, job.draw); err != nil {
			return written, fmt.Errorf("chart %s: %w", job.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
