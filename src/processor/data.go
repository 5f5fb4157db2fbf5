// data.go
package processor

import (
	"fmt"
	"math"

	"HappinessInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// DataProcessor 持有一份合并表，提供清洗和看板指标
type DataProcessor struct {
	df dataframe.DataFrame
}

// Metrics 看板上的关键指标
type Metrics struct {
	Rows              int     `json:"rows"`
	Countries         int     `json:"countries"`
	AvgHappiness      float64 `json:"avg_happiness"`
	TopGDPCountry     string  `json:"top_gdp_country"`
	TopGDP            float64 `json:"top_gdp"`
	AvgLifeExpectancy float64 `json:"avg_life_expectancy"`
}

func NewDataProcessor(df dataframe.DataFrame) *DataProcessor {
	return &DataProcessor{df: df}
}

// CleanData 缺失值填0
func (p *DataProcessor) CleanData() error {
	p.df = FillNA(p.df)
	return p.df.Err
}

// CalculateMetrics 计算看板指标，空表返回ErrEmptyTable
func (p *DataProcessor) CalculateMetrics() (Metrics, error) {
	if p.df.Err != nil {
		return Metrics{}, p.df.Err
	}
	if p.df.Nrow() == 0 {
		return Metrics{}, ErrEmptyTable
	}

	happiness, err := numericColumn(p.df, ColHappiness)
	if err != nil {
		return Metrics{}, fmt.Errorf("metrics: %w", err)
	}
	gdp, err := numericColumn(p.df, ColEconomy)
	if err != nil {
		return Metrics{}, fmt.Errorf("metrics: %w", err)
	}
	health, err := numericColumn(p.df, ColHealth)
	if err != nil {
		return Metrics{}, fmt.Errorf("metrics: %w", err)
	}
	countries, err := keyColumn(p.df, ColCountry)
	if err != nil {
		return Metrics{}, fmt.Errorf("metrics: %w", err)
	}

	m := Metrics{
		Rows:              p.df.Nrow(),
		Countries:         len(utils.Unique(countries)),
		AvgHappiness:      mean(happiness),
		AvgLifeExpectancy: mean(health),
		TopGDP:            math.NaN(),
	}
	// 并列时取第一个出现的国家
	for i, v := range gdp {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m.TopGDP) || v > m.TopGDP {
			m.TopGDP = v
			m.TopGDPCountry = countries[i]
		}
	}
	return m, nil
}

func mean(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
