package processor

import (
	"fmt"
	"math"

	"HappinessInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
)

// Record 一个国家一年的观测
type Record struct {
	Country        string  `json:"country"`
	Year           int     `json:"year"`
	HappinessScore float64 `json:"happiness_score"`
	Economy        float64 `json:"economy"`
	SocialSupport  float64 `json:"social_support"`
	Health         float64 `json:"health"`
	Freedom        float64 `json:"freedom"`
	Trust          float64 `json:"trust"`
	Generosity     float64 `json:"generosity"`
}

// ToRecords 把合并表转换为Record切片，缺少的数值列填NaN
func ToRecords(df dataframe.DataFrame) ([]Record, error) {
	countries, err := keyColumn(df, ColCountry)
	if err != nil {
		return nil, err
	}
	years, err := yearColumn(df)
	if err != nil {
		return nil, err
	}

	floats := func(name string) ([]float64, error) {
		if !utils.HasColumn(df, name) {
			vals := make([]float64, df.Nrow())
			for i := range vals {
				vals[i] = math.NaN()
			}
			return vals, nil
		}
		return numericColumn(df, name)
	}

	names := []string{ColHappiness, ColEconomy, ColSocial, ColHealth, ColFreedom, ColTrust, ColGenerosity}
	cols := make(map[string][]float64, len(names))
	for _, name := range names {
		if cols[name], err = floats(name); err != nil {
			return nil, fmt.Errorf("records: %w", err)
		}
	}

	records := make([]Record, df.Nrow())
	for i := range records {
		records[i] = Record{
			Country:        countries[i],
			Year:           years[i],
			HappinessScore: cols[ColHappiness][i],
			Economy:        cols[ColEconomy][i],
			SocialSupport:  cols[ColSocial][i],
			Health:         cols[ColHealth][i],
			Freedom:        cols[ColFreedom][i],
			Trust:          cols[ColTrust][i],
			Generosity:     cols[ColGenerosity][i],
		}
	}
	return records, nil
}
