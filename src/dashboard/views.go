package dashboard

import (
	"errors"
	"math"
	"strconv"

	"HappinessInsights/src/processor"

	"github.com/go-gota/gota/dataframe"
)

// jsonFloat NaN序列化为null
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

type recordView struct {
	Country        string    `json:"country"`
	Year           int       `json:"year"`
	HappinessScore jsonFloat `json:"happiness_score"`
	Economy        jsonFloat `json:"economy"`
	SocialSupport  jsonFloat `json:"social_support"`
	Health         jsonFloat `json:"health"`
	Freedom        jsonFloat `json:"freedom"`
	Trust          jsonFloat `json:"trust"`
	Generosity     jsonFloat `json:"generosity"`
}

func recordViews(df dataframe.DataFrame) ([]recordView, error) {
	views := []recordView{}
	if df.Nrow() == 0 {
		return views, nil
	}
	records, err := processor.ToRecords(df)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		views = append(views, recordView{
			Country:        r.Country,
			Year:           r.Year,
			HappinessScore: jsonFloat(r.HappinessScore),
			Economy:        jsonFloat(r.Economy),
			SocialSupport:  jsonFloat(r.SocialSupport),
			Health:         jsonFloat(r.Health),
			Freedom:        jsonFloat(r.Freedom),
			Trust:          jsonFloat(r.Trust),
			Generosity:     jsonFloat(r.Generosity),
		})
	}
	return views, nil
}

type kpiView struct {
	Rows              int       `json:"rows"`
	Countries         int       `json:"countries"`
	AvgHappiness      jsonFloat `json:"avg_happiness"`
	TopGDPCountry     string    `json:"top_gdp_country"`
	TopGDP            jsonFloat `json:"top_gdp"`
	AvgLifeExpectancy jsonFloat `json:"avg_life_expectancy"`
}

// kpis 空选择返回全部为null的指标
func kpis(df dataframe.DataFrame) (kpiView, error) {
	nan := jsonFloat(math.NaN())
	empty := kpiView{AvgHappiness: nan, TopGDP: nan, AvgLifeExpectancy: nan}
	if df.Nrow() == 0 {
		return empty, nil
	}
	m, err := processor.NewDataProcessor(df).CalculateMetrics()
	if errors.Is(err, processor.ErrEmptyTable) {
		return empty, nil
	}
	if err != nil {
		return kpiView{}, err
	}
	return kpiView{
		Rows:              m.Rows,
		Countries:         m.Countries,
		AvgHappiness:      jsonFloat(m.AvgHappiness),
		TopGDPCountry:     m.TopGDPCountry,
		TopGDP:            jsonFloat(m.TopGDP),
		AvgLifeExpectancy: jsonFloat(m.AvgLifeExpectancy),
	}, nil
}

type correlationView struct {
	Columns   []string      `json:"columns"`
	Values    [][]jsonFloat `json:"values"`
	Undefined [][2]string   `json:"undefined,omitempty"`
}

// correlationColumns 看板热力图使用的列
var correlationColumns = []string{processor.ColHappiness, processor.ColEconomy, processor.ColSocial, processor.ColHealth}

func correlation(df dataframe.DataFrame) (correlationView, error) {
	view := correlationView{Columns: correlationColumns, Values: [][]jsonFloat{}}
	if df.Nrow() == 0 {
		return view, nil
	}
	m, err := processor.CorrelationMatrix(df, correlationColumns)
	var undefined *processor.UndefinedCorrelationError
	switch {
	case errors.As(err, &undefined):
		view.Undefined = undefined.Pairs
	case err != nil:
		return correlationView{}, err
	}
	for _, row := range m.Values {
		vals := make([]jsonFloat, len(row))
		for j, v := range row {
			vals[j] = jsonFloat(v)
		}
		view.Values = append(view.Values, vals)
	}
	return view, nil
}
