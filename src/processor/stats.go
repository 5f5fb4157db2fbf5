package processor

import (
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
)

// ColumnStats 单列的描述统计
type ColumnStats struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe 对每个数值列（不含Year）计算 count/mean/std/min/25%/50%/75%/max
// 缺失值不计入，std为样本标准差
func Describe(df dataframe.DataFrame) ([]ColumnStats, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	var out []ColumnStats
	for _, name := range df.Names() {
		if name == ColYear || !isNumeric(df.Col(name).Type()) {
			continue
		}
		vals, err := numericColumn(df, name)
		if err != nil {
			return nil, err
		}
		out = append(out, describe(name, vals))
	}
	return out, nil
}

func describe(name string, vals []float64) ColumnStats {
	xs := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			xs = append(xs, v)
		}
	}
	s := ColumnStats{Column: name, Count: len(xs)}
	nan := math.NaN()
	if len(xs) == 0 {
		s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	sort.Float64s(xs)

	s.Mean = stat.Mean(xs, nil)
	s.Std = nan
	if len(xs) > 1 {
		s.Std = stat.StdDev(xs, nil)
	}
	s.Min = xs[0]
	s.Max = xs[len(xs)-1]
	s.Q25 = quantile(xs, 0.25)
	s.Median = quantile(xs, 0.5)
	s.Q75 = quantile(xs, 0.75)
	return s
}

// quantile 已排序数据的线性插值分位数，位置为 (n-1)*p
func quantile(sorted []float64, p float64) float64 {
	pos := float64(len(sorted)-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
