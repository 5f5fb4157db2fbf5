package processor

import (
	"fmt"
	"math"
	"sort"

	"HappinessInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// YearValue 某一年的聚合值
type YearValue struct {
	Year  int
	Value float64
}

// GroupValue (Year, Country)分组的聚合值
type GroupValue struct {
	Year    int
	Country string
	Value   float64
}

// numericColumn 取出数值列，列不存在或不是数值列时报错
func numericColumn(df dataframe.DataFrame, name string) ([]float64, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	if !utils.HasColumn(df, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	col := df.Col(name)
	if !isNumeric(col.Type()) {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return col.Float(), nil
}

// yearColumn 取出Year列
func yearColumn(df dataframe.DataFrame) ([]int, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	if !utils.HasColumn(df, ColYear) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, ColYear)
	}
	years, err := df.Col(ColYear).Int()
	if err != nil {
		return nil, fmt.Errorf("year column: %w", err)
	}
	return years, nil
}

// keyColumn 取出分组键列的文本值
func keyColumn(df dataframe.DataFrame, name string) ([]string, error) {
	if df.Err != nil {
		return nil, df.Err
	}
	if !utils.HasColumn(df, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return df.Col(name).Records(), nil
}

// MeanByYear 按Year分组求col的算术平均，结果按年份升序
// 缺失值不参与计算；一组全部缺失时结果为NaN
func MeanByYear(df dataframe.DataFrame, col string) ([]YearValue, error) {
	vals, err := numericColumn(df, col)
	if err != nil {
		return nil, err
	}
	years, err := yearColumn(df)
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[int]*acc)
	for i, y := range years {
		a, ok := groups[y]
		if !ok {
			a = &acc{}
			groups[y] = a
		}
		if math.IsNaN(vals[i]) {
			continue
		}
		a.sum += vals[i]
		a.n++
	}

	out := make([]YearValue, 0, len(groups))
	for y, a := range groups {
		mean := math.NaN()
		if a.n > 0 {
			mean = a.sum / float64(a.n)
		}
		out = append(out, YearValue{Year: y, Value: mean})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// SumByYearCountry 按(Year, Country)分组求和，分组按首次出现的顺序排列
// 同一分组出现多行时求和，不取首行或末行
func SumByYearCountry(df dataframe.DataFrame, col string) ([]GroupValue, error) {
	vals, err := numericColumn(df, col)
	if err != nil {
		return nil, err
	}
	years, err := yearColumn(df)
	if err != nil {
		return nil, err
	}
	countries, err := keyColumn(df, ColCountry)
	if err != nil {
		return nil, err
	}

	type key struct {
		year    int
		country string
	}
	index := make(map[key]int)
	var out []GroupValue
	for i := range vals {
		k := key{years[i], countries[i]}
		pos, ok := index[k]
		if !ok {
			pos = len(out)
			index[k] = pos
			out = append(out, GroupValue{Year: k.year, Country: k.country})
		}
		if !math.IsNaN(vals[i]) {
			out[pos].Value += vals[i]
		}
	}
	return out, nil
}

// GroupMeans 按by列分组求cols的均值，返回的DataFrame第一列为分组键
// 例如各国家多年平均的社会支持、慷慨度、健康预期寿命
func GroupMeans(df dataframe.DataFrame, by string, cols []string) (dataframe.DataFrame, error) {
	keys, err := keyColumn(df, by)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	values := make([][]float64, len(cols))
	for i, c := range cols {
		if values[i], err = numericColumn(df, c); err != nil {
			return dataframe.DataFrame{}, err
		}
	}

	order := utils.Unique(keys)
	pos := make(map[string]int, len(order))
	for i, k := range order {
		pos[k] = i
	}

	sums := make([][]float64, len(cols))
	counts := make([][]int, len(cols))
	for c := range cols {
		sums[c] = make([]float64, len(order))
		counts[c] = make([]int, len(order))
		for i, v := range values[c] {
			if math.IsNaN(v) {
				continue
			}
			g := pos[keys[i]]
			sums[c][g] += v
			counts[c][g]++
		}
	}

	columns := []series.Series{series.New(order, df.Col(by).Type(), by)}
	for c, name := range cols {
		means := make([]float64, len(order))
		for g := range order {
			means[g] = math.NaN()
			if counts[c][g] > 0 {
				means[g] = sums[c][g] / float64(counts[c][g])
			}
		}
		columns = append(columns, series.New(means, series.Float, name))
	}

	out := dataframe.New(columns...)
	return out, out.Err
}

// FactorContributions 指定年份各因子的均值，每个年份一行
// 表中没有该年份时各因子为NaN
func FactorContributions(df dataframe.DataFrame, years []int, factors []string) (dataframe.DataFrame, error) {
	yearCol, err := yearColumn(df)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	columns := []series.Series{series.New(years, series.Int, ColYear)}
	for _, f := range factors {
		vals, err := numericColumn(df, f)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		means := make([]float64, len(years))
		for i, y := range years {
			sum, n := 0.0, 0
			for j, v := range vals {
				if yearCol[j] != y || math.IsNaN(v) {
					continue
				}
				sum += v
				n++
			}
			means[i] = math.NaN()
			if n > 0 {
				means[i] = sum / float64(n)
			}
		}
		columns = append(columns, series.New(means, series.Float, f))
	}

	out := dataframe.New(columns...)
	return out, out.Err
}

// Years 表中出现的年份，按首次出现的顺序
func Years(df dataframe.DataFrame) ([]int, error) {
	years, err := yearColumn(df)
	if err != nil {
		return nil, err
	}
	return utils.Unique(years), nil
}
