package processor

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
)

// Matrix 对称的相关系数矩阵，Values[i][j]对应Columns[i]和Columns[j]
type Matrix struct {
	Columns []string
	Values  [][]float64
}

// At 按下标取值
func (m *Matrix) At(i, j int) float64 {
	return m.Values[i][j]
}

// Get 按列名取值，列名不存在时ok为false
func (m *Matrix) Get(a, b string) (v float64, ok bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

func (m *Matrix) index(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// CorrelationMatrix 计算cols两两之间的Pearson相关系数
//
// 对角线恒为1。任一列方差为0（或共同有效的观测少于2个）时该位置为NaN，
// 此时同时返回矩阵和*UndefinedCorrelationError，调用方需要自行处理NaN。
// 缺失值按成对删除处理。
func CorrelationMatrix(df dataframe.DataFrame, cols []string) (*Matrix, error) {
	values := make([][]float64, len(cols))
	for i, c := range cols {
		v, err := numericColumn(df, c)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	m := &Matrix{Columns: append([]string(nil), cols...), Values: make([][]float64, len(cols))}
	for i := range cols {
		m.Values[i] = make([]float64, len(cols))
		m.Values[i][i] = 1
	}

	var undefined [][2]string
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			r := pearson(values[i], values[j])
			if math.IsNaN(r) {
				undefined = append(undefined, [2]string{cols[i], cols[j]})
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}

	if len(undefined) > 0 {
		return m, &UndefinedCorrelationError{Pairs: undefined}
	}
	return m, nil
}

// pearson 成对删除缺失值后计算相关系数，方差为0时返回NaN
func pearson(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < 2 || constant(xs) || constant(ys) {
		return math.NaN()
	}

	r := stat.Correlation(xs, ys, nil)
	// 浮点误差可能略微超出[-1, 1]
	return math.Max(-1, math.Min(1, r))
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
