package processor

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// FillNA 把所有数值列的缺失值替换为0，字符串列不变
//
// 注意：这会把"未测量"与"真实为0"混为一谈，之后的均值和相关系数都会偏低。
// 为了与已有的导出文件保持一致而保留这一行为。
func FillNA(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Err != nil {
		return df
	}
	for _, name := range df.Names() {
		col := df.Col(name)
		switch col.Type() {
		case series.Float:
			vals := col.Float()
			changed := false
			for i, v := range vals {
				if math.IsNaN(v) {
					vals[i] = 0
					changed = true
				}
			}
			if changed {
				df = df.Mutate(series.New(vals, series.Float, name))
			}
		case series.Int:
			nas := col.IsNaN()
			vals := make([]int, col.Len())
			changed := false
			for i := range vals {
				if nas[i] {
					changed = true
					continue
				}
				vals[i], _ = col.Elem(i).Int()
			}
			if changed {
				df = df.Mutate(series.New(vals, series.Int, name))
			}
		}
	}
	return df
}
