package processor

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// TopN 按值降序取前n个分组，值相同时保持原有顺序
// n大于分组数时返回全部（已排序）
func TopN(groups []GroupValue, n int) []GroupValue {
	sorted := make([]GroupValue, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
	if n < 0 {
		n = 0
	}
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// LowestN 按col升序取前n行，值相同时保持原有顺序
func LowestN(df dataframe.DataFrame, col string, n int) (dataframe.DataFrame, error) {
	vals, err := numericColumn(df, col)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	idx := allRows(len(vals))
	sort.SliceStable(idx, func(a, b int) bool { return less(vals[idx[a]], vals[idx[b]]) })
	return subset(df, head(idx, n))
}

// HighestN 按col降序取前n行，值相同时保持原有顺序
func HighestN(df dataframe.DataFrame, col string, n int) (dataframe.DataFrame, error) {
	vals, err := numericColumn(df, col)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	return subset(df, head(descending(vals, allRows(len(vals))), n))
}

// TopNPerYear 按Year分区（按年份首次出现的顺序），每个分区内按col降序取前n行后拼接
func TopNPerYear(df dataframe.DataFrame, col string, n int) (dataframe.DataFrame, error) {
	vals, err := numericColumn(df, col)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	years, err := yearColumn(df)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	var order []int
	partitions := make(map[int][]int)
	for i, y := range years {
		if _, ok := partitions[y]; !ok {
			order = append(order, y)
		}
		partitions[y] = append(partitions[y], i)
	}

	var picked []int
	for _, y := range order {
		picked = append(picked, head(descending(vals, partitions[y]), n)...)
	}
	return subset(df, picked)
}

// ThresholdFilter 选出 colA > above 且 colB < below 的行，保持原有顺序
func ThresholdFilter(df dataframe.DataFrame, colA string, above float64, colB string, below float64) (dataframe.DataFrame, error) {
	if _, err := numericColumn(df, colA); err != nil {
		return dataframe.DataFrame{}, err
	}
	if _, err := numericColumn(df, colB); err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Nrow() == 0 {
		return df, nil
	}

	filtered := df.FilterAggregation(
		dataframe.And,
		dataframe.F{Colname: colA, Comparator: series.Greater, Comparando: above},
		dataframe.F{Colname: colB, Comparator: series.Less, Comparando: below},
	)
	if filtered.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("threshold filter %s > %v and %s < %v: %w", colA, above, colB, below, filtered.Err)
	}
	return filtered, nil
}

// descending 对rows按vals降序稳定排序，返回新切片
func descending(vals []float64, rows []int) []int {
	idx := make([]int, len(rows))
	copy(idx, rows)
	sort.SliceStable(idx, func(a, b int) bool { return greater(vals[idx[a]], vals[idx[b]]) })
	return idx
}

// less 和 greater 都把NaN排在最后
func less(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	return math.IsNaN(b) || a < b
}

func greater(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	return math.IsNaN(b) || a > b
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func head(idx []int, n int) []int {
	if n < 0 {
		n = 0
	}
	if n < len(idx) {
		return idx[:n]
	}
	return idx
}

// subset 按行号取子表，空结果保留列结构
func subset(df dataframe.DataFrame, rows []int) (dataframe.DataFrame, error) {
	if rows == nil {
		rows = []int{}
	}
	out := df.Subset(rows)
	return out, out.Err
}
