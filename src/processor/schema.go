package processor

import (
	"fmt"

	"github.com/go-gota/gota/series"
)

// 合并表中使用的列名
const (
	ColCountry    = "Country"
	ColYear       = "Year"
	ColHappiness  = "Happiness Score"
	ColEconomy    = "Economy (GDP per Capita)"
	ColSocial     = "Social support"
	ColHealth     = "Health (Life Expectancy)"
	ColFreedom    = "Freedom"
	ColTrust      = "Trust (Government Corruption)"
	ColGenerosity = "Generosity"
)

// Factors 六个解释因子，顺序与原始分析一致
var Factors = []string{ColEconomy, ColSocial, ColHealth, ColFreedom, ColTrust, ColGenerosity}

// Column 一列的名称和类型
type Column struct {
	Name string
	Type series.Type
}

// Schema 各年度文件必须完全一致的列集合，Year列由合并时追加
type Schema struct {
	Columns []Column
}

// DefaultSchema 预处理后各年度文件共有的列
func DefaultSchema() Schema {
	cols := []Column{{Name: ColCountry, Type: series.String}, {Name: ColHappiness, Type: series.Float}}
	for _, f := range Factors {
		cols = append(cols, Column{Name: f, Type: series.Float})
	}
	return Schema{Columns: cols}
}

// ParseColumnType 配置中的类型名转换为series.Type
func ParseColumnType(name string) (series.Type, error) {
	switch name {
	case "string":
		return series.String, nil
	case "float":
		return series.Float, nil
	case "int":
		return series.Int, nil
	default:
		return "", fmt.Errorf("unknown column type %q", name)
	}
}

// Names 源文件中的列名，不含Year
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// OutputNames 合并表和导出文件的列顺序
func (s Schema) OutputNames() []string {
	return append(s.Names(), ColYear)
}

// Types 源文件读取时使用的列类型
func (s Schema) Types() map[string]series.Type {
	types := make(map[string]series.Type, len(s.Columns))
	for _, c := range s.Columns {
		types[c.Name] = c.Type
	}
	return types
}

// OutputTypes 导出文件重新读入时使用的列类型
func (s Schema) OutputTypes() map[string]series.Type {
	types := s.Types()
	types[ColYear] = series.Int
	return types
}

func isNumeric(t series.Type) bool {
	return t == series.Float || t == series.Int
}
