package processor

import (
	"errors"
	"fmt"

	"HappinessInsights/src/datasource/file"
	"HappinessInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Source 一个年度标签和对应的文件
type Source struct {
	Year int
	Path string
}

// LoadOptions 读取源文件的选项
type LoadOptions struct {
	Encoding  string // 源文件字符集，默认utf-8
	Sheet     string // xlsx工作表名
	Delimiter rune   // CSV分隔符，为0时使用逗号
}

// LoadSources 按顺序读取各年度文件，追加Year列后纵向合并
// 任一文件出错都返回错误，不返回部分结果
func LoadSources(sources []Source, schema Schema, opts LoadOptions) (dataframe.DataFrame, error) {
	if len(sources) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: no sources declared", ErrInvalidSourceSettings)
	}
	if len(schema.Columns) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("%w: empty schema", ErrInvalidSourceSettings)
	}

	seen := make(map[int]bool, len(sources))
	for _, src := range sources {
		if src.Year <= 0 {
			return dataframe.DataFrame{}, fmt.Errorf("%w: invalid year %d for %s", ErrInvalidSourceSettings, src.Year, src.Path)
		}
		if seen[src.Year] {
			return dataframe.DataFrame{}, fmt.Errorf("%w: duplicate year %d", ErrInvalidSourceSettings, src.Year)
		}
		seen[src.Year] = true
	}

	var combined dataframe.DataFrame
	for i, src := range sources {
		df, err := loadSource(src, schema, opts)
		if err != nil {
			return dataframe.DataFrame{}, err
		}

		if i == 0 {
			combined = df
			continue
		}
		combined = combined.RBind(df)
		if combined.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("concat %d source %s: %w", src.Year, src.Path, combined.Err)
		}
	}
	return combined, nil
}

// loadSource 读取单个文件，校验列集合，按schema顺序选列并追加Year
func loadSource(src Source, schema Schema, opts LoadOptions) (dataframe.DataFrame, error) {
	df, err := file.ReadSource(src.Path, file.ReadOptions{
		Encoding:  opts.Encoding,
		Sheet:     opts.Sheet,
		Types:     schema.Types(),
		Delimiter: opts.Delimiter,
	})
	switch {
	case errors.Is(err, file.ErrNoHeader):
		return dataframe.DataFrame{}, &SchemaMismatchError{Year: src.Year, Path: src.Path, Missing: schema.Names(), Reason: "no header row"}
	case errors.Is(err, file.ErrDuplicateHeader):
		return dataframe.DataFrame{}, &SchemaMismatchError{Year: src.Year, Path: src.Path, Reason: err.Error()}
	case errors.Is(err, file.ErrMalformed):
		// 文件存在但内容不合格，不是缺失
		reason := err.Error()
		var cerr *file.CellError
		if errors.As(err, &cerr) {
			reason = cerr.Error()
		}
		return dataframe.DataFrame{}, &SchemaMismatchError{Year: src.Year, Path: src.Path, Reason: reason}
	case err != nil:
		return dataframe.DataFrame{}, &MissingSourceError{Year: src.Year, Path: src.Path, Err: err}
	}

	if err := checkSchema(df, schema); err != nil {
		err.Year, err.Path = src.Year, src.Path
		return dataframe.DataFrame{}, err
	}

	// 源文件的列顺序可以不同，统一为schema顺序
	df = df.Select(schema.Names())
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	if utils.HasColumn(df, ColCountry) {
		for i, na := range df.Col(ColCountry).IsNaN() {
			if na {
				return dataframe.DataFrame{}, &SchemaMismatchError{
					Year:   src.Year,
					Path:   src.Path,
					Reason: fmt.Sprintf("row %d has no %s", i+1, ColCountry),
				}
			}
		}
	}

	years := make([]int, df.Nrow())
	for i := range years {
		years[i] = src.Year
	}
	df = df.Mutate(series.New(years, series.Int, ColYear))
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// checkSchema 列集合必须与schema完全一致（顺序不限）
func checkSchema(df dataframe.DataFrame, schema Schema) *SchemaMismatchError {
	var missing, unexpected []string
	for _, name := range schema.Names() {
		if !utils.HasColumn(df, name) {
			missing = append(missing, name)
		}
	}
	expected := schema.Types()
	for _, name := range df.Names() {
		if _, ok := expected[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	return &SchemaMismatchError{Missing: missing, Unexpected: unexpected}
}

// NullCounts 每列缺失值个数，按列顺序返回
func NullCounts(df dataframe.DataFrame) []ColumnCount {
	counts := make([]ColumnCount, 0, df.Ncol())
	for _, name := range df.Names() {
		n := 0
		for _, na := range df.Col(name).IsNaN() {
			if na {
				n++
			}
		}
		counts = append(counts, ColumnCount{Column: name, Count: n})
	}
	return counts
}

// ColumnCount 列名和计数
type ColumnCount struct {
	Column string
	Count  int
}
