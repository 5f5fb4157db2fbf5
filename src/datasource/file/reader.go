// reader.go
package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoHeader 文件中没有标题行
	ErrNoHeader = errors.New("source has no header row")
	// ErrDuplicateHeader 标题行中有重复列名
	ErrDuplicateHeader = errors.New("source has duplicate column names")
	// ErrMalformed 文件能打开，但内容无法解析（行的列数不对、引号错误、数值列不是数字）
	ErrMalformed = errors.New("malformed source")
)

// CellError 数值列中的值无法按声明的类型解析
type CellError struct {
	Row    int // 数据行号，从1开始，不含标题行
	Column string
	Type   series.Type
	Value  string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d column %q: not a%s %s: %q", e.Row, e.Column, article(e.Type), e.Type, e.Value)
}

func (e *CellError) Is(target error) bool { return target == ErrMalformed }

func article(t series.Type) string {
	if t == series.Int {
		return "n"
	}
	return ""
}

// 数值列中视为缺失值的文本，与pandas read_csv的默认值一致
var numericNaNValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "<nil>", "-"}

// ReadOptions 读取一个年度数据源的选项
type ReadOptions struct {
	Encoding  string                 // utf-8, latin1, windows-1252, gbk
	Sheet     string                 // xlsx工作表名，为空时取第一个
	Types     map[string]series.Type // 按列名指定类型，未指定的列按字符串读取
	Delimiter rune                   // 为0时使用逗号
}

// ReadSource 按扩展名读取 .csv 或 .xlsx 文件为DataFrame
func ReadSource(path string, opts ReadOptions) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, opts)
	default:
		return ReadCSV(path, opts)
	}
}

// ReadCSV 读取带标题行的分隔文本文件
func ReadCSV(path string, opts ReadOptions) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	dec, err := decoderFor(opts.Encoding)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	r := csv.NewReader(transform.NewReader(f, dec.NewDecoder()))
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	records, err := r.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %w", ErrMalformed, perr)
		}
		return dataframe.DataFrame{}, fmt.Errorf("failed to read csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrNoHeader
	}

	return recordsToDataFrame(records[0], records[1:], opts.Types)
}

// ReadXLSX 使用tealeg/xlsx读取工作表，第一行为标题行
func ReadXLSX(path string, opts ReadOptions) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, ErrNoHeader
	}
	sheet := xlFile.Sheets[0]
	if opts.Sheet != "" {
		s, ok := xlFile.Sheet[opts.Sheet]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("sheet %q not found in %s", opts.Sheet, path)
		}
		sheet = s
	}
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, ErrNoHeader
	}

	// 3. 转换为行记录
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}
	// 去掉标题行末尾的空单元格
	for len(headers) > 0 && strings.TrimSpace(headers[len(headers)-1]) == "" {
		headers = headers[:len(headers)-1]
	}

	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		values := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				values[i] = cell.Value
				if cell.Value != "" {
					empty = false
				}
			}
		}
		// 跳过完全空的行
		if empty {
			continue
		}
		rows = append(rows, values)
	}

	// 4. 转换为Gota DataFrame
	return recordsToDataFrame(headers, rows, opts.Types)
}

// recordsToDataFrame 按列构建Series，标题统一做NFC规范化并去除首尾空白
func recordsToDataFrame(header []string, rows [][]string, types map[string]series.Type) (dataframe.DataFrame, error) {
	if len(header) == 0 {
		return dataframe.DataFrame{}, ErrNoHeader
	}

	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if seen[name] {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %q", ErrDuplicateHeader, name)
		}
		seen[name] = true
		names[i] = name
	}

	// 准备数据列
	seriesList := make([]series.Series, len(names))
	for i, colName := range names {
		t, ok := types[colName]
		if !ok {
			t = series.String
		}

		column := make([]string, len(rows))
		for j, row := range rows {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cell := normalizeCell(v, t)
			if err := checkCell(cell, t); err != nil {
				return dataframe.DataFrame{}, &CellError{Row: j + 1, Column: colName, Type: t, Value: v}
			}
			column[j] = cell
		}
		seriesList[i] = series.New(column, t, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// normalizeCell 把各种缺失值写法统一为gota识别的"NaN"
// 字符串列只有空值视为缺失，避免把 "NA"（纳米比亚）当成缺失
func normalizeCell(v string, t series.Type) string {
	trimmed := strings.TrimSpace(v)
	if t == series.String {
		if trimmed == "" {
			return "NaN"
		}
		return v
	}
	for _, nan := range numericNaNValues {
		if trimmed == nan {
			return "NaN"
		}
	}
	return trimmed
}

// checkCell 数值列的值必须能按类型解析，gota会把解析失败的值静默变成NaN
func checkCell(cell string, t series.Type) error {
	if cell == "NaN" {
		return nil
	}
	var err error
	switch t {
	case series.Float:
		_, err = strconv.ParseFloat(cell, 64)
	case series.Int:
		_, err = strconv.Atoi(cell)
	}
	return err
}

// NormalizeHeader 去除BOM和首尾空白并做NFC规范化
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.TrimSpace(norm.NFC.String(h))
}

func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		// 带BOM的UTF-8文件解码时去掉BOM
		return unicode.UTF8BOM, nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "gbk":
		return simplifiedchinese.GBK, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0755)
}

// EnsureParent 确保文件所在目录存在
func EnsureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return ensureDir(dir)
}
