package utils

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"HappinessInsights/src/datasource/file"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// SaveToCSV 把合并表写成带标题行的CSV，列顺序与DataFrame一致，不含行索引
// 先写临时文件再rename，监控导出文件的看板不会读到写了一半的文件
func SaveToCSV(df dataframe.DataFrame, filePath string) error {
	if df.Err != nil {
		return df.Err
	}
	if err := file.EnsureParent(filePath); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".*")
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(formatRecords(df)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

// formatRecords 数值按最短可还原的格式输出，缺失值输出为空
func formatRecords(df dataframe.DataFrame) [][]string {
	names := df.Names()
	records := make([][]string, df.Nrow()+1)
	records[0] = names
	for i := 1; i <= df.Nrow(); i++ {
		records[i] = make([]string, len(names))
	}

	for j, name := range names {
		col := df.Col(name)
		switch col.Type() {
		case series.Float:
			for i, v := range col.Float() {
				records[i+1][j] = formatFloat(v)
			}
		default:
			for i := 0; i < col.Len(); i++ {
				el := col.Elem(i)
				if el.IsNA() {
					continue
				}
				records[i+1][j] = el.String()
			}
		}
	}
	return records
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SaveToExcel 将DataFrame保存为xlsx文件
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	if err := file.EnsureParent(filePath); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sheet1"

	// 写入列名
	colNames := df.Names()
	header := make([]interface{}, len(colNames))
	for i, name := range colNames {
		header[i] = name
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	// 写入数据，按行写入
	columns := make([]series.Series, len(colNames))
	for i, name := range colNames {
		columns[i] = df.Col(name)
	}
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		row := make([]interface{}, len(colNames))
		for colIdx, col := range columns {
			el := col.Elem(rowIdx)
			if el.IsNA() {
				continue
			}
			switch col.Type() {
			case series.Float:
				row[colIdx] = el.Float()
			case series.Int:
				v, _ := el.Int()
				row[colIdx] = v
			default:
				row[colIdx] = el.String()
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// LoadExport 读回导出的CSV，types为各列类型（包括Year）
func LoadExport(filePath string, types map[string]series.Type) (dataframe.DataFrame, error) {
	df, err := file.ReadCSV(filePath, file.ReadOptions{Types: types})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load export %s: %w", filePath, err)
	}
	for name := range types {
		if !HasColumn(df, name) {
			return dataframe.DataFrame{}, fmt.Errorf("load export %s: missing column %q", filePath, name)
		}
	}
	return df, nil
}
