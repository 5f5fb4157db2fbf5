// Package report 把合并表上的各项分析整理为文本表格
package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"HappinessInsights/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode 输出格式
type Mode int

const (
	ASCII    Mode = iota // 终端表格
	Markdown             // Markdown表格
)

// Threshold 一个"A高于x且B低于y"的查询
type Threshold struct {
	Title      string
	Above      string
	AboveValue float64
	Below      string
	BelowValue float64
}

// Options 报告参数
type Options struct {
	TopN       int
	Years      []int       // 因子贡献的年份，为空时取表中所有年份
	Thresholds []Threshold // 为空时使用DefaultThresholds
}

// DefaultThresholds 面向NGO和政府的两个查询
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Title: "High social support, low happiness", Above: processor.ColSocial, AboveValue: 1, Below: processor.ColHappiness, BelowValue: 5},
		{Title: "High GDP, low happiness", Above: processor.ColEconomy, AboveValue: 1, Below: processor.ColHappiness, BelowValue: 5},
	}
}

// ThresholdResult 查询和它自己的结果
type ThresholdResult struct {
	Threshold
	Rows dataframe.DataFrame
}

// Report 一次分析的全部结果
type Report struct {
	Rows           int
	Describe       []processor.ColumnStats
	MeanByYear     []processor.YearValue
	TopOverall     []processor.GroupValue
	TopPerYear     dataframe.DataFrame
	Correlation    *processor.Matrix
	KeyCorrelation *processor.Matrix
	Factors        dataframe.DataFrame
	LowSocial      dataframe.DataFrame
	LowHealth      dataframe.DataFrame
	Thresholds     []ThresholdResult
	Warnings       []string
}

// Build 在合并表上执行全部分析查询
// 相关系数无定义时记录警告并继续，其他错误直接返回
func Build(df dataframe.DataFrame, opts Options) (*Report, error) {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if len(opts.Thresholds) == 0 {
		opts.Thresholds = DefaultThresholds()
	}
	if len(opts.Years) == 0 {
		years, err := processor.Years(df)
		if err != nil {
			return nil, err
		}
		opts.Years = years
	}

	r := &Report{Rows: df.Nrow()}
	var err error

	if r.Describe, err = processor.Describe(df); err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	if r.MeanByYear, err = processor.MeanByYear(df, processor.ColHappiness); err != nil {
		return nil, fmt.Errorf("mean by year: %w", err)
	}

	groups, err := processor.SumByYearCountry(df, processor.ColHappiness)
	if err != nil {
		return nil, fmt.Errorf("sum by year and country: %w", err)
	}
	r.TopOverall = processor.TopN(groups, opts.TopN)

	if r.TopPerYear, err = processor.TopNPerYear(df, processor.ColHappiness, opts.TopN); err != nil {
		return nil, fmt.Errorf("top per year: %w", err)
	}

	corrCols := []string{processor.ColHappiness, processor.ColEconomy, processor.ColSocial, processor.ColHealth}
	if r.Correlation, err = r.correlation(df, corrCols); err != nil {
		return nil, err
	}
	keyCols := []string{processor.ColHappiness, processor.ColEconomy, processor.ColHealth}
	if r.KeyCorrelation, err = r.correlation(df, keyCols); err != nil {
		return nil, err
	}

	if r.Factors, err = processor.FactorContributions(df, opts.Years, processor.Factors); err != nil {
		return nil, fmt.Errorf("factor contributions: %w", err)
	}

	ngo, err := processor.GroupMeans(df, processor.ColCountry, []string{processor.ColSocial, processor.ColGenerosity, processor.ColHealth})
	if err != nil {
		return nil, fmt.Errorf("country means: %w", err)
	}
	if r.LowSocial, err = processor.LowestN(ngo, processor.ColSocial, opts.TopN); err != nil {
		return nil, err
	}
	if r.LowHealth, err = processor.LowestN(ngo, processor.ColHealth, opts.TopN); err != nil {
		return nil, err
	}

	for _, th := range opts.Thresholds {
		rows, err := processor.ThresholdFilter(df, th.Above, th.AboveValue, th.Below, th.BelowValue)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", th.Title, err)
		}
		r.Thresholds = append(r.Thresholds, ThresholdResult{Threshold: th, Rows: rows})
	}
	return r, nil
}

func (r *Report) correlation(df dataframe.DataFrame, cols []string) (*processor.Matrix, error) {
	m, err := processor.CorrelationMatrix(df, cols)
	var undefined *processor.UndefinedCorrelationError
	if errors.As(err, &undefined) {
		r.Warnings = append(r.Warnings, undefined.Error())
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("correlation: %w", err)
	}
	return m, nil
}

// Render 按顺序输出所有表格
func (r *Report) Render(w io.Writer, mode Mode) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Rows: %d\n\n", r.Rows)
	for _, warn := range r.Warnings {
		fmt.Fprintf(&b, "WARNING: %s\n", warn)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
	}

	section(&b, mode, r.describeTable())
	section(&b, mode, r.meanTable())
	section(&b, mode, r.topTable())
	section(&b, mode, frameTable("Top happiest countries each year", r.TopPerYear,
		processor.ColYear, processor.ColCountry, processor.ColHappiness))
	section(&b, mode, matrixTable("Correlation matrix", r.Correlation))
	section(&b, mode, matrixTable("Correlation between key factors", r.KeyCorrelation))
	section(&b, mode, frameTable("Factors contribution to happiness", r.Factors, r.Factors.Names()...))
	section(&b, mode, frameTable("Countries with lowest social support", r.LowSocial,
		processor.ColCountry, processor.ColSocial))
	section(&b, mode, frameTable("Countries with lowest healthy life expectancy", r.LowHealth,
		processor.ColCountry, processor.ColHealth))
	for _, th := range r.Thresholds {
		title := fmt.Sprintf("%s (%s > %v, %s < %v)", th.Title, th.Above, th.AboveValue, th.Below, th.BelowValue)
		section(&b, mode, frameTable(title, th.Rows, processor.ColCountry, processor.ColYear, th.Above, th.Below))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, mode Mode, t table.Writer) {
	switch mode {
	case Markdown:
		b.WriteString(t.RenderMarkdown())
	default:
		b.WriteString(t.Render())
	}
	b.WriteString("\n\n")
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func (r *Report) describeTable() table.Writer {
	t := newTable("Summary statistics")
	t.AppendHeader(table.Row{"Column", "count", "mean", "std", "min", "25%", "50%", "75%", "max"})
	for _, s := range r.Describe {
		t.AppendRow(table.Row{s.Column, s.Count, num(s.Mean), num(s.Std), num(s.Min), num(s.Q25), num(s.Median), num(s.Q75), num(s.Max)})
	}
	rightAlign(t, 2, 9)
	return t
}

func (r *Report) meanTable() table.Writer {
	t := newTable("Average happiness score over years")
	t.AppendHeader(table.Row{processor.ColYear, processor.ColHappiness})
	for _, m := range r.MeanByYear {
		t.AppendRow(table.Row{m.Year, num(m.Value)})
	}
	rightAlign(t, 2, 2)
	return t
}

func (r *Report) topTable() table.Writer {
	t := newTable(fmt.Sprintf("Top %d happy countries overall", len(r.TopOverall)))
	t.AppendHeader(table.Row{"#", processor.ColYear, processor.ColCountry, processor.ColHappiness})
	for i, g := range r.TopOverall {
		t.AppendRow(table.Row{i + 1, g.Year, g.Country, num(g.Value)})
	}
	rightAlign(t, 4, 4)
	return t
}

func frameTable(title string, df dataframe.DataFrame, cols ...string) table.Writer {
	t := newTable(title)
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for i := 0; i < df.Nrow(); i++ {
		row := make(table.Row, len(cols))
		for j, c := range cols {
			el := df.Col(c).Elem(i)
			if f, ok := el.Val().(float64); ok {
				row[j] = num(f)
				continue
			}
			row[j] = el.String()
		}
		t.AppendRow(row)
	}
	if df.Nrow() == 0 {
		t.AppendFooter(table.Row{"(none)"})
	}
	return t
}

func matrixTable(title string, m *processor.Matrix) table.Writer {
	t := newTable(title)
	header := table.Row{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)
	for i, c := range m.Columns {
		row := table.Row{c}
		for j := range m.Columns {
			row = append(row, fmt.Sprintf("%.2f", m.At(i, j)))
		}
		t.AppendRow(row)
	}
	rightAlign(t, 2, len(m.Columns)+1)
	return t
}

func rightAlign(t table.Writer, from, to int) {
	var cfgs []table.ColumnConfig
	for n := from; n <= to; n++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(cfgs)
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.3f", v)
}
