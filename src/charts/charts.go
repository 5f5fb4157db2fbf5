// Package charts 用gonum/plot生成探索性分析的PNG图
package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"HappinessInsights/src/processor"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	barColor  = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	lineColor = color.RGBA{R: 0, G: 100, B: 0, A: 255}
	redColor  = color.RGBA{R: 220, G: 20, B: 60, A: 255}
	tealColor = color.RGBA{R: 0, G: 128, B: 128, A: 255}
)

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	return p
}

// render 以PNG格式写入w
func render(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render %q: %w", p.Title.Text, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Histogram 某一列的分布
func Histogram(w io.Writer, df dataframe.DataFrame, col string, bins int) error {
	values, err := columnValues(df, col)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("histogram %s: %w", col, processor.ErrEmptyTable)
	}
	if bins <= 0 {
		bins = 20
	}

	p := newPlot("Distribution of "+col, col, "Count")
	h, err := plotter.NewHist(values, bins)
	if err != nil {
		return err
	}
	h.FillColor = barColor
	p.Add(h)
	return render(p, w, 10*vg.Inch, 6*vg.Inch)
}

// YearMeans 每年均值的折线图
func YearMeans(w io.Writer, means []processor.YearValue, col string) error {
	if len(means) == 0 {
		return fmt.Errorf("year means: %w", processor.ErrEmptyTable)
	}
	points := make(plotter.XYs, 0, len(means))
	for _, m := range means {
		if math.IsNaN(m.Value) {
			continue
		}
		points = append(points, plotter.XY{X: float64(m.Year), Y: m.Value})
	}

	p := newPlot("Average "+col+" Over Years", processor.ColYear, "Average "+col)
	line, scatter, err := plotter.NewLinePoints(points)
	if err != nil {
		return err
	}
	line.Color = lineColor
	line.Width = vg.Points(2)
	scatter.GlyphStyle.Color = lineColor
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(line, scatter)
	p.X.Tick.Marker = yearTicks(means)
	return render(p, w, 10*vg.Inch, 6*vg.Inch)
}

// yearTicks 只在整数年份上标刻度
func yearTicks(means []processor.YearValue) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, len(means))
	for i, m := range means {
		ticks[i] = plot.Tick{Value: float64(m.Year), Label: strconv.Itoa(m.Year)}
	}
	return ticks
}

// Scatter 按年份着色的散点图，threshold不是NaN时画一条水平虚线
func Scatter(w io.Writer, df dataframe.DataFrame, xCol, yCol string, threshold float64) error {
	xs, err := columnFloats(df, xCol)
	if err != nil {
		return err
	}
	ys, err := columnFloats(df, yCol)
	if err != nil {
		return err
	}
	years, err := processor.Years(df)
	if err != nil {
		return err
	}
	rowYears, err := df.Col(processor.ColYear).Int()
	if err != nil {
		return err
	}

	p := newPlot(xCol+" vs "+yCol, xCol, yCol)
	for i, year := range years {
		var points plotter.XYs
		for j := range xs {
			if rowYears[j] != year || math.IsNaN(xs[j]) || math.IsNaN(ys[j]) {
				continue
			}
			points = append(points, plotter.XY{X: xs[j], Y: ys[j]})
		}
		if len(points) == 0 {
			continue
		}
		s, err := plotter.NewScatter(points)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(3)
		p.Add(s)
		p.Legend.Add(strconv.Itoa(year), s)
	}

	if !math.IsNaN(threshold) {
		line := plotter.NewFunction(func(float64) float64 { return threshold })
		line.Color = redColor
		line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Threshold %v", threshold), line)
	}
	p.Legend.Top = true
	return render(p, w, 10*vg.Inch, 7*vg.Inch)
}

// TopBar 水平条形图，第一名在最上面
func TopBar(w io.Writer, groups []processor.GroupValue, col string) error {
	if len(groups) == 0 {
		return fmt.Errorf("top bar: %w", processor.ErrEmptyTable)
	}
	n := len(groups)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, g := range groups {
		values[n-1-i] = g.Value
		names[n-1-i] = fmt.Sprintf("%s (%d)", g.Country, g.Year)
	}

	p := newPlot(fmt.Sprintf("Top %d by %s", n, col), col, "")
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalY(names...)
	return render(p, w, 10*vg.Inch, vg.Length(n)*0.4*vg.Inch+2*vg.Inch)
}

// FactorContributions 各年份因子均值的分组条形图，df为processor.FactorContributions的结果
func FactorContributions(w io.Writer, df dataframe.DataFrame) error {
	if df.Nrow() == 0 {
		return fmt.Errorf("factor contributions: %w", processor.ErrEmptyTable)
	}
	years, err := df.Col(processor.ColYear).Int()
	if err != nil {
		return err
	}
	var factors []string
	for _, name := range df.Names() {
		if name != processor.ColYear {
			factors = append(factors, name)
		}
	}

	p := newPlot("Factors Contribution to Happiness", "", "Mean Value")
	width := vg.Points(60 / float64(len(years)))
	for i, year := range years {
		values := make(plotter.Values, len(factors))
		for j, f := range factors {
			v := df.Col(f).Elem(i).Float()
			if math.IsNaN(v) {
				v = 0
			}
			values[j] = v
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(i)-float64(len(years)-1)/2) * width
		p.Add(bars)
		p.Legend.Add(strconv.Itoa(year), bars)
	}
	p.Legend.Top = true
	p.NominalX(factors...)
	p.X.Tick.Label.Rotation = math.Pi / 8
	p.X.Tick.Label.XAlign = draw.XRight
	return render(p, w, 14*vg.Inch, 7*vg.Inch)
}

// LowestBar 取值最低的国家的条形图，df的第一列为国家
func LowestBar(w io.Writer, df dataframe.DataFrame, col string) error {
	if df.Nrow() == 0 {
		return fmt.Errorf("lowest bar: %w", processor.ErrEmptyTable)
	}
	values, err := columnFloats(df, col)
	if err != nil {
		return err
	}
	p := newPlot("Countries with Lowest "+col, "", col)
	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = tealColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(df.Col(processor.ColCountry).Records()...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return render(p, w, 12*vg.Inch, 6*vg.Inch)
}

// correlationGrid 把相关矩阵适配为plotter.GridXYZ，NaN按0显示
type correlationGrid struct {
	m *processor.Matrix
}

func (g correlationGrid) Dims() (c, r int) { return len(g.m.Columns), len(g.m.Columns) }
func (g correlationGrid) X(c int) float64  { return float64(c) }
func (g correlationGrid) Y(r int) float64  { return float64(r) }
func (g correlationGrid) Z(c, r int) float64 {
	v := g.m.At(r, c)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// CorrelationHeatmap 相关矩阵热力图，每个格子标注数值
func CorrelationHeatmap(w io.Writer, m *processor.Matrix) error {
	if m == nil || len(m.Columns) == 0 {
		return fmt.Errorf("heatmap: %w", processor.ErrEmptyTable)
	}
	p := newPlot("Correlation Matrix", "", "")
	hm := plotter.NewHeatMap(correlationGrid{m}, palette.Heat(12, 1))
	hm.Min, hm.Max = -1, 1
	p.Add(hm)

	var labels plotter.XYLabels
	for i := range m.Columns {
		for j := range m.Columns {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(j), Y: float64(i)})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%.2f", m.At(i, j)))
		}
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	p.Add(l)
	p.NominalX(m.Columns...)
	p.NominalY(m.Columns...)
	p.X.Tick.Label.Rotation = math.Pi / 8
	p.X.Tick.Label.XAlign = draw.XRight
	return render(p, w, 10*vg.Inch, 8*vg.Inch)
}

func columnFloats(df dataframe.DataFrame, col string) ([]float64, error) {
	for _, name := range df.Names() {
		if name == col {
			return df.Col(col).Float(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", processor.ErrUnknownColumn, col)
}

// columnValues 去掉NaN后的列值
func columnValues(df dataframe.DataFrame, col string) (plotter.Values, error) {
	vals, err := columnFloats(df, col)
	if err != nil {
		return nil, err
	}
	out := make(plotter.Values, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out, nil
}
