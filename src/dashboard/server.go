// Package dashboard 通过HTTP提供导出文件的筛选查看
package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"HappinessInsights/src/charts"
	"HappinessInsights/src/processor"
	"HappinessInsights/src/storage"
	"HappinessInsights/src/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-gota/gota/dataframe"
)

//go:embed templates/index.html
var templates embed.FS

// Options 看板参数
type Options struct {
	TopN int
}

// Server 看板的路由和处理函数
type Server struct {
	store   *Store
	logger  *storage.Logger
	metrics *Metrics
	topN    int
	page    *template.Template
	router  chi.Router
}

func NewServer(store *Store, logger *storage.Logger, metrics *Metrics, opts Options) (*Server, error) {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	page, err := template.New("index.html").Funcs(template.FuncMap{
		"num": formatNum,
		"inc": func(i int) int { return i + 1 },
	}).ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	s := &Server{
		store:   store,
		logger:  logger,
		metrics: metrics,
		topN:    opts.TopN,
		page:    page,
	}
	s.router = s.routes()
	return s, nil
}

// Handler 返回根路由
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/logs", s.handleLogs)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/years", s.handleYears)
		r.Get("/countries", s.handleCountries)
		r.Get("/data", s.handleData)
		r.Get("/kpis", s.handleKPIs)
		r.Get("/top", s.handleTop)
		r.Get("/correlation", s.handleCorrelation)
	})

	r.Route("/charts", func(r chi.Router) {
		r.Get("/scatter.png", s.handleChart(func(w io.Writer, df dataframe.DataFrame) error {
			return charts.Scatter(w, df, processor.ColEconomy, processor.ColHappiness, 5)
		}))
		r.Get("/top.png", s.handleChart(func(w io.Writer, df dataframe.DataFrame) error {
			groups, err := processor.SumByYearCountry(df, processor.ColHappiness)
			if err != nil {
				return err
			}
			return charts.TopBar(w, processor.TopN(groups, s.topN), processor.ColHappiness)
		}))
		r.Get("/correlation.png", s.handleChart(func(w io.Writer, df dataframe.DataFrame) error {
			m, err := processor.CorrelationMatrix(df, correlationColumns)
			if m == nil {
				return err
			}
			return charts.CorrelationHeatmap(w, m)
		}))
	})
	return r
}

// selection 解析year和country参数，year为空时取最小的年份
// 没有country参数表示全部国家；country=（空值）表示一个都不选
type selection struct {
	Year      int
	Countries []string // nil为全部，非nil的空切片为不选
}

func (s *Server) parseSelection(r *http.Request) (selection, error) {
	q := r.URL.Query()
	var sel selection
	if values, ok := q["country"]; ok {
		sel.Countries = make([]string, 0, len(values))
		for _, c := range values {
			if c != "" {
				sel.Countries = append(sel.Countries, c)
			}
		}
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return sel, fmt.Errorf("invalid year %q", v)
		}
		sel.Year = year
		return sel, nil
	}
	if years := s.store.Years(); len(years) > 0 {
		sel.Year = years[0]
	}
	return sel, nil
}

func (s *Server) selected(w http.ResponseWriter, r *http.Request) (selection, dataframe.DataFrame, bool) {
	sel, err := s.parseSelection(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return sel, dataframe.DataFrame{}, false
	}
	df, err := s.store.Select(sel.Year, sel.Countries)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return sel, dataframe.DataFrame{}, false
	}
	return sel, df, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	df, loadedAt := s.store.Frame()
	status := "ok"
	if loadedAt.IsZero() {
		status = "empty"
	}
	render.JSON(w, r, map[string]interface{}{
		"status":    status,
		"rows":      df.Nrow(),
		"loaded_at": loadedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years := s.store.Years()
	if years == nil {
		years = []int{}
	}
	render.JSON(w, r, years)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	sel, err := s.parseSelection(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	countries, err := s.store.Countries(sel.Year)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if countries == nil {
		countries = []string{}
	}
	render.JSON(w, r, countries)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	_, df, ok := s.selected(w, r)
	if !ok {
		return
	}
	rows, err := recordViews(df)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, rows)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	_, df, ok := s.selected(w, r)
	if !ok {
		return
	}
	view, err := kpis(df)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, view)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	n := s.topN
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid n %q", v))
			return
		}
		n = parsed
	}
	_, df, ok := s.selected(w, r)
	if !ok {
		return
	}
	rows, err := s.top(df, n)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, rows)
}

func (s *Server) top(df dataframe.DataFrame, n int) ([]recordView, error) {
	if df.Nrow() == 0 {
		return []recordView{}, nil
	}
	top, err := processor.HighestN(df, processor.ColHappiness, n)
	if err != nil {
		return nil, err
	}
	return recordViews(top)
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	_, df, ok := s.selected(w, r)
	if !ok {
		return
	}
	view, err := correlation(df)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, view)
}

func (s *Server) handleChart(draw func(io.Writer, dataframe.DataFrame) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, df, ok := s.selected(w, r)
		if !ok {
			return
		}
		if df.Nrow() == 0 {
			s.writeError(w, r, http.StatusNotFound, processor.ErrEmptyTable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := draw(w, df); err != nil {
			w.Header().Del("Content-Type")
			s.writeError(w, r, http.StatusInternalServerError, err)
		}
	}
}

// handleLogs 把日志实时推送给客户端，直到客户端断开
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	logChan, cancel := s.logger.Subscribe()
	defer cancel()

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprintln(w, msg); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

type countryOption struct {
	Name    string
	Checked bool
}

type pageData struct {
	Years     []int
	Year      int
	Countries []countryOption
	AllChosen bool
	Query     template.URL
	Rows      []recordView
	KPI       kpiView
	Top       []recordView
	Corr      correlationView
	LoadedAt  string
	Error     string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, status := s.pageData(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) pageData(r *http.Request) (pageData, int) {
	data := pageData{Years: s.store.Years()}
	_, loadedAt := s.store.Frame()
	if !loadedAt.IsZero() {
		data.LoadedAt = loadedAt.Format("2006-01-02 15:04:05")
	}

	sel, err := s.parseSelection(r)
	if err != nil {
		data.Error = err.Error()
		return data, http.StatusBadRequest
	}
	data.Year = sel.Year
	data.AllChosen = sel.Countries == nil

	countries, err := s.store.Countries(sel.Year)
	if err != nil {
		data.Error = err.Error()
		return data, http.StatusInternalServerError
	}
	checked := 0
	for _, c := range countries {
		opt := countryOption{Name: c, Checked: data.AllChosen || utils.Contains(sel.Countries, c)}
		if opt.Checked {
			checked++
		}
		data.Countries = append(data.Countries, opt)
	}
	data.AllChosen = len(countries) > 0 && checked == len(countries)

	q := url.Values{"year": {strconv.Itoa(sel.Year)}}
	for _, c := range sel.Countries {
		q.Add("country", c)
	}
	if sel.Countries != nil && len(sel.Countries) == 0 {
		q.Set("country", "")
	}
	data.Query = template.URL(q.Encode())

	df, err := s.store.Select(sel.Year, sel.Countries)
	if err == nil {
		data.Rows, err = recordViews(df)
	}
	if err == nil {
		data.KPI, err = kpis(df)
	}
	if err == nil {
		data.Top, err = s.top(df, s.topN)
	}
	if err == nil {
		data.Corr, err = correlation(df)
	}
	if err != nil {
		data.Error = err.Error()
		return data, http.StatusInternalServerError
	}
	return data, http.StatusOK
}

func formatNum(v jsonFloat) string {
	if math.IsNaN(float64(v)) {
		return "-"
	}
	return strconv.FormatFloat(float64(v), 'f', 2, 64)
}
