package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"HappinessInsights/src/processor"
	"HappinessInsights/src/storage"
	"HappinessInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() dataframe.DataFrame {
	col := func(name string, vals ...float64) series.Series {
		return series.New(vals, series.Float, name)
	}
	return dataframe.New(
		series.New([]string{"CountryB", "CountryA", "CountryC", "CountryA", "CountryB"}, series.String, processor.ColCountry),
		col(processor.ColHappiness, 5.1, 7.2, 4.5, 7.5, 4.9),
		col(processor.ColEconomy, 0.8, 1.3, 1.1, 1.4, 0.7),
		col(processor.ColSocial, 0.9, 1.1, 1.2, 1.2, 0.8),
		col(processor.ColHealth, 0.6, 0.9, 0.5, 0.95, 0.55),
		col(processor.ColFreedom, 0.4, 0.6, 0.3, 0.65, 0.35),
		col(processor.ColTrust, 0.1, 0.4, 0.1, 0.45, 0.05),
		col(processor.ColGenerosity, 0.2, 0.3, 0.1, 0.2, 0.25),
		series.New([]int{2016, 2016, 2016, 2015, 2015}, series.Int, processor.ColYear),
	)
}

type fixture struct {
	path   string
	store  *Store
	logger *storage.Logger
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "World_happiness_report.csv")
	require.NoError(t, utils.SaveToCSV(sample(), path))

	logger, err := storage.NewLogger(filepath.Join(dir, "app.log"), io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	store := NewStore(path, processor.DefaultSchema().OutputTypes())
	require.NoError(t, store.Load())

	srv, err := NewServer(store, logger, NewMetrics(), Options{TopN: 10})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{path: path, store: store, logger: logger, server: ts}
}

func (f *fixture) getJSON(t *testing.T, path string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestYearsAndCountries(t *testing.T) {
	f := newFixture(t)

	var years []int
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/years", &years))
	assert.Equal(t, []int{2015, 2016}, years)

	var countries []string
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/countries?year=2016", &countries))
	assert.Equal(t, []string{"CountryA", "CountryB", "CountryC"}, countries)

	// 默认取最小的年份
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/countries", &countries))
	assert.Equal(t, []string{"CountryA", "CountryB"}, countries)
}

func TestData(t *testing.T) {
	f := newFixture(t)

	var rows []map[string]interface{}
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/data?year=2016", &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "CountryB", rows[0]["country"])
	assert.Equal(t, 2016.0, rows[0]["year"])

	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/data?year=2016&country=CountryC&country=CountryA", &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "CountryA", rows[0]["country"])
	assert.Equal(t, "CountryC", rows[1]["country"])

	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/data?year=2030", &rows))
	assert.Empty(t, rows)

	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, f.getJSON(t, "/api/data?year=abc", &body))
	assert.Contains(t, body["error"], "invalid year")
}

func TestKPIs(t *testing.T) {
	f := newFixture(t)

	var kpi map[string]interface{}
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/kpis?year=2016", &kpi))
	assert.InDelta(t, 5.6, kpi["avg_happiness"], 1e-9)
	assert.Equal(t, "CountryA", kpi["top_gdp_country"])
	assert.InDelta(t, 1.3, kpi["top_gdp"], 1e-9)
	assert.InDelta(t, 2.0/3.0, kpi["avg_life_expectancy"], 1e-9)
	assert.Equal(t, 3.0, kpi["countries"])

	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/kpis?year=2030", &kpi))
	assert.Nil(t, kpi["avg_happiness"])
	assert.Equal(t, 0.0, kpi["countries"])
}

func TestTop(t *testing.T) {
	f := newFixture(t)

	var rows []map[string]interface{}
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/top?year=2016&n=2", &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "CountryA", rows[0]["country"])
	assert.Equal(t, "CountryB", rows[1]["country"])

	assert.Equal(t, http.StatusBadRequest, f.getJSON(t, "/api/top?n=-1", nil))
}

func TestCorrelation(t *testing.T) {
	f := newFixture(t)

	var corr struct {
		Columns   []string     `json:"columns"`
		Values    [][]*float64 `json:"values"`
		Undefined [][2]string  `json:"undefined"`
	}
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/correlation?year=2016", &corr))
	require.Len(t, corr.Values, 4)
	for i := range corr.Columns {
		require.NotNil(t, corr.Values[i][i])
		assert.Equal(t, 1.0, *corr.Values[i][i])
	}
	assert.Empty(t, corr.Undefined)

	// 只有一个国家时相关系数无定义，序列化为null
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/correlation?year=2016&country=CountryA", &corr))
	assert.Nil(t, corr.Values[0][1])
	assert.NotEmpty(t, corr.Undefined)
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/?year=2016&country=CountryA")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Contains(t, page, "Global Insights Dashboard")
	assert.Contains(t, page, `value="CountryA" checked`)
	assert.NotContains(t, page, `value="CountryB" checked`)
	assert.Contains(t, page, "/charts/scatter.png?country=CountryA&amp;year=2016")
}

func TestEmptyCountrySelection(t *testing.T) {
	f := newFixture(t)

	var rows []map[string]interface{}
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/data?year=2016&country=", &rows))
	assert.Empty(t, rows)

	// 表单里的空值和勾选的国家一起提交
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/api/data?year=2016&country=&country=CountryC", &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "CountryC", rows[0]["country"])

	resp, err := http.Get(f.server.URL + "/charts/scatter.png?year=2016&country=")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(f.server.URL + "/?year=2016&country=")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	page := string(body)
	assert.Contains(t, page, `value="CountryA">`)
	assert.NotContains(t, page, `value="CountryA" checked`)
	assert.NotContains(t, page, `id="all" checked`)
	assert.NotContains(t, page, "/charts/scatter.png")
}

func TestChart(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"scatter", "top", "correlation"} {
		resp, err := http.Get(f.server.URL + "/charts/" + name + ".png?year=2016")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, name)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		_, err = png.Decode(resp.Body)
		resp.Body.Close()
		assert.NoError(t, err, name)
	}

	resp, err := http.Get(f.server.URL + "/charts/scatter.png?year=2030")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	var health map[string]interface{}
	assert.Equal(t, http.StatusOK, f.getJSON(t, "/healthz", &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, 5.0, health["rows"])

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `happiness_dashboard_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestLogsStream(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.server.URL+"/logs", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// 订阅在响应头发送之前完成
	f.logger.Info("hello dashboard", "rows", 5)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "hello dashboard")
}

func TestStoreWatchReload(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 4)
	go f.store.Watch(ctx, f.logger, func(err error) { reloaded <- err })
	time.Sleep(100 * time.Millisecond)

	smaller := sample().Subset([]int{0, 1})
	require.NoError(t, utils.SaveToCSV(smaller, f.path))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("export was not reloaded")
	}
	df, _ := f.store.Frame()
	assert.Equal(t, 2, df.Nrow())
}

func TestStoreLoadKeepsPreviousData(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.path, []byte("Country\nA\n"), 0644))

	err := f.store.Load()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing column"))

	df, _ := f.store.Frame()
	assert.Equal(t, 5, df.Nrow())
}
