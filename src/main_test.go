package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Country,Happiness Score,Economy (GDP per Capita),Social support,Health (Life Expectancy),Freedom,Trust (Government Corruption),Generosity"

// setup 在临时目录写两年的源文件和配置文件
func setup(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	files := map[string][]string{
		"2015.csv": {header, "CountryA,7.2,1.3,1.1,0.9,0.6,0.4,0.3", "CountryB,5.1,0.8,0.9,0.6,0.4,0.1,0.2", "CountryC,4.5,1.1,1.2,0.5,0.3,0.1,0.1"},
		"2016.csv": {header, "CountryA,7.5,1.4,1.2,0.95,0.65,0.45,", "CountryB,4.9,0.7,,0.55,0.35,0.05,0.25", "CountryC,4.2,1.2,1.3,0.45,0.2,0.1,0.1"},
	}
	for name, lines := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0644))
	}

	cfg := fmt.Sprintf(`
sources:
  - year: 2015
    path: %[1]s/2015.csv
  - year: 2016
    path: %[1]s/2016.csv
output: %[1]s/out/World_happiness_report.csv
xlsx_output: %[1]s/out/World_happiness_report.xlsx
chart_dir: %[1]s/charts
log_name: %[1]s/app.log
top_n: 3
`, dir)
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	return dir, cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	configPath = ""
	return stdout.String(), err
}

func TestCleanAndReport(t *testing.T) {
	dir, cfg := setup(t)

	out, err := run(t, "clean", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 6 rows")

	data, err := os.ReadFile(filepath.Join(dir, "out", "World_happiness_report.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, header+",Year", lines[0])
	assert.Equal(t, "CountryA,7.5,1.4,1.2,0.95,0.65,0.45,0,2016", lines[4])
	assert.FileExists(t, filepath.Join(dir, "out", "World_happiness_report.xlsx"))

	logData, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "run_id=")
	assert.Contains(t, string(logData), "missing values filled with 0")

	out, err = run(t, "report", "--config", cfg, "--top", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Top 1 happy countries overall")
	assert.Contains(t, out, "CountryA")
	assert.Contains(t, out, "5.600")
	assert.Contains(t, out, "7.500")
}

func TestCleanDelimiter(t *testing.T) {
	dir, cfg := setup(t)
	for _, name := range []string{"2015.csv", "2016.csv"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(string(data), ",", ";")), 0644))
	}
	f, err := os.OpenFile(cfg, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("delimiter: \";\"\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := run(t, "clean", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 6 rows")
}

func TestCleanMalformedValue(t *testing.T) {
	dir, cfg := setup(t)
	bad := header + "\nCountryA,7.5,1.4,1.2,0.95,0.65,0.45,0.3\nCountryT,seven point two,0.2,0.1,0.2,0.3,0.1,0.2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2016.csv"), []byte(bad), 0644))

	_, err := run(t, "clean", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema mismatch in 2016")
	assert.Contains(t, err.Error(), "not a float")
	assert.NoFileExists(t, filepath.Join(dir, "out", "World_happiness_report.csv"))
}

func TestChartsCommand(t *testing.T) {
	dir, cfg := setup(t)
	_, err := run(t, "clean", "--config", cfg)
	require.NoError(t, err)

	out, err := run(t, "charts", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "gdp_vs_happiness.png")
	assert.FileExists(t, filepath.Join(dir, "charts", "top_countries.png"))
}

func TestCleanMissingSource(t *testing.T) {
	dir, cfg := setup(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "2016.csv")))

	_, err := run(t, "clean", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing source for 2016")
	assert.NoFileExists(t, filepath.Join(dir, "out", "World_happiness_report.csv"))
}

func TestReportWithoutExport(t *testing.T) {
	_, cfg := setup(t)
	_, err := run(t, "report", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the clean command first")
}
