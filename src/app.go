package main

import (
	"fmt"
	"io"
	"os"

	"HappinessInsights/src/config"
	"HappinessInsights/src/processor"
	"HappinessInsights/src/storage"
	"HappinessInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
)

// app 每个子命令共享的配置和日志
type app struct {
	cfg    *config.Config
	logger *storage.Logger
}

// newApp 读取配置并初始化日志，每次运行分配一个run_id
func newApp(configPath string, console io.Writer) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := storage.NewLogger(cfg.LogName, console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Close()
		return nil, err
	}
	if cfg.LogMaxSize != "" {
		if _, err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
			fmt.Fprintln(os.Stderr, "log rotate:", err)
		}
	}

	logger.AddFields("run_id", uuid.NewString())
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) Close() error {
	return a.logger.Close()
}

// schema 配置中的列定义转换为processor.Schema
func (a *app) schema() (processor.Schema, error) {
	var s processor.Schema
	for _, c := range a.cfg.Schema {
		t, err := processor.ParseColumnType(c.Type)
		if err != nil {
			return processor.Schema{}, fmt.Errorf("column %q: %w", c.Name, err)
		}
		s.Columns = append(s.Columns, processor.Column{Name: c.Name, Type: t})
	}
	return s, nil
}

func (a *app) sources() []processor.Source {
	sources := make([]processor.Source, len(a.cfg.Sources))
	for i, s := range a.cfg.Sources {
		sources[i] = processor.Source{Year: s.Year, Path: s.Path}
	}
	return sources
}

func (a *app) loadOptions() processor.LoadOptions {
	opts := processor.LoadOptions{Encoding: a.cfg.Encoding, Sheet: a.cfg.Sheet}
	if r := []rune(a.cfg.Delimiter); len(r) > 0 {
		opts.Delimiter = r[0]
	}
	return opts
}

// clean 读取全部年度文件，填充缺失值并写出导出文件
func (a *app) clean() (dataframe.DataFrame, error) {
	schema, err := a.schema()
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	a.logger.Info("loading sources", "count", len(a.cfg.Sources), "encoding", a.cfg.Encoding)
	df, err := processor.LoadSources(a.sources(), schema, a.loadOptions())
	if err != nil {
		a.logger.Error("ingestion failed", "error", err)
		return dataframe.DataFrame{}, err
	}
	a.logger.Info("sources merged", "rows", df.Nrow(), "columns", df.Ncol())

	for _, c := range processor.NullCounts(df) {
		if c.Count > 0 {
			a.logger.Warning("missing values filled with 0", "column", c.Column, "count", c.Count)
		}
	}
	df = processor.FillNA(df)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	if err := utils.SaveToCSV(df, a.cfg.Output); err != nil {
		a.logger.Error("export failed", "path", a.cfg.Output, "error", err)
		return dataframe.DataFrame{}, err
	}
	a.logger.Info("export written", "path", a.cfg.Output, "rows", df.Nrow())

	if a.cfg.XLSXOutput != "" {
		if err := utils.SaveToExcel(df, a.cfg.XLSXOutput); err != nil {
			a.logger.Error("xlsx export failed", "path", a.cfg.XLSXOutput, "error", err)
			return dataframe.DataFrame{}, err
		}
		a.logger.Info("xlsx export written", "path", a.cfg.XLSXOutput)
	}
	return df, nil
}

// loadExport 读回导出文件
func (a *app) loadExport() (dataframe.DataFrame, error) {
	schema, err := a.schema()
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	df, err := utils.LoadExport(a.cfg.Output, schema.OutputTypes())
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%w (run the clean command first)", err)
	}
	return df, nil
}
