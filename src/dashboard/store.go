package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"HappinessInsights/src/datasource/file"
	"HappinessInsights/src/processor"
	"HappinessInsights/src/storage"
	"HappinessInsights/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Store 看板读取的导出文件，文件变化时重新加载
type Store struct {
	path  string
	types map[string]series.Type

	mu       sync.RWMutex
	df       dataframe.DataFrame
	loadedAt time.Time
}

func NewStore(path string, types map[string]series.Type) *Store {
	return &Store{path: path, types: types}
}

// Load 读取导出文件，失败时保留上一次的数据
func (s *Store) Load() error {
	df, err := utils.LoadExport(s.path, s.types)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.df = df
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Frame 当前数据
func (s *Store) Frame() (dataframe.DataFrame, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.df, s.loadedAt
}

// Years 升序的年份列表
func (s *Store) Years() []int {
	df, _ := s.Frame()
	if df.Nrow() == 0 {
		return nil
	}
	years, err := processor.Years(df)
	if err != nil {
		return nil
	}
	sort.Ints(years)
	return years
}

// Select 某一年指定国家的行，countries为nil表示全部国家，非nil的空切片返回空表
func (s *Store) Select(year int, countries []string) (dataframe.DataFrame, error) {
	df, _ := s.Frame()
	if df.Nrow() == 0 {
		return df, nil
	}
	out := df.Filter(dataframe.F{Colname: processor.ColYear, Comparator: series.Eq, Comparando: year})
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("filter year %d: %w", year, out.Err)
	}
	if countries != nil && len(countries) == 0 {
		return out.Subset([]int{}), nil
	}
	if len(countries) > 0 && out.Nrow() > 0 {
		out = out.Filter(dataframe.F{Colname: processor.ColCountry, Comparator: series.In, Comparando: countries})
		if out.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("filter countries: %w", out.Err)
		}
	}
	return out, nil
}

// Countries 某一年出现的国家，按字母排序
func (s *Store) Countries(year int) ([]string, error) {
	df, err := s.Select(year, nil)
	if err != nil || df.Nrow() == 0 {
		return nil, err
	}
	countries := utils.Unique(df.Col(processor.ColCountry).Records())
	sort.Strings(countries)
	return countries, nil
}

// Watch 监控导出文件，写入或重新创建后重新加载，直到ctx结束
func (s *Store) Watch(ctx context.Context, logger *storage.Logger, onReload func(error)) error {
	monitor, err := file.NewFileMonitor(s.path)
	if err != nil {
		return err
	}
	defer monitor.Close()

	return monitor.Watch(ctx, func(path string) {
		err := s.Load()
		if err != nil {
			logger.Error("reload export failed", "path", path, "error", err)
		} else {
			df, _ := s.Frame()
			logger.Info("export reloaded", "path", path, "rows", df.Nrow())
		}
		if onReload != nil {
			onReload(err)
		}
	})
}
