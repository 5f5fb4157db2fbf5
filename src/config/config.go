package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// 环境变量前缀，HAPPINESS_LOG_LEVEL -> log_level，HAPPINESS_DASHBOARD__ADDR -> dashboard.addr
const (
	EnvPrefix     = "HAPPINESS_"
	EnvConfigPath = "HAPPINESS_CONFIG"
)

// Source 一个年度数据源
type Source struct {
	Year int    `koanf:"year" validate:"gt=0"`
	Path string `koanf:"path" validate:"required"`
}

// Column 数据表的一列
type Column struct {
	Name string `koanf:"name" validate:"required"`
	Type string `koanf:"type" validate:"oneof=string float int"`
}

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Sources    []Source `koanf:"sources" validate:"required,min=1,dive"`
	Encoding   string   `koanf:"encoding" validate:"oneof=utf-8 latin1 windows-1252 gbk"`
	Delimiter  string   `koanf:"delimiter" validate:"omitempty,len=1"` // CSV分隔符，默认逗号
	Sheet      string   `koanf:"sheet"`                                // xlsx工作表名，默认第一个
	Output     string   `koanf:"output" validate:"required"`           // 合并后的CSV
	XLSXOutput string   `koanf:"xlsx_output"`                          // 可选的xlsx副本
	ChartDir   string   `koanf:"chart_dir"`                            // 图表输出目录
	TopN       int      `koanf:"top_n" validate:"gt=0"`
	Schema     []Column `koanf:"schema" validate:"required,min=1,dive"`

	LogName    string `koanf:"log_name"`
	LogLevel   string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	LogMaxSize string `koanf:"log_max_size"` // 例如 "10 * 1024 * 1024"

	Dashboard struct {
		Addr            string   `koanf:"addr" validate:"required"`
		Rebuild         string   `koanf:"rebuild"` // cron表达式，为空则不定时重建
		ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	} `koanf:"dashboard"`
}

// New 返回默认配置，对应原始数据的五个年度文件
func New() *Config {
	cfg := &Config{
		Sources: []Source{
			{Year: 2015, Path: "2015.csv"},
			{Year: 2016, Path: "2016.csv"},
			{Year: 2017, Path: "2017.csv"},
			{Year: 2018, Path: "2018.csv"},
			{Year: 2019, Path: "2019.csv"},
		},
		Encoding:   "utf-8",
		Output:     "World_happiness_report.csv",
		ChartDir:   "charts",
		TopN:       10,
		Schema:     DefaultSchema(),
		LogName:    "app.log",
		LogLevel:   "info",
		LogMaxSize: "10 * 1024 * 1024",
	}
	cfg.Dashboard.Addr = ":8080"
	cfg.Dashboard.ShutdownTimeout = Duration(5 * time.Second)
	return cfg
}

// DefaultSchema 预处理后各年度文件共有的列
func DefaultSchema() []Column {
	return []Column{
		{Name: "Country", Type: "string"},
		{Name: "Happiness Score", Type: "float"},
		{Name: "Economy (GDP per Capita)", Type: "float"},
		{Name: "Social support", Type: "float"},
		{Name: "Health (Life Expectancy)", Type: "float"},
		{Name: "Freedom", Type: "float"},
		{Name: "Trust (Government Corruption)", Type: "float"},
		{Name: "Generosity", Type: "float"},
	}
}

// LoadConfig 依次叠加默认值、YAML文件、环境变量
// path为空时读取 HAPPINESS_CONFIG，仍为空则只用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("读取配置文件失败 %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	// ZeroFields: 配置文件里的列表整体替换默认列表
	cfg := New()
	dc := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		Result:           cfg,
		TagName:          "koanf",
		WeaklyTypedInput: true,
		ZeroFields:       true,
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", DecoderConfig: dc}); err != nil {
		return nil, fmt.Errorf("解析Config失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验字段取值以及年度标签唯一
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return combineErrors(verrs)
		}
		return fmt.Errorf("config validation: %w", err)
	}

	seen := make(map[int]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.Year] {
			return fmt.Errorf("duplicate source year %d", s.Year)
		}
		seen[s.Year] = true
	}

	names := make(map[string]bool, len(c.Schema))
	for _, col := range c.Schema {
		if col.Name == "Year" {
			return errors.New("schema must not declare the Year column")
		}
		if names[col.Name] {
			return fmt.Errorf("duplicate schema column %q", col.Name)
		}
		names[col.Name] = true
	}
	return nil
}

func combineErrors(errs validator.ValidationErrors) error {
	msg := "配置校验遇到错误:"
	for _, fe := range errs {
		msg = fmt.Sprintf("%s\n- %s: failed on %q", msg, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%s", msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持从配置中的字符串解析，例如 "5s"
type Duration time.Duration

// UnmarshalText 实现encoding.TextUnmarshaler接口
func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Std 返回标准库的time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
