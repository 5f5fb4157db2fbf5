package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
)

// Logger 日志记录器结构体
// 每条日志同时写入日志文件、console（可选）以及所有订阅者
type Logger struct {
	filename    string
	file        *os.File      // 日志文件句柄
	console     io.Writer     // 为nil时不输出到console
	mu          sync.Mutex    // 互斥锁，保证并发安全
	subscribers []chan string // 订阅者通道列表
	level       slog.LevelVar
	slog        *slog.Logger
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径，为空时只输出到console
//	console: console输出，通常为os.Stderr
func NewLogger(filename string, console io.Writer) (*Logger, error) {
	l := &Logger{filename: filename, console: console}
	if filename != "" {
		file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		l.file = file
	}
	l.level.Set(slog.LevelInfo)
	h := slog.NewTextHandler((*sink)(l), &slog.HandlerOptions{Level: &l.level})
	l.slog = slog.New(h)
	return l, nil
}

// sink 把slog的输出分发到文件、console和订阅者
type sink Logger

func (s *sink) Write(p []byte) (int, error) {
	l := (*Logger)(s)
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if _, err := l.file.Write(p); err != nil {
			return 0, err
		}
	}
	if l.console != nil {
		_, _ = l.console.Write(p)
	}

	entry := string(bytes.TrimRight(p, "\n"))
	for _, ch := range l.subscribers {
		select {
		case ch <- entry: // 尝试发送日志条目
		default: // 如果通道已满则跳过
		}
	}
	return len(p), nil
}

// AddFields 之后的每条日志都带上这些字段，需在开始记录前调用
func (l *Logger) AddFields(args ...any) { l.slog = l.slog.With(args...) }

// SetLevel 设置最低日志级别: debug, info, warn/warning, error
func (l *Logger) SetLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l.level.Set(slog.LevelDebug)
	case "", "info":
		l.level.Set(slog.LevelInfo)
	case "warn", "warning":
		l.level.Set(slog.LevelWarn)
	case "error":
		l.level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}
	return nil
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Reopen 重新打开一个文件
// 参数：
// filename：新文件的路径
func (l *Logger) Reopen(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 关闭旧文件
	if l.file != nil {
		_ = l.file.Close()
	}

	// 重新打开
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.filename = filename
	return nil
}

// Log 按级别记录日志，args为slog键值对
func (l *Logger) Log(level LogLevel, message string, args ...any) {
	l.slog.Log(context.Background(), level.slogLevel(), message, args...)
}

// CheckRotate 日志文件超过maxSize（例如 "10 * 1024 * 1024"）时轮转
// 返回是否发生了轮转
func (l *Logger) CheckRotate(maxSize string) (bool, error) {
	limit := eval(maxSize)
	if limit <= 0 {
		return false, nil
	}

	l.mu.Lock()
	if l.file == nil {
		l.mu.Unlock()
		return false, nil
	}
	info, err := l.file.Stat()
	l.mu.Unlock()
	if err != nil {
		return false, err
	}

	if info.Size() <= limit {
		return false, nil
	}
	return true, l.rotateLog()
}

func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
		rotated := fmt.Sprintf("%s.%s", l.filename, time.Now().Format("20060102150405"))
		if err := os.Rename(l.filename, rotated); err != nil {
			return err
		}
	}

	file, err := os.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file = file
	return nil
}

// Subscribe 订阅日志消息
// 返回值:
//
//	<-chan string: 只读通道，用于接收日志消息
//	func(): 取消订阅
func (l *Logger) Subscribe() (<-chan string, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 创建带缓冲的通道(容量100)
	ch := make(chan string, 100)
	// 将新通道加入订阅者列表
	l.subscribers = append(l.subscribers, ch)

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, c := range l.subscribers {
			if c == ch {
				l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARNING:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// eval 计算 "10 * 1024 * 1024" 这样的乘法表达式，无法解析时返回0
func eval(expr string) int64 {
	if strings.TrimSpace(expr) == "" {
		return 0
	}
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		result *= num
	}
	return result
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, args ...any)   { l.Log(DEBUG, msg, args...) }   // 记录调试信息
func (l *Logger) Info(msg string, args ...any)    { l.Log(INFO, msg, args...) }    // 记录普通信息
func (l *Logger) Warning(msg string, args ...any) { l.Log(WARNING, msg, args...) } // 记录警告信息
func (l *Logger) Error(msg string, args ...any)   { l.Log(ERROR, msg, args...) }   // 记录错误信息
