package processor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingSource         = errors.New("missing source")
	ErrSchemaMismatch        = errors.New("schema mismatch")
	ErrUndefinedCorrelation  = errors.New("undefined correlation")
	ErrUnknownColumn         = errors.New("unknown column")
	ErrNotNumeric            = errors.New("column is not numeric")
	ErrEmptyTable            = errors.New("empty table")
	ErrInvalidSourceSettings = errors.New("invalid source settings")
)

// MissingSourceError 声明的源文件无法读取
type MissingSourceError struct {
	Year int
	Path string
	Err  error
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("missing source for %d (%s): %v", e.Year, e.Path, e.Err)
}

func (e *MissingSourceError) Is(target error) bool { return target == ErrMissingSource }

func (e *MissingSourceError) Unwrap() error { return e.Err }

// SchemaMismatchError 源文件的列与期望不一致，或存在缺少Country的行
type SchemaMismatchError struct {
	Year       int
	Path       string
	Missing    []string
	Unexpected []string
	Reason     string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns %q", e.Missing))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected columns %q", e.Unexpected))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	return fmt.Sprintf("schema mismatch in %d source %s: %s", e.Year, e.Path, strings.Join(parts, "; "))
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// UndefinedCorrelationError 列方差为0时相关系数无定义（矩阵中为NaN）
type UndefinedCorrelationError struct {
	Pairs [][2]string
}

func (e *UndefinedCorrelationError) Error() string {
	pairs := make([]string, len(e.Pairs))
	for i, p := range e.Pairs {
		pairs[i] = fmt.Sprintf("%s/%s", p[0], p[1])
	}
	return fmt.Sprintf("undefined correlation (zero variance): %s", strings.Join(pairs, ", "))
}

func (e *UndefinedCorrelationError) Is(target error) bool { return target == ErrUndefinedCorrelation }
