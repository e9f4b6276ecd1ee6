package worker

import (
	"errors"
	"fmt"
)

var (
	ErrBadMessage       = errors.New("分析消息格式错误")
	ErrDownloadFailed   = errors.New("下载简历失败")
	ErrAnalysisFailed   = errors.New("简历分析失败")
	ErrPersistFailed    = errors.New("保存分析结果失败")
	ErrRetriesExhausted = errors.New("重试次数已用尽")
)

// ProcessError 包含详细错误信息的处理错误
type ProcessError struct {
	AnalysisID string
	Op         string
	BaseErr    error
	Detail     string
}

func (e *ProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, ID:%s): %s", e.BaseErr, e.Op, e.AnalysisID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, ID:%s)", e.BaseErr, e.Op, e.AnalysisID)
}

func (e *ProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

func newError(id, op string, base error, detail string) error {
	return &ProcessError{AnalysisID: id, Op: op, BaseErr: base, Detail: detail}
}

// retryable 只有下载和持久化失败值得重试
func retryable(err error) bool {
	return errors.Is(err, ErrDownloadFailed) || errors.Is(err, ErrPersistFailed)
}
