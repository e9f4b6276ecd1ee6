package analyzer

import (
	"errors"
	"fmt"
)

// 基础错误类型
var (
	// ErrNoRoles 岗位注册表为空，无法选择默认岗位。这是唯一需要上报给调用方的配置错误。
	ErrNoRoles = errors.New("岗位注册表为空")
	// ErrNoRegistry 未注入岗位注册表
	ErrNoRegistry = errors.New("未配置岗位注册表")
)

// AnalysisError 包含详细错误信息的分析错误
type AnalysisError struct {
	AnalysisID string
	Op         string
	BaseErr    error
	Detail     string
}

func (e *AnalysisError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, ID:%s): %s", e.BaseErr, e.Op, e.AnalysisID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, ID:%s)", e.BaseErr, e.Op, e.AnalysisID)
}

func (e *AnalysisError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *AnalysisError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewConfigError 注册表配置错误
func NewConfigError(id, op, detail string) error {
	return &AnalysisError{
		AnalysisID: id,
		Op:         op,
		BaseErr:    ErrNoRoles,
		Detail:     detail,
	}
}

// IsConfigError 是否为注册表配置错误
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNoRoles) || errors.Is(err, ErrNoRegistry)
}
