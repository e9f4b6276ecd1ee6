package tracing

import (
	"strings"
)

const (
	// DefaultMaxLength 默认最大属性长度
	DefaultMaxLength = 200
	// MaxSQLLength SQL语句最大长度
	MaxSQLLength = 500
	// MaxRedisLength Redis键最大长度
	MaxRedisLength = 100
	// MaxResumeLength 简历文本片段最大长度
	MaxResumeLength = 150
)

// 属性名包含这些关键字时值会被掩码
var piiKeywords = []string{"email", "phone", "password", "address", "name", "secret", "token", "api_key", "姓名", "地址"}

// SafeAttributeValue 敏感属性掩码，其余按长度截断
func SafeAttributeValue(name string, value string, maxLength int) string {
	lower := strings.ToLower(name)
	for _, kw := range piiKeywords {
		if strings.Contains(lower, kw) {
			return MaskPII(value)
		}
	}
	return TruncateString(value, maxLength)
}

// MaskPII 保留首尾字符，中间用 * 替换
func MaskPII(value string) string {
	runes := []rune(value)
	n := len(runes)
	switch {
	case n == 0:
		return ""
	case n == 1:
		return "*"
	case n == 2:
		return string(runes[0]) + "*"
	case n <= 4:
		return string(runes[0]) + strings.Repeat("*", n-2) + string(runes[n-1])
	}
	return string(runes[:2]) + strings.Repeat("*", n-4) + string(runes[n-2:])
}

// TruncateString 超长时保留首尾，中间用...连接
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	half := max((maxLength-3)/2, 1)
	return string(runes[:half]) + "..." + string(runes[len(runes)-half:])
}

// SafeSQL 截断SQL语句
func SafeSQL(sql string) string {
	return TruncateString(sql, MaxSQLLength)
}

// SafeRedisKey 截断Redis键
func SafeRedisKey(key string) string {
	return TruncateString(key, MaxRedisLength)
}

// SafeResumeContent 截断简历文本，用于日志和 span 属性
func SafeResumeContent(content string) string {
	return TruncateString(strings.Join(strings.Fields(content), " "), MaxResumeLength)
}
