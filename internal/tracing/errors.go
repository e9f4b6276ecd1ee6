package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类，写入 span 的 error.type 属性
type ErrorType string

const (
	// ErrorTypeHTTP 无法归类的HTTP错误
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeDB 数据库错误
	ErrorTypeDB ErrorType = "db"
	// ErrorTypeRedis Redis错误
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeRabbitMQ RabbitMQ错误
	ErrorTypeRabbitMQ ErrorType = "rabbitmq"
	// ErrorTypeObjectStore 对象存储错误
	ErrorTypeObjectStore ErrorType = "object_store"
	// ErrorTypeValidation 请求校验错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig 岗位注册表等配置错误
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeClassifier 分类器失败（会回退到重叠度排序）
	ErrorTypeClassifier ErrorType = "classifier"
	// ErrorTypeExtract 文档文本提取失败
	ErrorTypeExtract ErrorType = "extract"
	// ErrorTypeRegistry 注册表重载失败
	ErrorTypeRegistry ErrorType = "registry"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
)

// RecordError 记录错误并把 span 标记为失败
func RecordError(span trace.Span, err error, errorType ErrorType) {
	RecordErrorWithInfo(span, err, errorType)
}

// RecordErrorWithInfo 记录错误并附加额外属性
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPError 记录HTTP错误：4xx 记为请求校验错误，5xx 记为内部错误
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	if span == nil || err == nil {
		return
	}
	errorType, category := ErrorTypeHTTP, "unknown"
	switch {
	case statusCode >= 400 && statusCode < 500:
		errorType, category = ErrorTypeValidation, "client_error"
	case statusCode >= 500:
		errorType, category = ErrorTypeInternal, "server_error"
	}
	RecordErrorWithInfo(span, err, errorType,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", category),
	)
}

// RecordRabbitMQNack 记录消息被拒绝
func RecordRabbitMQNack(span trace.Span, messageID string, reason string) {
	if span == nil {
		return
	}
	msg := "message rejected"
	if reason != "" {
		msg = reason
	}
	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeRabbitMQ)),
		attribute.String("error.message", msg),
		attribute.String("messaging.message_id", messageID),
		attribute.String("messaging.error_type", "nack"),
	)
	span.SetStatus(codes.Error, msg)
}
