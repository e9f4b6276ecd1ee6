package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger 全局日志实例
var Logger = log.Logger

// Config 日志配置
type Config struct {
	Level        string `json:"level" yaml:"level"`                 // debug, info, warn, error
	Format       string `json:"format" yaml:"format"`               // json 或 pretty
	TimeFormat   string `json:"time_format" yaml:"time_format"`     // 时间戳格式
	ReportCaller bool   `json:"report_caller" yaml:"report_caller"` // 是否记录调用位置
}

// Init 按配置初始化全局日志，输出到 stdout
func Init(config Config) {
	InitWithWriter(config, os.Stdout)
}

// InitWithWriter 按配置初始化全局日志并写入 w，测试和 CLI 使用
func InitWithWriter(config Config, w io.Writer) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := w
	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: config.TimeFormat}
	}

	if config.TimeFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	} else {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	ctx := zerolog.New(output).Level(level).With().Timestamp()
	if config.ReportCaller {
		ctx = ctx.Caller()
	}
	Logger = ctx.Logger()
	log.Logger = Logger
}

// Debug 调试级别事件
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info 信息级别事件
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn 警告级别事件
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error 错误级别事件
func Error() *zerolog.Event {
	return Logger.Error()
}

// Fatal 记录后退出进程
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// Ctx 返回上下文中的 logger，不存在时返回全局 logger
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}

// WithContext 把全局 logger 放入上下文
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}

// WithAnalysisID 返回带 analysis_id 字段的上下文 logger
func WithAnalysisID(ctx context.Context, id string) context.Context {
	l := Ctx(ctx).With().Str("analysis_id", id).Logger()
	return l.WithContext(ctx)
}
