package constants

import "time"

const (
	// ServiceName 服务名称，用于 tracing 和日志
	ServiceName = "resume-match-go"

	// DefaultSegmentCacheTTL 分段缓存默认过期时间
	DefaultSegmentCacheTTL = 24 * time.Hour
	// DefaultAnalysisTTL 分析结果在 Redis 中的默认过期时间
	DefaultAnalysisTTL = 72 * time.Hour

	// 对象存储路径格式，参数为 analysisID
	ObjectOriginalFormat = "resume/%s/original%s"
	ObjectTextFormat     = "resume/%s/text.txt"

	// 分析状态
	AnalysisStatusPending   = "PENDING"
	AnalysisStatusCompleted = "COMPLETED"
	AnalysisStatusFailed    = "FAILED"
)
