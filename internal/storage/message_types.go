package storage

import "time"

// AnalysisRequestedMessage 上传完成后发布的分析请求
type AnalysisRequestedMessage struct {
	AnalysisID       string    `json:"analysis_id"`
	OriginalFilename string    `json:"original_filename"`
	OriginalPathOSS  string    `json:"original_path_oss"` // MinIO中的对象路径
	ContentType      string    `json:"content_type,omitempty"`
	ChosenRole       string    `json:"chosen_role,omitempty"` // 为空时使用排名第一的岗位
	RequestedAt      time.Time `json:"requested_at"`
	Attempt          int       `json:"attempt,omitempty"`
}
