package analyzer

import (
	"time"

	"resume-match-go/internal/matcher"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompRegistry 设置岗位注册表
func WithcompRegistry(r RoleRegistry) ComponentOpt {
	return func(c *Components) {
		c.Registry = r
	}
}

// WithcompSegmenter 设置固定的分段器（默认按快照的规范化表自动创建）
func WithcompSegmenter(s SectionSegmenter) ComponentOpt {
	return func(c *Components) {
		c.Segmenter = s
	}
}

// WithcompClassifier 设置岗位分类器
func WithcompClassifier(cl matcher.Classifier) ComponentOpt {
	return func(c *Components) {
		c.Classifier = cl
	}
}

// WithcompCache 设置分段结果缓存
func WithcompCache(cache SegmentCache) ComponentOpt {
	return func(c *Components) {
		c.Cache = cache
	}
}

// WithcompMetrics 设置指标
func WithcompMetrics(m *Metrics) ComponentOpt {
	return func(c *Components) {
		c.Metrics = m
	}
}

// ----- 设置选项 -----

// WithsetTopK 设置返回的岗位预测数量
func WithsetTopK(k int) SettingOpt {
	return func(s *Settings) {
		if k > 0 {
			s.TopK = k
		}
	}
}

// WithsetMinSkills 设置关键词扫描阈值
func WithsetMinSkills(n int) SettingOpt {
	return func(s *Settings) {
		if n >= 0 {
			s.MinSkills = n
		}
	}
}

// WithsetCacheTTL 设置分段缓存过期时间
func WithsetCacheTTL(ttl time.Duration) SettingOpt {
	return func(s *Settings) {
		s.CacheTTL = ttl
	}
}

// WithsetTokenLimits 设置分词长度限制
func WithsetTokenLimits(maxToken, maxBulletLine, maxTableCell int) SettingOpt {
	return func(s *Settings) {
		if maxToken > 0 {
			s.MaxTokenLength = maxToken
		}
		if maxBulletLine > 0 {
			s.MaxBulletLineLength = maxBulletLine
		}
		if maxTableCell > 0 {
			s.MaxTableCellLength = maxTableCell
		}
	}
}

// WithsetBatchWorkers 设置批量分析的并发数
func WithsetBatchWorkers(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.BatchWorkers = n
		}
	}
}
