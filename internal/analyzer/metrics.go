package analyzer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"resume-match-go/internal/types"
)

const (
	outcomeOK          = "ok"
	outcomeConfigError = "config_error"
)

// Metrics 分析相关的 Prometheus 指标。nil 接收者上的方法均为空操作。
type Metrics struct {
	analyses   *prometheus.CounterVec
	duration   *prometheus.SummaryVec
	strategies *prometheus.CounterVec
	cache      *prometheus.CounterVec
}

// NewMetrics 在 reg 上注册指标；reg 为空时使用默认注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		analyses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resume_match_analyses_total",
				Help: "Total number of resume analyses",
			},
			[]string{"mode", "outcome"},
		),
		duration: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "resume_match_analysis_duration_seconds",
				Help: "Resume analysis duration in seconds",
				Objectives: map[float64]float64{
					0.5:  0.05,
					0.9:  0.01,
					0.99: 0.001,
				},
			},
			[]string{"mode"},
		),
		strategies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resume_match_segment_strategy_total",
				Help: "Segmentation strategies that contributed items",
			},
			[]string{"strategy"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resume_match_segment_cache_total",
				Help: "Segmentation cache lookups",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) observeAnalysis(mode types.RankMode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(string(mode), outcome).Inc()
	if outcome == outcomeOK {
		m.duration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeStrategy(name string) {
	if m == nil {
		return
	}
	m.strategies.WithLabelValues(name).Inc()
}

func (m *Metrics) observeCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}
