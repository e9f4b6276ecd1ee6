package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsBuilder HTTP 请求耗时与次数
type MetricsBuilder struct {
	summaryVec *prometheus.SummaryVec
	counterVec *prometheus.CounterVec
}

// NewMetricsBuilder 在 reg 上注册指标，reg 为 nil 时使用默认注册表
func NewMetricsBuilder(reg prometheus.Registerer) *MetricsBuilder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	summaryVec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: "resume_match",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.005,
				0.99: 0.001,
			},
		},
		[]string{"method", "path", "status_code"},
	)

	counterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resume_match",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	reg.MustRegister(summaryVec, counterVec)

	return &MetricsBuilder{
		summaryVec: summaryVec,
		counterVec: counterVec,
	}
}

// Build 返回 Hertz 中间件
func (m *MetricsBuilder) Build() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		c.Next(ctx)

		duration := time.Since(start).Seconds()

		// 使用路由模板，避免 :id 造成标签爆炸
		method := string(c.Method())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Response.StatusCode())

		m.summaryVec.WithLabelValues(method, path, statusCode).Observe(duration)
		m.counterVec.WithLabelValues(method, path, statusCode).Inc()
	}
}
