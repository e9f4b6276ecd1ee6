package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"

	"resume-match-go/internal/logger"
)

// HeaderRequestID 请求ID头
const HeaderRequestID = "X-Request-ID"

// RequestID 沿用客户端传入的请求ID，没有则生成；ID 写回响应头并附加到上下文 logger
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.Request.Header.Peek(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Response.Header.Set(HeaderRequestID, id)

		l := logger.Ctx(ctx).With().Str("request_id", id).Logger()
		ctx = l.WithContext(ctx)
		c.Next(ctx)
	}
}

// AccessLog 记录请求与响应状态
func AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Next(ctx)
		logger.Ctx(ctx).Info().
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", c.Response.StatusCode()).
			Msg("request")
	}
}
