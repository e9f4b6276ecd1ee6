package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/ecodeclub/ekit/slice"
	"github.com/hertz-contrib/keyauth"

	"resume-match-go/internal/api/handler"
	"resume-match-go/internal/api/middleware"
	"resume-match-go/internal/logger"
)

// HeaderAPIKey 管理接口的 API Key 头
const HeaderAPIKey = "X-API-Key"

// Options 路由设置
type Options struct {
	AdminAPIKeys    []string // 为空时管理接口全部拒绝
	UploadPerMinute int      // 上传接口每分钟请求数，<=0 表示不限流
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(r *route.Engine, analysis *handler.AnalysisHandler, reg *handler.RegistryHandler, opts Options) {
	api := r.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	analyses := api.Group("/analyses")
	analyses.POST("", analysis.HandleAnalyzeText)
	if opts.UploadPerMinute > 0 {
		analyses.POST("/upload", middleware.RateLimit(middleware.NewTokenBucket(opts.UploadPerMinute, 0)), analysis.HandleUpload)
	} else {
		analyses.POST("/upload", analysis.HandleUpload)
	}
	analyses.GET("/:id", analysis.HandleGetAnalysis)
	analyses.POST("/:id/role", analysis.HandleSelectRole)
	analyses.GET("/:id/report", analysis.HandleReport)

	api.GET("/roles", reg.HandleListRoles)
	api.GET("/skills/canonical", reg.HandleCanonicalSkills)

	admin := api.Group("/admin", adminAuth(opts.AdminAPIKeys))
	admin.POST("/registry/reload", reg.HandleReload)
}

// adminAuth 校验 X-API-Key 头
func adminAuth(keys []string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+HeaderAPIKey, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			return key != "" && slice.Contains(keys, key), nil
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			logger.Ctx(c).Warn().Err(err).Str("path", string(ctx.Path())).Msg("管理接口鉴权失败")
			ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "API Key 无效或缺失"})
		}),
	)
}
