package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/ecodeclub/ekit/slice"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

// RoleRegistry 岗位注册表，例如 *registry.Registry
type RoleRegistry interface {
	Snapshot() *registry.Snapshot
	Reload(ctx context.Context) (*registry.Snapshot, error)
}

// RegistryHandler 岗位与技能查询、注册表重载
type RegistryHandler struct {
	registry RoleRegistry
	onReload func(ctx context.Context) // 重载成功后调用，可为 nil
}

// NewRegistryHandler 创建注册表处理器
func NewRegistryHandler(reg RoleRegistry, onReload func(ctx context.Context)) *RegistryHandler {
	return &RegistryHandler{registry: reg, onReload: onReload}
}

// RoleView 岗位列表项
type RoleView struct {
	RoleName       string   `json:"role_name"`
	RequiredSkills []string `json:"required_skills"`
	SkillCount     int      `json:"skill_count"`
}

// RoleListResponse 岗位列表
type RoleListResponse struct {
	Version  int64      `json:"version"`
	LoadedAt time.Time  `json:"loaded_at"`
	Count    int        `json:"count"`
	Roles    []RoleView `json:"roles"`
}

// HandleListRoles 列出当前快照中的岗位
func (h *RegistryHandler) HandleListRoles(_ context.Context, c *app.RequestContext) {
	snap := h.registry.Snapshot()
	roles := slice.Map(snap.Roles(), func(_ int, r types.RoleProfile) RoleView {
		return RoleView{RoleName: r.RoleName, RequiredSkills: r.RequiredSkills, SkillCount: len(r.RequiredSkills)}
	})
	c.JSON(consts.StatusOK, RoleListResponse{
		Version:  snap.Version(),
		LoadedAt: snap.LoadedAt(),
		Count:    len(roles),
		Roles:    roles,
	})
}

// HandleCanonicalSkills 列出规范技能名；带 q 参数时返回该词的规范形式
func (h *RegistryHandler) HandleCanonicalSkills(_ context.Context, c *app.RequestContext) {
	table := h.registry.Snapshot().Table()
	if q := c.Query("q"); q != "" {
		c.JSON(consts.StatusOK, map[string]interface{}{
			"input":     q,
			"canonical": table.Canonicalize(q),
			"known":     table.Known(q),
		})
		return
	}
	groups := table.Groups()
	if groups == nil {
		groups = []skills.SynonymGroup{}
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"count":  len(groups),
		"skills": groups,
	})
}

// HandleReload 从数据源重建注册表快照；失败时保留旧快照
func (h *RegistryHandler) HandleReload(ctx context.Context, c *app.RequestContext) {
	snap, err := h.registry.Reload(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("管理接口重载岗位注册表失败")
		tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, consts.StatusUnprocessableEntity)
		current := h.registry.Snapshot()
		c.JSON(consts.StatusUnprocessableEntity, map[string]interface{}{
			"error":   err.Error(),
			"version": current.Version(),
			"roles":   current.Len(),
		})
		return
	}
	if h.onReload != nil {
		h.onReload(ctx)
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"version": snap.Version(),
		"roles":   snap.Len(),
	})
}
