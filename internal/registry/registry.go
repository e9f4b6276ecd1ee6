package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

var tracer = otel.Tracer("resume-match-go/registry")

var (
	// ErrEmptySource 数据源中没有任何可用岗位
	ErrEmptySource = errors.New("role source contains no roles")
	// ErrInvalidRow 数据行格式错误
	ErrInvalidRow = errors.New("invalid role row")
)

// Dataset 数据源一次加载的内容：岗位列表和额外的同义词分组
type Dataset struct {
	Roles    []types.RoleProfile
	Synonyms []skills.SynonymGroup
}

//go:generate mockgen -source=registry.go -destination=mocks/source_mock.go -package=mocks Source

// Source 岗位注册表的数据来源（CSV/XLSX/YAML/MySQL）
type Source interface {
	Name() string
	Load(ctx context.Context) (Dataset, error)
}

// Snapshot 某一时刻的岗位注册表和规范化表，构造后只读
type Snapshot struct {
	roles    []types.RoleProfile
	index    map[string]int
	table    *skills.Table
	version  int64
	loadedAt time.Time
}

// NewSnapshot 构造快照：跳过空名称的岗位，重名岗位保留第一个；没有技能的岗位保留，排序时得 0 分
func NewSnapshot(version int64, roles []types.RoleProfile, table *skills.Table) *Snapshot {
	if table == nil {
		table = skills.NewDefaultTable()
	}
	s := &Snapshot{
		index:    make(map[string]int, len(roles)),
		table:    table,
		version:  version,
		loadedAt: time.Now(),
	}
	for _, role := range roles {
		name := strings.TrimSpace(role.RoleName)
		if name == "" {
			continue
		}
		if _, dup := s.index[name]; dup {
			logger.Warn().Str("role", name).Msg("岗位名称重复，保留第一次出现的定义")
			continue
		}
		required := make([]string, 0, len(role.RequiredSkills))
		for _, skill := range role.RequiredSkills {
			if skill = strings.TrimSpace(skill); skill != "" {
				required = append(required, skill)
			}
		}
		if len(required) == 0 {
			logger.Warn().Str("role", name).Msg("岗位没有要求技能，匹配度恒为 0")
		}
		s.index[name] = len(s.roles)
		s.roles = append(s.roles, types.RoleProfile{RoleName: name, RequiredSkills: required})
	}
	return s
}

// Roles 按注册表顺序返回全部岗位（副本）
func (s *Snapshot) Roles() []types.RoleProfile {
	out := make([]types.RoleProfile, len(s.roles))
	for i, role := range s.roles {
		out[i] = types.RoleProfile{RoleName: role.RoleName, RequiredSkills: append([]string{}, role.RequiredSkills...)}
	}
	return out
}

// Role 返回岗位要求技能，未知岗位返回空列表
func (s *Snapshot) Role(name string) []string {
	idx, ok := s.index[strings.TrimSpace(name)]
	if !ok {
		return []string{}
	}
	return append([]string{}, s.roles[idx].RequiredSkills...)
}

// Has 岗位是否存在
func (s *Snapshot) Has(name string) bool {
	_, ok := s.index[strings.TrimSpace(name)]
	return ok
}

// Len 岗位数量
func (s *Snapshot) Len() int { return len(s.roles) }

// Table 与该快照一起加载的规范化表
func (s *Snapshot) Table() *skills.Table { return s.table }

// Version 快照版本号，每次成功重载加一
func (s *Snapshot) Version() int64 { return s.version }

// LoadedAt 快照构造时间
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Registry 持有当前快照，重载时整体替换，读者不会看到半更新的状态
type Registry struct {
	source        Source
	baseSynonyms  []skills.SynonymGroup
	extra         []skills.SynonymGroup
	current       atomic.Pointer[Snapshot]
	reloadMu      sync.Mutex
	version       atomic.Int64
	sharedVersion atomic.Int64 // 最近一次看到的多实例共享版本号
}

// Option 注册表选项
type Option func(*Registry)

// WithBaseSynonyms 替换内置同义词分组
func WithBaseSynonyms(groups []skills.SynonymGroup) Option {
	return func(r *Registry) {
		r.baseSynonyms = groups
	}
}

// WithExtraSynonyms 额外的同义词分组（如同义词文件），合并在数据源的同义词之前
func WithExtraSynonyms(groups []skills.SynonymGroup) Option {
	return func(r *Registry) {
		r.extra = append(r.extra, groups...)
	}
}

// New 创建注册表，初始为空快照，需要调用 Reload 加载
func New(source Source, opts ...Option) *Registry {
	r := &Registry{source: source, baseSynonyms: skills.DefaultGroups()}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(NewSnapshot(0, nil, skills.NewTable(r.baseSynonyms, r.extra...)))
	return r
}

// Snapshot 返回当前快照，永不为 nil
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Source 数据源
func (r *Registry) Source() Source {
	return r.source
}

// Reload 从数据源重新加载并原子替换快照；失败时保留旧快照
func (r *Registry) Reload(ctx context.Context) (*Snapshot, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	ctx, span := tracer.Start(ctx, "Registry.Reload")
	defer span.End()
	fail := func(err error) (*Snapshot, error) {
		tracing.RecordError(span, err, tracing.ErrorTypeRegistry)
		return r.Snapshot(), err
	}

	if r.source == nil {
		return fail(fmt.Errorf("重载岗位注册表失败: %w", ErrEmptySource))
	}
	span.SetAttributes(attribute.String("registry.source", r.source.Name()))
	start := time.Now()
	data, err := r.source.Load(ctx)
	if err != nil {
		return fail(fmt.Errorf("从 %s 加载岗位失败: %w", r.source.Name(), err))
	}
	synonyms := append(append([]skills.SynonymGroup{}, r.extra...), data.Synonyms...)
	table := skills.NewTable(r.baseSynonyms, synonyms...)
	snap := NewSnapshot(r.version.Add(1), data.Roles, table)
	if snap.Len() == 0 {
		return fail(fmt.Errorf("从 %s 加载岗位失败: %w", r.source.Name(), ErrEmptySource))
	}
	r.current.Store(snap)

	span.SetAttributes(
		attribute.Int("registry.roles", snap.Len()),
		attribute.Int64("registry.version", snap.Version()),
	)
	logger.Info().
		Str("source", r.source.Name()).
		Int("roles", snap.Len()).
		Int("canonical_skills", table.Len()).
		Int64("version", snap.Version()).
		Dur("elapsed", time.Since(start)).
		Msg("岗位注册表已加载")
	return snap, nil
}

// StaticSource 内存中的固定数据，用于命令行和测试
type StaticSource struct {
	Data Dataset
}

// Name 实现 Source
func (s StaticSource) Name() string { return "static" }

// Load 实现 Source
func (s StaticSource) Load(context.Context) (Dataset, error) {
	return s.Data, nil
}
