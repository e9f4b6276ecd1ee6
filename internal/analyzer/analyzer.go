package analyzer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/matcher"
	"resume-match-go/internal/registry"
	"resume-match-go/internal/segmenter"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"
)

var tracer = otel.Tracer("resume-match-go/analyzer")

// SectionSegmenter 分段器接口
type SectionSegmenter interface {
	Segment(ctx context.Context, text string, hint *types.DocHint) types.SectionMap
}

// RoleRegistry 提供当前岗位注册表快照
type RoleRegistry interface {
	Snapshot() *registry.Snapshot
}

// Components 分析器依赖的组件
type Components struct {
	Registry   RoleRegistry       // 岗位注册表（必需）
	Segmenter  SectionSegmenter   // 为空时按快照的规范化表创建
	Classifier matcher.Classifier // 可选的岗位分类器
	Cache      SegmentCache       // 可选的分段缓存
	Metrics    *Metrics           // 可选的指标
}

// Settings 纯配置项
type Settings struct {
	TopK                int
	MinSkills           int
	CacheTTL            time.Duration
	MaxTokenLength      int
	MaxBulletLineLength int
	MaxTableCellLength  int
	BatchWorkers        int
}

// DefaultSettings 默认设置
func DefaultSettings() *Settings {
	return &Settings{
		TopK:                3,
		MinSkills:           segmenter.DefaultMinSkills,
		CacheTTL:            24 * time.Hour,
		MaxTokenLength:      skills.DefaultMaxTokenLength,
		MaxBulletLineLength: skills.DefaultMaxBulletLineLength,
		MaxTableCellLength:  segmenter.DefaultMaxTableCellLength,
		BatchWorkers:        4,
	}
}

// Request 一次分析请求
type Request struct {
	AnalysisID string // 为空时生成新的ID
	Text       string
	Hint       *types.DocHint
	ChosenRole string // 为空时使用排名第一的岗位
}

// segmenterForVersion 按快照版本缓存的分段器
type segmenterForVersion struct {
	version int64
	seg     SectionSegmenter
}

// Analyzer 端到端分析：分段 -> 岗位排序 -> 技能差距 -> 匹配分数。
// 每次调用只读取一次快照，本身无可变业务状态，可并发使用。
type Analyzer struct {
	comp     Components
	set      Settings
	segments atomic.Pointer[segmenterForVersion]
	flight   singleflight.Group
}

// New 创建分析器
func New(comp *Components, set *Settings, opts ...SettingOpt) *Analyzer {
	if set == nil {
		set = DefaultSettings()
	}
	for _, opt := range opts {
		opt(set)
	}
	a := &Analyzer{comp: *comp, set: *set}
	if a.comp.Classifier == nil {
		a.comp.Classifier = matcher.NoopClassifier{}
	}
	if a.set.TopK <= 0 {
		a.set.TopK = 3
	}
	return a
}

// NewWithOptions 以组件选项的方式创建分析器
func NewWithOptions(compOpts []ComponentOpt, setOpts ...SettingOpt) *Analyzer {
	comp := &Components{}
	for _, opt := range compOpts {
		opt(comp)
	}
	return New(comp, DefaultSettings(), setOpts...)
}

func newAnalysisID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return ""
	}
	return id.String()
}

// snapshot 返回当前快照；注册表为空时返回配置错误
func (a *Analyzer) snapshot(id, op string) (*registry.Snapshot, error) {
	if a.comp.Registry == nil {
		return nil, &AnalysisError{AnalysisID: id, Op: op, BaseErr: ErrNoRegistry}
	}
	snap := a.comp.Registry.Snapshot()
	if snap == nil || snap.Len() == 0 {
		return nil, NewConfigError(id, op, "无法选择默认岗位")
	}
	return snap, nil
}

// segmenterFor 返回与快照规范化表一致的分段器
func (a *Analyzer) segmenterFor(snap *registry.Snapshot) SectionSegmenter {
	if a.comp.Segmenter != nil {
		return a.comp.Segmenter
	}
	if cur := a.segments.Load(); cur != nil && cur.version == snap.Version() {
		return cur.seg
	}
	table := snap.Table()
	seg := segmenter.New(table,
		segmenter.WithMinSkills(a.set.MinSkills),
		segmenter.WithMaxTableCellLength(a.set.MaxTableCellLength),
		segmenter.WithTokenizer(skills.NewTokenizer(
			skills.WithLexicon(table),
			skills.WithMaxTokenLength(a.set.MaxTokenLength),
			skills.WithMaxBulletLineLength(a.set.MaxBulletLineLength),
		)),
		segmenter.WithStrategyObserver(a.comp.Metrics.observeStrategy),
	)
	a.segments.Store(&segmenterForVersion{version: snap.Version(), seg: seg})
	return seg
}

// Analyze 分析一份简历文本。空文本得到空章节和 0 分；
// 只有岗位注册表为空时返回错误（errors.Is(err, ErrNoRoles)）。
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*types.AnalysisResult, error) {
	id := req.AnalysisID
	if id == "" {
		id = newAnalysisID()
	}
	ctx, span := tracer.Start(ctx, "Analyzer.Analyze",
		trace.WithAttributes(
			attribute.String("analysis.id", id),
			attribute.Int("text.length", len(req.Text)),
			attribute.Bool("hint.tabular", req.Hint.IsTabular()),
		))
	defer span.End()
	start := time.Now()

	snap, err := a.snapshot(id, "analyze")
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeConfig)
		a.comp.Metrics.observeAnalysis("", outcomeConfigError, time.Since(start))
		return nil, err
	}

	sections := a.segment(ctx, snap, req.Text, req.Hint)
	result := a.assemble(ctx, snap, id, sections, req.ChosenRole)

	span.SetAttributes(
		attribute.String("rank.mode", string(result.RankMode)),
		attribute.String("chosen.role", result.ChosenRole),
		attribute.Float64("match.score", result.MatchScore),
	)
	span.SetStatus(codes.Ok, "")
	a.comp.Metrics.observeAnalysis(result.RankMode, outcomeOK, time.Since(start))
	logger.Debug().
		Str("analysis_id", id).
		Str("chosen_role", result.ChosenRole).
		Str("mode", string(result.RankMode)).
		Float64("score", result.MatchScore).
		Int("skills", len(sections.Skills)).
		Dur("elapsed", time.Since(start)).
		Msg("简历分析完成")
	return result, nil
}

// AnalyzeSections 跳过分段，直接对已有章节排序并计算差距（调用方缓存了章节时使用）
func (a *Analyzer) AnalyzeSections(ctx context.Context, sections types.SectionMap, chosenRole string) (*types.AnalysisResult, error) {
	id := newAnalysisID()
	ctx, span := tracer.Start(ctx, "Analyzer.AnalyzeSections")
	defer span.End()

	snap, err := a.snapshot(id, "analyze_sections")
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeConfig)
		return nil, err
	}
	return a.assemble(ctx, snap, id, sections.Clone(), chosenRole), nil
}

// Recompute 为新选择的岗位重新计算差距和分数，章节与预测沿用 prev
func (a *Analyzer) Recompute(ctx context.Context, prev *types.AnalysisResult, chosenRole string) (*types.AnalysisResult, error) {
	_, span := tracer.Start(ctx, "Analyzer.Recompute",
		trace.WithAttributes(attribute.String("chosen.role", chosenRole)))
	defer span.End()

	snap, err := a.snapshot(prev.AnalysisID, "recompute")
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeConfig)
		return nil, err
	}
	out := &types.AnalysisResult{
		AnalysisID:  prev.AnalysisID,
		Sections:    prev.Sections.Clone(),
		Predictions: append([]types.Prediction{}, prev.Predictions...),
		RankMode:    prev.RankMode,
	}
	a.fillGap(snap, out, chosenRole)
	return out, nil
}

// AnalyzeBatch 并发分析多份简历，结果与请求一一对应；注册表配置错误会使整批失败
func (a *Analyzer) AnalyzeBatch(ctx context.Context, reqs []Request) ([]*types.AnalysisResult, error) {
	results := make([]*types.AnalysisResult, len(reqs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(a.set.BatchWorkers, 1))
	for i, req := range reqs {
		i, req := i, req
		eg.Go(func() error {
			res, err := a.Analyze(egCtx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// assemble 排序、取前 K 个预测、选择岗位并计算差距
func (a *Analyzer) assemble(ctx context.Context, snap *registry.Snapshot, id string, sections types.SectionMap, chosenRole string) *types.AnalysisResult {
	ranker := matcher.NewRanker(snap.Table(), a.comp.Classifier)
	preds, mode := ranker.RankRoles(ctx, sections, snap.Roles())

	result := &types.AnalysisResult{
		AnalysisID:  id,
		Sections:    sections,
		Predictions: preds[:min(a.set.TopK, len(preds))],
		RankMode:    mode,
	}
	if chosenRole == "" && len(preds) > 0 {
		chosenRole = preds[0].RoleName
	}
	a.fillGap(snap, result, chosenRole)
	return result
}

// fillGap 未知岗位得到空的要求技能和 0 分，不报错
func (a *Analyzer) fillGap(snap *registry.Snapshot, result *types.AnalysisResult, chosenRole string) {
	required := snap.Role(chosenRole)
	gap := matcher.ComputeGap(snap.Table(), result.Sections.Skills, required)
	result.ChosenRole = chosenRole
	result.RequiredSkills = required
	result.Gap = gap
	result.MatchScore = matcher.MatchScore(gap)
}
