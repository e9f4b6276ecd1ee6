package segmenter

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-match-go/internal/logger"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

var tracer = otel.Tracer("resume-match-go/segmenter")

const (
	// DefaultMinSkills 技能少于该数量时触发全文关键词扫描
	DefaultMinSkills          = 4
	// DefaultMaxTableCellLength 表格单元格作为技能的最大长度（不含）
	DefaultMaxTableCellLength = 30
)

// Document 一次分段的输入，清洗后的文本按行切好供各策略共用
type Document struct {
	Text  string
	Lines []string
	Hint  *types.DocHint
}

// NewDocument 清洗原文并切行
func NewDocument(raw string, hint *types.DocHint) *Document {
	text := CleanText(raw)
	doc := &Document{Text: text, Hint: hint}
	if text != "" {
		doc.Lines = strings.Split(text, "\n")
	}
	return doc
}

// Strategy 分段策略。found 是之前策略累积的结果（只读），
// 返回本策略新提取的内容，ok 为 false 表示没有贡献。
type Strategy interface {
	Name() string
	Extract(ctx context.Context, doc *Document, found types.SectionMap) (types.SectionMap, bool)
}

// StrategyObserver 每个有贡献的策略都会回调一次，用于指标统计
type StrategyObserver func(strategy string)

// Segmenter 按固定顺序执行各策略并合并结果。
// 无共享可变状态，可并发调用。
type Segmenter struct {
	table      *skills.Table
	strategies []Strategy
	observer   StrategyObserver
}

// Option 分段器选项
type Option func(*settings)

type settings struct {
	minSkills  int
	maxCellLen int
	tokenizer  *skills.Tokenizer
	vocabulary *skills.Vocabulary
	observer   StrategyObserver
	strategies []Strategy
}

// WithMinSkills 设置关键词扫描的触发阈值
func WithMinSkills(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.minSkills = n
		}
	}
}

// WithMaxTableCellLength 设置表格单元格长度上限
func WithMaxTableCellLength(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxCellLen = n
		}
	}
}

// WithTokenizer 替换技能分词器
func WithTokenizer(t *skills.Tokenizer) Option {
	return func(s *settings) {
		s.tokenizer = t
	}
}

// WithVocabulary 替换关键词扫描词表
func WithVocabulary(v *skills.Vocabulary) Option {
	return func(s *settings) {
		s.vocabulary = v
	}
}

// WithStrategyObserver 设置策略回调
func WithStrategyObserver(fn StrategyObserver) Option {
	return func(s *settings) {
		s.observer = fn
	}
}

// WithStrategies 完全替换策略列表
func WithStrategies(strategies ...Strategy) Option {
	return func(s *settings) {
		s.strategies = strategies
	}
}

// New 创建分段器，table 用于技能去重和连写拆分
func New(table *skills.Table, opts ...Option) *Segmenter {
	s := &settings{
		minSkills:  DefaultMinSkills,
		maxCellLen: DefaultMaxTableCellLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokenizer == nil {
		s.tokenizer = skills.NewTokenizer(skills.WithLexicon(table))
	}
	if s.vocabulary == nil {
		s.vocabulary = skills.VocabularyFromTable(table)
	}
	if s.strategies == nil {
		s.strategies = []Strategy{
			&TableStrategy{MaxCellLength: s.maxCellLen},
			&HeaderStrategy{Tokenizer: s.tokenizer},
			&FallbackStrategy{Tokenizer: s.tokenizer},
			&KeywordStrategy{Vocabulary: s.vocabulary, Table: table, MinSkills: s.minSkills},
		}
	}
	return &Segmenter{table: table, strategies: s.strategies, observer: s.observer}
}

// Segment 把简历文本切分为四个章节。空文本或无法识别的文本返回四个空列表，不报错。
func (s *Segmenter) Segment(ctx context.Context, text string, hint *types.DocHint) types.SectionMap {
	ctx, span := tracer.Start(ctx, "Segmenter.Segment",
		trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()

	doc := NewDocument(text, hint)
	found := types.NewSectionMap()
	if doc.Text == "" && !hint.IsTabular() {
		return found
	}

	var used []string
	for _, strategy := range s.strategies {
		out, ok := strategy.Extract(ctx, doc, found)
		if !ok {
			continue
		}
		for _, section := range types.AllSections {
			found.Append(section, out.Get(section)...)
		}
		used = append(used, strategy.Name())
		if s.observer != nil {
			s.observer(strategy.Name())
		}
	}

	result := s.finalize(found)
	span.SetAttributes(
		attribute.StringSlice("segment.strategies", used),
		attribute.Int("segment.skills", len(result.Skills)),
	)
	logger.Debug().
		Strs("strategies", used).
		Int("skills", len(result.Skills)).
		Int("education", len(result.Education)).
		Int("experience", len(result.Experience)).
		Int("certifications", len(result.Certifications)).
		Msg("简历分段完成")
	return result
}

// finalize 各章节按清洗后的文本去重；技能再按规范名去重，保留第一次出现的写法
func (s *Segmenter) finalize(found types.SectionMap) types.SectionMap {
	out := types.NewSectionMap()
	for _, section := range types.AllSections {
		out.Set(section, dedupe(found.Get(section), skills.Clean))
	}
	out.Skills = dedupe(out.Skills, s.table.Canonicalize)
	return out
}

func dedupe(items []string, key func(string) string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		k := key(item)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
