package segmenter

import (
	"context"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

// KeywordStrategy 技能数量（按规范名去重）不足时扫描全文，按词边界匹配词表中的技能
type KeywordStrategy struct {
	Vocabulary *skills.Vocabulary
	Table      *skills.Table
	MinSkills  int
}

// Name 策略名
func (s *KeywordStrategy) Name() string { return "keyword" }

// Extract 实现 Strategy
func (s *KeywordStrategy) Extract(_ context.Context, doc *Document, found types.SectionMap) (types.SectionMap, bool) {
	out := types.NewSectionMap()
	if s.Vocabulary == nil || doc.Text == "" || s.distinct(found.Skills) >= s.MinSkills {
		return out, false
	}
	for _, m := range s.Vocabulary.Scan(doc.Text) {
		out.Skills = append(out.Skills, m.Term)
	}
	return out, len(out.Skills) > 0
}

// distinct 已找到的不同技能数；没有规范化表时按清洗后的文本去重
func (s *KeywordStrategy) distinct(found []string) int {
	key := skills.Clean
	if s.Table != nil {
		key = s.Table.Canonicalize
	}
	seen := make(map[string]struct{}, len(found))
	for _, skill := range found {
		if k := key(skill); k != "" {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}
