package segmenter

import (
	"context"
	"regexp"
	"strings"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

const fallbackLookahead = 8

// 宽松关键词，出现在行内即可
var fallbackKeywords = map[types.SectionType][]string{
	types.SectionSkills:         {"skills", "skill", "proficient in", "familiar with", "expertise in", "knowledge of"},
	types.SectionEducation:      {"university", "college", "school", "bachelor", "master", "phd", "degree", "b.sc", "m.sc", "diploma"},
	types.SectionExperience:     {"internship", "intern", "work", "job", "position", "career", "employed"},
	types.SectionCertifications: {"certified", "certificate", "certification", "course", "training"},
}

type keywordPattern struct {
	section types.SectionType
	re      *regexp.Regexp
}

var fallbackPatterns = func() []keywordPattern {
	var out []keywordPattern
	for _, section := range types.AllSections {
		for _, kw := range fallbackKeywords[section] {
			out = append(out, keywordPattern{
				section: section,
				re:      regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(kw) + `(?:$|[^\p{L}\p{N}])\s*:?\s*`),
			})
		}
	}
	return out
}()

// FallbackStrategy 只填补仍为空的章节：找到第一处含宽松关键词的行，
// 取该行及其后若干行（遇到空行或标题停止）。
type FallbackStrategy struct {
	Tokenizer *skills.Tokenizer
}

// Name 策略名
func (s *FallbackStrategy) Name() string { return "fallback" }

// Extract 实现 Strategy
func (s *FallbackStrategy) Extract(_ context.Context, doc *Document, found types.SectionMap) (types.SectionMap, bool) {
	out := types.NewSectionMap()
	ok := false
	for _, section := range types.AllSections {
		if len(found.Get(section)) > 0 || len(doc.Lines) == 0 {
			continue
		}
		items := s.scan(section, doc.Lines)
		if len(items) > 0 {
			out.Set(section, items)
			ok = true
		}
	}
	return out, ok
}

func (s *FallbackStrategy) scan(section types.SectionType, lines []string) []string {
	for i, line := range lines {
		for _, p := range fallbackPatterns {
			if p.section != section {
				continue
			}
			loc := p.re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			block := s.block(lines, i)
			if section == types.SectionSkills {
				// 技能从关键词之后开始取
				block[0] = line[loc[1]:]
				return tokenizerOrDefault(s.Tokenizer).Split(strings.Join(block, "\n"))
			}
			return splitEntries(block)
		}
	}
	return nil
}

// block 命中行（含）加上后续最多 fallbackLookahead 行
func (s *FallbackStrategy) block(lines []string, from int) []string {
	block := []string{lines[from]}
	for j := from + 1; j < len(lines) && j <= from+fallbackLookahead; j++ {
		if strings.TrimSpace(lines[j]) == "" {
			break
		}
		if _, isHeader := classifyHeader(lines[j]); isHeader {
			break
		}
		block = append(block, lines[j])
	}
	return block
}
