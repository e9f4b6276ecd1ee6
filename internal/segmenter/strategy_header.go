package segmenter

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

// HeaderStrategy 按章节标题定位内容，直到下一个可识别标题或文末。
// 同一章节出现多个标题时，同义词组靠前的优先，同组内取文档中第一个。
type HeaderStrategy struct {
	Tokenizer *skills.Tokenizer
}

// Name 策略名
func (s *HeaderStrategy) Name() string { return "header" }

type sectionSpan struct {
	group  int
	start  int // 标题行下标
	end    int // 内容结束（不含）
	inline string
}

// Extract 实现 Strategy
func (s *HeaderStrategy) Extract(_ context.Context, doc *Document, _ types.SectionMap) (types.SectionMap, bool) {
	out := types.NewSectionMap()
	if len(doc.Lines) == 0 {
		return out, false
	}

	// 先标出所有标题行
	headers := make(map[int]headerLine)
	for i, line := range doc.Lines {
		if h, ok := classifyHeader(line); ok {
			headers[i] = h
		}
	}
	if len(headers) == 0 {
		return out, false
	}

	spans := make(map[types.SectionType]sectionSpan)
	for i := range doc.Lines {
		h, ok := headers[i]
		if !ok || h.section == "" {
			continue
		}
		if prev, exists := spans[h.section]; exists && prev.group <= h.group {
			continue
		}
		end := i + 1
		for end < len(doc.Lines) {
			if _, isHeader := headers[end]; isHeader {
				break
			}
			end++
		}
		spans[h.section] = sectionSpan{group: h.group, start: i, end: end, inline: h.inline}
	}

	ok := false
	for _, section := range types.AllSections {
		span, found := spans[section]
		if !found {
			continue
		}
		content := doc.Lines[span.start+1 : span.end]
		if span.inline != "" {
			content = append([]string{span.inline}, content...)
		}
		items := s.items(section, content)
		if len(items) > 0 {
			out.Set(section, items)
			ok = true
		}
	}
	return out, ok
}

func (s *HeaderStrategy) items(section types.SectionType, lines []string) []string {
	if section == types.SectionSkills {
		return tokenizerOrDefault(s.Tokenizer).Split(strings.Join(lines, "\n"))
	}
	return splitEntries(lines)
}

func tokenizerOrDefault(t *skills.Tokenizer) *skills.Tokenizer {
	if t == nil {
		return skills.NewTokenizer()
	}
	return t
}

var entryBulletRe = regexp.MustCompile(`^\s*(?:[-*•·▪◦●○‣–—]|\d{1,2}[.)])\s+`)

// splitEntries 非技能章节按行拆分，去掉列表符号和首尾标点
func splitEntries(lines []string) []string {
	var out []string
	for _, line := range lines {
		line = entryBulletRe.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), ",;|")
		if utf8.RuneCountInString(line) < 2 {
			continue
		}
		out = append(out, line)
	}
	return out
}
