package segmenter

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-match-go/internal/types"
)

// 技能表格的表头关键词
var tableHeaderKeywords = []string{"skill", "technology", "tool", "framework", "proficiency", "competency", "competencies", "technologies"}

// 熟练度一类的单元格不是技能
var proficiencyLevels = map[string]struct{}{
	"beginner": {}, "elementary": {}, "intermediate": {}, "advanced": {}, "expert": {},
	"basic": {}, "proficient": {}, "fluent": {}, "native": {}, "good": {}, "excellent": {},
	"yes": {}, "no": {}, "n/a": {},
}

var (
	columnGapRe    = regexp.MustCompile(`\t+|\s{2,}`)
	durationCellRe = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?\+?\s*(?:years?|yrs?|months?|%)$`)
)

// TableStrategy 只在文档来自表格型来源时启用：
// 找到表头含技能关键词的表格，把其中短小的非数字单元格加入技能。
type TableStrategy struct {
	MaxCellLength int
}

// Name 策略名
func (s *TableStrategy) Name() string { return "table" }

// Extract 实现 Strategy
func (s *TableStrategy) Extract(_ context.Context, doc *Document, _ types.SectionMap) (types.SectionMap, bool) {
	out := types.NewSectionMap()
	if !doc.Hint.IsTabular() {
		return out, false
	}
	tables := doc.Hint.Tables
	if len(tables) == 0 {
		tables = DetectTables(doc.Lines)
	}
	for _, table := range tables {
		header := skillHeaderRow(table)
		if header < 0 {
			continue
		}
		for _, row := range table[header+1:] {
			for _, cell := range row {
				if s.looksLikeSkill(cell) {
					out.Skills = append(out.Skills, strings.TrimSpace(cell))
				}
			}
		}
	}
	return out, len(out.Skills) > 0
}

func containsTableKeyword(cell string) bool {
	lower := strings.ToLower(cell)
	for _, kw := range tableHeaderKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// skillHeaderRow 返回表头行下标，只看前三行
func skillHeaderRow(table types.Table) int {
	for i, row := range table {
		if i >= 3 {
			break
		}
		for _, cell := range row {
			if containsTableKeyword(cell) {
				return i
			}
		}
	}
	return -1
}

func (s *TableStrategy) looksLikeSkill(cell string) bool {
	cell = strings.TrimSpace(cell)
	maxLen := s.MaxCellLength
	if maxLen <= 0 {
		maxLen = DefaultMaxTableCellLength
	}
	n := utf8.RuneCountInString(cell)
	if n < 2 || n >= maxLen || containsTableKeyword(cell) {
		return false
	}
	if _, level := proficiencyLevels[strings.ToLower(cell)]; level {
		return false
	}
	if durationCellRe.MatchString(cell) {
		return false
	}
	return strings.IndexFunc(cell, unicode.IsLetter) >= 0
}

// DetectTables 从纯文本中识别表格：连续两行以上、按 | 或制表符或多个空格分出至少两列
func DetectTables(lines []string) []types.Table {
	var tables []types.Table
	var current types.Table
	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, current)
		}
		current = nil
	}
	for _, line := range lines {
		cells := splitColumns(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		if isSeparatorRow(cells) {
			continue
		}
		current = append(current, cells)
	}
	flush()
	return tables
}

func splitColumns(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var parts []string
	if strings.Contains(line, "|") {
		parts = strings.Split(strings.Trim(line, "|"), "|")
	} else {
		parts = columnGapRe.Split(line, -1)
	}
	var cells []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

// isSeparatorRow markdown 表格的 ---|--- 分隔行
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-:= ") != "" {
			return false
		}
	}
	return true
}
