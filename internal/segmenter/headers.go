package segmenter

import (
	"regexp"
	"strings"

	"resume-match-go/internal/types"
)

// 每个章节的标题同义词，按组排序，靠前的组优先
var sectionHeaders = map[types.SectionType][][]string{
	types.SectionSkills: {
		{"technical skills", "technical competencies", "core competencies", "key skills",
			"skill set", "skillset", "skills and abilities", "areas of expertise",
			"technical expertise", "tools and technologies", "technologies", "tech stack"},
		{"skills", "competencies", "proficiencies", "expertise", "abilities"},
	},
	types.SectionEducation: {
		{"education", "academic background", "educational background", "academic qualifications",
			"academic history"},
		{"academics", "qualifications", "education and training"},
	},
	types.SectionExperience: {
		{"work experience", "professional experience", "employment history", "work history",
			"career history", "relevant experience", "professional background"},
		{"experience", "employment", "internships", "internship experience"},
	},
	types.SectionCertifications: {
		{"certifications", "licenses and certifications", "certificates", "certification"},
		{"accreditations", "courses", "training", "professional development"},
	},
}

// 不属于四个章节、但标志着上一章节结束的标题
var terminatorHeaders = []string{
	"projects", "personal projects", "academic projects", "summary", "professional summary",
	"profile", "objective", "career objective", "interests", "hobbies", "references",
	"awards", "achievements", "honors", "publications", "languages", "volunteer",
	"volunteering", "activities", "extracurricular activities", "contact", "personal details",
	"personal information", "declaration",
}

// 标题后面可以跟的修饰词，如 "Skills Summary"、"Experience Details"
var headerFillers = map[string]struct{}{
	"and": {}, "tools": {}, "skills": {}, "summary": {}, "history": {}, "details": {},
	"highlights": {}, "section": {}, "overview": {}, "list": {},
}

var (
	headerMarkupRe = regexp.MustCompile(`^[\s#*=_\-:|•>]+|[\s#*=_\-:|•<]+$`)
	headerSpaceRe  = regexp.MustCompile(`\s+`)
)

const maxHeaderLength = 50

// normalizeHeader 去掉装饰符号、& 统一为 and、小写
func normalizeHeader(line string) string {
	s := headerMarkupRe.ReplaceAllString(line, "")
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "/", " and ")
	return strings.TrimSpace(headerSpaceRe.ReplaceAllString(strings.ToLower(s), " "))
}

// matchesLabel 标题与某个同义词相同，或只多出修饰词 / "and xxx"
func matchesLabel(header, label string) bool {
	if header == label {
		return true
	}
	rest, ok := strings.CutPrefix(header, label+" ")
	if !ok {
		return false
	}
	words := strings.Fields(rest)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	if words[0] == "and" {
		return true
	}
	for _, w := range words {
		if _, filler := headerFillers[w]; !filler {
			return false
		}
	}
	return true
}

// headerLine 一行被识别为标题后的信息
type headerLine struct {
	section types.SectionType // 终止类标题为空
	group   int
	inline  string // "Skills: Python, SQL" 中冒号后的内容
}

// classifyHeader 判断一行是否为章节标题
func classifyHeader(line string) (headerLine, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return headerLine{}, false
	}
	if h, ok := matchHeaderText(trimmed); ok {
		return h, true
	}
	// 行内标题 "Skills: Python, SQL"
	if head, tail, found := strings.Cut(trimmed, ":"); found && strings.TrimSpace(tail) != "" {
		if h, ok := matchHeaderText(head); ok {
			h.inline = strings.TrimSpace(tail)
			return h, true
		}
	}
	return headerLine{}, false
}

func matchHeaderText(text string) (headerLine, bool) {
	if len(text) > maxHeaderLength {
		return headerLine{}, false
	}
	header := normalizeHeader(text)
	if header == "" {
		return headerLine{}, false
	}
	for _, section := range types.AllSections {
		for gi, group := range sectionHeaders[section] {
			for _, label := range group {
				if matchesLabel(header, label) {
					return headerLine{section: section, group: gi}, true
				}
			}
		}
	}
	for _, label := range terminatorHeaders {
		if matchesLabel(header, label) {
			return headerLine{}, true
		}
	}
	return headerLine{}, false
}
