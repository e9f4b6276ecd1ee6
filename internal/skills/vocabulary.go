package skills

import (
	"regexp"
	"sort"
	"strings"
)

// Match 全文扫描命中的技能词
type Match struct {
	Term   string // 文档中的原始写法
	Offset int
}

// Vocabulary 关键词扫描使用的技能词表，每个词一个按词边界匹配的正则
type Vocabulary struct {
	terms    []string
	patterns []*regexp.Regexp
}

// 单字符或过于宽泛的写法不参与全文扫描
var vocabularyExcluded = map[string]struct{}{
	"r": {}, "go": {}, "ai": {}, "ml": {}, "dl": {}, "js": {}, "ts": {}, "tf": {}, "py": {},
	"xd": {}, "s3": {}, "iac": {}, "kube": {}, "torch": {}, "charts": {}, "reasoning": {},
	"management": {}, "analytics": {}, "visualization": {}, "lambda": {}, "dart": {},
	"oracle": {}, "database": {}, "bootstrap": {}, "express": {}, "spring": {},
}

// 不在同义词表中、但常见于简历的技能词
var extraVocabulary = []string{
	"excel", "microsoft excel", "jira", "agile", "scrum", "rest api", "graphql",
	"redis", "kafka", "rabbitmq", "elasticsearch", "spark", "hadoop", "airflow",
	"golang", "rust", "scala", "matlab", "bash", "powershell", "selenium", "postman",
	"jquery", "next.js", "spring boot", "machine learning", "project management",
}

// NewVocabulary 由显式词表构造
func NewVocabulary(terms []string) *Vocabulary {
	v := &Vocabulary{}
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(strings.ToLower(term))
		if len([]rune(term)) < 2 {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		v.terms = append(v.terms, term)
		v.patterns = append(v.patterns, termPattern(term))
	}
	return v
}

// VocabularyFromTable 规范名和较长的同义词，加上常见技能词
func VocabularyFromTable(t *Table) *Vocabulary {
	var terms []string
	for _, g := range t.Groups() {
		for _, form := range append([]string{g.Canonical}, g.Synonyms...) {
			if _, skip := vocabularyExcluded[form]; skip {
				continue
			}
			terms = append(terms, form)
		}
	}
	return NewVocabulary(append(terms, extraVocabulary...))
}

// termPattern 词边界按字母数字判断，多词之间允许任意空白
func termPattern(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + strings.Join(words, `\s+`) + `)(?:$|[^\p{L}\p{N}+#])`)
}

// Terms 词表内容
func (v *Vocabulary) Terms() []string {
	return append([]string{}, v.terms...)
}

// Scan 找出文档中出现的所有技能词，按首次出现位置排序，同一位置取最长的词
func (v *Vocabulary) Scan(text string) []Match {
	if v == nil || text == "" {
		return nil
	}
	var matches []Match
	for _, re := range v.patterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		matches = append(matches, Match{Term: text[loc[2]:loc[3]], Offset: loc[2]})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Offset != matches[j].Offset {
			return matches[i].Offset < matches[j].Offset
		}
		return len(matches[i].Term) > len(matches[j].Term)
	})
	return matches
}
