package skills

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxTokenLength 超过该长度的片段视为句子而非技能
	DefaultMaxTokenLength      = 60
	// DefaultMaxBulletLineLength 列表行作为单个技能的最大长度
	DefaultMaxBulletLineLength = 50
	minTokenLength             = 2
)

// Lexicon 用于判断多个单词是否组成一个已知技能
type Lexicon interface {
	Known(skill string) bool
}

// Tokenizer 把技能章节原文拆分为单个技能。
// 依次尝试：列表行、分隔符、连写拆分，第一个有结果的策略胜出。
type Tokenizer struct {
	maxTokenLength      int
	maxBulletLineLength int
	lexicon             Lexicon
}

// TokenizerOption 分词器选项
type TokenizerOption func(*Tokenizer)

// WithMaxTokenLength 设置单个技能的最大长度
func WithMaxTokenLength(n int) TokenizerOption {
	return func(t *Tokenizer) {
		if n > 0 {
			t.maxTokenLength = n
		}
	}
}

// WithMaxBulletLineLength 设置列表行的最大长度
func WithMaxBulletLineLength(n int) TokenizerOption {
	return func(t *Tokenizer) {
		if n > 0 {
			t.maxBulletLineLength = n
		}
	}
}

// WithLexicon 连写拆分时用于合并多词技能
func WithLexicon(l Lexicon) TokenizerOption {
	return func(t *Tokenizer) {
		t.lexicon = l
	}
}

// NewTokenizer 创建分词器
func NewTokenizer(opts ...TokenizerOption) *Tokenizer {
	t := &Tokenizer{
		maxTokenLength:      DefaultMaxTokenLength,
		maxBulletLineLength: DefaultMaxBulletLineLength,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var (
	bulletLineRe   = regexp.MustCompile(`^([ \t]*)(?:[-*•·▪◦●○‣–—]|\d{1,2}[.)])[ \t]+(.*)$`)
	sentenceLikeRe = regexp.MustCompile(`[.!?]\s+[A-Z]`)
	labelPrefixRe  = regexp.MustCompile(`^[^:,;|/&]{1,30}:\s*`)
	burstSplitRe   = regexp.MustCompile(`\s{2,}|\n`)

	// 优先级固定：逗号 > 分号 > 斜杠 > 竖线 > &
	skillDelimiters = []string{",", ";", "/", "|", "&"}
)

// 连写拆分时忽略的常见词
var burstStopwords = map[string]struct{}{
	"and": {}, "the": {}, "with": {}, "for": {}, "in": {}, "of": {}, "to": {}, "on": {},
	"a": {}, "an": {}, "using": {}, "skills": {}, "skill": {}, "technical": {}, "tools": {},
	"experience": {}, "knowledge": {}, "proficient": {}, "familiar": {}, "strong": {},
}

// Split 拆分技能文本，空输入返回空切片
func (t *Tokenizer) Split(text string) []string {
	text = strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	strategies := []func(string) []string{
		t.splitBullets,
		t.splitDelimited,
		t.splitBurst,
	}
	for _, strategy := range strategies {
		if tokens := t.finalize(strategy(text)); len(tokens) > 0 {
			return tokens
		}
	}
	return []string{}
}

type bulletLine struct {
	indent int
	text   string
	bullet bool
}

func indentWidth(prefix string) int {
	width := 0
	for _, r := range prefix {
		if r == '\t' {
			width += 4
		} else {
			width++
		}
	}
	return width
}

func parseBulletLines(text string) ([]bulletLine, bool) {
	var lines []bulletLine
	hasBullet := false
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if m := bulletLineRe.FindStringSubmatch(raw); m != nil {
			hasBullet = true
			lines = append(lines, bulletLine{indent: indentWidth(m[1]), text: strings.TrimSpace(m[2]), bullet: true})
			continue
		}
		trimmed := strings.TrimLeft(raw, " \t")
		lines = append(lines, bulletLine{indent: indentWidth(raw[:len(raw)-len(trimmed)]), text: strings.TrimSpace(trimmed)})
	}
	return lines, hasBullet
}

// splitBullets 列表行策略。列表项下缩进的子列表项与父项组合为 "父: 子"；
// 缩进的非列表行是上一项的续行；非列表行下的子项各自成为技能，非列表行本身只是标签。
func (t *Tokenizer) splitBullets(text string) []string {
	lines, hasBullet := parseBulletLines(text)
	if !hasBullet {
		return nil
	}

	var tokens []string
	for i := 0; i < len(lines); {
		parent := lines[i]
		head := parent.text
		var children []string
		j := i + 1
		for ; j < len(lines) && lines[j].indent > parent.indent; j++ {
			switch {
			case lines[j].bullet:
				children = append(children, lines[j].text)
			case len(children) > 0:
				children[len(children)-1] = joinContinuation(children[len(children)-1], lines[j].text)
			default:
				head = joinContinuation(head, lines[j].text)
			}
		}
		i = j

		switch {
		case len(children) == 0:
			tokens = append(tokens, t.bulletTokens(head)...)
		case !parent.bullet:
			for _, child := range children {
				tokens = append(tokens, t.bulletTokens(child)...)
			}
		default:
			prefix := strings.TrimRight(head, ":;,- ")
			for _, child := range children {
				if !t.isShortItem(child) {
					continue
				}
				tokens = append(tokens, prefix+": "+child)
			}
		}
	}
	return tokens
}

func joinContinuation(line, next string) string {
	return strings.TrimSpace(line) + " " + strings.TrimSpace(next)
}

// bulletTokens 单行列表项：含分隔符时按分隔符拆分，否则短行整体作为技能
func (t *Tokenizer) bulletTokens(line string) []string {
	if delim := firstDelimiter(line); delim != "" {
		return splitOn(stripLabel(line), delim)
	}
	if t.isShortItem(line) {
		return []string{line}
	}
	return nil
}

func (t *Tokenizer) isShortItem(line string) bool {
	if utf8.RuneCountInString(line) > t.maxBulletLineLength {
		return false
	}
	return !isSentenceLike(line)
}

func isSentenceLike(line string) bool {
	line = strings.TrimSpace(line)
	return strings.HasSuffix(line, ".") || sentenceLikeRe.MatchString(line)
}

func firstDelimiter(text string) string {
	for _, d := range skillDelimiters {
		if strings.Contains(text, d) {
			return d
		}
	}
	return ""
}

func stripLabel(line string) string {
	if loc := labelPrefixRe.FindStringIndex(line); loc != nil && loc[1] < len(line) {
		return line[loc[1]:]
	}
	return line
}

// splitOn 按分隔符拆分，保留长度大于2的非数字片段
func splitOn(text, delim string) []string {
	var out []string
	for _, part := range strings.Split(text, delim) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) <= 2 || isNumeric(part) {
			continue
		}
		out = append(out, part)
	}
	return out
}

// splitDelimited 分隔符策略，逐行去掉列表符号和 "标签:" 前缀后拆分
func (t *Tokenizer) splitDelimited(text string) []string {
	delim := firstDelimiter(text)
	if delim == "" {
		return nil
	}
	var tokens []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletLineRe.FindStringSubmatch(line); m != nil {
			line = m[2]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tokens = append(tokens, splitOn(stripLabel(line), delim)...)
	}
	return tokens
}

// splitBurst 连写拆分：先按多空格切块，只有一块时再按大小写边界拆词
func (t *Tokenizer) splitBurst(text string) []string {
	var pieces []string
	for _, p := range burstSplitRe.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			pieces = append(pieces, p)
		}
	}
	if len(pieces) > 1 {
		var out []string
		for _, p := range pieces {
			if utf8.RuneCountInString(p) <= t.maxBulletLineLength && !isSentenceLike(p) {
				out = append(out, p)
			}
		}
		return out
	}

	var words []string
	for _, w := range strings.Fields(text) {
		if t.lexicon != nil && t.lexicon.Known(w) {
			words = append(words, w)
			continue
		}
		words = append(words, splitCamel(w)...)
	}
	return t.groupWords(words)
}

// groupWords 贪心合并最多三个连续单词组成的已知技能
func (t *Tokenizer) groupWords(words []string) []string {
	var out []string
	for i := 0; i < len(words); {
		grouped := false
		if t.lexicon != nil {
			for n := 3; n >= 2; n-- {
				if i+n > len(words) {
					continue
				}
				phrase := strings.Join(words[i:i+n], " ")
				if t.lexicon.Known(phrase) {
					out = append(out, phrase)
					i += n
					grouped = true
					break
				}
			}
		}
		if grouped {
			continue
		}
		w := words[i]
		i++
		if _, stop := burstStopwords[strings.ToLower(strings.Trim(w, ".,:;"))]; stop {
			continue
		}
		if t.lexicon != nil && t.lexicon.Known(w) {
			out = append(out, w)
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) || utf8.RuneCountInString(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// splitCamel "PythonMachineLearningSQL" -> Python Machine Learning SQL
func splitCamel(word string) []string {
	runes := []rune(word)
	if len(runes) < 2 {
		return []string{word}
	}
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			boundary = i-start > 1
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}

func isNumeric(s string) bool {
	hasDigit := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSpace(r), strings.ContainsRune(".,%+-/:", r):
		default:
			return false
		}
	}
	return hasDigit
}

// trimToken 去掉首尾标点，+ 和 # 保留
func trimToken(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		if r == '+' || r == '#' {
			return false
		}
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// finalize 统一清理：去标点、丢弃空串、纯数字、过长和过短的片段
func (t *Tokenizer) finalize(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = trimToken(tok)
		n := utf8.RuneCountInString(tok)
		if n < minTokenLength || n > t.maxTokenLength || isNumeric(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}
