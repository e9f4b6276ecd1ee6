package skills

import (
	"strings"
	"unicode"
)

// SynonymGroup 一个规范技能及其所有表面写法
type SynonymGroup struct {
	Canonical string   `yaml:"canonical" json:"canonical"`
	Synonyms  []string `yaml:"synonyms" json:"synonyms"`
}

// Table 规范化表：多个表面写法映射到同一个规范技能名。
// 构造后只读，可被多个 goroutine 并发使用。
type Table struct {
	groups []SynonymGroup
	index  map[string]string // Clean(写法) -> 规范名
}

// Clean 小写、去掉标点（保留 + 和 #）、合并空白。
// "Node.js" -> "nodejs"，"C++" -> "c++"，"PL/SQL" -> "plsql"
func Clean(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '+', r == '#':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// canonicalKey 规范名本身只做小写和空白整理，保留原有标点
func canonicalKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NewTable 由基础分组构造规范化表，extra 中的分组会合并进来：
// 与已有规范名相同（按 Clean 比较）的分组追加写法，否则作为新分组追加到末尾。
func NewTable(base []SynonymGroup, extra ...SynonymGroup) *Table {
	t := &Table{index: make(map[string]string)}
	pos := make(map[string]int) // Clean(规范名) -> groups 下标

	add := func(g SynonymGroup) {
		name := canonicalKey(g.Canonical)
		key := Clean(name)
		if key == "" {
			return
		}
		if i, ok := pos[key]; ok {
			t.groups[i].Synonyms = append(t.groups[i].Synonyms, g.Synonyms...)
			return
		}
		pos[key] = len(t.groups)
		t.groups = append(t.groups, SynonymGroup{
			Canonical: name,
			Synonyms:  append([]string{}, g.Synonyms...),
		})
	}
	for _, g := range base {
		add(g)
	}
	for _, g := range extra {
		add(g)
	}

	// 规范名优先占位，保证 Canonicalize 幂等
	for _, g := range t.groups {
		t.index[Clean(g.Canonical)] = g.Canonical
	}
	// 写法按声明顺序占位，先到先得
	for _, g := range t.groups {
		for _, syn := range g.Synonyms {
			key := Clean(syn)
			if key == "" {
				continue
			}
			if _, taken := t.index[key]; !taken {
				t.index[key] = g.Canonical
			}
		}
	}
	return t
}

// NewDefaultTable 使用内置同义词分组构造规范化表
func NewDefaultTable(extra ...SynonymGroup) *Table {
	return NewTable(DefaultGroups(), extra...)
}

// Canonicalize 返回技能的规范名；未知技能返回清洗后的自身，空输入返回空串
func (t *Table) Canonicalize(skill string) string {
	key := Clean(skill)
	if key == "" {
		return ""
	}
	if t != nil {
		if canonical, ok := t.index[key]; ok {
			return canonical
		}
	}
	return key
}

// Known 该写法是否出现在表中（规范名或同义词）
func (t *Table) Known(skill string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[Clean(skill)]
	return ok
}

// Canonicals 按声明顺序返回所有规范名
func (t *Table) Canonicals() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, g.Canonical)
	}
	return out
}

// Groups 返回分组副本
func (t *Table) Groups() []SynonymGroup {
	if t == nil {
		return nil
	}
	out := make([]SynonymGroup, len(t.groups))
	for i, g := range t.groups {
		out[i] = SynonymGroup{Canonical: g.Canonical, Synonyms: append([]string{}, g.Synonyms...)}
	}
	return out
}

// Len 规范技能数量
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.groups)
}
