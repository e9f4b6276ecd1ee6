package skills

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplit_Empty(t *testing.T) {
	tok := NewTokenizer()
	assert.Equal(t, []string{}, tok.Split(""))
	assert.Equal(t, []string{}, tok.Split("   \n\t  "))
}

func TestSplit_Delimited(t *testing.T) {
	tok := NewTokenizer()
	assert.Equal(t, []string{"Python", "SQL", "Machine Learning"}, tok.Split("Python, SQL, Machine Learning"))
	// 逗号优先于分号
	assert.Equal(t, []string{"Java; Kotlin", "Docker"}, tok.Split("Java; Kotlin, Docker"))
	// 纯数字和不超过2个字符的片段被丢弃
	assert.Equal(t, []string{"Python", "Docker"}, tok.Split("Python; 2019; Go; Docker"))
}

func TestSplit_DelimitedWithLabels(t *testing.T) {
	tok := NewTokenizer()
	text := "Languages: Python, Java\nTools: Docker, Git."
	assert.Equal(t, []string{"Python", "Java", "Docker", "Git"}, tok.Split(text))
}

func TestSplit_NestedBullets(t *testing.T) {
	tok := NewTokenizer()
	tokens := tok.Split("- Cyber Security\n  - Penetration Testing\n- SQL")
	assert.Contains(t, tokens, "Cyber Security: Penetration Testing")
	assert.Contains(t, tokens, "SQL")
	assert.NotContains(t, tokens, "Cyber Security")
}

func TestSplit_BulletContinuationLines(t *testing.T) {
	tok := NewTokenizer()
	// 缩进的非列表行接在上一项后面，不组合
	assert.Equal(t, []string{"Python", "Java", "SQL", "Docker"}, tok.Split("- Python, Java,\n  SQL\n- Docker"))
	assert.Equal(t, []string{"Cyber Security: Penetration Testing", "SQL"},
		tok.Split("- Cyber Security\n  - Penetration\n    Testing\n- SQL"))
}

func TestSplit_NonBulletParentIsLabel(t *testing.T) {
	tok := NewTokenizer()
	assert.Equal(t, []string{"Python", "Rust"}, tok.Split("Languages\n  - Python\n  - Rust"))
}

func TestSplit_BulletsSkipSentences(t *testing.T) {
	tok := NewTokenizer()
	text := strings.Join([]string{
		"• Docker",
		"• Built and maintained the internal deployment platform. Reduced costs.",
		"• Led a team of five engineers.",
		"• Kubernetes",
	}, "\n")
	assert.Equal(t, []string{"Docker", "Kubernetes"}, tok.Split(text))
}

func TestSplit_BulletWithDelimiters(t *testing.T) {
	tok := NewTokenizer()
	text := "- Languages: Python, Go, TypeScript\n- Cloud: AWS | GCP"
	assert.Equal(t, []string{"Python", "TypeScript", "AWS", "GCP"}, tok.Split(text))
}

func TestSplit_BurstWithLexicon(t *testing.T) {
	tok := NewTokenizer(WithLexicon(NewDefaultTable()))
	assert.Equal(t, []string{"Python", "Machine Learning", "SQL"}, tok.Split("Python Machine Learning SQL"))
	assert.Equal(t, []string{"Python", "Machine Learning", "SQL"}, tok.Split("PythonMachineLearningSQL"))
}

func TestSplit_BurstMultipleSpaces(t *testing.T) {
	tok := NewTokenizer()
	assert.Equal(t, []string{"Python", "Data Analysis", "Tableau"}, tok.Split("Python   Data Analysis   Tableau"))
}

func TestSplitCamel(t *testing.T) {
	assert.Equal(t, []string{"Python", "Machine", "Learning", "SQL"}, splitCamel("PythonMachineLearningSQL"))
	assert.Equal(t, []string{"SQL", "Server"}, splitCamel("SQLServer"))
	assert.Equal(t, []string{"iOS"}, splitCamel("iOS"))
	assert.Equal(t, []string{"x"}, splitCamel("x"))
}

func TestSplit_TokenBounds(t *testing.T) {
	tok := NewTokenizer()
	long := strings.Repeat("verylongword", 8)
	inputs := []string{
		"a, b, c",
		long + ", Python",
		"- " + long + "\n- Git",
		"(Python), [SQL], \"Excel\"",
		"2019, 2020, 3.5",
		"C++, C#, .NET",
	}
	for _, in := range inputs {
		for _, tok := range tok.Split(in) {
			n := utf8.RuneCountInString(tok)
			assert.GreaterOrEqual(t, n, 2, "输入 %q", in)
			assert.LessOrEqual(t, n, DefaultMaxTokenLength, "输入 %q", in)
			assert.False(t, isNumeric(tok), "输入 %q", in)
		}
	}
}

func TestSplit_KeepsPlusAndHash(t *testing.T) {
	tok := NewTokenizer()
	assert.Equal(t, []string{"C++", "NET"}, tok.Split("C++, C#, .NET"))
	assert.Equal(t, []string{"C++", "C#"}, tok.Split("- C++\n- C#"))
}
