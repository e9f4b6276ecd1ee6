package segmenter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

const sampleResume = `John Doe
john@example.com

TECHNICAL SKILLS
Python, SQL, Machine Learning, Tableau

EDUCATION
B.Sc. Computer Science, University of Lagos, 2019

WORK EXPERIENCE
- Data Analyst, Acme Corp (2019-2022)
- Intern, Beta Ltd

CERTIFICATIONS
AWS Certified Cloud Practitioner

Page 1 of 2`

func newTestSegmenter(opts ...Option) *Segmenter {
	return New(skills.NewDefaultTable(), opts...)
}

func TestSegment_HeaderAnchored(t *testing.T) {
	seg := newTestSegmenter()
	got := seg.Segment(context.Background(), sampleResume, nil)

	assert.Equal(t, []string{"Python", "SQL", "Machine Learning", "Tableau"}, got.Skills)
	assert.Equal(t, []string{"B.Sc. Computer Science, University of Lagos, 2019"}, got.Education)
	assert.Equal(t, []string{"Data Analyst, Acme Corp (2019-2022)", "Intern, Beta Ltd"}, got.Experience)
	assert.Equal(t, []string{"AWS Certified Cloud Practitioner"}, got.Certifications)
}

func TestSegment_EmptyInput(t *testing.T) {
	seg := newTestSegmenter()
	for _, text := range []string{"", "   \n\n\t", "Page 1 of 3"} {
		got := seg.Segment(context.Background(), text, nil)
		assert.Equal(t, types.NewSectionMap(), got, "输入 %q", text)
		assert.NotNil(t, got.Skills)
	}
}

func TestSegment_Deterministic(t *testing.T) {
	seg := newTestSegmenter()
	first := seg.Segment(context.Background(), sampleResume, nil)
	second := seg.Segment(context.Background(), sampleResume, nil)
	assert.Equal(t, first, second)
}

func TestSegment_InlineHeaders(t *testing.T) {
	seg := newTestSegmenter()
	got := seg.Segment(context.Background(), "Skills: Python, Java, Docker, Git\nEducation: BSc Mathematics", nil)

	assert.Equal(t, []string{"Python", "Java", "Docker", "Git"}, got.Skills)
	assert.Equal(t, []string{"BSc Mathematics"}, got.Education)
}

func TestSegment_EarlierHeaderGroupWins(t *testing.T) {
	seg := newTestSegmenter()
	text := "Skills\nCommunication\n\nTechnical Skills\nPython, Docker, Kubernetes, Linux"
	got := seg.Segment(context.Background(), text, nil)

	assert.Equal(t, []string{"Python", "Docker", "Kubernetes", "Linux"}, got.Skills)
}

func TestSegment_NestedBullets(t *testing.T) {
	seg := newTestSegmenter()
	got := seg.Segment(context.Background(), "Skills\n- Cyber Security\n  - Penetration Testing\n- SQL", nil)

	assert.Contains(t, got.Skills, "Cyber Security: Penetration Testing")
	assert.Contains(t, got.Skills, "SQL")
}

func TestSegment_CanonicalDedupeKeepsFirstSpelling(t *testing.T) {
	seg := newTestSegmenter()
	text := "Skills\n- MySQL\n- SQL\n- Python\n- python\n- Node.js\n- NodeJS"
	got := seg.Segment(context.Background(), text, nil)

	assert.Equal(t, []string{"MySQL", "Python", "Node.js"}, got.Skills)
}

func TestSegment_KeywordScanWhenFewSkills(t *testing.T) {
	seg := newTestSegmenter()
	got := seg.Segment(context.Background(),
		"Experienced engineer who built Python and Docker services on AWS with Kubernetes.", nil)

	assert.Equal(t, []string{"Python", "Docker", "AWS", "Kubernetes"}, got.Skills)
}

func TestSegment_KeywordScanCountsDistinctSkills(t *testing.T) {
	seg := newTestSegmenter()
	text := "Jane Doe\nBuilt Docker services on AWS.\n\nSkills\nPython, python, PYTHON, Python"
	got := seg.Segment(context.Background(), text, nil)

	assert.Equal(t, "Python", got.Skills[0])
	assert.ElementsMatch(t, []string{"Python", "Docker", "AWS"}, got.Skills)
}

func TestKeywordStrategy_DistinctWithoutTable(t *testing.T) {
	s := &KeywordStrategy{MinSkills: 2}
	assert.Equal(t, 1, s.distinct([]string{"Python", "python ", "PYTHON"}))
	s.Table = skills.NewDefaultTable()
	assert.Equal(t, 2, s.distinct([]string{"Python", "py", "Docker"}))
}

func TestSegment_KeywordScanDisabled(t *testing.T) {
	seg := newTestSegmenter(WithMinSkills(0))
	got := seg.Segment(context.Background(),
		"Experienced engineer who built Python and Docker services on AWS with Kubernetes.", nil)

	assert.Empty(t, got.Skills)
}

func TestSegment_FallbackScan(t *testing.T) {
	seg := newTestSegmenter()
	text := "Proficient in Go, Rust, Haskell and Elixir\n\nGraduated from Stanford University in 2015"
	got := seg.Segment(context.Background(), text, nil)

	assert.Equal(t, []string{"Rust", "Haskell and Elixir"}, got.Skills)
	assert.Equal(t, []string{"Graduated from Stanford University in 2015"}, got.Education)
	assert.Empty(t, got.Certifications)
}

func TestSegment_TablesFromHint(t *testing.T) {
	seg := newTestSegmenter()
	hint := &types.DocHint{Format: "pdf", Tables: []types.Table{
		{{"Skill", "Proficiency"}, {"Python", "Expert"}, {"Docker", "Intermediate"}, {"5 years", "2019"}},
		{{"Company", "Role"}, {"Acme", "Analyst"}},
	}}
	got := seg.Segment(context.Background(), "", hint)

	assert.Equal(t, []string{"Python", "Docker"}, got.Skills)
	assert.Empty(t, got.Education)
}

func TestSegment_TablesDetectedFromText(t *testing.T) {
	var used []string
	seg := newTestSegmenter(WithStrategyObserver(func(name string) { used = append(used, name) }))
	text := "Technology      Level\nElixir Phoenix    Advanced\nTableau      Expert"
	got := seg.Segment(context.Background(), text, &types.DocHint{Tabular: true})

	assert.Equal(t, []string{"Elixir Phoenix", "Tableau"}, got.Skills)
	assert.Contains(t, used, "table")
}

func TestTableStrategy_RequiresTabularHint(t *testing.T) {
	s := &TableStrategy{}
	doc := NewDocument("Skill  Level\nPython  Expert", nil)
	_, ok := s.Extract(context.Background(), doc, types.NewSectionMap())
	assert.False(t, ok)
}

func TestDetectTables(t *testing.T) {
	lines := []string{
		"| Skill | Level |",
		"|-------|-------|",
		"| Go    | Expert |",
		"",
		"single column",
		"a\tb",
	}
	tables := DetectTables(lines)
	require.Len(t, tables, 1)
	assert.Equal(t, types.Table{{"Skill", "Level"}, {"Go", "Expert"}}, tables[0])
}

func TestCleanText(t *testing.T) {
	in := "Line one\r\nPage 2\r\n\r\n\r\n   indented    gap\fNext"
	assert.Equal(t, "Line one\n\n   indented  gap\nNext", CleanText(in))
	assert.Equal(t, "", CleanText(""))
}

func TestClassifyHeader(t *testing.T) {
	cases := []struct {
		line    string
		section types.SectionType
		header  bool
		inline  string
	}{
		{"TECHNICAL SKILLS", types.SectionSkills, true, ""},
		{"## Work Experience ##", types.SectionExperience, true, ""},
		{"Education & Training", types.SectionEducation, true, ""},
		{"Skills Summary:", types.SectionSkills, true, ""},
		{"Certifications: AWS SAA", types.SectionCertifications, true, "AWS SAA"},
		{"Projects", "", true, ""},
		{"Python, SQL, Tableau", "", false, ""},
		{"Skills are important for every engineer in the modern workplace today", "", false, ""},
	}
	for _, c := range cases {
		h, ok := classifyHeader(c.line)
		assert.Equal(t, c.header, ok, c.line)
		assert.Equal(t, c.section, h.section, c.line)
		assert.Equal(t, c.inline, h.inline, c.line)
	}
}
