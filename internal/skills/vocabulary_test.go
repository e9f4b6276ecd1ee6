package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func terms(matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Term)
	}
	return out
}

func TestVocabulary_ScanOrderAndBoundaries(t *testing.T) {
	v := NewVocabulary([]string{"sql", "python", "machine learning", "java", "c++"})
	text := "Built Python services, tuned MySQL and SQL queries; applied Machine\nLearning with C++. JavaScript only."

	got := terms(v.Scan(text))
	assert.Equal(t, []string{"Python", "SQL", "Machine\nLearning", "C++"}, got)
}

func TestVocabulary_FromTableSkipsAmbiguousForms(t *testing.T) {
	v := VocabularyFromTable(NewDefaultTable())
	assert.NotContains(t, v.Terms(), "r")
	assert.NotContains(t, v.Terms(), "ai")
	assert.Contains(t, v.Terms(), "python")
	assert.Contains(t, v.Terms(), "excel")

	got := terms(v.Scan("I worked with a team using Docker and Kubernetes on AWS."))
	assert.Equal(t, []string{"Docker", "Kubernetes", "AWS"}, got)
}

func TestVocabulary_NilAndEmpty(t *testing.T) {
	var v *Vocabulary
	assert.Empty(t, v.Scan("python"))
	assert.Empty(t, NewVocabulary([]string{"python"}).Scan(""))
}
