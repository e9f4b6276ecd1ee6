package matcher

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

func TestComputeGap_ScenarioA(t *testing.T) {
	table := skills.NewDefaultTable()
	candidate := skills.NewTokenizer().Split("Python, SQL, Machine Learning")

	gap := ComputeGap(table, candidate, []string{"python", "sql", "tableau"})
	assert.ElementsMatch(t, []string{"python", "sql"}, gap.Matched)
	assert.ElementsMatch(t, []string{"tableau"}, gap.Missing)
	assert.Equal(t, 66.7, MatchScore(gap))
}

func TestComputeGap_PreservesRequiredSpelling(t *testing.T) {
	table := skills.NewDefaultTable()
	gap := ComputeGap(table, []string{"mysql", "ML"}, []string{"SQL", "Machine Learning", "Docker"})

	assert.Equal(t, []string{"SQL", "Machine Learning"}, gap.Matched)
	assert.Equal(t, []string{"Docker"}, gap.Missing)
}

func TestComputeGap_DuplicateCanonicalLastSpellingWins(t *testing.T) {
	table := skills.NewDefaultTable()
	gap := ComputeGap(table, []string{"postgres"}, []string{"SQL", "Docker", "MySQL"})

	assert.Equal(t, []string{"MySQL"}, gap.Matched)
	assert.Equal(t, []string{"Docker"}, gap.Missing)
	assert.Equal(t, 50.0, MatchScore(gap))
}

func TestComputeGap_EmptyInputs(t *testing.T) {
	table := skills.NewDefaultTable()

	gap := ComputeGap(table, []string{"python"}, nil)
	assert.Empty(t, gap.Matched)
	assert.Empty(t, gap.Missing)
	assert.NotNil(t, gap.Matched)
	assert.Equal(t, 0.0, MatchScore(gap))

	gap = ComputeGap(table, nil, []string{"python", "", "  "})
	assert.Equal(t, []string{"python"}, gap.Missing)
	assert.Equal(t, 0.0, MatchScore(gap))
}

// 随机组合验证：命中与缺失不相交、并集等于去重后的要求技能、分数边界
func TestComputeGap_Properties(t *testing.T) {
	table := skills.NewDefaultTable()
	pool := []string{"Python", "py", "SQL", "MySQL", "Docker", "k8s", "Kubernetes", "Tableau",
		"Excel", "ML", "machine learning", "Node.js", "JavaScript", "C++", "c#", "", "Go"}
	rng := rand.New(rand.NewSource(42))
	pick := func() []string {
		out := make([]string, rng.Intn(8))
		for i := range out {
			out[i] = pool[rng.Intn(len(pool))]
		}
		return out
	}

	for i := 0; i < 500; i++ {
		candidate, required := pick(), pick()
		gap := ComputeGap(table, candidate, required)
		name := fmt.Sprintf("candidate=%q required=%q", candidate, required)

		want := map[string]struct{}{}
		for _, s := range required {
			if c := table.Canonicalize(s); c != "" {
				want[c] = struct{}{}
			}
		}
		have := map[string]struct{}{}
		for _, s := range candidate {
			have[table.Canonicalize(s)] = struct{}{}
		}

		got := map[string]struct{}{}
		for _, s := range gap.Matched {
			c := table.Canonicalize(s)
			assert.Contains(t, have, c, name)
			got[c] = struct{}{}
		}
		for _, s := range gap.Missing {
			c := table.Canonicalize(s)
			assert.NotContains(t, have, c, name)
			_, overlap := got[c]
			assert.False(t, overlap, name)
			got[c] = struct{}{}
		}
		assert.Equal(t, want, got, name)

		score := MatchScore(gap)
		assert.GreaterOrEqual(t, score, 0.0, name)
		assert.LessOrEqual(t, score, 100.0, name)
		assert.Equal(t, len(want) > 0 && len(gap.Missing) == 0, score == 100, name)
		assert.Equal(t, len(gap.Matched) == 0, score == 0, name)
	}
}

func TestOverlapRank_StableOrder(t *testing.T) {
	table := skills.NewDefaultTable()
	roles := []types.RoleProfile{
		{RoleName: "Web Developer", RequiredSkills: []string{"html", "css", "javascript"}},
		{RoleName: "Data Analyst", RequiredSkills: []string{"python", "sql", "tableau"}},
		{RoleName: "Backend Developer", RequiredSkills: []string{"python", "sql", "docker"}},
		{RoleName: "Empty Role"},
	}
	preds := OverlapRank(table, []string{"Python", "MySQL"}, roles)

	assert.Equal(t, []types.Prediction{
		{RoleName: "Data Analyst", Score: 66.7},
		{RoleName: "Backend Developer", Score: 66.7},
		{RoleName: "Web Developer", Score: 0},
		{RoleName: "Empty Role", Score: 0},
	}, preds)
}
