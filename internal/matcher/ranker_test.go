package matcher

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

type stubClassifier struct {
	hasModel bool
	scores   Scores
	err      error
	calls    int
}

func (s *stubClassifier) HasModel() bool { return s.hasModel }

func (s *stubClassifier) Predict(context.Context, string) (Scores, error) {
	s.calls++
	return s.scores, s.err
}

var testRoles = []types.RoleProfile{
	{RoleName: "Data Scientist", RequiredSkills: []string{"python", "pandas", "machine learning", "statistics"}},
	{RoleName: "Web Developer", RequiredSkills: []string{"html", "css", "javascript", "react"}},
	{RoleName: "DevOps Engineer", RequiredSkills: []string{"docker", "kubernetes", "terraform", "linux"}},
}

var testSections = types.SectionMap{
	Skills:         []string{"Python", "Pandas", "Docker"},
	Education:      []string{"BSc Statistics"},
	Experience:     []string{"Data intern at Acme"},
	Certifications: []string{},
}

func TestRankRoles_NoClassifierEqualsOverlap(t *testing.T) {
	table := skills.NewDefaultTable()
	for _, c := range []Classifier{nil, NoopClassifier{}, &stubClassifier{hasModel: false}} {
		ranker := NewRanker(table, c)
		preds, mode := ranker.RankRoles(context.Background(), testSections, testRoles)
		assert.Equal(t, types.RankModeOverlap, mode)
		assert.Equal(t, OverlapRank(table, testSections.Skills, testRoles), preds)
	}
}

func TestRankRoles_ProbabilityScores(t *testing.T) {
	stub := &stubClassifier{hasModel: true, scores: Scores{
		Kind:   ScoreProbability,
		Labels: []string{"Web Developer", "Data Scientist", "Retired Role", "DevOps Engineer"},
		Values: []float64{0.1, 0.6, 0.2, 0.1},
	}}
	ranker := NewRanker(skills.NewDefaultTable(), stub)
	preds, mode := ranker.RankRoles(context.Background(), testSections, testRoles)

	assert.Equal(t, types.RankModeClassifier, mode)
	assert.Equal(t, []types.Prediction{
		{RoleName: "Data Scientist", Score: 60},
		{RoleName: "Web Developer", Score: 10},
		{RoleName: "DevOps Engineer", Score: 10},
	}, preds)
}

func TestRankRoles_DecisionScoresAreShiftedAndNormalized(t *testing.T) {
	stub := &stubClassifier{hasModel: true, scores: Scores{
		Kind:   ScoreDecision,
		Labels: []string{"Data Scientist", "Web Developer", "DevOps Engineer"},
		Values: []float64{2, -2, 0},
	}}
	ranker := NewRanker(skills.NewDefaultTable(), stub)
	preds, _ := ranker.RankRoles(context.Background(), testSections, testRoles)

	assert.Equal(t, []types.Prediction{
		{RoleName: "Data Scientist", Score: 66.7},
		{RoleName: "DevOps Engineer", Score: 33.3},
		{RoleName: "Web Developer", Score: 0},
	}, preds)
}

func TestRescale_DecisionAllEqual(t *testing.T) {
	values, err := rescale(Scores{Kind: ScoreDecision, Labels: []string{"a", "b", "c", "d"}, Values: []float64{3, 3, 3, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{25, 25, 25, 25}, values)

	_, err = rescale(Scores{Labels: []string{"a"}, Values: []float64{0.1, 0.2}})
	assert.ErrorIs(t, err, ErrMalformedScores)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = rescale(Scores{Labels: []string{"a", "b"}, Values: []float64{v, 0.4}})
		assert.ErrorIs(t, err, ErrMalformedScores)
		_, err = rescale(Scores{Kind: ScoreDecision, Labels: []string{"a", "b"}, Values: []float64{v, 0.4}})
		assert.ErrorIs(t, err, ErrMalformedScores)
	}
}

func TestRankRoles_ClassifierFailuresFallBack(t *testing.T) {
	table := skills.NewDefaultTable()
	overlap := OverlapRank(table, testSections.Skills, testRoles)

	cases := map[string]*stubClassifier{
		"error":     {hasModel: true, err: errors.New("boom")},
		"malformed": {hasModel: true, scores: Scores{Labels: []string{"Data Scientist"}}},
		"unknown":   {hasModel: true, scores: Scores{Labels: []string{"Astronaut"}, Values: []float64{1}}},
		"nan":       {hasModel: true, scores: Scores{Labels: []string{"Data Scientist", "Web Developer"}, Values: []float64{math.NaN(), 0.4}}},
		"inf":       {hasModel: true, scores: Scores{Kind: ScoreDecision, Labels: []string{"Data Scientist", "Web Developer"}, Values: []float64{math.Inf(1), 1}}},
	}
	for name, stub := range cases {
		preds, mode := NewRanker(table, stub).RankRoles(context.Background(), testSections, testRoles)
		assert.Equal(t, types.RankModeOverlap, mode, name)
		assert.Equal(t, overlap, preds, name)
	}

	// 空文本不调用分类器
	stub := &stubClassifier{hasModel: true}
	_, mode := NewRanker(table, stub).RankRoles(context.Background(), types.NewSectionMap(), testRoles)
	assert.Equal(t, types.RankModeOverlap, mode)
	assert.Zero(t, stub.calls)
}

func TestClassifierText(t *testing.T) {
	assert.Equal(t, "BSc Statistics Data intern at Acme Python Pandas Docker", ClassifierText(testSections))
	assert.Equal(t, "", ClassifierText(types.NewSectionMap()))
}

func TestTrainAndPredict(t *testing.T) {
	samples := SynthesizeSamples(testRoles, DefaultSamplesPerRole, DefaultSampleSeed)
	require.Len(t, samples, 3*DefaultSamplesPerRole)
	assert.Equal(t, samples, SynthesizeSamples(testRoles, DefaultSamplesPerRole, DefaultSampleSeed))

	model, err := Train(samples, DefaultTrainOptions())
	require.NoError(t, err)
	require.True(t, model.HasModel())

	ranker := NewRanker(skills.NewDefaultTable(), model)
	sections := types.SectionMap{Skills: []string{"docker", "kubernetes", "terraform", "linux"}}
	preds, mode := ranker.RankRoles(context.Background(), sections, testRoles)
	require.Equal(t, types.RankModeClassifier, mode)
	require.Len(t, preds, 3)
	assert.Equal(t, "DevOps Engineer", preds[0].RoleName)

	total := 0.0
	for _, p := range preds {
		total += p.Score
	}
	assert.InDelta(t, 100, total, 0.5)
}

func TestModel_SaveAndLoad(t *testing.T) {
	model, err := Train(SynthesizeSamples(testRoles, 4, 1), TrainOptions{Epochs: 20, Output: ScoreDecision})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, model.Save(&buf))
	loaded, err := LoadModel(&buf)
	require.NoError(t, err)
	assert.Equal(t, model.Labels, loaded.Labels)
	assert.Equal(t, ScoreDecision, loaded.Output)

	want, err := model.Predict(context.Background(), "python pandas")
	require.NoError(t, err)
	got, err := loaded.Predict(context.Background(), "python pandas")
	require.NoError(t, err)
	assert.Equal(t, want.Labels, got.Labels)
	assert.InDeltaSlice(t, want.Values, got.Values, 1e-9)
}

func TestLoadClassifier_FailuresAreSilent(t *testing.T) {
	assert.False(t, LoadClassifier("").HasModel())
	assert.False(t, LoadClassifier(filepath.Join(t.TempDir(), "missing.json")).HasModel())

	_, err := LoadModel(strings.NewReader(`{"labels":["a"],"weights":[]}`))
	assert.ErrorIs(t, err, ErrMalformedScores)

	path := filepath.Join(t.TempDir(), "model.json")
	model, err := Train(SynthesizeSamples(testRoles, 2, 1), TrainOptions{Epochs: 5})
	require.NoError(t, err)
	require.NoError(t, model.SaveFile(path))
	assert.True(t, LoadClassifier(path).HasModel())
}

func TestTrain_Errors(t *testing.T) {
	_, err := Train(nil, DefaultTrainOptions())
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Train([]Sample{{Text: "python", Label: "a"}}, DefaultTrainOptions())
	assert.ErrorIs(t, err, ErrSingleLabel)
}
