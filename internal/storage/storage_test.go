package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	gormlogger "gorm.io/gorm/logger"

	"resume-match-go/internal/constants"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/types"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttl[key] = ttl
	return nil
}

func TestSegmentCache(t *testing.T) {
	kv := newMemKV()
	cache := NewSegmentCache(kv)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "abc:1")
	require.NoError(t, err)
	assert.False(t, ok)

	sections := types.NewSectionMap()
	sections.Skills = []string{"python", "sql"}
	require.NoError(t, cache.Set(ctx, "abc:1", sections, time.Hour))
	assert.Equal(t, time.Hour, kv.ttl["resume_match:segment:cache:abc:1"])

	got, ok, err := cache.Get(ctx, "abc:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"python", "sql"}, got.Skills)
	assert.NotNil(t, got.Education)
	assert.Empty(t, got.Education)
}

func TestSegmentCache_Errors(t *testing.T) {
	kv := newMemKV()
	cache := NewSegmentCache(kv)
	ctx := context.Background()

	kv.data["resume_match:segment:cache:bad"] = "{not json"
	_, ok, err := cache.Get(ctx, "bad")
	assert.Error(t, err)
	assert.False(t, ok)

	kv.err = errors.New("connection refused")
	_, ok, err = cache.Get(ctx, "any")
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, ok)
}

func TestResultCache(t *testing.T) {
	kv := newMemKV()
	cache := NewResultCache(kv, 0)
	ctx := context.Background()

	result := &types.AnalysisResult{
		AnalysisID:     "a-1",
		Sections:       types.NewSectionMap(),
		Predictions:    []types.Prediction{{RoleName: "Data Analyst", Score: 66.7}},
		RankMode:       types.RankModeOverlap,
		ChosenRole:     "Data Analyst",
		RequiredSkills: []string{"Python", "SQL", "Tableau"},
		Gap:            types.GapResult{Matched: []string{"Python", "SQL"}, Missing: []string{"Tableau"}},
		MatchScore:     66.7,
	}
	require.NoError(t, cache.Save(ctx, result))
	assert.Equal(t, constants.DefaultAnalysisTTL, kv.ttl["resume_match:analysis:result:a-1"])

	got, err := cache.Load(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, result, got)

	_, err = cache.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDatasetFromRows(t *testing.T) {
	roles := []models.JobRole{
		{RoleName: "Data Analyst", RequiredSkills: datatypes.JSON(`["Python","SQL"]`)},
		{RoleName: "Empty", RequiredSkills: datatypes.JSON(`[]`)},
		{RoleName: "Broken", RequiredSkills: datatypes.JSON(`{"x":1}`)},
		{RoleName: "Web Developer", RequiredSkills: datatypes.JSON(`["HTML","CSS"]`)},
	}
	synonyms := []models.SkillSynonym{
		{Canonical: "golang", Synonyms: datatypes.JSON(`["go lang"]`)},
		{Canonical: "bad", Synonyms: datatypes.JSON(`"x"`)},
		{Canonical: "rust"},
	}
	ds := datasetFromRows(roles, synonyms)

	require.Len(t, ds.Roles, 3)
	assert.Equal(t, "Data Analyst", ds.Roles[0].RoleName)
	assert.Equal(t, "Empty", ds.Roles[1].RoleName)
	assert.Empty(t, ds.Roles[1].RequiredSkills)
	assert.Equal(t, []string{"HTML", "CSS"}, ds.Roles[2].RequiredSkills)
	require.Len(t, ds.Synonyms, 2)
	assert.Equal(t, []string{"go lang"}, ds.Synonyms[0].Synonyms)
	assert.Equal(t, "rust", ds.Synonyms[1].Canonical)
	assert.Nil(t, ds.Synonyms[1].Synonyms)
}

func TestAnalysisModelConversion(t *testing.T) {
	sections := types.NewSectionMap()
	sections.Skills = []string{"docker"}
	result := &types.AnalysisResult{
		AnalysisID:     "a-2",
		Sections:       sections,
		Predictions:    []types.Prediction{{RoleName: "DevOps Engineer", Score: 25}},
		RankMode:       types.RankModeClassifier,
		ChosenRole:     "DevOps Engineer",
		RequiredSkills: []string{"Docker", "Kubernetes"},
		Gap:            types.GapResult{Matched: []string{"Docker"}, Missing: []string{"Kubernetes"}},
		MatchScore:     50,
	}
	row, err := analysisToModel(result)
	require.NoError(t, err)
	assert.Equal(t, constants.AnalysisStatusCompleted, row.Status)
	assert.Equal(t, "classifier", row.RankMode)

	back, err := modelToAnalysis(row)
	require.NoError(t, err)
	assert.Equal(t, result, back)

	_, err = modelToAnalysis(&models.ResumeAnalysis{SectionsJSON: datatypes.JSON(`[`)})
	assert.Error(t, err)
}

func TestObjectKeysAndContentTypes(t *testing.T) {
	assert.Equal(t, "resume/a-1/original.pdf", OriginalObjectKey("a-1", "CV.PDF"))
	assert.Equal(t, "resume/a-1/original", OriginalObjectKey("a-1", "cv"))
	assert.Equal(t, "application/pdf", getContentType(".pdf"))
	assert.Equal(t, "application/octet-stream", getContentType(".odt"))
}

func TestHeaderCarrier(t *testing.T) {
	c := headerCarrier{"traceparent": "00-abc-def-01", "count": 3}
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("count"))
	c.Set("baggage", "k=v")
	assert.ElementsMatch(t, []string{"traceparent", "count", "baggage"}, c.Keys())
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLogLevel(1))
	assert.Equal(t, gormlogger.Info, gormLogLevel(4))
	assert.Equal(t, gormlogger.Warn, gormLogLevel(0))
}
