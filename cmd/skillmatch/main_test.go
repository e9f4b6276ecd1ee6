package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"resume-match-go/internal/types"
)

const rolesCSV = `role,skills
Data Analyst,Python;SQL;Tableau;Excel
Web Developer,HTML;CSS;JavaScript;React
DevOps Engineer,Docker;Kubernetes;Linux;AWS
`

type fixture struct {
	dir    string
	config string
	roles  string
	resume string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		roles:  filepath.Join(dir, "roles.csv"),
		resume: filepath.Join(dir, "jane.txt"),
	}
	require.NoError(t, os.WriteFile(f.roles, []byte(rolesCSV), 0o644))
	require.NoError(t, os.WriteFile(f.resume, []byte("Jane Doe\n\nSkills\nPython, SQL, Excel\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"sample-config", "-o", f.config}, &out))
	assert.Contains(t, out.String(), f.config)
	return f
}

func TestRun_Analyze(t *testing.T) {
	f := newFixture(t)

	var out bytes.Buffer
	err := run([]string{"analyze", "-c", f.config, "--roles", f.roles, "--format", "json", f.resume}, &out)
	require.NoError(t, err)

	var results []types.AnalysisResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Data Analyst", results[0].ChosenRole)
	assert.Equal(t, 75.0, results[0].MatchScore)
	assert.Equal(t, []string{"Tableau"}, results[0].Gap.Missing)

	out.Reset()
	err = run([]string{"analyze", "-c", f.config, "--roles", f.roles, "-r", "Web Developer", f.resume}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "选择岗位: Web Developer  匹配度: 0.0%")
}

func TestRun_Export(t *testing.T) {
	f := newFixture(t)
	report := filepath.Join(f.dir, "report")

	var out bytes.Buffer
	require.NoError(t, run([]string{"export", "-c", f.config, "--roles", f.roles, "-o", report, f.resume}, &out))

	x, err := excelize.OpenFile(report + ".xlsx")
	require.NoError(t, err)
	defer x.Close()
	rows, err := x.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "jane.txt", rows[1][0])
}

func TestRun_TrainThenClassify(t *testing.T) {
	f := newFixture(t)
	model := filepath.Join(f.dir, "model.json")

	var out bytes.Buffer
	require.NoError(t, run([]string{"train", "-c", f.config, "--roles", f.roles, "-o", model}, &out))
	assert.FileExists(t, model)

	out.Reset()
	err := run([]string{"analyze", "-c", f.config, "--roles", f.roles, "--model", model, "-f", "json", f.resume}, &out)
	require.NoError(t, err)
	var results []types.AnalysisResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	assert.Equal(t, types.RankModeClassifier, results[0].RankMode)
	assert.Equal(t, "Data Analyst", results[0].Predictions[0].RoleName)
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, &out))
	assert.Error(t, run([]string{"bogus"}, &out))
	assert.NoError(t, run([]string{"help"}, &out))

	f := newFixture(t)
	assert.Error(t, run([]string{"analyze", "-c", f.config, "--roles", f.roles}, &out))
	assert.Error(t, run([]string{"analyze", "-c", f.config, "--roles", filepath.Join(f.dir, "roles.txt"), f.resume}, &out))
	assert.Error(t, run([]string{"import-roles", "-c", f.config}, &out))
	assert.Error(t, run([]string{"sample-config", "-o", f.config}, &out))
}

func TestSourceKind(t *testing.T) {
	kind, err := sourceKind("Roles.XLSX")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", kind)
	kind, err = sourceKind("roles.yml")
	require.NoError(t, err)
	assert.Equal(t, "yaml", kind)
	_, err = sourceKind("roles.json")
	assert.Error(t, err)
}
