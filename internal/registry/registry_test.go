package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"resume-match-go/internal/registry"
	"resume-match-go/internal/registry/mocks"
	"resume-match-go/internal/skills"
	"resume-match-go/internal/types"
)

func TestSnapshot_RolesAndLookup(t *testing.T) {
	snap := registry.NewSnapshot(1, []types.RoleProfile{
		{RoleName: " Data Analyst ", RequiredSkills: []string{"python", " sql ", ""}},
		{RoleName: "Data Analyst", RequiredSkills: []string{"excel"}},
		{RoleName: "No Skills"},
		{RoleName: "", RequiredSkills: []string{"python"}},
		{RoleName: "Web Developer", RequiredSkills: []string{"html", "css"}},
	}, nil)

	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, []string{"python", "sql"}, snap.Role("Data Analyst"))
	assert.Equal(t, []string{}, snap.Role("Astronaut"))
	assert.True(t, snap.Has("No Skills"))
	assert.Equal(t, []string{}, snap.Role("No Skills"))
	assert.Equal(t, "Web Developer", snap.Roles()[2].RoleName)
	assert.NotNil(t, snap.Table())

	// 返回的是副本
	roles := snap.Roles()
	roles[0].RequiredSkills[0] = "mutated"
	assert.Equal(t, "python", snap.Role("Data Analyst")[0])
}

func TestReadRolesCSV(t *testing.T) {
	data := `# role dataset
role,skills
Data Analyst,python;sql;tableau
"Web Developer","html, css, javascript"
DevOps Engineer,docker,kubernetes,linux
`
	roles, err := registry.ReadRolesCSV(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []types.RoleProfile{
		{RoleName: "Data Analyst", RequiredSkills: []string{"python", "sql", "tableau"}},
		{RoleName: "Web Developer", RequiredSkills: []string{"html", "css", "javascript"}},
		{RoleName: "DevOps Engineer", RequiredSkills: []string{"docker", "kubernetes", "linux"}},
	}, roles)

	_, err = registry.ReadRolesCSV(strings.NewReader("Lonely Role\n"))
	assert.ErrorIs(t, err, registry.ErrInvalidRow)
}

func TestXLSXSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "roles"))
	require.NoError(t, f.SetSheetRow("roles", "A1", &[]any{"role", "skills"}))
	require.NoError(t, f.SetSheetRow("roles", "A2", &[]any{"Data Analyst", "python; sql"}))
	_, err := f.NewSheet("synonyms")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("synonyms", "A1", &[]any{"canonical", "synonyms"}))
	require.NoError(t, f.SetSheetRow("synonyms", "A2", &[]any{"rust", "rustlang; rust-lang"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := registry.NewFileSource("xlsx", path)
	require.NoError(t, err)
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.RoleProfile{{RoleName: "Data Analyst", RequiredSkills: []string{"python", "sql"}}}, data.Roles)
	assert.Equal(t, []skills.SynonymGroup{{Canonical: "rust", Synonyms: []string{"rustlang", "rust-lang"}}}, data.Synonyms)
}

func TestYAMLSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	content := `roles:
  - name: Data Analyst
    skills: [python, sql]
synonyms:
  - canonical: sql
    synonyms: [bigquery]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg := registry.New(&registry.YAMLSource{Path: path})
	snap, err := reg.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "sql"}, snap.Role("Data Analyst"))
	assert.Equal(t, "sql", snap.Table().Canonicalize("BigQuery"))

	groups, err := registry.LoadSynonymsFile(path)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestNewFileSource_Unknown(t *testing.T) {
	_, err := registry.NewFileSource("parquet", "x")
	assert.ErrorIs(t, err, registry.ErrUnknownSource)
}

func TestRegistry_ReloadSwapsSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	src.EXPECT().Name().Return("mock").AnyTimes()

	first := registry.Dataset{Roles: []types.RoleProfile{{RoleName: "A", RequiredSkills: []string{"python"}}}}
	second := registry.Dataset{
		Roles:    []types.RoleProfile{{RoleName: "B", RequiredSkills: []string{"go"}}},
		Synonyms: []skills.SynonymGroup{{Canonical: "go", Synonyms: []string{"gopher"}}},
	}
	gomock.InOrder(
		src.EXPECT().Load(gomock.Any()).Return(first, nil),
		src.EXPECT().Load(gomock.Any()).Return(second, nil),
		src.EXPECT().Load(gomock.Any()).Return(registry.Dataset{}, errors.New("db down")),
		src.EXPECT().Load(gomock.Any()).Return(registry.Dataset{}, nil),
	)

	reg := registry.New(src, registry.WithExtraSynonyms([]skills.SynonymGroup{{Canonical: "python", Synonyms: []string{"snake"}}}))
	assert.Equal(t, 0, reg.Snapshot().Len())

	snap, err := reg.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Has("A"))
	assert.Equal(t, "python", snap.Table().Canonicalize("snake"))

	snap, err = reg.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Has("B"))
	assert.False(t, snap.Has("A"))
	assert.Equal(t, "go", snap.Table().Canonicalize("Gopher"))
	assert.Equal(t, int64(2), snap.Version())

	_, err = reg.Reload(context.Background())
	assert.Error(t, err)
	assert.True(t, reg.Snapshot().Has("B"), "失败时保留旧快照")

	_, err = reg.Reload(context.Background())
	assert.ErrorIs(t, err, registry.ErrEmptySource)
	assert.True(t, reg.Snapshot().Has("B"))
}

func TestRegistry_ConcurrentReadsDuringReload(t *testing.T) {
	roles := make([]types.RoleProfile, 0, 20)
	for _, name := range strings.Fields("a b c d e f g h i j k l m n o p q r s t") {
		roles = append(roles, types.RoleProfile{RoleName: name, RequiredSkills: []string{"python", "sql"}})
	}
	reg := registry.New(registry.StaticSource{Data: registry.Dataset{Roles: roles}})
	_, err := reg.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := reg.Snapshot()
				assert.Equal(t, 20, snap.Len())
				assert.Equal(t, []string{"python", "sql"}, snap.Role("k"))
			}
		}()
	}
	for i := 0; i < 20; i++ {
		_, err := reg.Reload(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}

type fakeLocker struct {
	mu       sync.Mutex
	acquired int
	deny     bool
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deny {
		return nil, false, nil
	}
	l.acquired++
	return func() {}, true, nil
}

func TestRegistry_AutoReload(t *testing.T) {
	reg := registry.New(registry.StaticSource{Data: registry.Dataset{
		Roles: []types.RoleProfile{{RoleName: "A", RequiredSkills: []string{"python"}}},
	}})
	locker := &fakeLocker{}
	ctx, cancel := context.WithCancel(context.Background())
	done := reg.StartAutoReload(ctx, 10*time.Millisecond, locker)

	assert.Eventually(t, func() bool { return reg.Snapshot().Has("A") }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	locker.mu.Lock()
	assert.Positive(t, locker.acquired)
	locker.mu.Unlock()

	// 间隔为 0 时不启动
	_, open := <-reg.StartAutoReload(context.Background(), 0, nil)
	assert.False(t, open)
}

type boardLocker struct {
	fakeLocker
	shared    int64
	published int
}

func (b *boardLocker) PublishRegistryVersion(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shared++
	b.published++
	return b.shared, nil
}

func (b *boardLocker) RegistryVersion(context.Context) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shared, nil
}

func TestRegistry_AutoReloadFollowsSharedVersion(t *testing.T) {
	source := &registry.StaticSource{Data: registry.Dataset{
		Roles: []types.RoleProfile{{RoleName: "A", RequiredSkills: []string{"python"}}},
	}}
	reg := registry.New(source)

	// 其他实例持有锁：共享版本号未变化时不重载
	locker := &boardLocker{fakeLocker: fakeLocker{deny: true}}
	ctx, cancel := context.WithCancel(context.Background())
	done := reg.StartAutoReload(ctx, 10*time.Millisecond, locker)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, reg.Snapshot().Len())

	// 持锁实例发布新版本后跟随重载
	locker.mu.Lock()
	locker.shared = 5
	locker.mu.Unlock()
	assert.Eventually(t, func() bool { return reg.Snapshot().Has("A") }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	// 抢到锁的实例重载后发布版本号
	leader := registry.New(source)
	owner := &boardLocker{}
	ctx, cancel = context.WithCancel(context.Background())
	done = leader.StartAutoReload(ctx, 10*time.Millisecond, owner)
	assert.Eventually(t, func() bool {
		owner.mu.Lock()
		defer owner.mu.Unlock()
		return owner.published > 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.True(t, leader.Snapshot().Has("A"))
}
