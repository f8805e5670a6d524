package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jamesprial/colony-directory/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guidA = "5e71dc5d-61c0-4f3b-8b92-d77310c7fa43"
	guidB = "b057bb65-e335-450e-b6d2-d4cc859ff6cc"
	guidC = "49c04b8d-0a96-4319-b310-d6aa8269adca"
	guidD = "7c8aeb4a-aae3-4b6e-9b58-6d1c6e0e0c2b"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(v bool) *bool {
	return &v
}

func sampleCompanies() []CompanyRecord {
	return []CompanyRecord{
		{Index: 0, Name: "NETBOOK"},
		{Index: 1, Name: "PERMADYNE"},
	}
}

func samplePeople() []PersonRecord {
	return []PersonRecord{
		{Index: 0, GUID: guidA, Name: "Carmella Lambert", Age: 61, EyeColor: "blue", HasDied: boolPtr(false), CompanyID: 1,
			Friends: []FriendRef{{Index: 1}, {Index: 2}}, FavouriteFood: []string{"orange", "apple", "banana", "strawberry"}},
		{Index: 1, GUID: guidB, Name: "Decker Mckenzie", Age: 60, EyeColor: "Brown", HasDied: boolPtr(false), CompanyID: 2,
			Friends: []FriendRef{{Index: 0}, {Index: 2}, {Index: 3}, {Index: 99}}, FavouriteFood: []string{"cucumber", "beetroot"}},
		{Index: 2, GUID: guidC, Name: "Bonnie Bass", Age: 54, EyeColor: "brown", HasDied: boolPtr(false), CompanyID: 1,
			Friends: []FriendRef{{Index: 0}, {Index: 1}}},
		{Index: 3, GUID: guidD, Name: "Rosemary Hayes", Age: 30, EyeColor: "brown", HasDied: boolPtr(true), CompanyID: 58},
	}
}

func TestBuildDataset(t *testing.T) {
	ds, err := BuildDataset(sampleCompanies(), samplePeople())
	require.NoError(t, err)

	require.Len(t, ds.Companies, 2)
	assert.Equal(t, CompanyID("NETBOOK"), ds.Companies[0].ID)
	assert.Equal(t, CompanyID("NETBOOK"), CompanyID("NETBOOK"), "company ids are stable")
	assert.NotEqual(t, CompanyID("NETBOOK"), CompanyID("PERMADYNE"))

	require.Len(t, ds.People, 4)
	a, b, c, d := ds.People[0], ds.People[1], ds.People[2], ds.People[3]

	assert.Equal(t, guidA, a.ID)
	assert.Equal(t, ds.Companies[0].ID, a.CompanyID, "company_id is 1-based")
	assert.Equal(t, ds.Companies[1].ID, b.CompanyID)
	assert.Empty(t, d.CompanyID, "unknown company_id leaves the person unemployed")

	assert.Equal(t, []string{guidB, guidC}, a.FriendIDs)
	assert.Equal(t, []string{guidA, guidC, guidD}, b.FriendIDs, "unknown friend index dropped")
	assert.Equal(t, "brown", b.EyeColor, "eye colour lower-cased")
	assert.True(t, c.IsAlive)
	assert.False(t, d.IsAlive)
	assert.Equal(t, []string{"orange", "apple", "banana", "strawberry"}, a.FavouriteFoods)
	assert.Equal(t, []string{}, c.FavouriteFoods)

	snap, err := directory.NewSnapshot(ds)
	require.NoError(t, err)
	friends, err := snap.CommonAliveBrownEyedFriends([]string{guidA, guidB})
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "Bonnie Bass", friends[0].Name)
}

func TestBuildDataset_Invalid(t *testing.T) {
	cases := []struct {
		name      string
		companies func([]CompanyRecord) []CompanyRecord
		people    func([]PersonRecord) []PersonRecord
		wantMsg   string
	}{
		{
			name:      "company without name",
			companies: func(c []CompanyRecord) []CompanyRecord { c[0].Name = ""; return c },
			wantMsg:   "companies[0]",
		},
		{
			name:      "duplicate company index",
			companies: func(c []CompanyRecord) []CompanyRecord { c[1].Index = 0; return c },
			wantMsg:   "duplicate index",
		},
		{
			name:      "duplicate company name",
			companies: func(c []CompanyRecord) []CompanyRecord { c[1].Name = c[0].Name; return c },
			wantMsg:   "duplicate name",
		},
		{
			name:    "malformed guid",
			people:  func(p []PersonRecord) []PersonRecord { p[2].GUID = "not-a-guid"; return p },
			wantMsg: "people[2]",
		},
		{
			name:    "duplicate guid",
			people:  func(p []PersonRecord) []PersonRecord { p[1].GUID = guidA; return p },
			wantMsg: "duplicate guid",
		},
		{
			name:    "duplicate person index",
			people:  func(p []PersonRecord) []PersonRecord { p[3].Index = 0; return p },
			wantMsg: "duplicate index",
		},
		{
			name:    "negative age",
			people:  func(p []PersonRecord) []PersonRecord { p[0].Age = -1; return p },
			wantMsg: "people[0]",
		},
		{
			name:    "negative friend index",
			people:  func(p []PersonRecord) []PersonRecord { p[0].Friends[0].Index = -3; return p },
			wantMsg: "people[0]",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			companies, people := sampleCompanies(), samplePeople()
			if tc.companies != nil {
				companies = tc.companies(companies)
			}
			if tc.people != nil {
				people = tc.people(people)
			}
			_, err := BuildDataset(companies, people)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDataset)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func writeResources(t *testing.T, dir string, companies []CompanyRecord, people []PersonRecord) {
	t.Helper()
	data, err := json.Marshal(companies)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CompaniesFile), data, 0o644))
	data, err = json.Marshal(people)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, PeopleFile), data, 0o644))
}

func TestSource_ReadAndHash(t *testing.T) {
	dir := t.TempDir()
	writeResources(t, dir, sampleCompanies(), samplePeople())
	src := Source{Dir: dir}

	pair, err := src.Hash(context.Background())
	require.NoError(t, err)
	assert.Len(t, pair.CompanyHash, 32)
	assert.Len(t, pair.PeopleHash, 32)

	ds, readPair, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pair, readPair)
	assert.Len(t, ds.People, 4)

	t.Run("hash changes with content", func(t *testing.T) {
		people := samplePeople()[:3]
		writeResources(t, dir, sampleCompanies(), people)
		next, err := src.Hash(context.Background())
		require.NoError(t, err)
		assert.Equal(t, pair.CompanyHash, next.CompanyHash)
		assert.NotEqual(t, pair.PeopleHash, next.PeopleHash)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Source{Dir: t.TempDir()}.Hash(context.Background())
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		bad := t.TempDir()
		writeResources(t, bad, sampleCompanies(), samplePeople())
		require.NoError(t, os.WriteFile(filepath.Join(bad, PeopleFile), []byte(`[{"index": "zero"`), 0o644))
		_, _, err := Source{Dir: bad}.Read(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), PeopleFile)
	})
}

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	ds       directory.Dataset
	pair     FilePair
	loads    int
	replaces int
	failLoad bool
}

func (m *memStore) IsCurrent(_ context.Context, companyHash, peopleHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair == FilePair{CompanyHash: companyHash, PeopleHash: peopleHash}, nil
}

func (m *memStore) LoadDataset(context.Context) (directory.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.failLoad {
		return directory.Dataset{}, errors.New("disk on fire")
	}
	return m.ds, nil
}

func (m *memStore) ReplaceDataset(_ context.Context, ds directory.Dataset, companyHash, peopleHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	m.ds = ds
	m.pair = FilePair{CompanyHash: companyHash, PeopleHash: peopleHash}
	return nil
}

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	writeResources(t, dir, sampleCompanies(), samplePeople())
	ctx := context.Background()

	store := &memStore{}
	d := directory.New()
	p := NewPipeline(Source{Dir: dir}, store, d, quietLogger())

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIngested, res.Outcome)
	assert.Equal(t, 4, res.Stats.People)
	assert.Equal(t, 1, store.replaces)
	assert.True(t, d.Loaded())

	employees, err := d.EmployeesOf("NETBOOK")
	require.NoError(t, err)
	assert.Len(t, employees, 2)

	t.Run("unchanged files are skipped", func(t *testing.T) {
		res, err := p.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeUnchanged, res.Outcome)
		assert.Equal(t, 1, store.replaces)
		assert.Equal(t, 0, store.loads)
	})

	t.Run("fresh process loads the stored dataset", func(t *testing.T) {
		fresh := directory.New()
		res, err := NewPipeline(Source{Dir: dir}, store, fresh, quietLogger()).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeLoaded, res.Outcome)
		assert.Equal(t, 1, store.loads)
		assert.Len(t, fresh.Current().People(), 4)
	})

	t.Run("changed files are re-ingested", func(t *testing.T) {
		writeResources(t, dir, sampleCompanies(), samplePeople()[:2])
		res, err := p.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, OutcomeIngested, res.Outcome)
		assert.Equal(t, 2, store.replaces)
		assert.Len(t, d.Current().People(), 2)
	})

	t.Run("invalid files keep the published snapshot", func(t *testing.T) {
		before := d.Current()
		bad := samplePeople()
		bad[0].GUID = "nope"
		writeResources(t, dir, sampleCompanies(), bad)
		_, err := p.Run(ctx)
		assert.ErrorIs(t, err, ErrInvalidDataset)
		assert.Same(t, before, d.Current())
		assert.Equal(t, 2, store.replaces)
	})
}

func TestPipeline_StoreFailure(t *testing.T) {
	dir := t.TempDir()
	writeResources(t, dir, sampleCompanies(), samplePeople())
	ctx := context.Background()

	store := &memStore{}
	_, err := NewPipeline(Source{Dir: dir}, store, directory.New(), quietLogger()).Run(ctx)
	require.NoError(t, err)

	store.failLoad = true
	d := directory.New()
	_, err = NewPipeline(Source{Dir: dir}, store, d, quietLogger()).Run(ctx)
	assert.Error(t, err)
	assert.False(t, d.Loaded())
}

func TestPipeline_WithoutStore(t *testing.T) {
	dir := t.TempDir()
	writeResources(t, dir, sampleCompanies(), samplePeople())

	d := directory.New()
	res, err := NewPipeline(Source{Dir: dir}, nil, d, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIngested, res.Outcome)
	assert.Len(t, d.Current().People(), 4)
}

func TestWatcher_TriggersRun(t *testing.T) {
	dir := t.TempDir()
	writeResources(t, dir, sampleCompanies(), samplePeople())

	var (
		mu   sync.Mutex
		runs int
	)
	run := func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		runs++
		return nil
	}

	w, err := NewWatcher(Source{Dir: dir}, run, quietLogger(), &WatcherOptions{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, runs)
	mu.Unlock()

	// A burst of writes triggers a run.
	writeResources(t, dir, sampleCompanies(), samplePeople()[:1])
	writeResources(t, dir, sampleCompanies(), samplePeople()[:2])
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	select {
	case <-w.Stopped():
	case <-time.After(time.Second):
		t.Fatal("watch loop did not exit")
	}
}

func TestSource_BundledResources(t *testing.T) {
	ds, _, err := Source{Dir: filepath.Join("..", "..", "static", "resources")}.Read(context.Background())
	require.NoError(t, err)

	snap, err := directory.NewSnapshot(ds)
	require.NoError(t, err)

	names := func(people []directory.Person) []string {
		out := make([]string, 0, len(people))
		for _, p := range people {
			out = append(out, p.Name)
		}
		return out
	}

	staff, err := snap.EmployeesOf("NETBOOK")
	require.NoError(t, err)
	assert.Equal(t, []string{"Carmella Lambert", "Bonnie Bass"}, names(staff))

	common, err := snap.CommonAliveBrownEyedFriends([]string{
		"5e71dc5d-61c0-4f3b-8b92-d77310c7fa43",
		"b057bb65-e335-450e-b6d2-d4cc859ff6cc",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rosemary Hayes", "Bonnie Bass"}, names(common), "ordered by id")

	foods, err := snap.FavoriteFoodsOf("21a38cf4-c9a3-4b6d-b0be-6f6dbd7e1b44")
	require.NoError(t, err)
	assert.Equal(t, []string{"cucumber", "celery", "apple"}, foods)

	mindy, err := snap.Person("0d3a2c31-9c4a-4a53-a4b4-3cb43ab4b6b8")
	require.NoError(t, err)
	assert.Empty(t, mindy.CompanyID)
	friends, err := snap.FriendsOf(mindy.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Decker Mckenzie"}, names(friends), "self reference dropped")
}

func TestBuildDataset_UnknownDeathStatus(t *testing.T) {
	people := samplePeople()
	people[2].HasDied = nil

	ds, err := BuildDataset(sampleCompanies(), people)
	require.NoError(t, err)
	assert.False(t, ds.People[2].IsAlive, "null has_died is not counted as alive")

	snap, err := directory.NewSnapshot(ds)
	require.NoError(t, err)
	friends, err := snap.CommonAliveBrownEyedFriends([]string{guidA, guidB})
	require.NoError(t, err)
	assert.Empty(t, friends)

	// The same applies when decoding people.json.
	var recs []PersonRecord
	require.NoError(t, json.Unmarshal([]byte(`[{"has_died": null}, {"has_died": false}, {}]`), &recs))
	assert.Nil(t, recs[0].HasDied)
	require.NotNil(t, recs[1].HasDied)
	assert.False(t, *recs[1].HasDied)
	assert.Nil(t, recs[2].HasDied)
}
