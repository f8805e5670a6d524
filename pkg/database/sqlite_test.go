package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/jamesprial/colony-directory/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	// Named in-memory database so every test gets its own schema.
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NotNil(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testDataset() directory.Dataset {
	return directory.Dataset{
		Companies: []directory.Company{
			{ID: "co-2", Index: 1, Name: "Zoolab"},
			{ID: "co-1", Index: 0, Name: "Acme"},
		},
		People: []directory.Person{
			{
				ID: "p-3", Index: 2, Name: "Zed", Age: 40, Gender: "male", Email: "zed@example.com",
				Phone: "+1 (800) 555-0100", Address: "1 Main St", IsAlive: true, EyeColor: "brown",
				CompanyID: "co-1", FriendIDs: []string{"p-1", "p-1", "ghost"},
				FavouriteFoods: []string{"pizza", "sushi", "pizza"}, Tags: []string{"b", "a"},
			},
			{
				ID: "p-1", Index: 0, Name: "Amy", Age: 22, IsAlive: false, EyeColor: "blue",
				FriendIDs: []string{}, FavouriteFoods: []string{}, Tags: []string{},
			},
		},
	}
}

func TestDBCreation(t *testing.T) {
	db := setupTestDB(t)

	last, err := db.LastIngestion(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, last)

	ds, err := db.LoadDataset(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, ds.People)
	assert.Empty(t, ds.Companies)
}

func TestReplaceAndLoadDataset(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	want := testDataset()
	require.NoError(t, db.ReplaceDataset(ctx, want, "c1", "p1"))

	got, err := db.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got, "order, duplicates and optional company survive a round trip")

	t.Run("replace is wholesale", func(t *testing.T) {
		next := directory.Dataset{
			Companies: []directory.Company{{ID: "co-9", Index: 0, Name: "Initech"}},
			People: []directory.Person{{
				ID: "p-9", Name: "Peter", IsAlive: true, EyeColor: "brown", CompanyID: "co-9",
				FriendIDs: []string{}, FavouriteFoods: []string{"cake"}, Tags: []string{},
			}},
		}
		require.NoError(t, db.ReplaceDataset(ctx, next, "c2", "p2"))

		got, err := db.LoadDataset(ctx)
		require.NoError(t, err)
		assert.Equal(t, next, got)
	})

	t.Run("failed replace keeps the previous dataset", func(t *testing.T) {
		before, err := db.LoadDataset(ctx)
		require.NoError(t, err)

		dup := directory.Dataset{People: []directory.Person{{ID: "x"}, {ID: "x"}}}
		assert.Error(t, db.ReplaceDataset(ctx, dup, "c3", "p3"))

		after, err := db.LoadDataset(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		current, err := db.IsCurrent(ctx, "c2", "p2")
		require.NoError(t, err)
		assert.True(t, current)
	})
}

func TestIsCurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		record [][2]string
		check  [2]string
		want   bool
	}{
		{name: "nothing ingested", check: [2]string{"c1", "p1"}, want: false},
		{name: "latest pair", record: [][2]string{{"c1", "p1"}}, check: [2]string{"c1", "p1"}, want: true},
		{name: "other people file", record: [][2]string{{"c1", "p1"}}, check: [2]string{"c1", "p2"}, want: false},
		{name: "superseded pair", record: [][2]string{{"c1", "p1"}, {"c2", "p2"}}, check: [2]string{"c1", "p1"}, want: false},
		{name: "pair ingested again", record: [][2]string{{"c1", "p1"}, {"c2", "p2"}, {"c1", "p1"}}, check: [2]string{"c1", "p1"}, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.conn.ExecContext(ctx, "DELETE FROM ingested_files")
			require.NoError(t, err)
			for _, pair := range tc.record {
				require.NoError(t, db.ReplaceDataset(ctx, directory.Dataset{}, pair[0], pair[1]))
			}

			got, err := db.IsCurrent(ctx, tc.check[0], tc.check[1])
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	last, err := db.LastIngestion(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "c1", last.CompanyHash)
	assert.False(t, last.IngestedOn.IsZero())
}
