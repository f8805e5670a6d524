package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/jamesprial/colony-directory/pkg/directory"
)

// benchDataset creates a dataset with the specified number of people
func benchDataset(peopleCount int) directory.Dataset {
	ds := directory.Dataset{}
	for i := 0; i < 10; i++ {
		ds.Companies = append(ds.Companies, directory.Company{
			ID:    fmt.Sprintf("company_%d", i),
			Index: i,
			Name:  fmt.Sprintf("Company %d", i),
		})
	}

	for i := 0; i < peopleCount; i++ {
		friends := make([]string, 0, 20)
		for j := 1; j <= 20; j++ {
			friends = append(friends, fmt.Sprintf("person_%d", (i+j*7)%peopleCount))
		}
		ds.People = append(ds.People, directory.Person{
			ID:             fmt.Sprintf("person_%d", i),
			Index:          i,
			Name:           fmt.Sprintf("Person %d", i),
			Age:            20 + i%50,
			IsAlive:        i%5 != 0,
			EyeColor:       []string{"brown", "blue", "green"}[i%3],
			CompanyID:      fmt.Sprintf("company_%d", i%10),
			FriendIDs:      friends,
			FavouriteFoods: []string{"apple", "carrot", "banana"},
			Tags:           []string{"tag"},
		})
	}
	return ds
}

func setupBenchDB(b *testing.B, name string) *DB {
	b.Helper()

	db, err := NewDBWithLogger(
		fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { db.Close() })
	return db
}

func BenchmarkReplaceDataset(b *testing.B) {
	for _, size := range []int{100, 1000} {
		b.Run(fmt.Sprintf("people_%d", size), func(b *testing.B) {
			db := setupBenchDB(b, fmt.Sprintf("bench_replace_%d", size))
			ds := benchDataset(size)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := db.ReplaceDataset(ctx, ds, "c", fmt.Sprintf("p%d", i)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkLoadDataset(b *testing.B) {
	for _, size := range []int{100, 1000} {
		b.Run(fmt.Sprintf("people_%d", size), func(b *testing.B) {
			db := setupBenchDB(b, fmt.Sprintf("bench_load_%d", size))
			ctx := context.Background()
			if err := db.ReplaceDataset(ctx, benchDataset(size), "c", "p"); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				ds, err := db.LoadDataset(ctx)
				if err != nil {
					b.Fatal(err)
				}
				if len(ds.People) != size {
					b.Fatalf("loaded %d people, want %d", len(ds.People), size)
				}
			}
		})
	}
}
