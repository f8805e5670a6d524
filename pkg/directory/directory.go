// Package directory is the read-only query engine over the colony's people
// and companies.
//
// Data lives in immutable Snapshots. A Directory publishes the current
// Snapshot through a single atomic pointer: a new ingestion cycle builds its
// Snapshot off to the side and swaps it in with Replace, so a query observes
// either the old dataset or the new one, never a mix. Queries that need
// several reads from the same cycle should call Current once and query the
// returned Snapshot.
package directory

import (
	"sync/atomic"
)

// Directory holds the current Snapshot.
type Directory struct {
	current atomic.Pointer[Snapshot]
	loaded  atomic.Bool
}

// New returns a Directory serving an empty snapshot until Replace is called.
func New() *Directory {
	d := &Directory{}
	d.current.Store(emptySnapshot())
	return d
}

// Current returns the snapshot queries should run against.
func (d *Directory) Current() *Snapshot {
	return d.current.Load()
}

// Replace publishes s and returns the snapshot it replaced.
func (d *Directory) Replace(s *Snapshot) *Snapshot {
	if s == nil {
		s = emptySnapshot()
	}
	prev := d.current.Swap(s)
	d.loaded.Store(true)
	return prev
}

// Loaded reports whether Replace has been called at least once.
func (d *Directory) Loaded() bool {
	return d.loaded.Load()
}

// EmployeesOf runs Snapshot.EmployeesOf against the current snapshot.
func (d *Directory) EmployeesOf(companyName string) ([]Person, error) {
	return d.Current().EmployeesOf(companyName)
}

// CommonAliveBrownEyedFriends runs Snapshot.CommonAliveBrownEyedFriends
// against the current snapshot.
func (d *Directory) CommonAliveBrownEyedFriends(personIDs []string) ([]Person, error) {
	return d.Current().CommonAliveBrownEyedFriends(personIDs)
}

// FavoriteFoodsOf runs Snapshot.FavoriteFoodsOf against the current snapshot.
func (d *Directory) FavoriteFoodsOf(personID string) ([]string, error) {
	return d.Current().FavoriteFoodsOf(personID)
}
