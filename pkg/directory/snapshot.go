package directory

import (
	"fmt"
	"slices"
)

// Snapshot is one ingestion cycle's worth of people and companies together
// with the friend graph and roster index derived from them. A Snapshot is
// never mutated after NewSnapshot returns and is safe for concurrent reads.
type Snapshot struct {
	people          []*Person
	peopleByID      map[string]*Person
	companies       []*Company
	companiesByID   map[string]*Company
	companiesByName map[string]*Company
	rosters         map[string][]*Person
	graph           *FriendGraph
}

// NewSnapshot copies ds and builds the lookup maps, the roster index and the
// friend graph. It fails with ErrDuplicateID if a person id, company id or
// company name repeats.
func NewSnapshot(ds Dataset) (*Snapshot, error) {
	s := &Snapshot{
		people:          make([]*Person, 0, len(ds.People)),
		peopleByID:      make(map[string]*Person, len(ds.People)),
		companies:       make([]*Company, 0, len(ds.Companies)),
		companiesByID:   make(map[string]*Company, len(ds.Companies)),
		companiesByName: make(map[string]*Company, len(ds.Companies)),
		rosters:         make(map[string][]*Person, len(ds.Companies)),
	}

	for i := range ds.Companies {
		c := ds.Companies[i]
		if _, ok := s.companiesByID[c.ID]; ok {
			return nil, fmt.Errorf("company id %q: %w", c.ID, ErrDuplicateID)
		}
		if _, ok := s.companiesByName[c.Name]; ok {
			return nil, fmt.Errorf("company name %q: %w", c.Name, ErrDuplicateID)
		}
		s.companies = append(s.companies, &c)
		s.companiesByID[c.ID] = &c
		s.companiesByName[c.Name] = &c
	}

	for i := range ds.People {
		p := clonePerson(ds.People[i])
		if _, ok := s.peopleByID[p.ID]; ok {
			return nil, fmt.Errorf("person id %q: %w", p.ID, ErrDuplicateID)
		}
		s.people = append(s.people, p)
		s.peopleByID[p.ID] = p
		if _, ok := s.companiesByID[p.CompanyID]; ok {
			s.rosters[p.CompanyID] = append(s.rosters[p.CompanyID], p)
		}
	}

	s.graph = newFriendGraph(s.people, s.peopleByID)
	return s, nil
}

func emptySnapshot() *Snapshot {
	s, _ := NewSnapshot(Dataset{})
	return s
}

func clonePerson(p Person) *Person {
	p.FriendIDs = slices.Clone(p.FriendIDs)
	p.FavouriteFoods = slices.Clone(p.FavouriteFoods)
	p.Tags = slices.Clone(p.Tags)
	return &p
}

// Person returns the person with the given id.
func (s *Snapshot) Person(id string) (Person, error) {
	p, ok := s.peopleByID[id]
	if !ok {
		return Person{}, personNotFound(id)
	}
	return *p, nil
}

// CompanyByName returns the company whose name matches exactly, case included.
func (s *Snapshot) CompanyByName(name string) (Company, error) {
	c, ok := s.companiesByName[name]
	if !ok {
		return Company{}, companyNotFound(name)
	}
	return *c, nil
}

// People returns every person in ingestion order.
func (s *Snapshot) People() []Person {
	return values(s.people)
}

// Companies returns every company in ingestion order.
func (s *Snapshot) Companies() []Company {
	return values(s.companies)
}

// Graph returns the friend graph built for this snapshot.
func (s *Snapshot) Graph() *FriendGraph {
	return s.graph
}

// FriendsOf returns the distinct, existing people that id declares as
// friends, ordered by ascending id.
func (s *Snapshot) FriendsOf(id string) ([]Person, error) {
	if _, ok := s.peopleByID[id]; !ok {
		return nil, personNotFound(id)
	}
	return s.resolve(s.graph.FriendIDs(id)), nil
}

// Stats summarises the snapshot's size.
type Stats struct {
	People      int `json:"people"`
	Companies   int `json:"companies"`
	Friendships int `json:"friendships"`
}

// Stats returns the number of people, companies and distinct friend edges.
func (s *Snapshot) Stats() Stats {
	return Stats{
		People:      len(s.people),
		Companies:   len(s.companies),
		Friendships: s.graph.EdgeCount(),
	}
}

func (s *Snapshot) resolve(ids []string) []Person {
	out := make([]Person, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.peopleByID[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

func values[T any](in []*T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = *v
	}
	return out
}
