package directory

import (
	"fmt"
)

// MinCommonFriendsPeople is the smallest number of distinct people a
// common-friends query accepts.
const MinCommonFriendsPeople = 2

// BrownEyes is the eye colour kept by CommonAliveBrownEyedFriends.
const BrownEyes = "brown"

// FriendFilter decides whether a shared friend is kept in a result.
type FriendFilter func(Person) bool

// AliveBrownEyed keeps people who are alive and have brown eyes.
func AliveBrownEyed(p Person) bool {
	return p.IsAlive && p.EyeColor == BrownEyes
}

// EmployeesOf returns the people employed by the company with the given
// name, in ingestion order.
func (s *Snapshot) EmployeesOf(companyName string) ([]Person, error) {
	c, ok := s.companiesByName[companyName]
	if !ok {
		return nil, companyNotFound(companyName)
	}
	return values(s.rosters[c.ID]), nil
}

// CommonAliveBrownEyedFriends returns the friends declared by every one of
// personIDs who are alive and brown-eyed, ordered by ascending id.
func (s *Snapshot) CommonAliveBrownEyedFriends(personIDs []string) ([]Person, error) {
	return s.CommonFriends(personIDs, MinCommonFriendsPeople, AliveBrownEyed)
}

// CommonFriends intersects the declared friend sets of personIDs and keeps the
// people accepted by keep (all of them when keep is nil). Repeated ids count
// once. It fails with ErrInvalidArgument when fewer than minCount distinct ids
// are given (minCount is raised to MinCommonFriendsPeople), and with a
// NotFoundError naming the first unknown id.
func (s *Snapshot) CommonFriends(personIDs []string, minCount int, keep FriendFilter) ([]Person, error) {
	if minCount < MinCommonFriendsPeople {
		minCount = MinCommonFriendsPeople
	}

	ids := uniqueStrings(personIDs)
	if len(ids) < minCount {
		return nil, fmt.Errorf("common friends needs at least %d distinct people, got %d: %w",
			minCount, len(ids), ErrInvalidArgument)
	}

	for _, id := range ids {
		if _, ok := s.peopleByID[id]; !ok {
			return nil, personNotFound(id)
		}
	}

	shared := s.resolve(s.graph.Intersect(ids))
	if keep == nil {
		return shared, nil
	}
	out := make([]Person, 0, len(shared))
	for _, p := range shared {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FavoriteFoodsOf returns the person's favourite foods in declared order with
// repeats removed.
func (s *Snapshot) FavoriteFoodsOf(personID string) ([]string, error) {
	p, ok := s.peopleByID[personID]
	if !ok {
		return nil, personNotFound(personID)
	}
	return uniqueStrings(p.FavouriteFoods), nil
}

// uniqueStrings keeps the first occurrence of every value.
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
