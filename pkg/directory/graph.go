package directory

import (
	"slices"
)

// FriendGraph is the declared-direction adjacency over person ids. An edge
// A -> B exists when A lists B as a friend, B exists, and B != A. Repeated
// declarations collapse into one edge. The graph is read-only once built.
type FriendGraph struct {
	adjacency map[string]map[string]struct{}
	edges     int
}

func newFriendGraph(people []*Person, known map[string]*Person) *FriendGraph {
	g := &FriendGraph{adjacency: make(map[string]map[string]struct{}, len(people))}
	for _, p := range people {
		friends := make(map[string]struct{}, len(p.FriendIDs))
		for _, id := range p.FriendIDs {
			if id == p.ID {
				continue
			}
			if _, ok := known[id]; !ok {
				continue
			}
			friends[id] = struct{}{}
		}
		g.adjacency[p.ID] = friends
		g.edges += len(friends)
	}
	return g
}

// Has reports whether id is a node of the graph.
func (g *FriendGraph) Has(id string) bool {
	_, ok := g.adjacency[id]
	return ok
}

// FriendIDs returns the sorted friend ids declared by id.
func (g *FriendGraph) FriendIDs(id string) []string {
	friends := g.adjacency[id]
	out := make([]string, 0, len(friends))
	for f := range friends {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Degree returns the number of distinct friends declared by id.
func (g *FriendGraph) Degree(id string) int {
	return len(g.adjacency[id])
}

// IsFriend reports whether id declares other as a friend.
func (g *FriendGraph) IsFriend(id, other string) bool {
	_, ok := g.adjacency[id][other]
	return ok
}

// EdgeCount returns the number of distinct directed edges.
func (g *FriendGraph) EdgeCount() int {
	return g.edges
}

// Intersect returns the ids present in the friend set of every id, sorted
// ascending. Unknown ids have an empty friend set. The smallest set drives
// the scan, so the cost is bounded by min degree times len(ids).
func (g *FriendGraph) Intersect(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}

	sets := make([]map[string]struct{}, len(ids))
	for i, id := range ids {
		sets[i] = g.adjacency[id]
	}
	slices.SortFunc(sets, func(a, b map[string]struct{}) int {
		return len(a) - len(b)
	})

	out := []string{}
	for candidate := range sets[0] {
		shared := true
		for _, other := range sets[1:] {
			if _, ok := other[candidate]; !ok {
				shared = false
				break
			}
		}
		if shared {
			out = append(out, candidate)
		}
	}
	slices.Sort(out)
	return out
}
