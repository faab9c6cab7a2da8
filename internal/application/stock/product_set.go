package stock

import "sort"

// ProductSet collects the distinct products touched by a mutation
type ProductSet map[int64]struct{}

// Add inserts ids into the set
func (s ProductSet) Add(ids ...int64) {
	for _, id := range ids {
		if id > 0 {
			s[id] = struct{}{}
		}
	}
}

// IDs returns the members in ascending order
func (s ProductSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
