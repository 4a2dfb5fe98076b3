package anthro

import (
	"math"
	"sort"
)

// Resolve returns the LMS parameters at key. An exact key returns the
// stored entry unchanged; a key between two reference points is linearly
// interpolated on L, M and S independently. Keys outside the table are
// rejected; reference curves are not valid outside their domain.
func (t *Table) Resolve(key float64) (LMSEntry, error) {
	n := len(t.entries)
	if n == 0 || key < t.entries[0].Key || key > t.entries[n-1].Key || math.IsNaN(key) {
		minKey, maxKey := 0.0, 0.0
		if n > 0 {
			minKey, maxKey = t.Min(), t.Max()
		}
		return LMSEntry{}, &OutOfRangeError{Table: t.key, Key: key, Min: minKey, Max: maxKey}
	}

	// first entry with Key >= key
	i := sort.Search(n, func(i int) bool { return t.entries[i].Key >= key })
	hi := t.entries[i]
	if hi.Key == key {
		return hi, nil
	}
	lo := t.entries[i-1]

	f := (key - lo.Key) / (hi.Key - lo.Key)
	return LMSEntry{
		Key: key,
		L:   lerp(lo.L, hi.L, f),
		M:   lerp(lo.M, hi.M, f),
		S:   lerp(lo.S, hi.S, f),
	}, nil
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}
