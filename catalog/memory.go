package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/iai-group/MovieBot-sub000/types"
)

const similarPerItem = 5

// MemoryStore serves lookups from a fixed item list. It is read-only after
// construction and safe for concurrent use.
type MemoryStore struct {
	items []types.Item
}

// NewMemoryStore copies items and fills in missing similarity lists.
func NewMemoryStore(items []types.Item) *MemoryStore {
	items = slices.Clone(items)
	RankSimilar(items, similarPerItem)
	return &MemoryStore{items: items}
}

func (m *MemoryStore) Items() []types.Item {
	return slices.Clone(m.items)
}

func (m *MemoryStore) Lookup(ctx context.Context, q Query) ([]types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []types.Item
	for _, item := range m.items {
		if q.Match(item) {
			out = append(out, item)
		}
	}
	slices.SortStableFunc(out, func(a, b types.Item) int {
		if c := cmp.Compare(rating(b), rating(a)); c != 0 {
			return c
		}
		return cmp.Compare(b.Votes, a.Votes)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Values(ctx context.Context, slot types.Slot) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return literalValues(m.items, slot, isListSlot(slot)), nil
}

// RankSimilar sets Similar on every item that has none, using the Jaccard
// overlap of genres and keywords. Ties go to the better rated title.
func RankSimilar(items []types.Item, n int) {
	features := make([]map[string]bool, len(items))
	for i, item := range items {
		set := map[string]bool{}
		for _, slot := range []types.Slot{types.SlotGenres, types.SlotKeywords} {
			for _, v := range item.List(slot) {
				set[string(slot)+":"+strings.ToLower(v)] = true
			}
		}
		features[i] = set
	}
	type scored struct {
		idx   int
		score float64
	}
	for i := range items {
		if len(items[i].Similar) > 0 {
			continue
		}
		var cands []scored
		for j := range items {
			if i == j {
				continue
			}
			if s := jaccard(features[i], features[j]); s > 0 {
				cands = append(cands, scored{j, s})
			}
		}
		slices.SortStableFunc(cands, func(a, b scored) int {
			if c := cmp.Compare(b.score, a.score); c != 0 {
				return c
			}
			return cmp.Compare(rating(items[b.idx]), rating(items[a.idx]))
		})
		var similar []string
		for _, c := range cands[:min(n, len(cands))] {
			similar = append(similar, items[c.idx].Title())
		}
		items[i].Similar = similar
	}
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
