package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iai-group/MovieBot-sub000/types"
)

// Lookup returns the items matching a query, best rated first.
type Lookup interface {
	Lookup(ctx context.Context, q Query) ([]types.Item, error)
}

type LookupFunc func(ctx context.Context, q Query) ([]types.Item, error)

func (f LookupFunc) Lookup(ctx context.Context, q Query) ([]types.Item, error) {
	return f(ctx, q)
}

//go:embed sample/movies.yaml
var sampleYAML []byte

type record struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Genres    string   `yaml:"genres"`
	Keywords  string   `yaml:"keywords"`
	Directors string   `yaml:"directors"`
	Actors    string   `yaml:"actors"`
	Year      int      `yaml:"year"`
	Duration  int      `yaml:"duration"`
	Rating    float64  `yaml:"rating"`
	Plot      string   `yaml:"plot"`
	ImdbLink  string   `yaml:"imdb_link"`
	Votes     int      `yaml:"votes"`
	Similar   []string `yaml:"similar"`
}

func (r record) item() types.Item {
	link := r.ImdbLink
	if link == "" && strings.HasPrefix(r.ID, "tt") {
		link = "https://www.imdb.com/title/" + r.ID + "/"
	}
	attrs := map[types.Slot]string{
		types.SlotTitle:     r.Title,
		types.SlotGenres:    r.Genres,
		types.SlotKeywords:  r.Keywords,
		types.SlotDirectors: r.Directors,
		types.SlotActors:    r.Actors,
		types.SlotPlot:      r.Plot,
		types.SlotImdbLink:  link,
	}
	if r.Year > 0 {
		attrs[types.SlotYear] = strconv.Itoa(r.Year)
	}
	if r.Duration > 0 {
		attrs[types.SlotDuration] = strconv.Itoa(r.Duration)
	}
	if r.Rating > 0 {
		attrs[types.SlotRating] = strconv.FormatFloat(r.Rating, 'f', 1, 64)
	}
	return types.Item{ID: r.ID, Attributes: attrs, Votes: r.Votes, Similar: r.Similar}
}

// SampleItems returns the built-in movie sample.
func SampleItems() ([]types.Item, error) {
	return LoadItems(bytes.NewReader(sampleYAML))
}

func LoadItemsFile(path string) ([]types.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open items: %w", err)
	}
	defer f.Close()
	return LoadItems(f)
}

func LoadItems(r io.Reader) ([]types.Item, error) {
	var records []record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	items := make([]types.Item, 0, len(records))
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		if rec.ID == "" || rec.Title == "" {
			return nil, fmt.Errorf("item %d: id and title are required", i)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("item %d: duplicate id %q", i, rec.ID)
		}
		seen[rec.ID] = true
		items = append(items, rec.item())
	}
	return items, nil
}

func rating(item types.Item) float64 {
	r, _ := strconv.ParseFloat(item.Get(types.SlotRating), 64)
	return r
}

// literalValues collects the distinct values of slot, splitting list slots.
// Literals that would clash with sentinel encoding are dropped.
func literalValues(items []types.Item, slot types.Slot, list bool) []string {
	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || types.IsReserved(v) || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, item := range items {
		if list {
			for _, v := range item.List(slot) {
				add(v)
			}
			continue
		}
		add(item.Get(slot))
	}
	return out
}

func isListSlot(slot types.Slot) bool {
	switch slot {
	case types.SlotGenres, types.SlotKeywords, types.SlotDirectors, types.SlotActors:
		return true
	}
	return false
}
