package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/types"
)

// Filter is one conjunct of a Query. Text filters match by case-insensitive
// substring; year filters compare integers, with BETWEEN meaning
// Low <= year < High.
type Filter struct {
	Slot types.Slot     `json:"slot"`
	Op   types.Operator `json:"op"`
	Text string         `json:"text,omitempty"`
	Low  int            `json:"low,omitempty"`
	High int            `json:"high,omitempty"`
}

// Query is the catalog contract. When SimilarTitles is set the query is a
// disjunction of exact title matches and Filters are ignored.
type Query struct {
	Filters       []Filter `json:"filters,omitempty"`
	SimilarTitles []string `json:"similar_titles,omitempty"`
	MinVotes      int      `json:"min_votes"`
	Limit         int      `json:"limit,omitempty"`
}

// DefaultMinVotes is the popularity floor applied when none is configured.
const DefaultMinVotes = 1000

type QueryOptions struct {
	MinVotes int
	Limit    int
}

// DefaultQueryOptions returns the floor without a result limit.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{MinVotes: DefaultMinVotes}
}

// BuildQuery turns the need into a conjunctive filter. Sentinels and
// unparsable year expressions contribute nothing.
func BuildQuery(need types.Need, ont *ontology.Ontology, opts QueryOptions) Query {
	q := Query{MinVotes: opts.MinVotes, Limit: opts.Limit}
	for _, slot := range ont.Annotated() {
		for _, v := range need[slot] {
			if v.IsSentinel() || v.Text() == "" {
				continue
			}
			if slot == types.SlotYear {
				f, err := parseYear(v)
				if err != nil {
					continue
				}
				q.Filters = append(q.Filters, f)
				continue
			}
			op := types.OpEQ
			if v.IsNegated() {
				op = types.OpNE
			}
			q.Filters = append(q.Filters, Filter{Slot: slot, Op: op, Text: strings.ToLower(v.Text())})
		}
	}
	return q
}

// SimilarQuery selects the given titles, ignoring the popularity floor.
func SimilarQuery(titles []string, limit int) Query {
	q := Query{Limit: limit}
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			q.SimilarTitles = append(q.SimilarTitles, strings.ToLower(t))
		}
	}
	return q
}

func (q Query) Similar() bool {
	return len(q.SimilarTitles) > 0
}

// Key fingerprints the query for caching.
func (q Query) Key() string {
	s, err := sonic.ConfigStd.MarshalToString(q)
	if err != nil {
		return fmt.Sprintf("%+v", q)
	}
	return s
}

// parseYear reads "1995", "BETWEEN 1990 AND 2000" and "> 2016" style
// expressions, honouring the negation marker.
func parseYear(v types.Value) (Filter, error) {
	text := strings.TrimSpace(v.Text())
	f := Filter{Slot: types.SlotYear}
	upper := strings.ToUpper(text)
	switch {
	case strings.HasPrefix(upper, "BETWEEN "):
		lo, hi, ok := strings.Cut(strings.TrimSpace(text[len("BETWEEN "):]), " AND ")
		if !ok {
			lo, hi, ok = strings.Cut(strings.TrimSpace(text[len("BETWEEN "):]), " and ")
		}
		if !ok {
			return f, fmt.Errorf("malformed range %q", text)
		}
		low, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return f, fmt.Errorf("range start %q: %w", lo, err)
		}
		high, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return f, fmt.Errorf("range end %q: %w", hi, err)
		}
		f.Op, f.Low, f.High = types.OpBetween, low, high
	default:
		f.Op = types.OpEQ
		for _, prefix := range []string{">=", "<=", ">", "<", "="} {
			if rest, ok := strings.CutPrefix(text, prefix); ok {
				op, err := types.ParseOperator(prefix)
				if err != nil {
					return f, err
				}
				f.Op, text = op, strings.TrimSpace(rest)
				break
			}
		}
		year, err := strconv.Atoi(text)
		if err != nil {
			return f, fmt.Errorf("year %q: %w", text, err)
		}
		f.Low = year
	}
	if v.IsNegated() {
		f.Op = f.Op.Negate()
	}
	return f, nil
}

// Match evaluates the query against one item, mirroring the SQL rendering.
func (q Query) Match(item types.Item) bool {
	if q.Similar() {
		title := strings.ToLower(item.Title())
		for _, t := range q.SimilarTitles {
			if t == title {
				return true
			}
		}
		return false
	}
	if item.Votes < q.MinVotes {
		return false
	}
	for _, f := range q.Filters {
		if !f.match(item) {
			return false
		}
	}
	return true
}

func (f Filter) match(item types.Item) bool {
	if f.Slot == types.SlotYear {
		year, err := strconv.Atoi(strings.TrimSpace(item.Get(types.SlotYear)))
		if err != nil || year <= 0 {
			return false
		}
		switch f.Op {
		case types.OpEQ:
			return year == f.Low
		case types.OpNE:
			return year != f.Low
		case types.OpLT:
			return year < f.Low
		case types.OpLE:
			return year <= f.Low
		case types.OpGT:
			return year > f.Low
		case types.OpGE:
			return year >= f.Low
		case types.OpBetween:
			return year >= f.Low && year < f.High
		case types.OpNot:
			return year < f.Low || year >= f.High
		}
		return false
	}
	contains := strings.Contains(strings.ToLower(item.Get(f.Slot)), f.Text)
	if f.Op == types.OpNE {
		return !contains
	}
	return contains
}
