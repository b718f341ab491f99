package annotate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/catalog"
	"github.com/iai-group/MovieBot-sub000/ontology"
	"github.com/iai-group/MovieBot-sub000/types"
)

func testAnnotator(t *testing.T) *Annotator {
	t.Helper()
	ont, err := ontology.Default()
	require.NoError(t, err)
	items, err := catalog.SampleItems()
	require.NoError(t, err)
	dict, err := BuildDictionary(context.Background(), catalog.NewMemoryStore(items),
		[]types.Slot{types.SlotTitle, types.SlotGenres, types.SlotKeywords, types.SlotActors, types.SlotDirectors})
	require.NoError(t, err)
	return New(ont, dict, WithRecencyThreshold(2016))
}

func values(cs []types.Constraint) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c.Slot) + ":" + string(c.Op) + ":" + c.Value.String()
	}
	return out
}

func TestNormalizeAndLemma(t *testing.T) {
	assert.Equal(t, "bram stokers dracula", Normalize("Bram Stoker's  Dracula!"))
	assert.Equal(t, "amelie", Normalize("Amélie"))
	assert.Equal(t, "joseph gordon levitt", Normalize("Joseph Gordon-Levitt"))

	assert.Equal(t, Lemma("comedy"), Lemma("comedies"))
	assert.Equal(t, Lemma("zombie"), Lemma("zombies"))
	assert.Equal(t, Lemma("witch"), Lemma("witches"))
	assert.Equal(t, "class", Lemma("class"))
	assert.Equal(t, "child", Lemma("children"))
	assert.Equal(t, "90s", Lemma("90s"))
	assert.Equal(t, "wolf", Lemma("wolves"))
	assert.Equal(t, Lemma("haunt"), Lemma("haunted"))
	assert.True(t, IsStopWord("movies"))
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("starring"))
	assert.False(t, IsStopWord("horror"))
	assert.False(t, IsStopWord("1990"))
}

func TestDictionarySkipsReservedValues(t *testing.T) {
	d := NewDictionary(map[types.Slot][]string{
		types.SlotGenres: {"Horror", ".NOT.Comedy", "<dontcare>", "Horrors"},
	})
	assert.Equal(t, 1, d.Size(types.SlotGenres))
	v, ok := d.Canonical(types.SlotGenres, "horrors")
	require.True(t, ok)
	assert.Equal(t, "Horror", v)
	assert.False(t, d.Contains(types.SlotGenres, "comedy"))
}

type failingSource struct{}

func (failingSource) Values(ctx context.Context, slot types.Slot) ([]string, error) {
	if slot == types.SlotActors {
		return nil, errors.New("db down")
	}
	return []string{"x"}, nil
}

func TestBuildDictionaryFails(t *testing.T) {
	_, err := BuildDictionary(context.Background(), failingSource{}, []types.Slot{types.SlotGenres, types.SlotActors})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actors")
}

func TestGenreAndDecade(t *testing.T) {
	a := testAnnotator(t)
	got := a.AnnotateAll("I want a horror movie from the 90s")
	assert.Equal(t, []string{"genres:EQ:Horror", "year:BETWEEN:1990 AND 2000"}, values(got))
}

func TestYearAnnotator(t *testing.T) {
	a := NewYearAnnotator(2016)
	cases := map[string]string{
		"something from 1995":           "EQ:1995",
		"a 1980s classic":               "BETWEEN:1980 AND 1990",
		"back in the eighties":          "BETWEEN:1980 AND 1990",
		"a 20th century film":           "BETWEEN:1900 AND 2000",
		"only new releases":             "GT:2016",
		"an old one":                    "LT:2016",
		"the latest thing from the 90s": "GT:2016",
		"from the 90's not latest":      "BETWEEN:1990 AND 2000",
		"early 2000s":                   "BETWEEN:2000 AND 2010",
	}
	for in, want := range cases {
		got := a.Annotate(in)
		require.Len(t, got, 1, in)
		assert.Equal(t, want, string(got[0].Op)+":"+got[0].Value.String(), in)
	}
	assert.Empty(t, a.Annotate("a scary movie please"))
}

func TestPersonAnnotatorDualSlots(t *testing.T) {
	a := testAnnotator(t)
	got := a.AnnotateAll("something directed by clint eastwood")
	assert.ElementsMatch(t, []string{"actors:EQ:Clint Eastwood", "directors:EQ:Clint Eastwood"}, values(got))

	got = a.Annotate(types.SlotActors, "with Tom Hanks")
	assert.Equal(t, []string{"actors:EQ:Tom Hanks"}, values(got))
	assert.Empty(t, a.Annotate(types.SlotDirectors, "with Tom Hanks"))
}

func TestTitleExactAndPartial(t *testing.T) {
	a := testAnnotator(t)
	got := a.Annotate(types.SlotTitle, "I loved the silence of the lambs")
	assert.Equal(t, []string{"title:EQ:The Silence of the Lambs"}, values(got))
	assert.Equal(t, "the silence of the lambs", got[0].Span)

	got = a.Annotate(types.SlotTitle, "that dark knight movie")
	assert.Equal(t, []string{"title:EQ:dark knight"}, values(got))

	assert.Empty(t, a.Annotate(types.SlotTitle, "a good one"))
}

func TestKeywordPartialPicksMostTouching(t *testing.T) {
	a := testAnnotator(t)
	got := a.Annotate(types.SlotKeywords, "I like killers")
	assert.Equal(t, []string{"keywords:EQ:killer"}, values(got))
	assert.Equal(t, "killers", got[0].Span)

	got = a.Annotate(types.SlotKeywords, "movies about vampires and heists")
	assert.Equal(t, []string{"keywords:EQ:vampire", "keywords:EQ:heist"}, values(got))
}

func TestGramsWithDigitsRejected(t *testing.T) {
	d := NewDictionary(map[types.Slot][]string{types.SlotTitle: {"Se7en", "Heat"}})
	ta := NewTextAnnotator(types.SlotTitle, d, 8, 2)
	assert.Empty(t, ta.Annotate("have you seen se7en"))
	assert.Len(t, ta.Annotate("have you seen heat"), 1)
}

func TestStopWordTitlesMatchExactly(t *testing.T) {
	d := NewDictionary(map[types.Slot][]string{types.SlotTitle: {"Get Out", "It Follows", "Heat"}})
	ta := NewTextAnnotator(types.SlotTitle, d, 8, 2)
	assert.Equal(t, []string{"title:EQ:Get Out"}, values(ta.Annotate("I liked get out")))
	assert.Equal(t, []string{"title:EQ:It Follows"}, values(ta.Annotate("what about it follows")))
	assert.Empty(t, ta.Annotate("what about it"))
}
