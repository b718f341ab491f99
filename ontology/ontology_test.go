package ontology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iai-group/MovieBot-sub000/types"
)

func TestDefaultOntology(t *testing.T) {
	o, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "movies", o.Name())
	assert.Equal(t, []types.Slot{types.SlotGenres, types.SlotYear}, o.SystemRequestable())
	assert.Equal(t, []types.Slot{
		types.SlotTitle, types.SlotGenres, types.SlotKeywords,
		types.SlotDirectors, types.SlotActors, types.SlotYear,
	}, o.Annotated())
	assert.Equal(t, []types.Slot{types.SlotKeywords, types.SlotDirectors, types.SlotActors}, o.Narrowing())
	assert.True(t, o.Multi(types.SlotGenres))
	assert.False(t, o.Multi(types.SlotYear))
	assert.Equal(t, "genre", o.Label(types.SlotGenres))

	info, ok := o.Info(types.SlotGenres)
	require.True(t, ok)
	assert.True(t, info.SystemRequestable)
}

func TestEmptyNeedHasListsForMultiSlots(t *testing.T) {
	o, err := Default()
	require.NoError(t, err)
	need := o.EmptyNeed()
	for _, slot := range o.Annotated() {
		values, ok := need[slot]
		require.True(t, ok, slot)
		assert.NotNil(t, values, slot)
		assert.Empty(t, values, slot)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown slot": `
system_requestable: [genres]
slots:
  - name: budget
`,
		"undeclared requestable": `
system_requestable: [year]
slots:
  - name: genres
    annotate: true
`,
		"duplicate": `
system_requestable: [genres]
slots:
  - name: genres
    annotate: true
  - name: genres
`,
		"no requestable": `
slots:
  - name: genres
`,
		"unknown field": `
system_requestable: [genres]
slots:
  - name: genres
    annotate: true
    colour: red
`,
		"meta slot": `
system_requestable: [genres]
slots:
  - name: genres
    annotate: true
  - name: reason
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}
