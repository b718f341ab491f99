package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownSlot     = errors.New("unknown slot")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrUnknownIntent   = errors.New("unknown intent")
)

// Slot is a named catalog attribute. The set of slots is closed; an ontology
// decides which of them a domain declares and how they behave.
type Slot string

const (
	SlotTitle     Slot = "title"
	SlotGenres    Slot = "genres"
	SlotKeywords  Slot = "keywords"
	SlotDirectors Slot = "directors"
	SlotActors    Slot = "actors"
	SlotYear      Slot = "year"
	SlotDuration  Slot = "duration"
	SlotRating    Slot = "rating"
	SlotPlot      Slot = "plot"
	SlotImdbLink  Slot = "imdb_link"

	// Meta slots travel inside acts only and are never part of the need.
	SlotReason Slot = "reason"
	SlotCount  Slot = "count"
)

var catalogSlots = []Slot{
	SlotTitle, SlotGenres, SlotKeywords, SlotDirectors, SlotActors,
	SlotYear, SlotDuration, SlotRating, SlotPlot, SlotImdbLink,
}

// CatalogSlots returns every non-meta slot in canonical order.
func CatalogSlots() []Slot {
	out := make([]Slot, len(catalogSlots))
	copy(out, catalogSlots)
	return out
}

func (s Slot) Valid() bool {
	if s.IsMeta() {
		return true
	}
	for _, known := range catalogSlots {
		if s == known {
			return true
		}
	}
	return false
}

func (s Slot) IsMeta() bool {
	return s == SlotReason || s == SlotCount
}

func ParseSlot(name string) (Slot, error) {
	s := Slot(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSlot, name)
	}
	return s, nil
}

// SlotInfo carries the per-domain flags of a declared slot.
type SlotInfo struct {
	Name              Slot   `json:"name" yaml:"name"`
	DisplayName       string `json:"display_name,omitempty" yaml:"display_name"`
	Multi             bool   `json:"multi" yaml:"multi"`
	SystemRequestable bool   `json:"system_requestable" yaml:"-"`
	UserRequestable   bool   `json:"user_requestable" yaml:"user_requestable"`
	Annotate          bool   `json:"annotate" yaml:"annotate"`
	Narrowing         bool   `json:"narrowing" yaml:"narrowing"`
	// Keywords are the words a user asks about the slot with.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords"`
}

func (i SlotInfo) Label() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return strings.ReplaceAll(string(i.Name), "_", " ")
}
