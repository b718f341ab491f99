package types

import (
	"strings"
)

// Item is one catalog entry. Attributes hold the raw column text; list
// slots are comma separated the way the catalog stores them.
type Item struct {
	ID         string          `json:"id" db:"id"`
	Attributes map[Slot]string `json:"attributes"`
	Votes      int             `json:"votes" db:"num_votes"`
	Similar    []string        `json:"similar,omitempty"`
}

func (i Item) Title() string {
	return i.Attributes[SlotTitle]
}

func (i Item) Get(slot Slot) string {
	return i.Attributes[slot]
}

// List splits a list attribute into its trimmed, non-empty parts.
func (i Item) List(slot Slot) []string {
	return SplitList(i.Attributes[slot])
}

func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
