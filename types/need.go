package types

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Need maps slots to their elicited values. Scalar slots hold at most one
// value; multi-valued slots hold a list.
type Need map[Slot][]Value

func (n Need) Clone() Need {
	out := make(Need, len(n))
	for slot, values := range n {
		out[slot] = slices.Clone(values)
	}
	return out
}

func (n Need) Values(slot Slot) []Value {
	return n[slot]
}

// Filled reports whether slot holds at least one value.
func (n Need) Filled(slot Slot) bool {
	return len(n[slot]) > 0
}

// HasSentinel reports whether slot holds the given sentinel.
func (n Need) HasSentinel(slot Slot, s Sentinel) bool {
	for _, v := range n[slot] {
		if v.Sentinel() == s {
			return true
		}
	}
	return false
}

// AnySentinel reports whether any slot holds the given sentinel.
func (n Need) AnySentinel(s Sentinel) bool {
	for slot := range n {
		if n.HasSentinel(slot, s) {
			return true
		}
	}
	return false
}

// Slots returns the filled slots in canonical order.
func (n Need) Slots() []Slot {
	var out []Slot
	for _, s := range catalogSlots {
		if n.Filled(s) {
			out = append(out, s)
		}
	}
	return out
}

func (n Need) Equal(other Need) bool {
	if len(n.Slots()) != len(other.Slots()) {
		return false
	}
	for slot, values := range n {
		if !slices.Equal(values, other[slot]) {
			return false
		}
	}
	return true
}

// Key is a stable fingerprint of the filled slots.
func (n Need) Key() string {
	var b strings.Builder
	for _, slot := range n.Slots() {
		b.WriteString(string(slot))
		b.WriteByte('=')
		for i, v := range n[slot] {
			if i > 0 {
				b.WriteByte('|')
			}
			b.WriteString(v.String())
		}
		b.WriteByte(';')
	}
	return b.String()
}

func (n Need) Strings() map[string][]string {
	out := make(map[string][]string, len(n))
	for _, slot := range slices.Sorted(maps.Keys(n)) {
		values := n[slot]
		if len(values) == 0 {
			continue
		}
		texts := make([]string, len(values))
		for i, v := range values {
			texts[i] = v.String()
		}
		out[string(slot)] = texts
	}
	return out
}

func (n Need) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Strings())
}

func (n *Need) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Need, len(raw))
	for name, texts := range raw {
		slot, err := ParseSlot(name)
		if err != nil {
			return err
		}
		for _, t := range texts {
			out[slot] = append(out[slot], ParseValue(t))
		}
	}
	*n = out
	return nil
}

// NeedDiff returns the JSON merge patch turning prev into next. Cleared
// slots appear as nulls.
func NeedDiff(prev, next Need) (json.RawMessage, error) {
	from, err := json.Marshal(prev)
	if err != nil {
		return nil, fmt.Errorf("marshal previous need: %w", err)
	}
	to, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("marshal current need: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(from, to)
	if err != nil {
		return nil, fmt.Errorf("create need patch: %w", err)
	}
	return patch, nil
}

// ApplyNeedDiff applies a patch produced by NeedDiff.
func ApplyNeedDiff(prev Need, patch json.RawMessage) (Need, error) {
	from, err := json.Marshal(prev)
	if err != nil {
		return nil, fmt.Errorf("marshal need: %w", err)
	}
	merged, err := jsonpatch.MergePatch(from, patch)
	if err != nil {
		return nil, fmt.Errorf("apply need patch: %w", err)
	}
	var out Need
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, err
	}
	return out, nil
}
