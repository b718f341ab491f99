package types

import (
	"strings"
)

// NegationPrefix marks a negated literal in its string form. The annotator,
// the tracker and the catalog query builder all read it through Value.
const NegationPrefix = ".NOT."

// Sentinel values never collide with catalog literals: their string forms
// are bracketed and the dictionary loader drops literals that look like them.
type Sentinel uint8

const (
	NoSentinel Sentinel = iota
	DontCare
	NotFound
)

const (
	dontCareText = "<dontcare>"
	notFoundText = "<notfound>"
)

func (s Sentinel) String() string {
	switch s {
	case DontCare:
		return dontCareText
	case NotFound:
		return notFoundText
	default:
		return ""
	}
}

// Value is either a literal (optionally negated) or a sentinel.
// The zero Value is the empty literal.
type Value struct {
	sentinel Sentinel
	text     string
	negated  bool
}

func Literal(text string) Value {
	return Value{text: strings.TrimSpace(text)}
}

func SentinelValue(s Sentinel) Value {
	return Value{sentinel: s}
}

var (
	DontCareValue = SentinelValue(DontCare)
	NotFoundValue = SentinelValue(NotFound)
)

// ParseValue decodes the string form produced by Value.String.
func ParseValue(raw string) Value {
	raw = strings.TrimSpace(raw)
	switch raw {
	case dontCareText:
		return DontCareValue
	case notFoundText:
		return NotFoundValue
	}
	if rest, ok := strings.CutPrefix(raw, NegationPrefix); ok {
		return Value{text: strings.TrimSpace(rest), negated: true}
	}
	return Literal(raw)
}

// IsReserved reports whether a catalog literal would be confused with a
// sentinel or a negated literal once encoded.
func IsReserved(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == dontCareText || raw == notFoundText || strings.HasPrefix(raw, NegationPrefix)
}

func (v Value) Sentinel() Sentinel { return v.sentinel }
func (v Value) IsSentinel() bool   { return v.sentinel != NoSentinel }
func (v Value) IsDontCare() bool   { return v.sentinel == DontCare }
func (v Value) IsNotFound() bool   { return v.sentinel == NotFound }
func (v Value) IsNegated() bool    { return v.negated }

// IsEmpty reports the empty literal, used as the "no value" marker of
// ELICIT and INQUIRE constraints.
func (v Value) IsEmpty() bool {
	return v.sentinel == NoSentinel && v.text == ""
}

// Text returns the literal without the negation marker.
func (v Value) Text() string {
	if v.IsSentinel() {
		return v.sentinel.String()
	}
	return v.text
}

// Negate flips the negation of a literal. Sentinels are returned unchanged.
func (v Value) Negate() Value {
	if v.IsSentinel() {
		return v
	}
	v.negated = !v.negated
	return v
}

// WithNegation returns the literal with negation forced to neg.
func (v Value) WithNegation(neg bool) Value {
	if v.IsSentinel() {
		return v
	}
	v.negated = neg
	return v
}

// Fold compares literals case-insensitively.
func (v Value) Fold(other Value) bool {
	return v.sentinel == other.sentinel && v.negated == other.negated && strings.EqualFold(v.text, other.text)
}

func (v Value) String() string {
	if v.IsSentinel() {
		return v.sentinel.String()
	}
	if v.negated {
		return NegationPrefix + v.text
	}
	return v.text
}

func (v Value) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalText(data []byte) error {
	*v = ParseValue(string(data))
	return nil
}
