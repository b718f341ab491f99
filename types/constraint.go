package types

import (
	"fmt"
	"strings"
)

type Operator string

const (
	OpEQ      Operator = "EQ"
	OpNE      Operator = "NE"
	OpLT      Operator = "LT"
	OpLE      Operator = "LE"
	OpGT      Operator = "GT"
	OpGE      Operator = "GE"
	OpBetween Operator = "BETWEEN"
	OpAnd     Operator = "AND"
	OpOr      Operator = "OR"
	OpNot     Operator = "NOT"
	OpIn      Operator = "IN"
)

var operatorSymbols = map[Operator]string{
	OpEQ:      "=",
	OpNE:      "!=",
	OpLT:      "<",
	OpLE:      "<=",
	OpGT:      ">",
	OpGE:      ">=",
	OpBetween: "BETWEEN",
	OpAnd:     "AND",
	OpOr:      "OR",
	OpNot:     "NOT",
	OpIn:      "IN",
}

var operatorNegations = map[Operator]Operator{
	OpEQ:      OpNE,
	OpNE:      OpEQ,
	OpLT:      OpGE,
	OpGE:      OpLT,
	OpLE:      OpGT,
	OpGT:      OpLE,
	OpBetween: OpNot,
	OpNot:     OpBetween,
	OpIn:      OpNot,
	OpAnd:     OpOr,
	OpOr:      OpAnd,
}

func (o Operator) Valid() bool {
	_, ok := operatorSymbols[o]
	return ok
}

func (o Operator) Symbol() string {
	return operatorSymbols[o]
}

// Negate returns the complementary operator.
func (o Operator) Negate() Operator {
	if n, ok := operatorNegations[o]; ok {
		return n
	}
	return o
}

// IsRange reports operators that the tracker renders into a range expression.
func (o Operator) IsRange() bool {
	switch o {
	case OpLT, OpLE, OpGT, OpGE, OpBetween:
		return true
	}
	return false
}

func ParseOperator(raw string) (Operator, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if o := Operator(raw); o.Valid() {
		return o, nil
	}
	for op, sym := range operatorSymbols {
		if sym == raw {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, raw)
}

// Constraint is one typed piece of information about a slot. Span keeps the
// surface text the annotator matched, when there is one.
type Constraint struct {
	Slot  Slot     `json:"slot"`
	Op    Operator `json:"op"`
	Value Value    `json:"value"`
	Span  string   `json:"span,omitempty"`
}

func NewConstraint(slot Slot, op Operator, value Value) (Constraint, error) {
	c := Constraint{Slot: slot, Op: op, Value: value}
	if err := c.Validate(); err != nil {
		return Constraint{}, err
	}
	return c, nil
}

// MustConstraint is NewConstraint for statically known slots and operators.
func MustConstraint(slot Slot, op Operator, value Value) Constraint {
	c, err := NewConstraint(slot, op, value)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Constraint) Validate() error {
	if !c.Slot.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, c.Slot)
	}
	if !c.Op.Valid() {
		return fmt.Errorf("%w: %q on slot %s", ErrUnknownOperator, c.Op, c.Slot)
	}
	return nil
}

func (c Constraint) WithSpan(span string) Constraint {
	c.Span = span
	return c
}

// Equal compares slot, operator and value. The span is provenance only.
func (c Constraint) Equal(other Constraint) bool {
	return c.Slot == other.Slot && c.Op == other.Op && c.Value == other.Value
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s %q", c.Slot, c.Op.Symbol(), c.Value.String())
}

// RangeExpression renders a range constraint the way the need stores it,
// e.g. "BETWEEN 1990 AND 2000" or "> 2016".
func RangeExpression(op Operator, text string) string {
	if op == OpBetween || op == OpNot {
		return "BETWEEN " + text
	}
	return op.Symbol() + " " + text
}
