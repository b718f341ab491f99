package ontology

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/iai-group/MovieBot-sub000/types"
)

var ErrInvalid = errors.New("invalid ontology")

//go:embed movies.yaml
var moviesYAML []byte

type document struct {
	Name              string           `yaml:"name"`
	SystemRequestable []string         `yaml:"system_requestable"`
	Slots             []types.SlotInfo `yaml:"slots"`
}

// Ontology is the immutable slot vocabulary of a domain. It is safe for
// concurrent reads.
type Ontology struct {
	name        string
	order       []types.Slot
	slots       map[types.Slot]types.SlotInfo
	requestable []types.Slot
}

// Default returns the built-in movie ontology.
func Default() (*Ontology, error) {
	return Load(bytes.NewReader(moviesYAML))
}

func LoadFile(path string) (*Ontology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Ontology, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	return build(doc)
}

func build(doc document) (*Ontology, error) {
	if len(doc.Slots) == 0 {
		return nil, fmt.Errorf("%w: no slots declared", ErrInvalid)
	}
	o := &Ontology{
		name:  doc.Name,
		slots: make(map[types.Slot]types.SlotInfo, len(doc.Slots)),
	}
	for _, info := range doc.Slots {
		if !info.Name.Valid() || info.Name.IsMeta() {
			return nil, fmt.Errorf("%w: unknown slot %q", ErrInvalid, info.Name)
		}
		if _, dup := o.slots[info.Name]; dup {
			return nil, fmt.Errorf("%w: slot %q declared twice", ErrInvalid, info.Name)
		}
		o.order = append(o.order, info.Name)
		o.slots[info.Name] = info
	}
	if len(doc.SystemRequestable) == 0 {
		return nil, fmt.Errorf("%w: no system requestable slots", ErrInvalid)
	}
	for _, name := range doc.SystemRequestable {
		slot := types.Slot(name)
		info, ok := o.slots[slot]
		if !ok {
			return nil, fmt.Errorf("%w: system requestable slot %q is not declared", ErrInvalid, name)
		}
		if slices.Contains(o.requestable, slot) {
			return nil, fmt.Errorf("%w: system requestable slot %q listed twice", ErrInvalid, name)
		}
		if !info.Annotate {
			return nil, fmt.Errorf("%w: system requestable slot %q is not annotated", ErrInvalid, name)
		}
		info.SystemRequestable = true
		o.slots[slot] = info
		o.requestable = append(o.requestable, slot)
	}
	return o, nil
}

func (o *Ontology) Name() string { return o.name }

// Slots returns the declared slots in declaration order.
func (o *Ontology) Slots() []types.Slot {
	return slices.Clone(o.order)
}

func (o *Ontology) Info(slot types.Slot) (types.SlotInfo, bool) {
	info, ok := o.slots[slot]
	return info, ok
}

func (o *Ontology) Declared(slot types.Slot) bool {
	_, ok := o.slots[slot]
	return ok
}

func (o *Ontology) Multi(slot types.Slot) bool {
	return o.slots[slot].Multi
}

// SystemRequestable returns the slots the agent elicits, in elicitation order.
func (o *Ontology) SystemRequestable() []types.Slot {
	return slices.Clone(o.requestable)
}

func (o *Ontology) UserRequestable() []types.Slot {
	return o.filter(func(i types.SlotInfo) bool { return i.UserRequestable })
}

// Annotated returns the slots the annotator extracts. These are the keys of
// the need.
func (o *Ontology) Annotated() []types.Slot {
	return o.filter(func(i types.SlotInfo) bool { return i.Annotate })
}

// Narrowing returns the slots the policy may elicit to shrink a large
// result set.
func (o *Ontology) Narrowing() []types.Slot {
	return o.filter(func(i types.SlotInfo) bool { return i.Narrowing })
}

func (o *Ontology) Label(slot types.Slot) string {
	if info, ok := o.slots[slot]; ok {
		return info.Label()
	}
	return string(slot)
}

func (o *Ontology) filter(keep func(types.SlotInfo) bool) []types.Slot {
	var out []types.Slot
	for _, slot := range o.order {
		if keep(o.slots[slot]) {
			out = append(out, slot)
		}
	}
	return out
}

// EmptyNeed returns a need with every annotated slot present and empty.
func (o *Ontology) EmptyNeed() types.Need {
	need := make(types.Need)
	for _, slot := range o.Annotated() {
		need[slot] = []types.Value{}
	}
	return need
}
