// Package design loads the structured schematic export into lookup sets:
// component designators, net labels, and the free-text primitives used for
// the internal consistency check.
package design

import (
	"sort"
)

// Keys names the top-level JSON fields holding the three sequences
type Keys struct {
	Components string
	Nets       string
	Text       string
}

// Fallback keys written by the schematic exporter
const (
	FallbackComponentsKey = "components_flat"
	FallbackTextKey       = "primitives"
)

// DefaultKeys returns the canonical key names
func DefaultKeys() Keys {
	return Keys{
		Components: "components",
		Nets:       "nets",
		Text:       "text_primitives",
	}
}

// Instance is a placed component from the exporter's instance list
type Instance struct {
	RefDes      string  `json:"refdes"`
	Block       string  `json:"block,omitempty"`
	Page        int     `json:"page,omitempty"`
	HasPage     bool    `json:"has_page"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	HasPosition bool    `json:"has_position"`
}

// Index holds the authoritative identifier sets of one design. It is
// immutable once built.
type Index struct {
	components map[string]struct{}
	nets       map[string]struct{}
	text       map[string]struct{}

	componentList []string
	netList       []string
	textList      []string

	instances  []Instance
	wires      int
	primitives int

	instanceErr error
}

// New builds an Index from plain sequences. Duplicates collapse and order
// does not matter for the component and net sets.
func New(components, nets, textPrimitives []string) *Index {
	idx := &Index{
		components: toSet(components),
		nets:       toSet(nets),
		text:       toSet(textPrimitives),
		textList:   append([]string(nil), textPrimitives...),
	}
	idx.componentList = sortedKeys(idx.components)
	idx.netList = sortedKeys(idx.nets)
	return idx
}

// Components returns the sorted component designators
func (i *Index) Components() []string { return i.componentList }

// Nets returns the sorted net labels
func (i *Index) Nets() []string { return i.netList }

// TextPrimitives returns the text primitives in input order
func (i *Index) TextPrimitives() []string { return i.textList }

// Instances returns placed instances, when the export carried them
func (i *Index) Instances() []Instance { return i.instances }

// InstanceError returns the SchemaError for an "instances" field that could
// not be read, or nil. Such an index loads without instances.
func (i *Index) InstanceError() error { return i.instanceErr }

// WireCount returns the number of wire primitives seen in the export
func (i *Index) WireCount() int { return i.wires }

// PrimitiveCount returns the number of primitive records seen in the export
func (i *Index) PrimitiveCount() int { return i.primitives }

// IsComponent reports whether s is a declared component designator
func (i *Index) IsComponent(s string) bool {
	_, ok := i.components[s]
	return ok
}

// IsNet reports whether s is a declared net label
func (i *Index) IsNet(s string) bool {
	_, ok := i.nets[s]
	return ok
}

// HasText reports whether s equals one of the text primitives exactly
func (i *Index) HasText(s string) bool {
	_, ok := i.text[s]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
