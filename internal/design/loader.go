package design

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/a3tai/schematic-verify/internal/faults"
)

// LoadFile loads a design index from a JSON file
func LoadFile(path string, keys Keys) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("cannot open design file: %w", err)).WithFile(path)
	}
	defer f.Close()

	idx, err := Load(f, keys)
	if err != nil {
		var fault *faults.Fault
		if errors.As(err, &fault) {
			return nil, fault.WithFile(path)
		}
		return nil, err
	}
	return idx, nil
}

// Load reads a design export and builds its Index. It fails with a
// SchemaError when a required sequence is missing or has the wrong shape.
// Empty sequences are valid.
func Load(r io.Reader, keys Keys) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, faults.Wrap(faults.TypeInvalidInput, fmt.Errorf("cannot read design: %w", err))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, faults.Schema("design root must be a JSON object").WithContext(err.Error())
	}

	componentsRaw, compKey, ok := lookup(top, keys.Components, FallbackComponentsKey)
	if !ok {
		return nil, faults.Schema("missing %q sequence", keys.Components)
	}
	components, err := parseComponents(componentsRaw)
	if err != nil {
		return nil, faults.Schema("field %q: %v", compKey, err)
	}

	netsRaw, netKey, ok := lookup(top, keys.Nets)
	if !ok {
		return nil, faults.Schema("missing %q sequence", keys.Nets)
	}
	nets, err := parseNets(netsRaw)
	if err != nil {
		return nil, faults.Schema("field %q: %v", netKey, err)
	}

	textRaw, textKey, ok := lookup(top, keys.Text, FallbackTextKey)
	if !ok {
		return nil, faults.Schema("missing %q sequence", keys.Text)
	}
	prims, err := parsePrimitives(textRaw)
	if err != nil {
		return nil, faults.Schema("field %q: %v", textKey, err)
	}

	idx := New(components, nets, prims.text)
	idx.wires = prims.wires
	idx.primitives = prims.total

	if raw, ok := top["instances"]; ok {
		instances, err := parseInstances(raw)
		if err != nil {
			// only the audit reads instances
			idx.instanceErr = faults.Schema("field %q: %v", "instances", err)
		} else {
			idx.instances = instances
		}
	}

	return idx, nil
}

func lookup(top map[string]json.RawMessage, keys ...string) (json.RawMessage, string, bool) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if raw, ok := top[k]; ok && !isNull(raw) {
			return raw, k, true
		}
	}
	return nil, "", false
}

func parseComponents(raw json.RawMessage) ([]string, error) {
	items, err := asArray(raw)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := stringOrField(item, "refdes")
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func parseNets(raw json.RawMessage) ([]string, error) {
	switch shape(raw) {
	case '{':
		var byName map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byName); err != nil {
			return nil, err
		}
		out := make([]string, 0, len(byName))
		for name := range byName {
			out = append(out, name)
		}
		sort.Strings(out)
		return out, nil
	case '[':
		items, err := asArray(raw)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(items))
		for i, item := range items {
			s, err := stringOrField(item, "name")
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected array or object")
	}
}

type primitiveSet struct {
	text  []string
	wires int
	total int
}

type primitiveRecord struct {
	Type        string `json:"type"`
	ShapeType   string `json:"shape_type"`
	TextContent string `json:"text_content"`
}

func parsePrimitives(raw json.RawMessage) (primitiveSet, error) {
	var set primitiveSet

	items, err := asArray(raw)
	if err != nil {
		return set, err
	}

	set.total = len(items)
	for i, item := range items {
		switch shape(item) {
		case '"':
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return set, fmt.Errorf("element %d: %w", i, err)
			}
			set.text = append(set.text, s)
		case '{':
			var rec primitiveRecord
			if err := json.Unmarshal(item, &rec); err != nil {
				return set, fmt.Errorf("element %d: %w", i, err)
			}
			if rec.ShapeType == "wire" {
				set.wires++
			}
			if rec.Type == "text" {
				set.text = append(set.text, rec.TextContent)
			}
		default:
			return set, fmt.Errorf("element %d: expected string or object", i)
		}
	}
	return set, nil
}

type instanceRecord struct {
	RefDes    string          `json:"refdes"`
	Block     string          `json:"block"`
	PageIndex json.RawMessage `json:"page_index"`
	X         *float64        `json:"x"`
	Y         *float64        `json:"y"`
}

func parseInstances(raw json.RawMessage) ([]Instance, error) {
	var records []instanceRecord

	switch shape(raw) {
	case '[':
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
	case '{':
		var byRef map[string]instanceRecord
		if err := json.Unmarshal(raw, &byRef); err != nil {
			return nil, err
		}
		refs := make([]string, 0, len(byRef))
		for ref := range byRef {
			refs = append(refs, ref)
		}
		sort.Strings(refs)
		for _, ref := range refs {
			rec := byRef[ref]
			if rec.RefDes == "" {
				rec.RefDes = ref
			}
			records = append(records, rec)
		}
	default:
		return nil, fmt.Errorf("expected array or object")
	}

	out := make([]Instance, 0, len(records))
	for _, rec := range records {
		if rec.RefDes == "" {
			continue
		}
		inst := Instance{RefDes: rec.RefDes, Block: rec.Block}
		if page, ok := parsePage(rec.PageIndex); ok {
			inst.Page = page
			inst.HasPage = true
		}
		if rec.X != nil && rec.Y != nil {
			inst.X, inst.Y = *rec.X, *rec.Y
			inst.HasPosition = true
		}
		out = append(out, inst)
	}
	return out, nil
}

// parsePage accepts page_index as a number or a numeric string
func parsePage(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

func stringOrField(item json.RawMessage, field string) (string, error) {
	switch shape(item) {
	case '"':
		var s string
		err := json.Unmarshal(item, &s)
		return s, err
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			return "", err
		}
		v, ok := obj[field]
		if !ok || isNull(v) {
			return "", nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("%q must be a string", field)
		}
		return s, nil
	default:
		return "", fmt.Errorf("expected string or object")
	}
}

func asArray(raw json.RawMessage) ([]json.RawMessage, error) {
	if shape(raw) != '[' {
		return nil, fmt.Errorf("expected array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func shape(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
