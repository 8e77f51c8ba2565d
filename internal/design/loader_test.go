package design

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/schematic-verify/internal/faults"
)

const canonicalDesign = `{
  "components": ["R241", "C102", "FB213", "R241"],
  "nets": ["1P8V", "REG_EN", "GND"],
  "text_primitives": ["R241", "C102", "1P8V", "SHEET 3"]
}`

const exporterDesign = `{
  "components_flat": [{"refdes": "U12", "type": "ic"}, {"refdes": "R2"}, {"value": "10k"}],
  "nets": {"DDR_DQ0": {"id": 1}, "1P0V": {"id": 2}},
  "primitives": [
    {"type": "text", "text_content": "U12"},
    {"type": "line", "shape_type": "wire"},
    {"type": "line", "shape_type": "wire"},
    {"type": "text", "text_content": "R2"}
  ],
  "instances": [
    {"refdes": "U12", "block": "zynq_block", "page_index": 11, "x": 1200, "y": 3400},
    {"refdes": "R2", "block": "reusable_usb_conn", "page_index": "16"},
    {"block": "orphan"}
  ]
}`

func TestLoad_Canonical(t *testing.T) {
	idx, err := Load(strings.NewReader(canonicalDesign), DefaultKeys())
	require.NoError(t, err)

	assert.Equal(t, []string{"C102", "FB213", "R241"}, idx.Components())
	assert.Equal(t, []string{"1P8V", "GND", "REG_EN"}, idx.Nets())
	assert.Equal(t, []string{"R241", "C102", "1P8V", "SHEET 3"}, idx.TextPrimitives())
	assert.True(t, idx.IsComponent("FB213"))
	assert.False(t, idx.IsComponent("fb213"))
	assert.True(t, idx.IsNet("REG_EN"))
	assert.True(t, idx.HasText("SHEET 3"))
	assert.False(t, idx.HasText("SHEET"))
	assert.Empty(t, idx.Instances())
}

func TestLoad_ExporterShape(t *testing.T) {
	idx, err := Load(strings.NewReader(exporterDesign), DefaultKeys())
	require.NoError(t, err)

	assert.Equal(t, []string{"R2", "U12"}, idx.Components())
	assert.Equal(t, []string{"1P0V", "DDR_DQ0"}, idx.Nets())
	assert.Equal(t, []string{"U12", "R2"}, idx.TextPrimitives())
	assert.Equal(t, 2, idx.WireCount())
	assert.Equal(t, 4, idx.PrimitiveCount())

	require.Len(t, idx.Instances(), 2)
	u12 := idx.Instances()[0]
	assert.Equal(t, "U12", u12.RefDes)
	assert.Equal(t, 11, u12.Page)
	assert.True(t, u12.HasPosition)
	r2 := idx.Instances()[1]
	assert.Equal(t, 16, r2.Page)
	assert.True(t, r2.HasPage)
	assert.False(t, r2.HasPosition)
}

func TestLoad_InstancesKeyedByRefDes(t *testing.T) {
	doc := `{
	  "components": [], "nets": [], "text_primitives": [],
	  "instances": {"J10": {"block": "hdmi_block_2"}, "C2": {"block": "reusable_usb_conn"}}
	}`

	idx, err := Load(strings.NewReader(doc), DefaultKeys())
	require.NoError(t, err)

	require.Len(t, idx.Instances(), 2)
	assert.Equal(t, "C2", idx.Instances()[0].RefDes)
	assert.Equal(t, "J10", idx.Instances()[1].RefDes)
}

func TestLoad_MalformedInstancesAreDeferred(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "number", raw: `42`},
		{name: "string", raw: `"U12"`},
		{name: "bad element", raw: `[{"refdes": 7}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"components": ["R1"], "nets": ["CLK"], "text_primitives": ["R1"], "instances": ` + tt.raw + `}`
			idx, err := Load(strings.NewReader(doc), DefaultKeys())
			require.NoError(t, err)

			assert.Equal(t, []string{"R1"}, idx.Components())
			assert.Empty(t, idx.Instances())
			err = idx.InstanceError()
			require.Error(t, err)
			assert.True(t, faults.IsType(err, faults.TypeSchemaError))
			assert.Contains(t, err.Error(), `"instances"`)
		})
	}

	idx, err := Load(strings.NewReader(`{"components": [], "nets": [], "text_primitives": []}`), DefaultKeys())
	require.NoError(t, err)
	assert.NoError(t, idx.InstanceError())
}

func TestLoad_EmptySetsAreValid(t *testing.T) {
	idx, err := Load(strings.NewReader(`{"components": [], "nets": [], "text_primitives": []}`), DefaultKeys())
	require.NoError(t, err)

	assert.Empty(t, idx.Components())
	assert.Empty(t, idx.Nets())
	assert.Empty(t, idx.TextPrimitives())
}

func TestLoad_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "root is array", doc: `[]`, want: "root must be a JSON object"},
		{name: "missing nets", doc: `{"components": [], "text_primitives": []}`, want: `missing "nets"`},
		{name: "null nets", doc: `{"components": [], "nets": null, "text_primitives": []}`, want: `missing "nets"`},
		{name: "missing components", doc: `{"nets": [], "text_primitives": []}`, want: `missing "components"`},
		{name: "missing text", doc: `{"components": [], "nets": []}`, want: `missing "text_primitives"`},
		{name: "components not array", doc: `{"components": {}, "nets": [], "text_primitives": []}`, want: "expected array"},
		{name: "nets wrong shape", doc: `{"components": [], "nets": 3, "text_primitives": []}`, want: "expected array or object"},
		{name: "numeric component", doc: `{"components": [7], "nets": [], "text_primitives": []}`, want: "element 0"},
		{name: "refdes not string", doc: `{"components": [{"refdes": 1}], "nets": [], "text_primitives": []}`, want: "must be a string"},
		{name: "bad primitive", doc: `{"components": [], "nets": [], "text_primitives": [true]}`, want: "expected string or object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Load(strings.NewReader(tt.doc), DefaultKeys())
			require.Error(t, err)
			assert.Nil(t, idx)
			assert.True(t, errors.Is(err, faults.ErrSchema))
			assert.True(t, faults.IsType(err, faults.TypeSchemaError))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_CustomKeys(t *testing.T) {
	doc := `{"parts": ["R1"], "signals": ["CLK"], "labels": ["R1"]}`
	keys := Keys{Components: "parts", Nets: "signals", Text: "labels"}

	idx, err := Load(strings.NewReader(doc), keys)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, idx.Components())
	assert.Equal(t, []string{"CLK"}, idx.Nets())
}

func TestLoad_OrderIndependent(t *testing.T) {
	a := `{"components": ["R1", "C2", "U3"], "nets": ["A_1", "B_2"], "text_primitives": []}`
	b := `{"components": ["U3", "R1", "C2", "R1"], "nets": ["B_2", "A_1"], "text_primitives": []}`

	idxA, err := Load(strings.NewReader(a), DefaultKeys())
	require.NoError(t, err)
	idxB, err := Load(strings.NewReader(b), DefaultKeys())
	require.NoError(t, err)

	assert.Equal(t, idxA.Components(), idxB.Components())
	assert.Equal(t, idxA.Nets(), idxB.Nets())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "design.json")
	require.NoError(t, os.WriteFile(path, []byte(canonicalDesign), 0o644))

	idx, err := LoadFile(path, DefaultKeys())
	require.NoError(t, err)
	assert.Len(t, idx.Components(), 3)

	_, err = LoadFile(filepath.Join(dir, "missing.json"), DefaultKeys())
	require.Error(t, err)
	assert.True(t, faults.IsType(err, faults.TypeInvalidInput))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"components": []}`), 0o644))
	_, err = LoadFile(bad, DefaultKeys())
	require.Error(t, err)

	var fault *faults.Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, bad, fault.FilePath)
}
