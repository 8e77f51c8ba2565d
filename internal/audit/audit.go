// Package audit checks the logical structure of a design export: block
// distribution, page assignment, hierarchical instance placement, coordinate
// bounds and wire count. Findings never abort a run.
package audit

import (
	"fmt"
	"math"
	"sort"

	"github.com/a3tai/schematic-verify/internal/design"
)

// Status grades one finding
type Status string

const (
	StatusOK   Status = "OK"
	StatusInfo Status = "INFO"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

// Check names the audit a finding belongs to
type Check string

const (
	CheckBlocks      Check = "block_distribution"
	CheckPages       Check = "page_assignment"
	CheckInstances   Check = "hierarchical_instances"
	CheckCoordinates Check = "coordinates"
	CheckWires       Check = "wires"
)

// Finding is one audit outcome
type Finding struct {
	Check   Check  `json:"check"`
	Subject string `json:"subject"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// BlockCount is the number of instances placed in a block
type BlockCount struct {
	Block string `json:"block"`
	Count int    `json:"count"`
}

// CoordinateRange is the bounding box of all positioned instances
type CoordinateRange struct {
	Positioned int     `json:"positioned"`
	MinX       float64 `json:"min_x"`
	MaxX       float64 `json:"max_x"`
	MinY       float64 `json:"min_y"`
	MaxY       float64 `json:"max_y"`
}

// Report is the result of one audit
type Report struct {
	Instances   int             `json:"instances"`
	Blocks      []BlockCount    `json:"blocks"`
	Coordinates CoordinateRange `json:"coordinates"`
	OutOfBounds int             `json:"out_of_bounds"`
	Wires       int             `json:"wires"`
	Primitives  int             `json:"primitives"`
	Findings    []Finding       `json:"findings"`
}

// Counts returns the number of findings per status
func (r *Report) Counts() map[Status]int {
	out := map[Status]int{}
	for _, f := range r.Findings {
		out[f.Status]++
	}
	return out
}

// Failed reports whether any finding is FAIL
func (r *Report) Failed() bool {
	return r.Counts()[StatusFail] > 0
}

const unknownBlock = "unknown"

// Run audits idx against exp
func Run(idx *design.Index, exp Expectations) *Report {
	instances := byRefDes(idx.Instances())

	r := &Report{
		Instances:  len(instances),
		Blocks:     []BlockCount{},
		Wires:      idx.WireCount(),
		Primitives: idx.PrimitiveCount(),
		Findings:   []Finding{},
	}

	r.checkBlocks(instances, exp)
	r.checkPages(instances, exp)
	r.checkInstances(instances, exp)
	r.checkCoordinates(instances, exp)
	r.checkWires(exp)

	return r
}

// byRefDes keeps the last instance seen for each designator, sorted by
// designator
func byRefDes(list []design.Instance) []design.Instance {
	last := make(map[string]design.Instance, len(list))
	for _, inst := range list {
		last[inst.RefDes] = inst
	}
	out := make([]design.Instance, 0, len(last))
	for _, inst := range last {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RefDes < out[j].RefDes })
	return out
}

func (r *Report) add(check Check, subject string, status Status, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Check:   check,
		Subject: subject,
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	})
}

func within(actual, expected, tolerance int) bool {
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func (r *Report) checkBlocks(instances []design.Instance, exp Expectations) {
	counts := map[string]int{}
	for _, inst := range instances {
		block := inst.Block
		if block == "" {
			block = unknownBlock
		}
		counts[block]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.Blocks = append(r.Blocks, BlockCount{Block: name, Count: counts[name]})
	}

	for _, want := range exp.Blocks {
		got := counts[want.Name]
		if within(got, want.Count, exp.Tolerance) {
			r.add(CheckBlocks, want.Name, StatusOK, "%d instances, expected ~%d", got, want.Count)
		} else {
			r.add(CheckBlocks, want.Name, StatusWarn, "expected ~%d instances, got %d", want.Count, got)
		}
	}
}

func (r *Report) checkPages(instances []design.Instance, exp Expectations) {
	counts := map[int]int{}
	for _, inst := range instances {
		if inst.HasPage {
			counts[inst.Page]++
		}
	}

	pages := append([]PageExpectation(nil), exp.Pages...)
	sort.Slice(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	for _, want := range pages {
		got := counts[want.Page]
		subject := fmt.Sprintf("page %d", want.Page)
		if within(got, want.Count, exp.Tolerance) {
			r.add(CheckPages, subject, StatusOK, "%d instances, expected ~%d", got, want.Count)
		} else {
			r.add(CheckPages, subject, StatusWarn, "expected ~%d instances, got %d", want.Count, got)
		}
	}
}

func (r *Report) checkInstances(instances []design.Instance, exp Expectations) {
	byRef := make(map[string]design.Instance, len(instances))
	for _, inst := range instances {
		byRef[inst.RefDes] = inst
	}

	for _, want := range exp.Instances {
		inst, ok := byRef[want.RefDes]
		switch {
		case !ok:
			r.add(CheckInstances, want.RefDes, StatusFail, "not found in instances")
		case inst.Block != want.Block:
			r.add(CheckInstances, want.RefDes, StatusFail, "expected block %s, got %s", want.Block, inst.Block)
		case !inst.HasPosition:
			r.add(CheckInstances, want.RefDes, StatusFail, "missing position data")
		default:
			r.add(CheckInstances, want.RefDes, StatusOK, "block %s at (%g, %g)", inst.Block, inst.X, inst.Y)
		}
	}
}

func (r *Report) checkCoordinates(instances []design.Instance, exp Expectations) {
	c := CoordinateRange{
		MinX: math.Inf(1), MaxX: math.Inf(-1),
		MinY: math.Inf(1), MaxY: math.Inf(-1),
	}

	for _, inst := range instances {
		if !inst.HasPosition {
			continue
		}
		c.Positioned++
		c.MinX = math.Min(c.MinX, inst.X)
		c.MaxX = math.Max(c.MaxX, inst.X)
		c.MinY = math.Min(c.MinY, inst.Y)
		c.MaxY = math.Max(c.MaxY, inst.Y)

		if inst.X < 0 || inst.X > exp.Bounds.MaxX || inst.Y < 0 || inst.Y > exp.Bounds.MaxY {
			r.OutOfBounds++
		}
	}

	if c.Positioned == 0 {
		r.Coordinates = CoordinateRange{}
		return
	}
	r.Coordinates = c

	if exp.Bounds.MaxX <= 0 || exp.Bounds.MaxY <= 0 {
		return
	}

	subject := fmt.Sprintf("0-%g x 0-%g", exp.Bounds.MaxX, exp.Bounds.MaxY)
	if r.OutOfBounds > 0 {
		r.add(CheckCoordinates, subject, StatusWarn, "%d of %d instances out of bounds", r.OutOfBounds, c.Positioned)
	} else {
		r.add(CheckCoordinates, subject, StatusOK, "all %d positioned instances in bounds", c.Positioned)
	}

	if c.MaxY > exp.Bounds.MaxY && c.MaxY <= exp.Bounds.MaxX {
		r.add(CheckCoordinates, subject, StatusInfo, "Y coordinates fit within %g, sheet may be portrait", exp.Bounds.MaxX)
	}
}

func (r *Report) checkWires(exp Expectations) {
	if exp.MinWires <= 0 {
		return
	}
	if r.Wires < exp.MinWires {
		r.add(CheckWires, "wires", StatusWarn, "expected at least %d wires, got %d", exp.MinWires, r.Wires)
	} else {
		r.add(CheckWires, "wires", StatusOK, "%d wires", r.Wires)
	}
}
