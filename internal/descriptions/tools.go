package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	VerifyDesignDescription = `Cross-check a schematic PDF against its design export JSON.

**When to use:** A schematic PDF was generated from a design and you need to know whether every component and net in the design actually appears in the PDF text.

**Why it's useful:** PDF text layers glue neighbouring labels together ("11FB213SW212"). The verifier splits these blobs with the design's own vocabulary and reports matched, missing and unmatched identifiers per page.

**Examples:**
• Release check: "Verify board.pdf against board.json before sending to fab"
• Regression: "Did the exporter drop nets after the library update? Verify rev_b.pdf against rev_b.json"

**Common workflows:**
1. check_consistency → verify_design → review Missing and Ambiguous lists
2. verify_design with format=json → feed the numbers into a dashboard

**Best practices:** Run check_consistency first. A low internal consistency rate means the JSON itself is suspect, not the PDF. Use pages (e.g. "1-3,7") to re-check a few sheets of a large set.`

	CheckConsistencyDescription = `Check that every component declared in a design export also appears in its own text primitives.

**When to use:** Before trusting a design export as ground truth.

**Why it's useful:** Needs no PDF. Inconsistent designators point at exporter bugs or hidden parts.

**Examples:**
• "Is board.json self-consistent?"

**Best practices:** Expect near 100%. Anything lower deserves a look before running verify_design.`

	SegmentFragmentDescription = `Split one blob of PDF text into candidate component and net identifiers.

**When to use:** Debugging why a designator was not found, or checking how a glued label will be split.

**Why it's useful:** Shows each candidate with its byte offsets, kind and whether its boundaries were contested.

**Examples:**
• "How does 11FB213SW212 segment?"
• "Segment R241C102 using board.json as the vocabulary"

**Best practices:** Pass json_path to segment with the design's known identifiers; without it only the grammar is used.`

	AuditDesignDescription = `Audit a design export's hierarchy, page assignments, coordinates and wiring against expectations.

**When to use:** Sanity-checking an exporter run, independent of any PDF.

**Why it's useful:** Catches instances placed in the wrong block, sheets with missing parts, coordinates off the page and suspiciously low wire counts.

**Examples:**
• "Audit board.json with expectations.yaml"

**Best practices:** Findings are OK, INFO, WARN or FAIL. FAIL items name a specific instance and are worth fixing first.`

	VerifierInfoDescription = `Get server information, configured vocabulary, available tools and usage guidance.

**When to use:** First call in a session, or when a result looks surprising and you want to see the configured designator prefixes and noise words.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"verify_design":     VerifyDesignDescription,
	"check_consistency": CheckConsistencyDescription,
	"segment_fragment":  SegmentFragmentDescription,
	"audit_design":      AuditDesignDescription,
	"verifier_info":     VerifierInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a sorted list of all available tool names
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
