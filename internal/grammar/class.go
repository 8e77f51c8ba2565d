package grammar

import "strings"

var classByPrefix = map[string]string{
	"R":   "resistor",
	"C":   "capacitor",
	"L":   "inductor",
	"U":   "ic",
	"Q":   "transistor",
	"D":   "diode",
	"J":   "connector",
	"P":   "connector",
	"CR":  "led",
	"LED": "led",
	"F":   "fuse",
	"FB":  "ferrite_bead",
	"Y":   "crystal",
	"SW":  "switch",
	"TP":  "test_point",
	"PTH": "pth_connector",
}

// ComponentClass names the part family of a reference designator from its
// leading letters. Unknown prefixes are returned lowercased; designators
// without a letter prefix are "unknown".
func ComponentClass(refdes string) string {
	end := 0
	for end < len(refdes) && isLetter(refdes[end]) {
		end++
	}
	if end == 0 {
		return "unknown"
	}

	prefix := strings.ToUpper(refdes[:end])
	if class, ok := classByPrefix[prefix]; ok {
		return class
	}
	return strings.ToLower(prefix)
}
