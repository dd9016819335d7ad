package core

import (
	"sort"
	"strings"
)

// CombinationTable maps short subject-combination codes ("A00") to their
// numeric identifiers. A table is immutable once built.
type CombinationTable struct {
	codes map[string]int32
}

// NewCombinationTable copies codes into a new table. Keys are matched
// case-insensitively after trimming.
func NewCombinationTable(codes map[string]int32) CombinationTable {
	m := make(map[string]int32, len(codes))
	for code, id := range codes {
		m[normalizeCombinationCode(code)] = id
	}
	return CombinationTable{codes: m}
}

// Lookup returns the identifier for code. Blank and unknown codes report false.
func (t CombinationTable) Lookup(code string) (int32, bool) {
	code = normalizeCombinationCode(code)
	if code == "" {
		return 0, false
	}
	id, ok := t.codes[code]
	return id, ok
}

// Len returns the number of codes in the table.
func (t CombinationTable) Len() int {
	return len(t.codes)
}

// Codes returns all codes in sorted order.
func (t CombinationTable) Codes() []string {
	out := make([]string, 0, len(t.codes))
	for code := range t.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func normalizeCombinationCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DefaultCombinations returns the national exam subject-combination table.
func DefaultCombinations() CombinationTable {
	return NewCombinationTable(defaultCombinationCodes)
}

var defaultCombinationCodes = map[string]int32{
	// Group A: natural sciences
	"A00": 100, "A01": 101, "A02": 102, "A03": 103, "A04": 104, "A05": 105,
	"A06": 106, "A07": 107, "A08": 108, "A09": 109, "A10": 110, "A11": 111,
	"A12": 112, "A14": 114, "A15": 115, "A16": 116, "A17": 117, "A18": 118,

	// Group B: biology
	"B00": 200, "B01": 201, "B02": 202, "B03": 203, "B04": 204, "B05": 205,
	"B08": 208,

	// Group C: social sciences
	"C00": 300, "C01": 301, "C02": 302, "C03": 303,

	// Group D: languages
	"D01": 401, "D02": 402, "D03": 403, "D04": 404, "D05": 405, "D06": 406,
	"D07": 407, "D08": 408, "D09": 409, "D10": 410,

	// Group X: 2025 curriculum
	"X02": 502, "X06": 506, "X26": 526, "X70": 570, "X74": 574, "X78": 578,
}
