package domain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	// commaSpaceRe collapses ", " separators so hand-typed literals still decode strictly.
	commaSpaceRe = regexp.MustCompile(`,\s+`)

	// numberTokenRe matches an optionally signed decimal number, e.g. "-3", "47", "21.5".
	numberTokenRe = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
)

// DecodeList parses a cell holding an ordered list of numbers. It returns nil
// (absent) for empty cells and for cells with nothing numeric in them.
//
// Decoding is two-tier. A cell that is a well-formed JSON array is decoded
// strictly and accepted only if every element is a number; a well-formed array
// holding anything else ("[[1,2],3]", `["a"]`) is rejected outright rather than
// scanned. Any other cell, including a bare scalar, is scanned left to right
// for numeric tokens: "20,47,38,79" -> [20 47 38 79].
func DecodeList(raw string) []float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = commaSpaceRe.ReplaceAllString(s, ",")

	if values, isArray := decodeStrict(s); isArray {
		return values
	}
	return scanNumbers(s)
}

// decodeStrict reports isArray when s is a syntactically valid JSON array.
// values is nil when the array is empty or holds a non-number.
func decodeStrict(s string) (values []float64, isArray bool) {
	var decoded any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil || dec.More() {
		return nil, false
	}
	items, ok := decoded.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		n, ok := item.(json.Number)
		if !ok {
			return nil, true
		}
		f, err := n.Float64()
		if err != nil {
			return nil, true
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, true
	}
	return out, true
}

func scanNumbers(s string) []float64 {
	tokens := numberTokenRe.FindAllString(s, -1)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		f, err := strconv.ParseFloat(strings.TrimPrefix(tok, "+"), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// isBracketed reports whether a cell is written as a list literal.
func isBracketed(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "[") || strings.HasSuffix(s, "]")
}
