// Package paper defines the record shapes exchanged between the metadata
// sources and the graph engine. Upstream payloads are validated into these
// structs at the fetch boundary so the engine never sees raw API responses.
package paper

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Ref is a minimal reference to another paper. Reference and citation lists
// carry these stubs; only the id is required for graph construction.
type Ref struct {
	PaperID string `json:"paperId"`
}

// Paper is the uniform record produced by every metadata source.
type Paper struct {
	PaperID       string  `json:"paperId"`
	Title         string  `json:"title"`
	Year          Year    `json:"year"`
	CitationCount int     `json:"citationCount"`
	Abstract      *string `json:"abstract"`
	References    []Ref   `json:"references"`
	Citations     []Ref   `json:"citations"`
}

// ReferenceIDs returns the set of non-empty referenced paper ids.
func (p *Paper) ReferenceIDs() map[string]bool {
	ids := make(map[string]bool, len(p.References))
	for _, r := range p.References {
		if r.PaperID != "" {
			ids[r.PaperID] = true
		}
	}
	return ids
}

// CitationIDs returns the set of non-empty citing paper ids.
func (p *Paper) CitationIDs() map[string]bool {
	ids := make(map[string]bool, len(p.Citations))
	for _, c := range p.Citations {
		if c.PaperID != "" {
			ids[c.PaperID] = true
		}
	}
	return ids
}

// Year is a publication year that may be absent or malformed upstream.
// Sources sometimes return null, or a string such as "2020-05" that does not
// parse as an integer; both decode as an unknown year rather than an error.
type Year struct {
	Value int
	Known bool
}

// YearOf returns a known Year.
func YearOf(v int) Year {
	return Year{Value: v, Known: true}
}

// Int returns the year value and whether it is known.
func (y Year) Int() (int, bool) {
	return y.Value, y.Known
}

// UnmarshalJSON accepts a JSON number, an integer-looking string, or null.
// Anything else leaves the year unknown.
func (y *Year) UnmarshalJSON(b []byte) error {
	*y = Year{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		*y = Year{Value: v, Known: true}
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return nil
	}
	*y = Year{Value: int(f), Known: true}
	return nil
}

// MarshalJSON encodes an unknown year as null.
func (y Year) MarshalJSON() ([]byte, error) {
	if !y.Known {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(y.Value)), nil
}
