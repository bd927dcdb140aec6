package paper

import (
	"encoding/json"
	"testing"
)

func TestYearUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Year
	}{
		{"number", `2013`, Year{Value: 2013, Known: true}},
		{"string number", `"2008"`, Year{Value: 2008, Known: true}},
		{"string with whitespace", `" 1997 "`, Year{Value: 1997, Known: true}},
		{"partial date string", `"2020-05"`, Year{}},
		{"null", `null`, Year{}},
		{"non-numeric string", `"unknown"`, Year{}},
		{"float", `2015.0`, Year{Value: 2015, Known: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var y Year
			if err := json.Unmarshal([]byte(tt.input), &y); err != nil {
				t.Fatalf("Unmarshal(%s) returned error: %v", tt.input, err)
			}
			if y != tt.want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, y, tt.want)
			}
		})
	}
}

func TestYearMarshal(t *testing.T) {
	b, err := json.Marshal(YearOf(2010))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "2010" {
		t.Errorf("Marshal(2010) = %s, want 2010", b)
	}

	b, err = json.Marshal(Year{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "null" {
		t.Errorf("Marshal(unknown) = %s, want null", b)
	}
}

func TestPaperUnmarshal(t *testing.T) {
	raw := `{
		"paperId": "abc123",
		"title": "Attention Is All You Need",
		"year": 2017,
		"citationCount": 90000,
		"abstract": "The dominant sequence transduction models...",
		"references": [{"paperId": "r1"}, {"paperId": ""}, {"paperId": "r2"}],
		"citations": null
	}`

	var p Paper
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if p.PaperID != "abc123" {
		t.Errorf("PaperID = %q", p.PaperID)
	}
	if y, ok := p.Year.Int(); !ok || y != 2017 {
		t.Errorf("Year = %v, %v, want 2017, true", y, ok)
	}
	if p.Abstract == nil {
		t.Fatal("Abstract is nil")
	}

	refs := p.ReferenceIDs()
	if len(refs) != 2 || !refs["r1"] || !refs["r2"] {
		t.Errorf("ReferenceIDs = %v, want {r1, r2}", refs)
	}
	if len(p.CitationIDs()) != 0 {
		t.Errorf("CitationIDs on null citations = %v, want empty", p.CitationIDs())
	}
}
