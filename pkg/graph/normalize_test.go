package graph

import (
	"testing"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"org!!", "ORG"},
		{"ORG", "ORG"},
		{"Job Title", "JOB_TITLE"},
		{"works-at", "WORKS_AT"},
		{"  __person__  ", "PERSON"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := NormalizeType(tt.in); got != tt.want {
			t.Fatalf("NormalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"acme corp", "Acme Corp"},
		{"Acme Corp", "Acme Corp"},
		{"ACME_CORP", "Acme Corp"},
		{"  jane   doe ", "Jane Doe"},
		{"open-source", "Open Source"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, s := range []string{"acme corp", "Job Title", "works-at", "x_y z"} {
		if once, twice := NormalizeName(s), NormalizeName(NormalizeName(s)); once != twice {
			t.Fatalf("NormalizeName not idempotent for %q: %q vs %q", s, once, twice)
		}
		if once, twice := NormalizeType(s), NormalizeType(NormalizeType(s)); once != twice {
			t.Fatalf("NormalizeType not idempotent for %q: %q vs %q", s, once, twice)
		}
	}
}

func TestNormalizeEdgeRejectsIncomplete(t *testing.T) {
	_, ok := normalizeEdge(common.Edge{
		Source: "a", SourceType: "x", Target: "b", TargetType: "!!", RelationshipType: "rel",
	})
	if ok {
		t.Fatalf("expected edge with blank target type to be rejected")
	}
}

func TestCleanAttributes(t *testing.T) {
	got := cleanAttributes(map[string]string{" role ": " ceo ", "": "x", "empty": " "})
	if len(got) != 1 || got["role"] != "ceo" {
		t.Fatalf("unexpected attributes: %#v", got)
	}
	if cleanAttributes(map[string]string{"a": ""}) != nil {
		t.Fatalf("expected nil for attributes without values")
	}
}
