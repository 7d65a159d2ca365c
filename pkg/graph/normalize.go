package graph

import (
	"regexp"
	"strings"

	"github.com/OFFIS-RIT/kgimport/pkg/common"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	nonWordRun    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	nameSeparator = strings.NewReplacer("_", " ", "-", " ")
)

// NormalizeType turns a free-form type into an UPPER_SNAKE_CASE label:
// runs of characters other than letters and digits become a single "_",
// leading and trailing "_" are trimmed.
//
//	"org!!"     -> "ORG"
//	"Job Title" -> "JOB_TITLE"
//	"works-at"  -> "WORKS_AT"
func NormalizeType(s string) string {
	s = nonWordRun.ReplaceAllString(s, "_")
	return strings.ToUpper(strings.Trim(s, "_"))
}

// NormalizeName title-cases a name. Underscores and hyphens count as spaces
// and whitespace is collapsed.
//
//	"acme corp"  -> "Acme Corp"
//	"ACME_CORP"  -> "Acme Corp"
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(nameSeparator.Replace(s)), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ToLower(s))
}

// NormalizeRef normalizes both parts of a node reference.
func NormalizeRef(r common.NodeRef) common.NodeRef {
	return common.NodeRef{Name: NormalizeName(r.Name), Type: NormalizeType(r.Type)}
}

func normalizeNode(n common.Node) (common.Node, bool) {
	n.Name = NormalizeName(n.Name)
	n.Type = NormalizeType(n.Type)
	n.Description = strings.TrimSpace(n.Description)
	n.Attributes = cleanAttributes(n.Attributes)
	return n, n.Name != "" && n.Type != ""
}

func normalizeEdge(e common.Edge) (common.Edge, bool) {
	e.Source = NormalizeName(e.Source)
	e.SourceType = NormalizeType(e.SourceType)
	e.Target = NormalizeName(e.Target)
	e.TargetType = NormalizeType(e.TargetType)
	e.RelationshipType = NormalizeType(e.RelationshipType)
	e.RelationshipDescription = strings.TrimSpace(e.RelationshipDescription)
	e.Attributes = cleanAttributes(e.Attributes)
	ok := e.Source != "" && e.SourceType != "" &&
		e.Target != "" && e.TargetType != "" &&
		e.RelationshipType != ""
	return e, ok
}

// cleanAttributes returns a copy without blank keys or values.
func cleanAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func edgeKey(e common.Edge) string {
	return strings.Join([]string{e.Source, e.SourceType, e.Target, e.TargetType, e.RelationshipType}, "|")
}

func isSelfLoop(e common.Edge) bool {
	return e.Source == e.Target && e.SourceType == e.TargetType
}
