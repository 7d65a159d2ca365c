package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
)

// Statements are rendered as literal Cypher text so they can be logged,
// replayed and executed by any Executor. All values go through
// escapeString and all labels and keys through quoteIdentifier.

const (
	nameKey        = "name"
	descriptionKey = "description"
)

// quoteIdentifier backtick-quotes a label, relationship type or property key.
func quoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// escapeString renders s as a single-quoted Cypher string literal.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// setClause renders "SET v.`k` = '...', ..." for the description and the
// attributes in sorted key order. Attributes cannot override the name or a
// non-empty description. It returns "" when there is nothing to set.
func setClause(variable, description string, attrs map[string]string) string {
	props := map[string]string{}
	for k, v := range attrs {
		if k == nameKey || v == "" {
			continue
		}
		props[k] = v
	}
	if description != "" {
		props[descriptionKey] = description
	}
	if len(props) == 0 {
		return ""
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s.%s = %s", variable, quoteIdentifier(k), escapeString(props[k])))
	}
	return " SET " + strings.Join(parts, ", ")
}

// NodeStatement renders an upsert of n keyed by its type label and name.
//
//	MERGE (n:`PERSON` {name: 'Ada Lovelace'}) SET n.`description` = '...' RETURN n
func NodeStatement(n common.Node) string {
	return fmt.Sprintf("MERGE (n:%s {%s: %s})%s RETURN n",
		quoteIdentifier(n.Type),
		quoteIdentifier(nameKey),
		escapeString(n.Name),
		setClause("n", n.Description, n.Attributes),
	)
}

// EdgeStatement renders an upsert of e between two existing nodes. It
// returns the relationship, so zero returned rows means an endpoint is
// missing.
//
//	MATCH (a:`PERSON` {name: 'Ada'}), (b:`COMPANY` {name: 'Acme'})
//	MERGE (a)-[r:`WORKS_AT`]->(b) RETURN r
func EdgeStatement(e common.Edge) string {
	return fmt.Sprintf("MATCH (a:%s {%s: %s}), (b:%s {%s: %s}) MERGE (a)-[r:%s]->(b)%s RETURN r",
		quoteIdentifier(e.SourceType), quoteIdentifier(nameKey), escapeString(e.Source),
		quoteIdentifier(e.TargetType), quoteIdentifier(nameKey), escapeString(e.Target),
		quoteIdentifier(e.RelationshipType),
		setClause("r", e.RelationshipDescription, e.Attributes),
	)
}
