package graph

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/common"
)

// extractionResponse is the structured output requested from the
// structuring pass. Responses are still decoded loosely by parseExtraction
// since not every backend enforces the schema.
type extractionResponse struct {
	Nodes []responseNode `json:"nodes" jsonschema_description:"Entities found in the text"`
	Edges []responseEdge `json:"edges" jsonschema_description:"Relationships between the entities"`
}

type responseNode struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

type responseEdge struct {
	Source                  string            `json:"source"`
	SourceType              string            `json:"source_type"`
	Target                  string            `json:"target"`
	TargetType              string            `json:"target_type"`
	RelationshipType        string            `json:"relationship_type"`
	RelationshipDescription string            `json:"relationship_description"`
	Attributes              map[string]string `json:"attributes,omitempty"`
}

// mappingResponse is the structured output requested from the validation
// pass.
type mappingResponse struct {
	Mappings []common.NodeMapping `json:"mappings" jsonschema_description:"Duplicate nodes and their canonical replacement"`
}

// The model output is decoded into loose maps first and validated item by
// item, so one malformed node does not discard the whole chunk.

func parseExtraction(content string) (common.ExtractionResult, error) {
	var raw any
	if err := ai.UnmarshalResponse(content, &raw); err != nil {
		return common.ExtractionResult{}, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return common.ExtractionResult{}, fmt.Errorf("expected a JSON object, got %T", raw)
	}

	var res common.ExtractionResult
	for _, item := range asList(lookup(obj, "nodes")) {
		if n, ok := parseNode(item); ok {
			res.Nodes = append(res.Nodes, n)
		}
	}
	for _, item := range asList(lookup(obj, "edges", "relationships")) {
		if e, ok := parseEdge(item); ok {
			res.Edges = append(res.Edges, e)
		}
	}
	resolveEndpointTypes(&res)
	return res, nil
}

func parseNode(v any) (common.Node, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return common.Node{}, false
	}
	n := common.Node{
		Name:        asString(lookup(m, "name")),
		Type:        asString(lookup(m, "type")),
		Description: asString(lookup(m, "description")),
		Attributes:  asAttributes(lookup(m, "attributes", "properties")),
	}
	if strings.TrimSpace(n.Name) == "" || strings.TrimSpace(n.Type) == "" {
		return common.Node{}, false
	}
	return n, true
}

func parseEdge(v any) (common.Edge, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return common.Edge{}, false
	}
	e := common.Edge{
		Source:                  asString(lookup(m, "source", "from")),
		SourceType:              asString(lookup(m, "source_type")),
		Target:                  asString(lookup(m, "target", "to")),
		TargetType:              asString(lookup(m, "target_type")),
		RelationshipType:        asString(lookup(m, "relationship_type", "type")),
		RelationshipDescription: asString(lookup(m, "relationship_description", "description")),
		Attributes:              asAttributes(lookup(m, "attributes", "properties")),
	}
	if strings.TrimSpace(e.Source) == "" || strings.TrimSpace(e.Target) == "" ||
		strings.TrimSpace(e.RelationshipType) == "" {
		return common.Edge{}, false
	}
	return e, true
}

// resolveEndpointTypes fills missing endpoint types from the chunk's own
// nodes when the name identifies exactly one of them, and drops edges whose
// endpoints stay untyped.
func resolveEndpointTypes(res *common.ExtractionResult) {
	typesByName := map[string]map[string]struct{}{}
	for _, n := range res.Nodes {
		name := NormalizeName(n.Name)
		if typesByName[name] == nil {
			typesByName[name] = map[string]struct{}{}
		}
		typesByName[name][NormalizeType(n.Type)] = struct{}{}
	}
	resolve := func(name, typ string) string {
		if strings.TrimSpace(typ) != "" {
			return typ
		}
		types := typesByName[NormalizeName(name)]
		if len(types) != 1 {
			return ""
		}
		for t := range types {
			return t
		}
		return ""
	}

	edges := res.Edges[:0]
	for _, e := range res.Edges {
		e.SourceType = resolve(e.Source, e.SourceType)
		e.TargetType = resolve(e.Target, e.TargetType)
		if e.SourceType == "" || e.TargetType == "" {
			continue
		}
		edges = append(edges, e)
	}
	res.Edges = edges
}

func parseMappings(content string) ([]common.NodeMapping, error) {
	var raw any
	if err := ai.UnmarshalResponse(content, &raw); err != nil {
		return nil, err
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		list, ok := lookup(v, "mappings", "merges", "nodes").([]any)
		if !ok {
			for _, val := range v {
				if l, isList := val.([]any); isList {
					list, ok = l, true
					break
				}
			}
		}
		if !ok {
			return nil, fmt.Errorf("no mapping list in response object")
		}
		items = list
	default:
		return nil, fmt.Errorf("expected a JSON array, got %T", raw)
	}

	mappings := make([]common.NodeMapping, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		orig, okOrig := parseRef(lookup(m, "orig_node", "original", "from"))
		next, okNew := parseRef(lookup(m, "new_node", "canonical", "to"))
		if !okOrig || !okNew {
			continue
		}
		mappings = append(mappings, common.NodeMapping{OrigNode: orig, NewNode: next})
	}
	return mappings, nil
}

func parseRef(v any) (common.NodeRef, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return common.NodeRef{}, false
	}
	r := common.NodeRef{
		Name: asString(lookup(m, "name")),
		Type: asString(lookup(m, "type")),
	}
	return r, strings.TrimSpace(r.Name) != "" && strings.TrimSpace(r.Type) != ""
}

// lookup returns the value of the first key present in m, matching keys
// case-insensitively.
func lookup(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	for k, v := range m {
		for _, key := range keys {
			if strings.EqualFold(k, key) {
				return v
			}
		}
	}
	return nil
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func asAttributes(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s := asString(val); s != "" {
			out[k] = s
		}
	}
	return out
}
