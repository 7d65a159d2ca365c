package graph

import (
	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
)

// graphBuilder accumulates nodes and edges keyed by identity, preserving
// first-seen order.
type graphBuilder struct {
	nodes   []common.Node
	nodeIdx map[string]int
	edges   []common.Edge
	edgeIdx map[string]int
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{
		nodes:   []common.Node{},
		nodeIdx: map[string]int{},
		edges:   []common.Edge{},
		edgeIdx: map[string]int{},
	}
}

// addNode inserts n or folds it into the node with the same identity. The
// existing node keeps its non-empty values.
func (b *graphBuilder) addNode(n common.Node) {
	key := n.Ref().Key()
	i, ok := b.nodeIdx[key]
	if !ok {
		b.nodeIdx[key] = len(b.nodes)
		b.nodes = append(b.nodes, n)
		return
	}
	existing := &b.nodes[i]
	if existing.Description == "" {
		existing.Description = n.Description
	}
	existing.Attributes = fillAttributes(existing.Attributes, n.Attributes)
}

// addEdge inserts e or folds it into the edge with the same identity, with
// the same policy as addNode. Self-loops are dropped.
func (b *graphBuilder) addEdge(e common.Edge) {
	if isSelfLoop(e) {
		logger.Debug("[Graph] Dropping self-referential edge",
			"node", e.Source, "type", e.SourceType, "relationship", e.RelationshipType)
		return
	}
	key := edgeKey(e)
	i, ok := b.edgeIdx[key]
	if !ok {
		b.edgeIdx[key] = len(b.edges)
		b.edges = append(b.edges, e)
		return
	}
	existing := &b.edges[i]
	if existing.RelationshipDescription == "" {
		existing.RelationshipDescription = e.RelationshipDescription
	}
	existing.Attributes = fillAttributes(existing.Attributes, e.Attributes)
}

func (b *graphBuilder) graph() *common.Graph {
	return &common.Graph{Nodes: b.nodes, Edges: b.edges}
}

// fillAttributes adds the keys of src that dst lacks or holds empty.
func fillAttributes(dst, src map[string]string) map[string]string {
	for k, v := range src {
		if v == "" {
			continue
		}
		if dst[k] != "" {
			continue
		}
		if dst == nil {
			dst = make(map[string]string, len(src))
		}
		dst[k] = v
	}
	return dst
}

// MergeResults normalizes the per-chunk extraction results and folds them
// into one graph with at most one node per (name, type) and one edge per
// (source, source type, target, target type, relationship type).
//
// Results are applied in order; on conflicting values the first one seen
// wins. Merging is idempotent: merging a result set twice yields the same
// graph as merging it once.
func MergeResults(results []common.ExtractionResult) *common.Graph {
	b := newGraphBuilder()
	for _, r := range results {
		for _, n := range r.Nodes {
			if nn, ok := normalizeNode(n); ok {
				b.addNode(nn)
			}
		}
	}
	for _, r := range results {
		for _, e := range r.Edges {
			ne, ok := normalizeEdge(e)
			if !ok {
				logger.Debug("[Graph] Dropping incomplete edge", "source", e.Source, "target", e.Target)
				continue
			}
			b.addEdge(ne)
		}
	}
	return b.graph()
}
