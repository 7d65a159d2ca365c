package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/kgimport/pkg/ai"
	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/prompt"
)

const validationTemperature = 0.4

// ErrValidationParse marks a validation response that could not be read as
// a list of node mappings.
var ErrValidationParse = errors.New("validation response parse failed")

// Validate asks the validation model which nodes are duplicates and
// collapses them with ApplyMappings.
//
// Validation never fails the import: if the prompt is missing, the call
// fails or the answer cannot be parsed, the graph is returned unchanged.
func (g *GraphClient) Validate(
	ctx context.Context,
	graph *common.Graph,
	llm ai.Client,
	prompts prompt.Renderer,
) *common.Graph {
	if graph == nil || len(graph.Nodes) == 0 {
		return graph
	}

	mappings, err := g.proposeMappings(ctx, graph, llm, prompts)
	if err != nil {
		logger.Warn("[Graph] Validation skipped, keeping graph unmerged", "err", err)
		return graph
	}
	if len(mappings) == 0 {
		logger.Debug("[Graph] Validation proposed no merges")
		return graph
	}

	out := ApplyMappings(graph, mappings)
	logger.Info("[Graph] Validation applied",
		"mappings", len(mappings),
		"nodes_before", len(graph.Nodes),
		"nodes_after", len(out.Nodes),
		"edges_after", len(out.Edges),
	)
	return out
}

func (g *GraphClient) proposeMappings(
	ctx context.Context,
	graph *common.Graph,
	llm ai.Client,
	prompts prompt.Renderer,
) ([]common.NodeMapping, error) {
	nodesJSON, err := json.Marshal(graph.Nodes)
	if err != nil {
		return nil, err
	}
	text, err := prompts.Render(prompt.NodeValidation, map[string]string{
		"nodes": string(nodesJSON),
	})
	if err != nil {
		return nil, err
	}

	model := modelFor(prompts, prompt.NodeValidation)
	if model == "" {
		model = g.validationModel
	}
	content, err := g.ask(ctx, llm, text,
		ai.WithModel(model),
		ai.WithTemperature(validationTemperature),
		ai.WithResponseSchema("node_mappings", "Duplicate nodes mapped to their canonical node", mappingResponse{}),
	)
	if err != nil {
		return nil, fmt.Errorf("validation call: %w", err)
	}

	mappings, err := parseMappings(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationParse, err)
	}
	return mappings, nil
}

// ApplyMappings collapses every node named as an original in mappings into
// its replacement and rewrites the edges accordingly. graph is not modified.
//
// References are normalized like extracted nodes. A node that is itself the
// target of some mapping is kept as is. When the replacement node already
// exists, its values win and the original only fills gaps; otherwise the
// replacement is created with the original's description and attributes.
// Edges that end up duplicated are merged and self-loops are dropped.
//
// Chains are resolved one hop only: with A->B and B->C, A becomes B and B is
// kept, so edges of A point to B and no edge is left pointing at a removed
// node.
func ApplyMappings(graph *common.Graph, mappings []common.NodeMapping) *common.Graph {
	lookup := map[string]common.NodeRef{}
	canonical := map[string]bool{}
	for _, m := range mappings {
		orig := NormalizeRef(m.OrigNode)
		next := NormalizeRef(m.NewNode)
		if orig.Name == "" || orig.Type == "" || next.Name == "" || next.Type == "" {
			continue
		}
		if orig.Key() == next.Key() {
			continue
		}
		if _, seen := lookup[orig.Key()]; !seen {
			lookup[orig.Key()] = next
		}
		canonical[next.Key()] = true
	}

	replaced := func(key string) (common.NodeRef, bool) {
		if canonical[key] {
			return common.NodeRef{}, false
		}
		ref, ok := lookup[key]
		return ref, ok
	}

	nodes := make([]common.Node, 0, len(graph.Nodes))
	index := make(map[string]int, len(graph.Nodes))
	for _, n := range graph.Nodes {
		n.Attributes = cloneAttributes(n.Attributes)
		index[n.Ref().Key()] = len(nodes)
		nodes = append(nodes, n)
	}

	removed := map[string]bool{}
	for _, n := range graph.Nodes {
		key := n.Ref().Key()
		next, ok := replaced(key)
		if !ok {
			continue
		}
		if i, exists := index[next.Key()]; exists {
			target := &nodes[i]
			if target.Description == "" {
				target.Description = n.Description
			}
			target.Attributes = fillAttributes(target.Attributes, n.Attributes)
		} else {
			index[next.Key()] = len(nodes)
			nodes = append(nodes, common.Node{
				Name:        next.Name,
				Type:        next.Type,
				Description: n.Description,
				Attributes:  cloneAttributes(n.Attributes),
			})
		}
		removed[key] = true
		logger.Debug("[Graph] Merging node", "from", key, "into", next.Key())
	}

	b := newGraphBuilder()
	for _, n := range nodes {
		if !removed[n.Ref().Key()] {
			b.addNode(n)
		}
	}
	for _, e := range graph.Edges {
		e.Attributes = cloneAttributes(e.Attributes)
		if ref, ok := replaced(e.SourceRef().Key()); ok {
			e.Source, e.SourceType = ref.Name, ref.Type
		}
		if ref, ok := replaced(e.TargetRef().Key()); ok {
			e.Target, e.TargetType = ref.Name, ref.Type
		}
		b.addEdge(e)
	}
	return b.graph()
}

func cloneAttributes(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
