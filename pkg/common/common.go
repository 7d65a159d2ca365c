package common

// Document is the unit of one import job. It is created once per import and
// mutated in place as the pipeline stages complete.
//
// Summary and Vector are filled by the summarization step, Chunks by the
// chunker.
type Document struct {
	Text     string    `json:"text"`
	FilePath string    `json:"file_path"`
	Summary  string    `json:"summary"`
	Vector   []float32 `json:"vector,omitempty"`
	Chunks   []*Chunk  `json:"chunks"`
}

// Chunk is a bounded, overlapping window of a document's text and the unit
// of LLM extraction.
//
// A chunk is immutable once created, except for Vector which is set once by
// the embedding stage. Position is the 0-based order within the document.
type Chunk struct {
	Text     string    `json:"text"`
	FilePath string    `json:"file_path"`
	Position int       `json:"position"`
	Vector   []float32 `json:"vector,omitempty"`
}

// Node represents an entity in the knowledge graph. Two nodes with the same
// normalized (Name, Type) are the same logical entity.
type Node struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Ref returns the identity reference of the node.
func (n Node) Ref() NodeRef {
	return NodeRef{Name: n.Name, Type: n.Type}
}

// Edge represents a typed, directed relationship between two nodes. Its
// identity is the tuple (Source, SourceType, Target, TargetType,
// RelationshipType).
type Edge struct {
	Source                  string            `json:"source"`
	SourceType              string            `json:"source_type"`
	Target                  string            `json:"target"`
	TargetType              string            `json:"target_type"`
	RelationshipType        string            `json:"relationship_type"`
	RelationshipDescription string            `json:"relationship_description,omitempty"`
	Attributes              map[string]string `json:"attributes,omitempty"`
}

// SourceRef returns the reference of the edge's source node.
func (e Edge) SourceRef() NodeRef {
	return NodeRef{Name: e.Source, Type: e.SourceType}
}

// TargetRef returns the reference of the edge's target node.
func (e Edge) TargetRef() NodeRef {
	return NodeRef{Name: e.Target, Type: e.TargetType}
}

// Graph is a set of nodes and the edges between them.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ExtractionResult is the raw output of one chunk's extraction. It is
// ephemeral and consumed by the merge step.
type ExtractionResult struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeRef identifies a node by name and type.
type NodeRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Key returns the "name|type" lookup key of the reference.
func (r NodeRef) Key() string {
	return r.Name + "|" + r.Type
}

// NodeMapping is a merge instruction produced by the validation stage:
// OrigNode is to be collapsed into NewNode.
type NodeMapping struct {
	OrigNode NodeRef `json:"orig_node"`
	NewNode  NodeRef `json:"new_node"`
}
