package domain

// Node is one section of a filing's hierarchical structure tree.
// JSON field names follow the PageIndex wire format so trees round-trip
// through storage unchanged.
type Node struct {
	// ID is the node identifier assigned by the structuring service.
	ID string `json:"node_id,omitempty"`

	// Title is the section heading.
	Title string `json:"title,omitempty"`

	// Summary is the service-generated section summary.
	Summary string `json:"summary,omitempty"`

	// StartPage and EndPage bound the section in the source PDF.
	StartPage int `json:"start_index,omitempty"`
	EndPage   int `json:"end_index,omitempty"`

	// Text is the section's extracted text. Empty for container nodes.
	Text string `json:"text,omitempty"`

	// Children holds subsections in document order. Nil for leaves.
	Children []Node `json:"nodes,omitempty"`
}

// Flatten returns every node in the tree as a flat, depth-first list with
// each parent strictly before its descendants. The Children field is
// omitted from the emitted nodes; all other fields are preserved.
func Flatten(nodes []Node) []Node {
	var flat []Node
	for _, n := range nodes {
		children := n.Children
		n.Children = nil
		flat = append(flat, n)
		if len(children) > 0 {
			flat = append(flat, Flatten(children)...)
		}
	}
	return flat
}

// WithoutText returns a structural copy of the tree with every node's Text
// field cleared, recursively at every depth. Node count and ordering are
// preserved. Safe to embed in prompts or display output.
func WithoutText(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	stripped := make([]Node, len(nodes))
	for i, n := range nodes {
		n.Text = ""
		n.Children = WithoutText(n.Children)
		stripped[i] = n
	}
	return stripped
}

// BuildNodeMap indexes flattened nodes by identifier for O(1) lookup.
// Nodes without an identifier are skipped. On duplicate identifiers the
// later occurrence wins; the structuring service is expected to assign
// unique ids, so this is a tolerance, not a feature.
func BuildNodeMap(flat []Node) map[string]Node {
	nodeMap := make(map[string]Node, len(flat))
	for _, n := range flat {
		if n.ID == "" {
			continue
		}
		nodeMap[n.ID] = n
	}
	return nodeMap
}

// DocumentTree is the stored tree for one document together with its
// derived artifacts. Exactly one exists per completed document and it
// shares the document's lifetime.
type DocumentTree struct {
	// DocID is the owning document.
	DocID string

	// Structure is the full nested tree including node text.
	Structure []Node

	// StructureNoText is Structure with all text stripped.
	StructureNoText []Node

	// NodeMap maps node id to the flattened (childless) node.
	NodeMap map[string]Node
}

// NewDocumentTree derives the text-stripped copy and node map from the
// full structure.
func NewDocumentTree(docID string, structure []Node) *DocumentTree {
	return &DocumentTree{
		DocID:           docID,
		Structure:       structure,
		StructureNoText: WithoutText(structure),
		NodeMap:         BuildNodeMap(Flatten(structure)),
	}
}
