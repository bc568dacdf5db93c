package preprocess

// Record is the reduced form of a Karton result. It is what gets cached per
// submission and naturalized into sentences for the LLM.
type Record struct {
	Results   map[string][]Entry       `json:"results"`
	Hierarchy map[string]HierarchyNode `json:"hierarchy"`
}

// Entry is one analyzer output, reduced to the fields the LLM can use.
type Entry struct {
	PayloadType string `json:"payload_type"`

	// Type is the producing service with the "karton-" prefix stripped
	Type string `json:"type"`

	Data      any    `json:"data"`
	PayloadID string `json:"payload_id"`
	Timestamp string `json:"timestamp"`
}

// HierarchyNode describes one payload in the submission's payload tree.
type HierarchyNode struct {
	// SHA256 is only set on the root node; other nodes are keyed by it
	SHA256 string `json:"sha256,omitempty"`

	Families  []string `json:"families,omitempty"`
	CreatedBy string   `json:"created_by"`
	FileMagic string   `json:"file_magic"`
	Type      string   `json:"type"`
	Children  []string `json:"children"`
}
