package karton

// Result is the Karton result API document for one submission.
type Result struct {
	// PayloadResults groups analyzer outputs by result key
	PayloadResults map[string][]ResultEntry `json:"payload_results"`

	// Payloads maps sha256 digests to the payloads seen during processing
	Payloads map[string]Payload `json:"payloads"`
}

type ResultEntry struct {
	// CreatedBy is the producing karton service, e.g. "karton-triage"
	CreatedBy   string `json:"created_by"`
	PayloadType string `json:"payload_type"`
	PayloadID   string `json:"payload_id"`
	CreatedAt   string `json:"created_at"`

	// Data is the analyzer specific result document
	Data any `json:"data"`
}

type Payload struct {
	// ParentPayloadID is an empty string on the root payload; a nil
	// pointer means the API omitted the field entirely.
	ParentPayloadID *string `json:"parent_payload_id"`

	// PayloadParentID links child payloads to their parent's sha256
	PayloadParentID string `json:"payload_parent_id"`

	PayloadType string            `json:"payload_type"`
	CreatedBy   string            `json:"created_by"`
	Attributes  PayloadAttributes `json:"attributes"`
}

type PayloadAttributes struct {
	Families  []string `json:"families"`
	FileMagic string   `json:"file-magic"`
	Type      string   `json:"type"`
}
