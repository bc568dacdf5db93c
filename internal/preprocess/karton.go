package preprocess

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/amplec/amplec-core/internal/karton"
	"github.com/amplec/amplec-core/internal/triage"
)

// KartonPreprocessor reduces a raw Karton result to a Record. Entries
// produced by the triage service have their data replaced with a reduced
// sandbox overview when a triage client is configured.
type KartonPreprocessor struct {
	triage *triage.Client
}

// NewKartonPreprocessor builds a preprocessor. triageClient may be nil,
// which disables overview fetching for triage-sourced entries.
func NewKartonPreprocessor(triageClient *triage.Client) *KartonPreprocessor {
	return &KartonPreprocessor{triage: triageClient}
}

// Process reduces one Karton result. A result without payload results or
// without payloads yields an empty record, not an error.
func (p *KartonPreprocessor) Process(ctx context.Context, result *karton.Result) *Record {
	record := &Record{
		Results:   map[string][]Entry{},
		Hierarchy: map[string]HierarchyNode{},
	}

	if len(result.PayloadResults) == 0 {
		slog.Error("No payload results found in the karton result")
		return record
	}
	slog.Info("Processing payload results", "count", len(result.PayloadResults))

	if len(result.Payloads) == 0 {
		slog.Error("No payloads found in the karton result")
		return record
	}
	slog.Info("Processing payloads", "count", len(result.Payloads))

	for key, entries := range result.PayloadResults {
		if len(entries) == 0 {
			continue
		}
		processed := make([]Entry, 0, len(entries))
		for _, entry := range entries {
			processed = append(processed, p.processEntry(ctx, entry))
		}
		record.Results[key] = processed
	}

	record.Hierarchy = buildHierarchy(result.Payloads)
	return record
}

func (p *KartonPreprocessor) processEntry(ctx context.Context, entry karton.ResultEntry) Entry {
	source := strings.TrimPrefix(entry.CreatedBy, "karton-")

	out := Entry{
		PayloadType: entry.PayloadType,
		Type:        source,
		Data:        map[string]any{},
		PayloadID:   entry.PayloadID,
		Timestamp:   entry.CreatedAt,
	}

	if source != "triage" {
		if entry.Data != nil {
			out.Data = entry.Data
		}
		return out
	}

	sampleID := triageSampleID(entry.Data)
	if sampleID == "" {
		slog.Error("Failed to extract submission ID from a triage result entry", "payload_id", entry.PayloadID)
		return out
	}
	if p.triage == nil {
		slog.Warn("Triage client not configured, leaving triage entry data empty", "payload_id", entry.PayloadID)
		return out
	}

	overview, err := p.triage.Overview(ctx, sampleID)
	if err != nil {
		slog.Error("Failed to retrieve triage overview", "sample_id", sampleID, "error", err)
		return out
	}
	out.Data = overview
	return out
}

func triageSampleID(data any) string {
	fields, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	id, _ := fields["submission_id"].(string)
	return id
}

// buildHierarchy links payloads into a tree keyed by sha256 with the
// submission's root payload keyed "root". Untyped and memdump payloads
// are left out.
func buildHierarchy(payloads map[string]karton.Payload) map[string]HierarchyNode {
	hierarchy := map[string]HierarchyNode{}

	rootSHA := ""
	for sha, payload := range payloads {
		if payload.ParentPayloadID != nil && *payload.ParentPayloadID == "" {
			rootSHA = sha
		}
	}
	if rootSHA == "" {
		slog.Error("Failed to find the root payload in the payload dict")
		return hierarchy
	}

	root := newNode(payloads[rootSHA])
	root.SHA256 = rootSHA
	hierarchy["root"] = root

	// sorted so parent lookups do not depend on map iteration order
	shas := make([]string, 0, len(payloads))
	for sha := range payloads {
		shas = append(shas, sha)
	}
	sort.Strings(shas)

	for _, sha := range shas {
		payload := payloads[sha]
		if sha == rootSHA || payload.PayloadType == "" || payload.PayloadType == "memdump" {
			continue
		}
		hierarchy[sha] = newNode(payload)

		switch parent := payload.PayloadParentID; {
		case parent == rootSHA:
			appendChild(hierarchy, "root", sha)
		case hasNode(hierarchy, parent):
			appendChild(hierarchy, parent, sha)
		default:
			slog.Error("Failed to find parent payload for payload", "sha256", sha)
		}
	}

	return hierarchy
}

func newNode(payload karton.Payload) HierarchyNode {
	node := HierarchyNode{
		CreatedBy: payload.CreatedBy,
		FileMagic: payload.Attributes.FileMagic,
		Type:      payload.Attributes.Type,
		Children:  []string{},
	}
	if len(payload.Attributes.Families) > 0 {
		node.Families = payload.Attributes.Families
	}
	return node
}

func hasNode(hierarchy map[string]HierarchyNode, key string) bool {
	_, ok := hierarchy[key]
	return ok
}

func appendChild(hierarchy map[string]HierarchyNode, key, child string) {
	node := hierarchy[key]
	node.Children = append(node.Children, child)
	hierarchy[key] = node
}
