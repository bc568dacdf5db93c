package preprocess

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amplec/amplec-core/internal/karton"
	"github.com/amplec/amplec-core/internal/triage"
)

func strptr(s string) *string {
	return &s
}

func TestProcessEmptyResult(t *testing.T) {
	p := NewKartonPreprocessor(nil)

	record := p.Process(context.Background(), &karton.Result{})
	assert.Empty(t, record.Results)
	assert.Empty(t, record.Hierarchy)
}

func TestProcessWithoutPayloads(t *testing.T) {
	p := NewKartonPreprocessor(nil)

	record := p.Process(context.Background(), &karton.Result{
		PayloadResults: map[string][]karton.ResultEntry{
			"signatures": {{CreatedBy: "karton-yara", Data: map[string]any{"name": "EvilSig"}}},
		},
	})
	assert.Empty(t, record.Results)
	assert.Empty(t, record.Hierarchy)
}

func TestProcessResults(t *testing.T) {
	p := NewKartonPreprocessor(nil)

	record := p.Process(context.Background(), &karton.Result{
		PayloadResults: map[string][]karton.ResultEntry{
			"signatures": {
				{
					CreatedBy:   "karton-yara",
					PayloadType: "sample",
					PayloadID:   "p1",
					CreatedAt:   "2024-11-02",
					Data:        map[string]any{"name": "EvilSig"},
				},
			},
			"empty": {},
		},
		Payloads: map[string]karton.Payload{
			"aaa": {ParentPayloadID: strptr(""), CreatedBy: "karton-classifier", PayloadType: "sample"},
		},
	})

	assert.NotContains(t, record.Results, "empty")
	entries := record.Results["signatures"]
	assert.Len(t, entries, 1)
	assert.Equal(t, "yara", entries[0].Type)
	assert.Equal(t, "sample", entries[0].PayloadType)
	assert.Equal(t, "p1", entries[0].PayloadID)
	assert.Equal(t, "2024-11-02", entries[0].Timestamp)
	assert.Equal(t, map[string]any{"name": "EvilSig"}, entries[0].Data)
}

func TestProcessTriageEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/samples/241102-abcde/overview.json", r.URL.Path)
		w.Write([]byte(`{"sample": {"sha256": "ddeeff", "id": "241102-abcde"}}`))
	}))
	defer srv.Close()

	p := NewKartonPreprocessor(triage.NewClient(srv.URL, "key", time.Second))

	record := p.Process(context.Background(), &karton.Result{
		PayloadResults: map[string][]karton.ResultEntry{
			"sandbox": {
				{CreatedBy: "karton-triage", PayloadID: "p2", Data: map[string]any{"submission_id": "241102-abcde"}},
			},
		},
		Payloads: map[string]karton.Payload{
			"aaa": {ParentPayloadID: strptr(""), CreatedBy: "karton-classifier", PayloadType: "sample"},
		},
	})

	entry := record.Results["sandbox"][0]
	assert.Equal(t, "triage", entry.Type)
	overview, ok := entry.Data.(*triage.Overview)
	assert.True(t, ok)
	assert.Equal(t, "ddeeff", overview.SHA256)
}

func TestProcessTriageEntryWithoutSubmissionID(t *testing.T) {
	p := NewKartonPreprocessor(nil)

	record := p.Process(context.Background(), &karton.Result{
		PayloadResults: map[string][]karton.ResultEntry{
			"sandbox": {
				{CreatedBy: "karton-triage", PayloadID: "p2", Data: map[string]any{}},
			},
		},
		Payloads: map[string]karton.Payload{
			"aaa": {ParentPayloadID: strptr(""), CreatedBy: "karton-classifier", PayloadType: "sample"},
		},
	})

	assert.Equal(t, map[string]any{}, record.Results["sandbox"][0].Data)
}

func TestBuildHierarchy(t *testing.T) {
	payloads := map[string]karton.Payload{
		"aaa": {
			ParentPayloadID: strptr(""),
			CreatedBy:       "karton-classifier",
			PayloadType:     "sample",
			Attributes:      karton.PayloadAttributes{FileMagic: "PE32", Type: "sample"},
		},
		"bbb": {
			PayloadParentID: "aaa",
			CreatedBy:       "karton-unpacker",
			PayloadType:     "sample",
			Attributes:      karton.PayloadAttributes{Families: []string{"agenttesla"}, Type: "sample"},
		},
		"ccc": {
			PayloadParentID: "bbb",
			CreatedBy:       "karton-unpacker",
			PayloadType:     "sample",
		},
		"ddd": {
			PayloadParentID: "aaa",
			CreatedBy:       "karton-unpacker",
			PayloadType:     "memdump",
		},
		"eee": {
			PayloadParentID: "aaa",
			CreatedBy:       "karton-unpacker",
		},
		"fff": {
			PayloadParentID: "unknown",
			CreatedBy:       "karton-unpacker",
			PayloadType:     "sample",
		},
	}

	hierarchy := buildHierarchy(payloads)

	root := hierarchy["root"]
	assert.Equal(t, "aaa", root.SHA256)
	assert.Equal(t, []string{"bbb"}, root.Children)

	assert.Equal(t, []string{"ccc"}, hierarchy["bbb"].Children)
	assert.Equal(t, []string{"agenttesla"}, hierarchy["bbb"].Families)

	// memdump and untyped payloads are left out
	assert.NotContains(t, hierarchy, "ddd")
	assert.NotContains(t, hierarchy, "eee")

	// the orphan is kept but not linked anywhere
	assert.Contains(t, hierarchy, "fff")
	assert.NotContains(t, root.Children, "fff")
}

func TestBuildHierarchyWithoutRoot(t *testing.T) {
	hierarchy := buildHierarchy(map[string]karton.Payload{
		"aaa": {PayloadParentID: "bbb", PayloadType: "sample"},
	})
	assert.Empty(t, hierarchy)
}
