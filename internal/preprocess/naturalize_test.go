package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalizeNestedResult(t *testing.T) {
	record := &Record{
		Results: map[string][]Entry{
			"sandbox": {
				{
					Type: "triage",
					Data: map[string]any{
						"sha256": "abc",
						"signatures": []any{
							map[string]any{"name": "Spyware", "score": 7},
						},
					},
				},
			},
		},
		Hierarchy: map[string]HierarchyNode{},
	}

	sentences := NewNaturalizer().Naturalize(record)

	assert.Equal(t, []string{
		"#sha256 abc with sha256 abc",
		"#sha256 abc has the signature Spyware name: Spyware, score: 7, ",
	}, sentences)
}

func TestNaturalizeLeafList(t *testing.T) {
	record := &Record{
		Results: map[string][]Entry{
			"network": {
				{
					Type: "network",
					Data: map[string]any{
						"name":    "dns",
						"domains": []any{"evil.example.com", "second.example.org"},
					},
				},
			},
		},
		Hierarchy: map[string]HierarchyNode{},
	}

	sentences := NewNaturalizer().Naturalize(record)

	assert.Equal(t, []string{
		"dnswith domains evil.example.com, second.example.org, ",
		"dnswith name dns",
	}, sentences)
}

func TestNaturalizeHierarchy(t *testing.T) {
	record := &Record{
		Results: map[string][]Entry{},
		Hierarchy: map[string]HierarchyNode{
			"root": {
				SHA256:    "aaa",
				CreatedBy: "karton-classifier",
				FileMagic: "PE32",
				Type:      "sample",
				Children:  []string{"bbb"},
			},
			"bbb": {
				CreatedBy: "karton-unpacker",
				FileMagic: "ELF",
				Type:      "sample",
				Families:  []string{"agenttesla"},
				Children:  []string{},
			},
		},
	}

	sentences := NewNaturalizer().Naturalize(record)

	assert.Equal(t, []string{
		"sample aaa is the submitted sample created by karton-classifier with file magic PE32 of type sample with children bbb",
		"sample bbb created by karton-unpacker with file magic ELF of type sample from families agenttesla",
	}, sentences)
}

func TestNaturalizeWholeNumbers(t *testing.T) {
	record := &Record{
		Results: map[string][]Entry{
			"scores": {
				{Data: map[string]any{"name": "scored", "score": float64(10)}},
			},
		},
	}

	sentences := NewNaturalizer().Naturalize(record)
	assert.Equal(t, []string{"scoredname: scored, score: 10, "}, sentences)
}

func TestSearchForHeadline(t *testing.T) {
	assert.Equal(t, "#sha256 abc ", searchForHeadline(map[string]any{"sha256": "abc", "name": "x"}))
	assert.Equal(t, "Spyware", searchForHeadline(map[string]any{"name": "Spyware"}))
	assert.Equal(t, "with data ", searchForHeadline(map[string]any{"other": "x"}))
	assert.Equal(t, "with data ", searchForHeadline([]any{"x"}))
}

func TestIsLeaf(t *testing.T) {
	assert.True(t, isLeaf("x"))
	assert.True(t, isLeaf(float64(3)))
	assert.True(t, isLeaf(map[string]any{"a": "b", "c": float64(1)}))
	assert.True(t, isLeaf([]any{"a", "b"}))
	assert.False(t, isLeaf(map[string]any{"a": []any{"b"}}))
	assert.False(t, isLeaf([]any{map[string]any{"a": "b"}}))
}
