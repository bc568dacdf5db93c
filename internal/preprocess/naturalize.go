package preprocess

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
)

// headlineKeywords pick the sentence prefix for a result document; the
// first key found wins.
var headlineKeywords = []struct {
	key      string
	template string
}{
	{"sha256", "#sha256 <replace> "},
	{"label", "<replace>"},
	{"name", "<replace>"},
	{"description", "<replace>"},
}

// headlineKeyKeywords phrase well-known result keys instead of the
// generic "with <key>" form.
var headlineKeyKeywords = map[string]string{
	"signatures": "has the signature <replace> ",
	"indicators": "with the indicator <replace> ",
	"analysis":   "has an analysis ",
}

// Naturalizer flattens a Record into natural-language sentences, one
// per leaf path of the underlying result documents.
type Naturalizer struct{}

func NewNaturalizer() *Naturalizer {
	return &Naturalizer{}
}

func (n *Naturalizer) Naturalize(record *Record) []string {
	sentences := []string{}

	for _, key := range sortedKeys(record.Results) {
		for _, entry := range record.Results[key] {
			data := toPlain(entry.Data)
			if data == nil {
				continue
			}
			sentences = append(sentences, recursiveNaturalize(data, searchForHeadline(data))...)
		}
	}

	sentences = append(sentences, naturalizeHierarchy(record.Hierarchy)...)
	return sentences
}

// toPlain pushes the value through a JSON round trip so that structs and
// decoded documents walk the same way.
func toPlain(value any) any {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("Failed to flatten result data", "error", err)
		return nil
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil
	}
	return plain
}

func searchForHeadline(data any) string {
	if fields, ok := data.(map[string]any); ok {
		for _, kw := range headlineKeywords {
			if value, ok := fields[kw.key]; ok {
				if s, ok := value.(string); ok {
					return strings.ReplaceAll(kw.template, "<replace>", s)
				}
			}
		}
	}
	slog.Warn("Could not find a headline in the data, using default headline")
	return "with data "
}

func buildHeadline(value any, key string) string {
	if template, ok := headlineKeyKeywords[key]; ok {
		if strings.Contains(template, "<replace>") {
			return strings.ReplaceAll(template, "<replace>", searchForHeadline(value))
		}
		return template
	}
	return "with " + key + " "
}

func recursiveNaturalize(data any, prefix string) []string {
	if isLeaf(data) {
		return []string{prefix + renderLeaf(data)}
	}

	switch value := data.(type) {
	case map[string]any:
		sentences := []string{}
		for _, key := range sortedKeys(value) {
			field := value[key]
			if list, ok := field.([]any); ok && len(list) > 0 && !isLeaf(list) {
				if _, isObject := list[0].(map[string]any); isObject {
					// lists of objects get one sentence tree per object
					for _, element := range list {
						headline := buildHeadline(element, key)
						if strings.Contains(headline, "with data") {
							headline = "with "
						}
						sentences = append(sentences, recursiveNaturalize(element, prefix+headline)...)
					}
					continue
				}
			}
			sentences = append(sentences, recursiveNaturalize(field, prefix+buildHeadline(field, key))...)
		}
		return sentences

	case []any:
		sentences := []string{}
		for _, element := range value {
			sentences = append(sentences, recursiveNaturalize(element, prefix)...)
		}
		return sentences

	default:
		slog.Error("Data is neither an object nor a list and not a leaf", "type", fmt.Sprintf("%T", data))
		return nil
	}
}

// isLeaf reports whether the value contains no nested containers.
func isLeaf(value any) bool {
	switch typed := value.(type) {
	case map[string]any:
		for _, field := range typed {
			if isContainer(field) {
				return false
			}
		}
	case []any:
		for _, element := range typed {
			if isContainer(element) {
				return false
			}
		}
	}
	return true
}

func isContainer(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func renderLeaf(value any) string {
	switch typed := value.(type) {
	case map[string]any:
		var b strings.Builder
		for _, key := range sortedKeys(typed) {
			fmt.Fprintf(&b, "%s: %s, ", key, formatScalar(typed[key]))
		}
		return b.String()
	case []any:
		var b strings.Builder
		for _, element := range typed {
			fmt.Fprintf(&b, "%s, ", formatScalar(element))
		}
		return b.String()
	default:
		return formatScalar(value)
	}
}

func formatScalar(value any) string {
	// JSON numbers decode as float64; keep whole numbers readable
	if f, ok := value.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return fmt.Sprint(value)
}

func naturalizeHierarchy(hierarchy map[string]HierarchyNode) []string {
	if len(hierarchy) == 0 {
		return nil
	}

	keys := []string{}
	if _, ok := hierarchy["root"]; ok {
		keys = append(keys, "root")
	}
	for _, key := range sortedKeys(hierarchy) {
		if key != "root" {
			keys = append(keys, key)
		}
	}

	sentences := make([]string, 0, len(keys))
	for _, key := range keys {
		node := hierarchy[key]
		sha := node.SHA256
		if sha == "" {
			sha = key
		}

		var b strings.Builder
		b.WriteString("sample " + sha)
		if key == "root" {
			b.WriteString(" is the submitted sample")
		}
		if node.CreatedBy != "" {
			b.WriteString(" created by " + node.CreatedBy)
		}
		if node.FileMagic != "" {
			b.WriteString(" with file magic " + node.FileMagic)
		}
		if node.Type != "" {
			b.WriteString(" of type " + node.Type)
		}
		if len(node.Families) > 0 {
			b.WriteString(" from families " + strings.Join(node.Families, ", "))
		}
		if len(node.Children) > 0 {
			b.WriteString(" with children " + strings.Join(node.Children, ", "))
		}
		sentences = append(sentences, b.String())
	}
	return sentences
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
