package preprocess

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
)

var ttpPattern = regexp.MustCompile(`T\d{4}(?:\.\d{3})?`)

// TTPContext is one MITRE ATT&CK technique description from the context file.
type TTPContext struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Enricher appends context sentences for ATT&CK technique ids mentioned
// in naturalized output.
type Enricher struct {
	context map[string]TTPContext
}

func NewEnricher(contextPath string) (*Enricher, error) {
	data, err := os.ReadFile(contextPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read TTP context file: %w", err)
	}

	var context map[string]TTPContext
	if err := json.Unmarshal(data, &context); err != nil {
		return nil, fmt.Errorf("failed to parse TTP context file %s: %w", contextPath, err)
	}

	slog.Info("Enricher initialized", "techniques", len(context))
	return &Enricher{context: context}, nil
}

// Enrich returns the sentences extended with one context sentence per
// distinct technique id found. Unknown ids are logged and skipped.
func (e *Enricher) Enrich(sentences []string) []string {
	found := map[string]bool{}
	for _, sentence := range sentences {
		for _, ttp := range ttpPattern.FindAllString(sentence, -1) {
			found[ttp] = true
		}
	}

	for _, ttp := range sortedKeys(found) {
		context, ok := e.context[ttp]
		if !ok {
			slog.Error("No context information found for TTP", "ttp", ttp)
			continue
		}
		sentences = append(sentences, fmt.Sprintf("TTP %s has the name %s and the description %s", ttp, context.Name, context.Description))
	}

	return sentences
}
