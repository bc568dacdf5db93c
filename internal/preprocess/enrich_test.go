package preprocess

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const ttpContextJSON = `{
	"T1055": {"name": "Process Injection", "description": "Adversaries may inject code into processes."},
	"T1059.001": {"name": "PowerShell", "description": "Adversaries may abuse PowerShell commands and scripts."}
}`

func writeContextFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ttp_context.json")
	assert.NoError(t, os.WriteFile(path, []byte(ttpContextJSON), 0644))
	return path
}

func TestNewEnricherMissingFile(t *testing.T) {
	_, err := NewEnricher(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestNewEnricherBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	assert.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := NewEnricher(path)
	assert.Error(t, err)
}

func TestEnrich(t *testing.T) {
	enricher, err := NewEnricher(writeContextFile(t))
	assert.NoError(t, err)

	sentences := enricher.Enrich([]string{
		"the sample uses T1055 for evasion",
		"script execution via T1059.001 observed",
		"no techniques here",
	})

	assert.Equal(t, []string{
		"the sample uses T1055 for evasion",
		"script execution via T1059.001 observed",
		"no techniques here",
		"TTP T1055 has the name Process Injection and the description Adversaries may inject code into processes.",
		"TTP T1059.001 has the name PowerShell and the description Adversaries may abuse PowerShell commands and scripts.",
	}, sentences)
}

func TestEnrichUnknownTechnique(t *testing.T) {
	enricher, err := NewEnricher(writeContextFile(t))
	assert.NoError(t, err)

	sentences := enricher.Enrich([]string{"uses T9999 somehow"})
	assert.Equal(t, []string{"uses T9999 somehow"}, sentences)
}

func TestEnrichDeduplicatesTechniques(t *testing.T) {
	enricher, err := NewEnricher(writeContextFile(t))
	assert.NoError(t, err)

	sentences := enricher.Enrich([]string{"T1055 seen", "T1055 seen again"})
	assert.Len(t, sentences, 3)
}
