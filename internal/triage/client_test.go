package triage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const overviewJSON = `{
	"analysis": {"score": 10, "family": ["agenttesla"]},
	"sample": {"sha256": "aabbcc", "completed": "2024-11-02T10:00:00Z", "id": "241102-abcde"},
	"signatures": [{"name": "Spyware", "score": 7}],
	"targets": [
		{"iocs": {
			"domains": ["evil.example.com", "4.3.2.1.in-addr.arpa"],
			"ips": ["1.2.3.4"],
			"urls": ["http://evil.example.com/payload"],
			"emails": ["drop@example.com"]
		}},
		{"iocs": {
			"domains": ["evil.example.com", "second.example.org"],
			"ips": ["1.2.3.4", "5.6.7.8"],
			"urls": [],
			"emails": []
		}}
	]
}`

func TestOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/samples/241102-abcde/overview.json", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(overviewJSON))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second)

	overview, err := client.Overview(context.Background(), "241102-abcde")
	assert.NoError(t, err)
	assert.Equal(t, "aabbcc", overview.SHA256)
	assert.Equal(t, "2024-11-02T10:00:00Z", overview.Timestamp)
	assert.Equal(t, "241102-abcde", overview.ID)
	assert.NotNil(t, overview.Analysis)
	assert.NotNil(t, overview.Signatures)

	// deduplicated across targets, rDNS noise dropped
	assert.Equal(t, []string{"evil.example.com", "second.example.org"}, overview.IOCs.Domains)
	assert.Equal(t, []string{"1.2.3.4", "5.6.7.8"}, overview.IOCs.IPs)
	assert.Equal(t, []string{"http://evil.example.com/payload"}, overview.IOCs.URLs)
	assert.Equal(t, []string{"drop@example.com"}, overview.IOCs.Emails)
}

func TestOverviewUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid key"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad-key", time.Second)

	_, err := client.Overview(context.Background(), "241102-abcde")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestOverviewNoTargets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sample": {"sha256": "aabbcc"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second)

	overview, err := client.Overview(context.Background(), "x")
	assert.NoError(t, err)
	assert.Empty(t, overview.IOCs.Domains)
	assert.NotNil(t, overview.IOCs.Domains)
}
