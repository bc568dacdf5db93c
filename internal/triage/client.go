package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client fetches sample overviews from a Triage sandbox instance.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Overview is the reduced form of a Triage overview report. Analysis and
// Signatures stay schemaless; the sandbox varies them per sample.
type Overview struct {
	Analysis   any    `json:"analysis"`
	SHA256     string `json:"sha256"`
	Timestamp  string `json:"timestamp"`
	ID         string `json:"id"`
	Signatures any    `json:"signatures"`
	IOCs       IOCs   `json:"iocs"`
}

type IOCs struct {
	IPs     []string `json:"ips"`
	URLs    []string `json:"urls"`
	Domains []string `json:"domains"`
	Emails  []string `json:"emails"`
}

// overviewDocument is the wire shape of overview.json.
type overviewDocument struct {
	Analysis any `json:"analysis"`
	Sample   struct {
		SHA256    string `json:"sha256"`
		Completed string `json:"completed"`
		ID        string `json:"id"`
	} `json:"sample"`
	Signatures any `json:"signatures"`
	Targets    []struct {
		IOCs IOCs `json:"iocs"`
	} `json:"targets"`
}

// Overview retrieves and reduces the overview report for one sample.
func (c *Client) Overview(ctx context.Context, sampleID string) (*Overview, error) {
	slog.Info("Retrieving triage overview", "sample_id", sampleID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/samples/"+sampleID+"/overview.json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build triage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach triage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to retrieve triage overview for %s, response: %s", sampleID, strings.TrimSpace(string(body)))
	}

	var doc overviewDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode triage overview for %s: %w", sampleID, err)
	}

	return reduce(&doc), nil
}

func reduce(doc *overviewDocument) *Overview {
	overview := &Overview{
		Analysis:   doc.Analysis,
		SHA256:     doc.Sample.SHA256,
		Timestamp:  doc.Sample.Completed,
		ID:         doc.Sample.ID,
		Signatures: doc.Signatures,
		IOCs: IOCs{
			IPs:     []string{},
			URLs:    []string{},
			Domains: []string{},
			Emails:  []string{},
		},
	}

	for _, target := range doc.Targets {
		for _, domain := range target.IOCs.Domains {
			// reverse-DNS noise from sandbox network captures
			if strings.Contains(domain, "in-addr.arpa") {
				continue
			}
			overview.IOCs.Domains = appendUnique(overview.IOCs.Domains, domain)
		}
		for _, ip := range target.IOCs.IPs {
			overview.IOCs.IPs = appendUnique(overview.IOCs.IPs, ip)
		}
		for _, u := range target.IOCs.URLs {
			overview.IOCs.URLs = appendUnique(overview.IOCs.URLs, u)
		}
		for _, email := range target.IOCs.Emails {
			overview.IOCs.Emails = appendUnique(overview.IOCs.Emails, email)
		}
	}

	return overview
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
