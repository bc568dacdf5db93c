package karton

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound marks a submission the result API does not know about.
	ErrNotFound = errors.New("submission not found")

	// ErrUnreachable marks a result API that kept failing on the transport level.
	ErrUnreachable = errors.New("karton unreachable after retry")

	errTransport = errors.New("transport failure")
)

const maxAttempts = 2

// Client talks to the Karton result API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	slog.Info("Creating Karton client", "endpoint", baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("karton result API endpoint cannot be empty")
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Submission fetches the result document for one submission, retrying
// transport failures before giving up with ErrUnreachable.
func (c *Client) Submission(ctx context.Context, submissionID string) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		slog.Info("Retrieving karton result", "submission_id", submissionID, "attempt", attempt)
		result, err := c.fetch(ctx, submissionID)
		if err == nil || !errors.Is(err, errTransport) {
			return result, err
		}
		lastErr = err
		slog.Warn("Failed to reach karton result API", "attempt", attempt, "submission_id", submissionID, "error", err)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnreachable, lastErr)
}

func (c *Client) fetch(ctx context.Context, submissionID string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/submissions/"+submissionID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build karton request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransport, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode karton result for %s: %w", submissionID, err)
		}
		return &result, nil

	case http.StatusNotFound:
		if !isUUIDv4(submissionID) {
			return nil, fmt.Errorf("%w: karton does not find the submission with ID %s, and the provided ID is not a valid UUIDv4", ErrNotFound, submissionID)
		}
		return nil, fmt.Errorf("%w: submission with ID %s not found, probably the submission is not finished yet", ErrNotFound, submissionID)

	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to retrieve submission with ID %s, response: %s", submissionID, strings.TrimSpace(string(body)))
	}
}

func isUUIDv4(s string) bool {
	u, err := uuid.Parse(s)
	if err != nil {
		slog.Warn("Provided submission ID is not a valid UUID", "submission_id", s)
		return false
	}
	return u.Version() == 4 && u.String() == strings.ToLower(s)
}
