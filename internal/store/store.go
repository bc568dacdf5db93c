package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/amplec/amplec-core/internal/preprocess"
)

// ErrNotFound is returned by Load when no record is stored for a submission.
var ErrNotFound = errors.New("no preprocessed record stored")

// Store keeps preprocessed submission records under a base URL. The base is
// an afs location, so a plain directory works in production and mem:// in
// tests.
type Store struct {
	fs      afs.Service
	baseURL string
}

func New(baseURL string) *Store {
	return &Store{fs: afs.New(), baseURL: baseURL}
}

type record struct {
	SubmissionID string             `json:"submission_id"`
	StoredAt     time.Time          `json:"stored_at"`
	Payload      *preprocess.Record `json:"payload"`
}

// Save stores the record for a submission, overwriting any previous one.
func (s *Store) Save(ctx context.Context, submissionID string, payload *preprocess.Record) error {
	data, err := json.Marshal(record{
		SubmissionID: submissionID,
		StoredAt:     time.Now().UTC(),
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", submissionID, err)
	}

	dest := url.Join(s.baseURL, submissionID+".json")
	if err := s.fs.Upload(ctx, dest, 0644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store record for %s: %w", submissionID, err)
	}

	slog.Debug("Stored preprocessed record", "submission_id", submissionID, "location", dest)
	return nil
}

// Load returns the stored record for a submission or ErrNotFound.
func (s *Store) Load(ctx context.Context, submissionID string) (*preprocess.Record, error) {
	src := url.Join(s.baseURL, submissionID+".json")

	exists, err := s.fs.Exists(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to check record for %s: %w", submissionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, submissionID)
	}

	data, err := s.fs.DownloadWithURL(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to load record for %s: %w", submissionID, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record for %s: %w", submissionID, err)
	}
	return rec.Payload, nil
}
