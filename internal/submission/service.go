package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/amplec/amplec-core/internal/karton"
	"github.com/amplec/amplec-core/internal/preprocess"
	"github.com/amplec/amplec-core/internal/store"
)

// ErrBadPattern marks a regex search pattern that does not compile.
var ErrBadPattern = errors.New("invalid regular expression")

// Service runs the artifact pipeline: fetch a submission's Karton result,
// reduce it, cache it, turn it into sentences and filter them.
type Service struct {
	karton   *karton.Client
	store    *store.Store
	pre      *preprocess.KartonPreprocessor
	nat      *preprocess.Naturalizer
	enricher *preprocess.Enricher
}

// New wires the pipeline. enricher may be nil, which skips TTP enrichment.
func New(kartonClient *karton.Client, st *store.Store, pre *preprocess.KartonPreprocessor, nat *preprocess.Naturalizer, enricher *preprocess.Enricher) *Service {
	return &Service{
		karton:   kartonClient,
		store:    st,
		pre:      pre,
		nat:      nat,
		enricher: enricher,
	}
}

// Search returns the naturalized sentences of one submission that match the
// pattern. With useRegex the pattern is compiled, otherwise it is a
// case-insensitive substring. reprocess bypasses the record cache.
func (s *Service) Search(ctx context.Context, submissionID, pattern string, useRegex, reprocess bool) ([]string, error) {
	var matches func(string) bool
	if useRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPattern, err)
		}
		matches = re.MatchString
	} else {
		needle := strings.ToLower(pattern)
		matches = func(sentence string) bool {
			return strings.Contains(strings.ToLower(sentence), needle)
		}
	}

	record, err := s.record(ctx, submissionID, reprocess)
	if err != nil {
		return nil, err
	}

	sentences := s.nat.Naturalize(record)
	if s.enricher != nil {
		sentences = s.enricher.Enrich(sentences)
	}

	matched := []string{}
	for _, sentence := range sentences {
		if matches(sentence) {
			matched = append(matched, sentence)
		}
	}

	slog.Info("Artifact search completed", "submission_id", submissionID, "sentences", len(sentences), "matches", len(matched))
	return matched, nil
}

func (s *Service) record(ctx context.Context, submissionID string, reprocess bool) (*preprocess.Record, error) {
	if !reprocess {
		record, err := s.store.Load(ctx, submissionID)
		if err == nil {
			slog.Info("Loaded preprocessed record from store", "submission_id", submissionID)
			return record, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			slog.Info("No preprocessed record stored, retrieving from karton", "submission_id", submissionID)
		} else {
			slog.Warn("Failed to load preprocessed record, refetching", "submission_id", submissionID, "error", err)
		}
	}

	result, err := s.karton.Submission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	slog.Info("Successfully retrieved karton result", "submission_id", submissionID)

	record := s.pre.Process(ctx, result)
	if err := s.store.Save(ctx, submissionID, record); err != nil {
		slog.Warn("Failed to cache preprocessed record", "submission_id", submissionID, "error", err)
	}
	return record, nil
}
