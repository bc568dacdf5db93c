package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/amplec/amplec-core/api/models"
	"github.com/amplec/amplec-core/internal/chatter"
	"github.com/amplec/amplec-core/internal/karton"
	"github.com/amplec/amplec-core/internal/submission"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Welcome to the AMPLEC - CORE API")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Success("The API is healthy", map[string]any{}))
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Invalid form data: %v", err)))
		return
	}

	if missing := missingParams(r.PostForm, "karton_submission_id", "regex_or_search", "use_regex"); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, models.Error("Missing parameters: "+strings.Join(missing, ", ")))
		return
	}

	req := models.ProcessRequest{
		SubmissionID: r.PostForm.Get("karton_submission_id"),
		Pattern:      r.PostForm.Get("regex_or_search"),
		UseRegex:     parseBool(r.PostForm.Get("use_regex")),
		Reprocess:    parseBool(r.PostForm.Get("reprocess")),
	}
	slog.Debug("Received process request", "submission_id", req.SubmissionID, "use_regex", req.UseRegex, "reprocess", req.Reprocess)

	matches, err := s.submissions.Search(r.Context(), req.SubmissionID, req.Pattern, req.UseRegex, req.Reprocess)
	if err != nil {
		slog.Error("Process request failed", "submission_id", req.SubmissionID, "error", err)
		writeJSON(w, errorStatus(err), models.Error(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.Success("Processing Worked!", matches))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.Error(fmt.Sprintf("Invalid form data: %v", err)))
		return
	}

	if missing := missingParams(r.PostForm, "user_message"); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, models.Error("Missing parameters: "+strings.Join(missing, ", ")))
		return
	}

	req := models.ChatRequest{
		SystemMessage:   r.PostForm.Get("system_message"),
		UserMessage:     r.PostForm.Get("user_message"),
		SubmissionID:    r.PostForm.Get("submission_id"),
		Reprocess:       parseBool(r.PostForm.Get("reprocess")),
		FunctionCalling: parseBool(r.PostForm.Get("function_calling")),
		Model:           r.PostForm.Get("model"),
		APIKey:          r.PostForm.Get("api_key"),
	}
	slog.Debug("Received chat request", "model", req.Model, "function_calling", req.FunctionCalling, "submission_id", req.SubmissionID)

	answer, err := s.chat.Chat(r.Context(), req)
	if err != nil {
		slog.Error("Chat request failed", "error", err)
		writeJSON(w, errorStatus(err), models.Error(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.Success("Chat worked!", answer))
}

func writeJSON(w http.ResponseWriter, status int, body models.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// missingParams reports required keys absent from the form. A key that is
// present but empty counts as supplied.
func missingParams(form url.Values, required ...string) []string {
	missing := []string{}
	for _, key := range required {
		if !form.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

// parseBool accepts the truthy spellings web forms send; everything else
// is false.
func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "t", "y", "yes":
		return true
	}
	return false
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, submission.ErrBadPattern), errors.Is(err, chatter.ErrAPIKeyRequired):
		return http.StatusBadRequest
	case errors.Is(err, karton.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, karton.ErrUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
