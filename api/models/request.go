package models

// ProcessRequest carries the fields of a POST /process form.
type ProcessRequest struct {
	// SubmissionID is the Karton submission whose artifacts are searched (karton_submission_id)
	SubmissionID string

	// Pattern is a regular expression or a literal search term, depending on UseRegex (regex_or_search)
	Pattern string

	// UseRegex selects regex matching instead of substring search (use_regex)
	UseRegex bool

	// Reprocess bypasses the preprocessed-record cache and refetches from Karton (reprocess)
	Reprocess bool
}

// ChatRequest carries the fields of a POST /chat form.
type ChatRequest struct {
	// SystemMessage seeds the conversation; empty means no system message (system_message)
	SystemMessage string

	// UserMessage is the prompt to answer (user_message)
	UserMessage string

	// SubmissionID pins tool calls to one submission regardless of what the model asks for (submission_id)
	SubmissionID string

	// Reprocess is passed through to tool-triggered artifact searches (reprocess)
	Reprocess bool

	// FunctionCalling lets the model search submission artifacts as a tool (function_calling)
	FunctionCalling bool

	// Model selects the backend; gpt-4o and gpt-4o-mini go to OpenAI, everything else to Ollama (model)
	Model string

	// APIKey overrides the configured OpenAI API key for this request (api_key)
	APIKey string
}
