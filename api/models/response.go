package models

// Envelope is the response body shared by every JSON endpoint.
type Envelope struct {
	// Either "success" or "error"
	Status string `json:"status"`

	// Human readable outcome description
	Message string `json:"message"`

	// Endpoint specific payload; an empty object on errors
	Data any `json:"data"`
}

func Success(message string, data any) Envelope {
	return Envelope{Status: "success", Message: message, Data: data}
}

func Error(message string) Envelope {
	return Envelope{Status: "error", Message: message, Data: map[string]any{}}
}
