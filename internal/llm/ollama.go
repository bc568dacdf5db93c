package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

const (
	defaultOllamaURL    = "http://localhost:11434"
	ollamaClientTimeout = 120 * time.Second
)

// Ollama serves everything that is not a hosted model through the native
// /api/chat endpoint of a local Ollama instance.
type Ollama struct {
	baseURL string
	client  *http.Client
	model   string
}

func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	return &Ollama{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: ollamaClientTimeout},
		model:   model,
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ollamaFunction `json:"function"`
}

type ollamaFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		ToolCalls []struct {
			Function struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	PromptEvalCount int64 `json:"prompt_eval_count"`
	EvalCount       int64 `json:"eval_count"`
}

func (o *Ollama) Chat(ctx context.Context, system, user string, opts ...Option) (*Response, error) {
	options := &Options{Model: o.model}
	for _, opt := range opts {
		opt(options)
	}

	request := ollamaChatRequest{
		Model:  options.Model,
		Stream: false,
		Tools:  convertTools(options.Tools),
	}
	if system != "" {
		request.Messages = append(request.Messages, ollamaMessage{Role: "system", Content: system})
	}
	request.Messages = append(request.Messages, ollamaMessage{Role: "user", Content: user})
	if options.Temperature != 0 {
		request.Options = &ollamaOptions{Temperature: options.Temperature}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Calling ollama", "model", options.Model, "tools", len(request.Tools))

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama chat failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	response := &Response{
		Usage: Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		},
	}

	if len(out.Message.ToolCalls) > 0 {
		call := out.Message.ToolCalls[0].Function
		response.FunctionCall = &FunctionCall{
			Name:      call.Name,
			Arguments: string(call.Arguments),
		}
	} else {
		response.Content = out.Message.Content
	}

	return response, nil
}

// convertTools maps the openai-go tool declarations onto Ollama's wire
// format, which mirrors the same schema.
func convertTools(tools []openai.ChatCompletionToolParam) []ollamaTool {
	if len(tools) == 0 {
		return nil
	}
	converted := make([]ollamaTool, 0, len(tools))
	for _, tool := range tools {
		fn := tool.Function.Value
		converted = append(converted, ollamaTool{
			Type: "function",
			Function: ollamaFunction{
				Name:        fn.Name.Value,
				Description: fn.Description.Value,
				Parameters:  fn.Parameters.Value,
			},
		})
	}
	return converted
}
