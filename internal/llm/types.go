package llm

import (
	"context"

	"github.com/openai/openai-go"
)

type Provider interface {
	// Chat sends one completion round and returns either content or a
	// requested function call
	Chat(ctx context.Context, system, user string, opts ...Option) (*Response, error)
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	Tools       []openai.ChatCompletionToolParam
}

// FunctionCall is a tool invocation requested by the model. Arguments is
// the raw JSON object the model produced.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Response struct {
	Content      string
	FunctionCall *FunctionCall
	Usage        Usage
}
