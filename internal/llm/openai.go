package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI serves the hosted gpt-4o family through the official SDK.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(endpoint, apiKey, model string) *OpenAI {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(endpoint),
	)

	return &OpenAI{
		client: client,
		model:  model,
	}
}

func (o *OpenAI) Chat(ctx context.Context, system, user string, opts ...Option) (*Response, error) {
	options := &Options{Model: o.model}
	for _, opt := range opts {
		opt(options)
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:    openai.F(options.Model),
		Messages: openai.F(messages),
	}
	if len(options.Tools) > 0 {
		params.Tools = openai.F(options.Tools)
	}
	if options.Temperature != 0 {
		params.Temperature = openai.F(options.Temperature)
	}
	if options.MaxTokens != 0 {
		params.MaxTokens = openai.F(options.MaxTokens)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}

	response := &Response{
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if len(resp.Choices) > 0 && len(resp.Choices[0].Message.ToolCalls) > 0 {
		toolCall := resp.Choices[0].Message.ToolCalls[0]
		response.FunctionCall = &FunctionCall{
			Name:      toolCall.Function.Name,
			Arguments: toolCall.Function.Arguments,
		}
	} else if len(resp.Choices) > 0 {
		response.Content = resp.Choices[0].Message.Content
	}

	return response, nil
}
