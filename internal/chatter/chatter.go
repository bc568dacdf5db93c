package chatter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amplec/amplec-core/api/models"
	"github.com/amplec/amplec-core/internal/config"
	"github.com/amplec/amplec-core/internal/karton"
	"github.com/amplec/amplec-core/internal/llm"
)

const (
	maxSteps      = 5
	maxToolOutput = 5000

	noInfoSentence = "For the given search term, there was no information available, please say so to the user and dont hallucinate!"
)

// ErrAPIKeyRequired marks a hosted-model request that carries no API key.
var ErrAPIKeyRequired = errors.New("an API key is required for OpenAI hosted models")

var systemPrompt = `You are an AI agent helping a malware analyst investigate sandbox submissions.
You have access to a function (tool) that searches the preprocessed artifacts of a malware sample.
Your goal is to answer the user's question by possibly calling the function to gather context,
and then provide a final, well-reasoned answer.
When you need more information about the sample, call the function instead of making assumptions.
Only use one search term at a time, for example "domain" or "ttp", never two terms in one call.
After you've gathered enough information, provide a concise final answer to the user.

!!!IMPORTANT NOTE!!!: Do not repeat function calls with the same arguments if the results are already known.
If you attempt to call a function with the same arguments again, you will receive no new data.
Thus, do not waste steps by repeating the same call. If no new information is available, proceed to final answer.`

// openAIModels lists the hosted models dispatched to the OpenAI API
// instead of the local Ollama instance.
var openAIModels = map[string]bool{
	"gpt-4o":      true,
	"gpt-4o-mini": true,
}

// Searcher runs the artifact search the model can call as a tool.
type Searcher interface {
	Search(ctx context.Context, submissionID, pattern string, useRegex, reprocess bool) ([]string, error)
}

// Chatter fronts chat requests against either Ollama or the OpenAI API and
// drives the function-calling agent loop.
type Chatter struct {
	cfg      *config.Config
	searcher Searcher

	// newProvider is swapped out in tests
	newProvider func(model, apiKey string) llm.Provider
}

func New(cfg *config.Config, searcher Searcher) *Chatter {
	c := &Chatter{cfg: cfg, searcher: searcher}
	c.newProvider = c.buildProvider
	return c
}

func (c *Chatter) buildProvider(model, apiKey string) llm.Provider {
	if openAIModels[model] {
		return llm.NewOpenAI(c.cfg.OpenAI.APIEndpoint, apiKey, model)
	}
	return llm.NewOllama(c.cfg.Ollama.URL, model)
}

type stepData struct {
	step      int
	name      string
	arguments json.RawMessage
	output    string
	findings  string
}

type searchArgs struct {
	SampleID   string `json:"sample_id"`
	SearchTerm string `json:"search_term"`
}

// Chat answers one chat request. Hosted models require an API key, either
// from the request or the configured fallback.
func (c *Chatter) Chat(ctx context.Context, req models.ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Chat.DefaultModel
	}

	userMessage := req.UserMessage
	var apiKey string
	if openAIModels[model] {
		apiKey = req.APIKey
		if apiKey == "" {
			apiKey = c.cfg.OpenAI.APIKey
		}
		if apiKey == "" {
			return "", fmt.Errorf("%w: model %s is served by the OpenAI API", ErrAPIKeyRequired, model)
		}
		if req.SubmissionID != "" {
			// the hosted models tend to drop the id unless it is part of the prompt
			userMessage = userMessage + " " + req.SubmissionID
		}
	}

	provider := c.newProvider(model, apiKey)
	baseOpts := baseOptions(model)
	slog.Info("Starting chat", "model", model, "function_calling", req.FunctionCalling)

	if !req.FunctionCalling {
		resp, err := provider.Chat(ctx, req.SystemMessage, userMessage, baseOpts...)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		logUsage(resp.Usage)
		if resp.Content == "" {
			slog.Error("No content in the model response")
			return "", fmt.Errorf("no content in model response")
		}
		return resp.Content, nil
	}

	return c.runAgent(ctx, provider, req, userMessage, baseOpts)
}

func baseOptions(model string) []llm.Option {
	if openAIModels[model] {
		return nil
	}
	return []llm.Option{func(o *llm.Options) { o.Temperature = 0.1 }}
}

func (c *Chatter) runAgent(ctx context.Context, provider llm.Provider, req models.ChatRequest, userMessage string, baseOpts []llm.Option) (string, error) {
	gathered := []stepData{}
	steps := 0

	for steps < maxSteps {
		system := agentSystemContent(req.SystemMessage, steps, gathered)
		opts := append([]llm.Option{}, baseOpts...)
		opts = append(opts, func(o *llm.Options) { o.Tools = toolSpecs })

		resp, err := provider.Chat(ctx, system, userMessage, opts...)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		logUsage(resp.Usage)

		if resp.FunctionCall == nil {
			if steps == 0 {
				slog.Error("No tools were called in a function-calling chat", "content", resp.Content)
			}
			if resp.Content == "" {
				return "", fmt.Errorf("no content in model response")
			}
			return resp.Content, nil
		}

		call := resp.FunctionCall
		arguments := json.RawMessage(call.Arguments)
		slog.Info("Executing tool call", "function", call.Name, "arguments", call.Arguments)

		if previous := findRepeatedCall(gathered, call.Name, arguments); previous != nil {
			gathered = append(gathered, stepData{
				step:      steps + 1,
				name:      call.Name,
				arguments: arguments,
				output:    previous.output,
				findings: fmt.Sprintf("Step %d: %s called again with same arguments, reusing results from step %d",
					steps+1, call.Name, previous.step),
			})
			steps++
			continue
		}

		output, err := c.executeTool(ctx, req, call.Name, arguments)
		if err != nil {
			if errors.Is(err, karton.ErrUnreachable) {
				gathered = append(gathered, stepData{
					step:      steps + 1,
					name:      call.Name,
					arguments: arguments,
					output:    "Failed to reach the Karton result API after multiple attempts.",
					findings:  "Karton unreachable after multiple attempts.",
				})
				steps++
				return c.explainKartonFailure(ctx, provider, userMessage, gathered, baseOpts)
			}
			return "", err
		}

		gathered = append(gathered, stepData{
			step:      steps + 1,
			name:      call.Name,
			arguments: arguments,
			output:    output,
			findings:  fmt.Sprintf("Step %d: %s returned %s", steps+1, call.Name, output),
		})
		steps++
	}

	return c.finalSummary(ctx, provider, userMessage, gathered, baseOpts)
}

// executeTool runs one tool call. Pipeline errors become tool output so
// the model can relay them; only an unreachable Karton aborts the loop.
func (c *Chatter) executeTool(ctx context.Context, req models.ChatRequest, name string, arguments json.RawMessage) (string, error) {
	if name != searchToolName {
		return "", fmt.Errorf("model requested unknown function %q", name)
	}

	var args searchArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "An error occurred: invalid arguments: " + err.Error(), nil
	}

	sampleID := args.SampleID
	if req.SubmissionID != "" {
		sampleID = req.SubmissionID
		slog.Info("Overriding sample ID from the request", "sample_id", sampleID)
	}
	slog.Info("Searching for sample info", "sample_id", sampleID, "search_term", args.SearchTerm)

	sentences, err := c.searcher.Search(ctx, sampleID, args.SearchTerm, false, req.Reprocess)
	if err != nil {
		if errors.Is(err, karton.ErrUnreachable) {
			return "", err
		}
		return "An error occurred: " + err.Error(), nil
	}

	if len(sentences) == 0 && strings.Contains(args.SearchTerm, " ") {
		slog.Warn("Multiple search terms detected, searching for each term separately")
		for _, term := range strings.Split(args.SearchTerm, " ") {
			more, err := c.searcher.Search(ctx, sampleID, term, false, req.Reprocess)
			if err != nil {
				if errors.Is(err, karton.ErrUnreachable) {
					return "", err
				}
				return "An error occurred: " + err.Error(), nil
			}
			sentences = append(sentences, more...)
		}
	}

	if len(sentences) == 0 {
		sentences = []string{noInfoSentence}
	}

	return truncate(strings.Join(sentences, "\n")+"\n", maxToolOutput), nil
}

func (c *Chatter) finalSummary(ctx context.Context, provider llm.Provider, userMessage string, gathered []stepData, baseOpts []llm.Option) (string, error) {
	system := fmt.Sprintf(`You have reached the maximum steps (%d). Please provide a final summary.
Original question: %s

Previous findings:
%s

In your summary provide a truthful and concise final answer that reflects all the data discovered.`,
		maxSteps, userMessage, summarizeFindings(gathered))

	resp, err := provider.Chat(ctx, system, "", baseOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate final summary: %w", err)
	}
	logUsage(resp.Usage)
	if resp.Content == "" {
		return "", fmt.Errorf("no content in model response")
	}
	return truncate(resp.Content, maxToolOutput), nil
}

func (c *Chatter) explainKartonFailure(ctx context.Context, provider llm.Provider, userMessage string, gathered []stepData, baseOpts []llm.Option) (string, error) {
	slog.Info("Generating karton failure explanation")

	system := fmt.Sprintf(`You attempted to search the sample artifacts but the Karton result API could not be reached.
Now provide a concise, friendly message to the user explaining that you cannot reach the analysis backend
and thus cannot complete their request. Apologize briefly and ask them to try again later.

Original question: %s

Previous findings:
%s
`, userMessage, summarizeFindings(gathered))

	resp, err := provider.Chat(ctx, system, "", baseOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate karton failure explanation: %w", err)
	}
	logUsage(resp.Usage)
	if resp.Content == "" {
		return "", fmt.Errorf("no content in model response")
	}
	return truncate(resp.Content, maxToolOutput), nil
}

func agentSystemContent(systemMessage string, steps int, gathered []stepData) string {
	prompt := systemPrompt
	if systemMessage != "" {
		prompt = systemMessage + "\n\n" + prompt
	}
	return fmt.Sprintf("%s\n\nCurrent step: %d/%d\nPrevious findings:\n%s\n\n%s",
		prompt, steps+1, maxSteps, summarizeFindings(gathered), historyReminder(gathered))
}

func summarizeFindings(gathered []stepData) string {
	if len(gathered) == 0 {
		return "No previous findings."
	}
	summary := ""
	for _, step := range gathered {
		summary += fmt.Sprintf("Step %d:\n  Function: %s\n  Arguments: %s\n  Output: %s\n  Findings: %s\n\n",
			step.step, step.name, string(step.arguments), step.output, step.findings)
	}
	return summary
}

func historyReminder(gathered []stepData) string {
	if len(gathered) == 0 {
		return "No previous function calls have been made."
	}
	reminder := "Previously called functions (do not repeat these exact calls):\n"
	seen := make(map[string]bool)
	for _, step := range gathered {
		key := step.name + string(step.arguments)
		if !seen[key] {
			reminder += fmt.Sprintf("- Function: %s Arguments: %s\n", step.name, string(step.arguments))
			seen[key] = true
		}
	}
	return reminder
}

func findRepeatedCall(gathered []stepData, name string, arguments json.RawMessage) *stepData {
	for i := range gathered {
		if gathered[i].name == name && jsonEqual(gathered[i].arguments, arguments) {
			return &gathered[i]
		}
	}
	return nil
}

func jsonEqual(a, b json.RawMessage) bool {
	var ja, jb interface{}
	_ = json.Unmarshal(a, &ja)
	_ = json.Unmarshal(b, &jb)
	return fmt.Sprintf("%v", ja) == fmt.Sprintf("%v", jb)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "\n[truncated]"
	}
	return s
}

func logUsage(usage llm.Usage) {
	slog.Info("Token usage", "prompt", usage.PromptTokens, "completion", usage.CompletionTokens, "total", usage.TotalTokens)
}
