package chatter

import (
	"github.com/openai/openai-go"
)

const searchToolName = "search_for_sample_info"

// toolSpecs declares the functions the model may call in a
// function-calling chat.
var toolSpecs = []openai.ChatCompletionToolParam{
	{
		Type: openai.F(openai.ChatCompletionToolTypeFunction),
		Function: openai.F(openai.FunctionDefinitionParam{
			Name: openai.String(searchToolName),
			Description: openai.String("Get the search results for a given search term in the context of a malware sample. " +
				"For example, a search term could be \"ttp\" for the tactics, techniques, and procedures used by the malware, " +
				"or \"url\" for URLs found in the malware. " +
				"Only use one search term at a time, for example \"domain\" or \"ttp\", never two terms in one operation like \"domain ttp\"."),
			Parameters: openai.F(openai.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"sample_id": map[string]string{
						"type":        "string",
						"description": "The internal identifier of the malware sample",
					},
					"search_term": map[string]string{
						"type":        "string",
						"description": "The term to search for in the context of the malware sample",
					},
				},
				"required": []string{"sample_id", "search_term"},
			}),
		}),
	},
}
