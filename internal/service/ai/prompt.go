package ai

import (
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/voicerelay/backend/internal/model/persona"
)

const (
	systemKey = "system"
	queryKey  = "query"
)

// newPromptTemplate pairs the persona instruction and the user text as two ordered roles.
func newPromptTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{"+systemKey+"}"),
		schema.UserMessage("{"+queryKey+"}"),
	)
}

func buildChainInput(p persona.Config, userText string) map[string]any {
	return map[string]any{
		systemKey: p.SystemPrompt,
		queryKey:  userText,
	}
}

// generationOptions carries the deployment-constant generation parameters.
func generationOptions(p persona.Config) compose.Option {
	return compose.WithChatModelOption(
		model.WithMaxTokens(p.MaxTokens),
		model.WithTemperature(p.Temperature),
	)
}
