// Package llm wraps the OpenAI-compatible chat endpoint used for planning
// and research synthesis.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/finsightai/finsight/config"
)

// NewChatModel builds the shared chat model from config.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	maxTokens := 8192
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.LLMBaseURL,
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return chatModel, nil
}

// Complete runs one system+user exchange and returns the assistant text.
func Complete(ctx context.Context, m model.BaseChatModel, system, user string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
	resp, err := m.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || resp.Content == "" {
		return "", fmt.Errorf("chat completion returned empty response")
	}
	return resp.Content, nil
}
