package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAI completes through the chat-completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI completer. The SDK's built-in retries are
// disabled.
func NewOpenAI(opts Options) *OpenAI {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
	}
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	for _, m := range messages {
		if m.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		} else {
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.model),
		Messages: msgs,
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	res, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: openai completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("llm: openai returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}
