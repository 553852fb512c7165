package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"botbase/pkg/models"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Responder generates assistant replies for chatbot conversations. It is
// optional: without an OPENAI_API_KEY the platform still logs conversations,
// it just never answers.
type Responder struct {
	client *openai.Client
	memory *Memory
}

// NewResponderFromEnv builds a responder from OPENAI_API_KEY, or returns nil
// when the key is not configured
func NewResponderFromEnv(memory *Memory) *Responder {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Info().Msg("OPENAI_API_KEY not set, AI responder disabled")
		return nil
	}
	return &Responder{
		client: openai.NewClient(apiKey),
		memory: memory,
	}
}

// historyWindow is how many recent turns are replayed to the model
const historyWindow = 20

// Reply generates an assistant reply for the latest user message. Recent
// conversation turns are replayed verbatim; older context comes from semantic
// memory when configured. The returned metadata records the model and latency.
func (r *Responder) Reply(ctx context.Context, chatbot *models.Chatbot, conv *models.Conversation, history []models.Message, userMessage string) (string, *models.MessageMetadata, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.systemPrompt(chatbot),
		},
	}

	if r.memory != nil {
		recalled, err := r.memory.SearchTurns(ctx, conv.OrganizationID.String(), conv.ID.String(), userMessage, 3)
		if err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Semantic memory search failed")
		} else if len(recalled) > 0 {
			recall := "Relevant earlier exchanges from this user:\n"
			for _, turn := range recalled {
				recall += fmt.Sprintf("- User: %s\n  Assistant: %s\n", turn.UserMessage, turn.AssistantReply)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: recall,
			})
		}
	}

	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, m := range history[start:] {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	model := chatbot.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	startedAt := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("no reply generated")
	}

	metadata := &models.MessageMetadata{
		Model:          resp.Model,
		ResponseTimeMs: time.Since(startedAt).Milliseconds(),
	}

	return resp.Choices[0].Message.Content, metadata, nil
}

func (r *Responder) systemPrompt(chatbot *models.Chatbot) string {
	if chatbot.SystemPrompt != "" {
		return chatbot.SystemPrompt
	}
	return fmt.Sprintf("You are %s, a helpful assistant. Answer concisely and stay on topic.", chatbot.Name)
}

// Remember stores a completed user/assistant turn in semantic memory.
// Best-effort: failures are logged, never surfaced.
func (r *Responder) Remember(ctx context.Context, conv *models.Conversation, userMessage, assistantReply string) {
	if r.memory == nil {
		return
	}
	err := r.memory.StoreTurn(ctx, conv.OrganizationID.String(), conv.ID.String(), Turn{
		UserMessage:    userMessage,
		AssistantReply: assistantReply,
		Timestamp:      time.Now(),
	})
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID.String()).Msg("Failed to store conversation turn in memory")
	}
}
