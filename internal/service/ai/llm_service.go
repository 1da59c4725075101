package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/proptalk/backend/internal/config"
	"github.com/proptalk/backend/internal/model/call"
)

// FailureKind classifies why a model call failed, so the webhook path can
// pick the right fallback.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureTimeout
	FailureQuota
	FailureMalformed
)

// Error wraps a model failure with its kind.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case FailureTimeout:
		return fmt.Sprintf("llm timeout: %v", e.Err)
	case FailureQuota:
		return fmt.Sprintf("llm quota exceeded: %v", e.Err)
	case FailureMalformed:
		return fmt.Sprintf("llm malformed response: %v", e.Err)
	default:
		return fmt.Sprintf("llm transport error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error returned by this package,
// defaulting to transport.
func KindOf(err error) FailureKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return FailureTransport
}

// Service is the bounded-timeout client for the Gemini chat model.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the chat model from configuration and compiles the
// dialogue chain once.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg)
}

// NewServiceWithModel wires the service over an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, cfg: cfg, chain: runnable}, nil
}

// Generate runs one dialogue turn under the reply budget. History is
// filtered to user/assistant roles; the system prompt travels separately as
// the instruction message.
func (s *Service) Generate(ctx context.Context, userInput, systemPrompt string, history []call.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReplyTimeout)
	defer cancel()

	input := map[string]any{
		"system":  systemPrompt,
		"history": historyMessages(history),
		"query":   userInput,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", classify(ctx, err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", &Error{Kind: FailureMalformed, Err: errors.New("empty candidate text")}
	}

	log.Printf("[llm] generated reply (%d chars, %d history turns)", len(text), len(history))
	return text, nil
}

// GenerateGreeting produces the first utterance of a call. It runs under
// the shorter greeting budget with a small token cap: the caller hears
// silence until this returns.
func (s *Service) GenerateGreeting(ctx context.Context, greetingPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GreetingTimeout)
	defer cancel()

	// When the prompt carries a contact name, lean on it one more time;
	// the model otherwise likes to fall back to "property owner".
	enhanced := greetingPrompt
	lower := strings.ToLower(greetingPrompt)
	if strings.Contains(lower, "contacting") && !strings.Contains(lower, "property owner") {
		enhanced += "\n\nREMEMBER: You MUST use the contact's actual name in your response. DO NOT say 'property owner'."
	}

	messages := []*schema.Message{
		schema.SystemMessage(enhanced),
		schema.UserMessage("Generate the greeting now. Use the contact's name if provided."),
	}

	response, err := s.chatModel.Generate(ctx, messages, model.WithMaxTokens(100))
	if err != nil {
		return "", classify(ctx, err)
	}

	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", &Error{Kind: FailureMalformed, Err: errors.New("empty candidate text")}
	}
	return text, nil
}

// SummarizeUserPOV asks for a two-sentence summary of what the user wanted.
// Runs off the webhook path, so it gets a generous budget.
func (s *Service) SummarizeUserPOV(ctx context.Context, history []call.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SummaryTimeout)
	defer cancel()

	var b strings.Builder
	for _, t := range history {
		switch t.Role {
		case call.RoleUser:
			b.WriteString("User: ")
		case call.RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}

	messages := []*schema.Message{
		schema.SystemMessage("You summarize phone call transcripts. Respond with at most 2 sentences " +
			"describing the call strictly from the user's point of view: what they wanted, confirmed or declined. " +
			"Do not invent anything that is not in the transcript."),
		schema.UserMessage(b.String()),
	}

	response, err := s.chatModel.Generate(ctx, messages, model.WithMaxTokens(120))
	if err != nil {
		return "", classify(ctx, err)
	}
	return strings.TrimSpace(response.Content), nil
}

func historyMessages(history []call.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case call.RoleUser:
			messages = append(messages, schema.UserMessage(t.Content))
		case call.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(t.Content, nil))
		}
	}
	return messages
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: FailureTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "rate limit") {
		return &Error{Kind: FailureQuota, Err: err}
	}

	return &Error{Kind: FailureTransport, Err: err}
}
