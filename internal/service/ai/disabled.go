package ai

import (
	"context"
	"errors"

	"github.com/proptalk/backend/internal/model/call"
)

// ErrDisabled is returned by DisabledService for every request.
var ErrDisabled = errors.New("model credentials not configured")

// DisabledService stands in for Service when credentials are absent. The
// dialogue layer treats its errors like any transport failure and degrades
// to canned replies, so calls still connect.
type DisabledService struct{}

func (DisabledService) Generate(ctx context.Context, userInput, systemPrompt string, history []call.Turn) (string, error) {
	return "", &Error{Kind: FailureTransport, Err: ErrDisabled}
}

func (DisabledService) GenerateGreeting(ctx context.Context, greetingPrompt string) (string, error) {
	return "", &Error{Kind: FailureTransport, Err: ErrDisabled}
}

func (DisabledService) SummarizeUserPOV(ctx context.Context, history []call.Turn) (string, error) {
	return "", &Error{Kind: FailureTransport, Err: ErrDisabled}
}
