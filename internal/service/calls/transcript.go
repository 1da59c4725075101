package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/store"
)

// Summarizer produces the short caller point-of-view summary.
type Summarizer interface {
	SummarizeUserPOV(ctx context.Context, history []call.Turn) (string, error)
}

// transcriptStore is the slice of the datastore the finisher writes to.
type transcriptStore interface {
	GetCallBySid(ctx context.Context, sid string) (call.Record, error)
	SaveTranscript(ctx context.Context, sid, transcript, transcriptJSON, povSummary string) error
}

// Sessions is the slice of the conversation state the finisher needs.
type Sessions interface {
	History(callSid string) []call.Turn
	Clear(callSid string) bool
}

// Finisher persists the conversation once a call reaches a terminal
// status, then drops the in-memory session.
type Finisher struct {
	store      transcriptStore
	sessions   Sessions
	summarizer Summarizer
}

func NewFinisher(st transcriptStore, sessions Sessions, summarizer Summarizer) *Finisher {
	return &Finisher{store: st, sessions: sessions, summarizer: summarizer}
}

// Finalize renders and saves the transcript for an ended call. The summary
// is only generated when the caller actually spoke; an unanswered call
// gets no fabricated summary. The session is cleared even if persistence
// fails, the call is over either way.
func (f *Finisher) Finalize(ctx context.Context, callSid string) error {
	defer f.sessions.Clear(callSid)

	history := f.sessions.History(callSid)
	if len(history) == 0 {
		// Session already expired or the process restarted mid-call. Try to
		// structure whatever legacy transcript text is on the record.
		rec, err := f.store.GetCallBySid(ctx, callSid)
		if err != nil || strings.TrimSpace(rec.Transcript) == "" {
			return nil
		}
		history = parseLegacyTranscript(rec.Transcript)
		if len(history) == 0 {
			return nil
		}
	}

	transcript := RenderTranscript(history)
	transcriptJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal transcript for call %s: %w", callSid, err)
	}

	povSummary := ""
	if hasUserTurn(history) && f.summarizer != nil {
		povSummary, err = f.summarizer.SummarizeUserPOV(ctx, history)
		if err != nil {
			log.Printf("[calls] pov summary failed for call %s: %v", callSid, err)
			povSummary = ""
		}
	}

	if err := f.store.SaveTranscript(ctx, callSid, transcript, string(transcriptJSON), povSummary); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCallNotFound
		}
		return fmt.Errorf("save transcript for call %s: %w", callSid, err)
	}
	log.Printf("[calls] saved transcript for call %s (%d turns)", callSid, len(history))
	return nil
}

// RenderTranscript formats the turn history as readable text, one line per
// utterance with a clock prefix.
func RenderTranscript(history []call.Turn) string {
	var sb strings.Builder
	for i, t := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		label := "Assistant"
		if t.Role == call.RoleUser {
			label = "User"
		}
		if !t.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "[%s] ", t.Timestamp.UTC().Format("15:04:05"))
		}
		fmt.Fprintf(&sb, "%s: %s", label, t.Content)
	}
	return sb.String()
}

// parseLegacyTranscript rebuilds a turn history from the old plain-text
// "User: ... / Assistant: ..." format. Unlabeled leading text is treated
// as the agent speaking, since the agent always opens the call.
func parseLegacyTranscript(text string) []call.Turn {
	var history []call.Turn
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Strip a clock prefix if present.
		if strings.HasPrefix(line, "[") {
			if end := strings.Index(line, "] "); end > 0 && end <= 10 {
				line = line[end+2:]
			}
		}
		switch {
		case strings.HasPrefix(line, "User:"):
			history = append(history, call.Turn{Role: call.RoleUser, Content: strings.TrimSpace(line[len("User:"):])})
		case strings.HasPrefix(line, "Assistant:"):
			history = append(history, call.Turn{Role: call.RoleAssistant, Content: strings.TrimSpace(line[len("Assistant:"):])})
		case len(history) > 0:
			// Continuation of the previous utterance.
			history[len(history)-1].Content += " " + line
		default:
			history = append(history, call.Turn{Role: call.RoleAssistant, Content: line})
		}
	}
	return history
}

func hasUserTurn(history []call.Turn) bool {
	for _, t := range history {
		if t.Role == call.RoleUser {
			return true
		}
	}
	return false
}
