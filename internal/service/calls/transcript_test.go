package calls

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/store"
)

type fakeTranscriptStore struct {
	record  call.Record
	hasRec  bool
	saved   bool
	sid     string
	text    string
	jsonDoc string
	pov     string
}

func (f *fakeTranscriptStore) GetCallBySid(ctx context.Context, sid string) (call.Record, error) {
	if !f.hasRec {
		return call.Record{}, store.ErrNotFound
	}
	return f.record, nil
}

func (f *fakeTranscriptStore) SaveTranscript(ctx context.Context, sid, transcript, transcriptJSON, povSummary string) error {
	f.saved = true
	f.sid = sid
	f.text = transcript
	f.jsonDoc = transcriptJSON
	f.pov = povSummary
	return nil
}

type fakeSessions struct {
	history []call.Turn
	cleared []string
}

func (f *fakeSessions) History(callSid string) []call.Turn { return f.history }
func (f *fakeSessions) Clear(callSid string) bool {
	f.cleared = append(f.cleared, callSid)
	return true
}

type fakeSummarizer struct {
	summary string
	calls   int
}

func (f *fakeSummarizer) SummarizeUserPOV(ctx context.Context, history []call.Turn) (string, error) {
	f.calls++
	return f.summary, nil
}

func TestRenderTranscriptFormatsTurns(t *testing.T) {
	at := time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)
	history := []call.Turn{
		{Role: call.RoleAssistant, Content: "Am I contacting Ali Khan?", Timestamp: at},
		{Role: call.RoleUser, Content: "yes speaking", Timestamp: at.Add(4 * time.Second)},
	}

	got := RenderTranscript(history)
	want := "[14:30:05] Assistant: Am I contacting Ali Khan?\n[14:30:09] User: yes speaking"
	if got != want {
		t.Fatalf("transcript mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestFinalizeSavesTranscriptAndSummary(t *testing.T) {
	st := &fakeTranscriptStore{hasRec: true}
	sessions := &fakeSessions{history: []call.Turn{
		{Role: call.RoleAssistant, Content: "Hello."},
		{Role: call.RoleUser, Content: "I want to sell my house."},
	}}
	sum := &fakeSummarizer{summary: "Caller wants to sell their house."}

	f := NewFinisher(st, sessions, sum)
	if err := f.Finalize(context.Background(), "CA1"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !st.saved || st.sid != "CA1" {
		t.Fatalf("transcript not saved: %+v", st)
	}
	if st.pov != "Caller wants to sell their house." {
		t.Fatalf("summary missing: %q", st.pov)
	}

	var turns []call.Turn
	if err := json.Unmarshal([]byte(st.jsonDoc), &turns); err != nil {
		t.Fatalf("transcript json invalid: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 structured turns, got %d", len(turns))
	}
	if len(sessions.cleared) != 1 || sessions.cleared[0] != "CA1" {
		t.Fatalf("session not cleared: %v", sessions.cleared)
	}
}

func TestFinalizeSkipsSummaryWhenUserNeverSpoke(t *testing.T) {
	st := &fakeTranscriptStore{hasRec: true}
	sessions := &fakeSessions{history: []call.Turn{
		{Role: call.RoleAssistant, Content: "Hello, am I speaking with Ali?"},
		{Role: call.RoleAssistant, Content: "Hello, are you there?"},
	}}
	sum := &fakeSummarizer{summary: "should not be used"}

	f := NewFinisher(st, sessions, sum)
	if err := f.Finalize(context.Background(), "CA2"); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if sum.calls != 0 {
		t.Fatalf("summarizer must not run for assistant-only calls")
	}
	if st.pov != "" {
		t.Fatalf("expected empty summary, got %q", st.pov)
	}
}

func TestFinalizeWithoutSessionUsesLegacyTranscript(t *testing.T) {
	st := &fakeTranscriptStore{
		hasRec: true,
		record: call.Record{Transcript: "User: hello\nAssistant: hi, how can I help?"},
	}
	sessions := &fakeSessions{}
	f := NewFinisher(st, sessions, &fakeSummarizer{summary: "Caller said hello."})

	if err := f.Finalize(context.Background(), "CA3"); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !st.saved {
		t.Fatalf("legacy transcript should still be structured and saved")
	}
	var turns []call.Turn
	if err := json.Unmarshal([]byte(st.jsonDoc), &turns); err != nil {
		t.Fatalf("transcript json invalid: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != call.RoleUser {
		t.Fatalf("legacy re-split wrong: %+v", turns)
	}
}

func TestFinalizeNoHistoryNoRecordIsNoop(t *testing.T) {
	st := &fakeTranscriptStore{}
	f := NewFinisher(st, &fakeSessions{}, nil)

	if err := f.Finalize(context.Background(), "CA4"); err != nil {
		t.Fatalf("finalize of unknown call should be silent: %v", err)
	}
	if st.saved {
		t.Fatalf("nothing should be saved without history or record")
	}
}

func TestParseLegacyTranscript(t *testing.T) {
	text := "Assistant: Am I contacting Ali Khan?\nUser: yes\nand it's urgent\nAssistant: Great."
	turns := parseLegacyTranscript(text)

	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d: %+v", len(turns), turns)
	}
	if turns[1].Content != "yes and it's urgent" {
		t.Fatalf("continuation line not merged: %q", turns[1].Content)
	}
}

func TestParseLegacyTranscriptUnlabeledOpenerIsAssistant(t *testing.T) {
	turns := parseLegacyTranscript("Hello, this is Sara.\nUser: hi")
	if len(turns) != 2 || turns[0].Role != call.RoleAssistant {
		t.Fatalf("unlabeled opener should be the agent: %+v", turns)
	}
}

func TestParseLegacyTranscriptStripsClockPrefix(t *testing.T) {
	turns := parseLegacyTranscript("[14:30:05] User: hello there")
	if len(turns) != 1 || turns[0].Role != call.RoleUser {
		t.Fatalf("clock prefix not handled: %+v", turns)
	}
	if strings.Contains(turns[0].Content, "14:30") {
		t.Fatalf("clock prefix leaked into content: %q", turns[0].Content)
	}
}
