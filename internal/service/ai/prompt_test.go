package ai

import (
	"strings"
	"testing"

	"github.com/proptalk/backend/internal/model/call"
)

func TestGreetingPromptForcesContactVerification(t *testing.T) {
	cc := CallContext{
		VoiceAgentName: "Sara",
		Agent:          AgentInfo{Name: "Usman Tariq", CompanyName: "Tariq Estates"},
		Contact:        &ContactInfo{Name: "Ali Khan", PhoneNumber: "+923001234567"},
	}

	prompt := BuildGreetingPrompt(cc, call.DirectionOutbound)
	if !strings.Contains(prompt, "Am I contacting Ali Khan?") {
		t.Fatalf("greeting prompt must force the verification question, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "property owner") {
		t.Fatalf("named contact greeting must not mention property owner")
	}
}

func TestGreetingPromptWithoutContactFallsBackToOwner(t *testing.T) {
	cc := CallContext{VoiceAgentName: "Sara", Agent: AgentInfo{Name: "Usman Tariq"}}

	prompt := BuildGreetingPrompt(cc, call.DirectionOutbound)
	if !strings.Contains(prompt, "property owner") {
		t.Fatalf("expected generic owner greeting, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "Am I contacting ?") {
		t.Fatalf("empty contact name leaked into the prompt")
	}
}

func TestGreetingPromptInboundMentionsAgent(t *testing.T) {
	cc := CallContext{
		VoiceAgentName: "Sara",
		Agent:          AgentInfo{Name: "Usman Tariq", CompanyName: "Tariq Estates"},
		PropertyCount:  4,
	}

	prompt := BuildGreetingPrompt(cc, call.DirectionInbound)
	if !strings.Contains(prompt, "Usman Tariq") {
		t.Fatalf("inbound greeting prompt should name the agent, got:\n%s", prompt)
	}
}

func TestFallbackGreetingKeepsVerificationQuestion(t *testing.T) {
	cc := CallContext{
		VoiceAgentName: "Sara",
		Contact:        &ContactInfo{Name: "Ali Khan"},
	}

	got := FallbackGreeting(cc, call.DirectionOutbound)
	if !strings.Contains(got, "Am I contacting Ali Khan?") {
		t.Fatalf("fallback greeting lost the verification question: %q", got)
	}

	got = FallbackGreeting(CallContext{VoiceAgentName: "Sara"}, call.DirectionOutbound)
	if !strings.Contains(got, "property owner") {
		t.Fatalf("nameless fallback should ask for the property owner: %q", got)
	}
}

func TestSystemPromptFallsBackWhenContextMissing(t *testing.T) {
	if got := BuildSystemPrompt(call.DirectionOutbound, CallContext{}); got != fallbackSystemPrompt {
		t.Fatalf("empty context should produce the generic prompt")
	}
	errored := CallContext{VoiceAgentName: "Sara", Err: "contact lookup failed"}
	if got := BuildSystemPrompt(call.DirectionOutbound, errored); got != fallbackSystemPrompt {
		t.Fatalf("errored context should produce the generic prompt")
	}
}

func TestOutboundSystemPromptInjectsContext(t *testing.T) {
	cc := CallContext{
		VoiceAgentName: "Sara",
		Agent:          AgentInfo{Name: "Usman Tariq", CompanyName: "Tariq Estates", Address: "12-A Gulberg/Lahore"},
		Contact:        &ContactInfo{Name: "Ali Khan", PhoneNumber: "+923001234567"},
		PropertyCount:  1,
		PropertiesText: "Property 1:\n- Address: 12 Canal Road, Lahore",
	}

	prompt := BuildSystemPrompt(call.DirectionOutbound, cc)
	for _, want := range []string{"Ali Khan", "Sara", "Usman Tariq", "12 Canal Road", "OUTBOUND"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("outbound prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{contact_name}") {
		t.Fatalf("unreplaced template slot left in prompt")
	}
	if strings.Contains(prompt, "Gulberg/Lahore") {
		t.Fatalf("address should be rewritten for speech, got slash form")
	}
}

func TestInboundSystemPromptListsPortfolio(t *testing.T) {
	cc := CallContext{
		VoiceAgentName:    "Sara",
		Agent:             AgentInfo{Name: "Usman Tariq", CompanyName: "Tariq Estates"},
		PropertyCount:     2,
		PropertiesSummary: "1. 12 Canal Road, Lahore - $150,000\n2. 7 Mall Road, Lahore - $90,000",
		CallerContact:     &ContactInfo{Name: "Hina"},
	}

	prompt := BuildSystemPrompt(call.DirectionInbound, cc)
	for _, want := range []string{"INBOUND", "Canal Road", "Tariq Estates", "Hina"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("inbound prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{total_properties}") {
		t.Fatalf("unreplaced template slot left in prompt")
	}
}
