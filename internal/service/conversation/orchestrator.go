package conversation

import (
	"context"
	"log"
	"strings"

	"github.com/proptalk/backend/internal/model/agent"
	"github.com/proptalk/backend/internal/model/call"
	"github.com/proptalk/backend/internal/service/ai"
	"github.com/proptalk/backend/internal/service/directory"
)

// Generator is the slice of the model client the dialogue needs.
type Generator interface {
	Generate(ctx context.Context, userInput, systemPrompt string, history []call.Turn) (string, error)
	GenerateGreeting(ctx context.Context, greetingPrompt string) (string, error)
}

// ContextSource builds call context. Implemented by ai.ContextBuilder.
type ContextSource interface {
	BuildOutbound(ctx context.Context, voiceAgentID, tenantID, contactID string) ai.CallContext
	BuildInbound(ctx context.Context, voiceAgentID, tenantID, callerRaw, callerNormalized string) ai.CallContext
	QuickContactByPhone(ctx context.Context, tenantID, raw, normalized string) *ai.ContactInfo
	QuickTenant(ctx context.Context, tenantID string) ai.AgentInfo
}

// Resolver maps a telephony number to its active voice agent.
type Resolver interface {
	Resolve(ctx context.Context, from, to string, direction call.Direction) (agent.Binding, error)
}

// RecordKeeper is the slice of the call record service the webhook path
// touches from the background.
type RecordKeeper interface {
	EnsureInbound(ctx context.Context, callSid, from, to, voiceAgentID, tenantID string) error
	ContactIDForCall(ctx context.Context, callSid string) (string, error)
}

// TaskRunner schedules fire-and-forget work off the response path.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context))
}

// Input carries the telephony webhook fields the dialogue turn needs.
// ActionURL is this webhook's own URL, used for gather callbacks.
type Input struct {
	CallSid      string
	From         string
	To           string
	Direction    call.Direction
	SpeechResult string
	ActionURL    string
}

// Orchestrator drives one dialogue turn per webhook invocation. Every path
// returns valid voice XML; failures degrade to canned replies or a polite
// hangup, never an error page.
type Orchestrator struct {
	state    *State
	llm      Generator
	contexts ContextSource
	dir      Resolver
	records  RecordKeeper
	tasks    TaskRunner
}

func NewOrchestrator(state *State, llm Generator, contexts ContextSource, dir Resolver, records RecordKeeper, tasks TaskRunner) *Orchestrator {
	return &Orchestrator{state: state, llm: llm, contexts: contexts, dir: dir, records: records, tasks: tasks}
}

// HandleVoice processes one turn and returns the TwiML response body.
func (o *Orchestrator) HandleVoice(ctx context.Context, in Input) string {
	binding, err := o.dir.Resolve(ctx, in.From, in.To, in.Direction)
	if err != nil {
		log.Printf("[conversation] no active agent for call %s (from=%s to=%s): %v", in.CallSid, in.From, in.To, err)
		return AgentUnavailable()
	}

	speech := strings.TrimSpace(in.SpeechResult)
	if speech != "" {
		return o.continuationTurn(ctx, in, binding, speech)
	}

	if _, err := o.state.Get(in.CallSid); err == nil {
		// Gather timed out with no speech. Check in instead of re-greeting.
		return o.checkInTurn(in)
	}
	return o.greetingTurn(ctx, in, binding)
}

func (o *Orchestrator) greetingTurn(ctx context.Context, in Input, binding agent.Binding) string {
	isOutbound := in.Direction.IsOutbound()
	o.state.Create(in.CallSid, in.Direction, binding.VoiceAgentID, binding.RealEstateAgentID, "")

	// Minimal context for the first sentence. The full context lands in the
	// background; this one is never stored on the session.
	gcc := ai.CallContext{VoiceAgentName: binding.VoiceAgentName}
	gcc.Agent = o.contexts.QuickTenant(ctx, binding.RealEstateAgentID)
	if isOutbound {
		gcc.Contact = o.contexts.QuickContactByPhone(ctx, binding.RealEstateAgentID, in.To, directory.NormalizeNumber(in.To))
	}

	greeting, err := o.llm.GenerateGreeting(ctx, ai.BuildGreetingPrompt(gcc, in.Direction))
	if err != nil {
		log.Printf("[conversation] greeting generation failed for call %s: %v", in.CallSid, err)
		greeting = ai.FallbackGreeting(gcc, in.Direction)
	}

	if err := o.state.AppendTurn(in.CallSid, call.RoleAssistant, greeting); err != nil {
		log.Printf("[conversation] append greeting failed for call %s: %v", in.CallSid, err)
	}
	o.scheduleSetup(in, binding)
	return SpeakAndListen(greeting, in.ActionURL)
}

func (o *Orchestrator) continuationTurn(ctx context.Context, in Input, binding agent.Binding, speech string) string {
	isOutbound := in.Direction.IsOutbound()

	sess, err := o.state.Get(in.CallSid)
	if err != nil {
		// Session lost (restart or TTL). Rebuild a bare one and keep talking.
		sess = o.state.Create(in.CallSid, in.Direction, binding.VoiceAgentID, binding.RealEstateAgentID, "")
		o.scheduleSetup(in, binding)
	}

	history := o.state.History(in.CallSid)
	if err := o.state.AppendTurn(in.CallSid, call.RoleUser, speech); err != nil {
		log.Printf("[conversation] append user turn failed for call %s: %v", in.CallSid, err)
	}
	turnCount := countUserTurns(history) + 1

	systemPrompt := ai.BuildSystemPrompt(in.Direction, sess.Context)

	reply, err := o.llm.Generate(ctx, speech, systemPrompt, history)
	if err != nil {
		switch ai.KindOf(err) {
		case ai.FailureQuota:
			already := o.state.MarkQuotaNotified(in.CallSid)
			reply = QuotaReply(already, speech, turnCount, isOutbound)
			log.Printf("[conversation] model quota exhausted on call %s turn %d", in.CallSid, turnCount)
		default:
			reply = FallbackReply(speech, turnCount, isOutbound)
			log.Printf("[conversation] model reply failed on call %s turn %d: %v", in.CallSid, turnCount, err)
		}
		if appendErr := o.state.AppendTurn(in.CallSid, call.RoleAssistant, reply); appendErr != nil {
			log.Printf("[conversation] append fallback turn failed for call %s: %v", in.CallSid, appendErr)
		}
		return SpeakAndListen(reply, in.ActionURL)
	}

	if err := o.state.AppendTurn(in.CallSid, call.RoleAssistant, reply); err != nil {
		log.Printf("[conversation] append assistant turn failed for call %s: %v", in.CallSid, err)
	}

	if reason := Classify(speech, reply, isOutbound); reason.End() {
		log.Printf("[conversation] ending call %s (%s)", in.CallSid, reason)
		return SpeakAndHangup(reply)
	}
	return SpeakAndListen(reply, in.ActionURL)
}

func (o *Orchestrator) checkInTurn(in Input) string {
	reply := CheckInReply()
	if err := o.state.AppendTurn(in.CallSid, call.RoleAssistant, reply); err != nil {
		log.Printf("[conversation] append check-in failed for call %s: %v", in.CallSid, err)
	}
	return SpeakAndListen(reply, in.ActionURL)
}

// scheduleSetup runs the non-critical setup off the response path: the
// inbound call record and the full dialogue context. SetContext is
// idempotent, so scheduling on every early turn is safe.
func (o *Orchestrator) scheduleSetup(in Input, binding agent.Binding) {
	isOutbound := in.Direction.IsOutbound()
	o.tasks.Go("call-setup", func(ctx context.Context) {
		if !isOutbound {
			if err := o.records.EnsureInbound(ctx, in.CallSid, in.From, in.To, binding.VoiceAgentID, binding.RealEstateAgentID); err != nil {
				log.Printf("[conversation] inbound record for call %s: %v", in.CallSid, err)
			}
		}

		sess, err := o.state.Get(in.CallSid)
		if err != nil || !sess.Context.Empty() {
			return
		}

		var cc ai.CallContext
		if isOutbound {
			contactID, err := o.records.ContactIDForCall(ctx, in.CallSid)
			if err != nil || contactID == "" {
				log.Printf("[conversation] no contact on record for outbound call %s: %v", in.CallSid, err)
				return
			}
			cc = o.contexts.BuildOutbound(ctx, binding.VoiceAgentID, binding.RealEstateAgentID, contactID)
		} else {
			cc = o.contexts.BuildInbound(ctx, binding.VoiceAgentID, binding.RealEstateAgentID, in.From, directory.NormalizeNumber(in.From))
		}

		if o.state.SetContext(in.CallSid, cc) {
			log.Printf("[conversation] context ready for call %s (%d properties)", in.CallSid, cc.PropertyCount)
		}
	})
}
