package conversation

import (
	"log"

	"github.com/twilio/twilio-go/twiml"
)

// Voice rendering shared by every reply. Polly voices keep the agent
// consistent across turns.
const (
	speechVoice    = "Polly.Joanna"
	speechLanguage = "en-US"
	gatherTimeout  = "5"
)

// SpeakAndListen renders a spoken reply followed by a speech gather that
// posts the next utterance back to the same webhook. A trailing redirect
// re-enters the webhook when the gather times out with no speech, which
// produces the silence check-in turn instead of a dropped call.
func SpeakAndListen(message, actionURL string) string {
	say := &twiml.VoiceSay{Message: message, Voice: speechVoice, Language: speechLanguage}
	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        actionURL,
		Method:        "POST",
		SpeechTimeout: "auto",
		Timeout:       gatherTimeout,
		Language:      speechLanguage,
		InnerElements: []twiml.Element{},
	}
	redirect := &twiml.VoiceRedirect{Url: actionURL, Method: "POST"}
	return render(say, gather, redirect)
}

// SpeakAndHangup renders a final spoken reply and ends the call.
func SpeakAndHangup(message string) string {
	say := &twiml.VoiceSay{Message: message, Voice: speechVoice, Language: speechLanguage}
	return render(say, &twiml.VoiceHangup{})
}

// AgentUnavailable is the reply when no active voice agent is bound to the
// dialed number.
func AgentUnavailable() string {
	return SpeakAndHangup("I'm sorry, this number is not available right now. Please try again later. Goodbye.")
}

// SafetyHangup is the minimal response used when rendering itself fails or
// the handler recovers from a panic. It must never fail to produce XML.
func SafetyHangup() string {
	out, err := twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: "I'm sorry, something went wrong. Please call back later. Goodbye."},
		&twiml.VoiceHangup{},
	})
	if err != nil {
		// Hand-rolled last resort, kept literal so it cannot break.
		return `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Goodbye.</Say><Hangup/></Response>`
	}
	return out
}

func render(elements ...twiml.Element) string {
	out, err := twiml.Voice(elements)
	if err != nil {
		log.Printf("[conversation] twiml render failed: %v", err)
		return SafetyHangup()
	}
	return out
}
