package conversation

import "strings"

// quotaMessage is spoken at most once per call when the model provider
// rejects us for quota. After that the generic fallbacks take over.
const quotaMessage = "I apologize, we're experiencing high call volume right now. Let me have someone call you back shortly. Thank you for your patience."

// FallbackReply picks a canned, natural-sounding reply when the model
// cannot answer in time. The choice keys off what the caller just said and
// how deep into the call we are, so consecutive fallbacks do not repeat.
func FallbackReply(userText string, turnCount int, isOutbound bool) string {
	lower := strings.ToLower(userText)

	switch {
	case containsAny(lower, []string{"price", "cost", "offer", "how much", "worth"}):
		return "That's a great question about pricing. The acquisition manager will prepare a detailed cash offer and follow up with you. Is there anything else about the property I can help with?"
	case containsAny(lower, []string{"condition", "repair", "fix", "damage", "renovat"}):
		return "Thanks for sharing that about the condition. Could you tell me a bit more about any repairs the property might need?"
	case containsAny(lower, []string{"sell", "selling", "interested"}):
		if isOutbound {
			return "That's helpful to know. Could you tell me a little about your timeline for selling?"
		}
		return "Great, I'd be happy to help with that. What kind of property are you looking for?"
	case containsAny(lower, []string{"yes", "yeah", "correct", "right", "sure"}):
		return "Perfect, thank you for confirming. Could you tell me a bit more about the property's current condition?"
	}

	if isOutbound {
		switch {
		case turnCount <= 1:
			return "Thank you. I'm calling about your property. Could you tell me a little about its current condition?"
		case turnCount <= 3:
			return "I see, thank you. And are you open to receiving a cash offer for the property?"
		default:
			return "Thank you for that. Do you have any other questions? You're free to ask."
		}
	}

	switch {
	case turnCount <= 1:
		return "Thanks for calling. Are you looking to buy a property, or do you have questions about one of our listings?"
	case turnCount <= 3:
		return "I can help with that. Which area or price range are you interested in?"
	default:
		return "Is there anything else about our properties I can help you with?"
	}
}

// CheckInReply is spoken when the caller stays silent on a gather.
func CheckInReply() string {
	return "Hello, are you there?"
}

// QuotaReply returns the quota apology the first time and the generic
// fallback after that.
func QuotaReply(alreadySaid bool, userText string, turnCount int, isOutbound bool) string {
	if !alreadySaid {
		return quotaMessage
	}
	return FallbackReply(userText, turnCount, isOutbound)
}
