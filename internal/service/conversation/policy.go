package conversation

import "strings"

// EndReason tags why the policy decided to hang up, so the decision stays
// auditable per category.
type EndReason string

const (
	ReasonNone               EndReason = ""
	ReasonWrongPerson        EndReason = "wrong_person"
	ReasonNotInterested      EndReason = "not_interested"
	ReasonNoFurtherQuestions EndReason = "no_further_questions"
	ReasonClosingLanguage    EndReason = "closing_language"
)

// End reports whether the reason terminates the call.
func (r EndReason) End() bool { return r != ReasonNone }

var wrongPersonPhrases = []string{
	"wrong person", "wrong number", "not me", "that's not me", "thats not me",
	"this is not", "you have the wrong",
}

// notInterestedPhrases is a separate category from wrongPersonPhrases: the
// person is who we called, they just do not want to sell. The closing line
// differs and is chosen by the model, not here.
var notInterestedPhrases = []string{
	"not interested", "no interest", "don't want to sell", "dont want to sell",
	"not selling", "no plans to sell", "don't want sell",
}

var noQuestionsPhrases = []string{
	"no questions", "no other questions", "no more questions", "no further questions",
	"that's all", "thats all", "that is all", "i'm all set", "im all set", "all set",
	"nothing else", "i'm good", "im good", "goodbye", "bye bye",
}

// closingPhrases are signals in the model's own reply. Two distinct matches
// mean the model is wrapping up.
var closingPhrases = []string{
	"sorry for the inconvenience", "apologize for the inconvenience",
	"sorry to bother you", "have a great day", "have a good day",
	"have a wonderful day", "goodbye", "thank you for your time",
	"thanks for calling", "thank you for calling", "feel free to contact us",
	"feel free to call back",
}

// Classify decides whether the call should end after this exchange. Rules
// run in order against the user's utterance, then against the model reply.
// A bare "no" on an outbound call is treated as wrong-person even though it
// could mean "no, not interested"; that matches the reference behavior and
// is a known ambiguity.
func Classify(userText, modelText string, isOutbound bool) EndReason {
	user := strings.ToLower(strings.TrimSpace(userText))

	if isOutbound {
		if user == "no" || user == "no." {
			return ReasonWrongPerson
		}
		if containsAny(user, wrongPersonPhrases) {
			return ReasonWrongPerson
		}
		if containsAny(user, notInterestedPhrases) {
			return ReasonNotInterested
		}
	}

	if containsAny(user, noQuestionsPhrases) {
		return ReasonNoFurtherQuestions
	}

	model := strings.ToLower(modelText)
	if countMatches(model, closingPhrases) >= 2 {
		return ReasonClosingLanguage
	}

	return ReasonNone
}

// ShouldEndCall is the boolean view of Classify.
func ShouldEndCall(userText, modelText string, isOutbound bool) bool {
	return Classify(userText, modelText, isOutbound).End()
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func countMatches(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}
