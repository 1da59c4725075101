package conversation

import "testing"

func TestClassifyBareNoOutboundIsWrongPerson(t *testing.T) {
	if got := Classify("no.", "Okay, let me check.", true); got != ReasonWrongPerson {
		t.Fatalf("expected wrong_person for bare no on outbound, got %q", got)
	}
	if got := Classify("No", "Okay.", true); got != ReasonWrongPerson {
		t.Fatalf("expected wrong_person regardless of case, got %q", got)
	}
}

func TestClassifyBareNoInboundContinues(t *testing.T) {
	if got := Classify("no.", "Alright, what area are you interested in?", false); got != ReasonNone {
		t.Fatalf("bare no on inbound should not end the call, got %q", got)
	}
}

func TestClassifyWrongPersonPhrase(t *testing.T) {
	if got := Classify("I think you have the wrong number", "I apologize.", true); got != ReasonWrongPerson {
		t.Fatalf("expected wrong_person, got %q", got)
	}
}

func TestClassifyNotInterestedIsSeparateFromWrongPerson(t *testing.T) {
	got := Classify("I'm not interested in selling right now", "I understand.", true)
	if got != ReasonNotInterested {
		t.Fatalf("expected not_interested, got %q", got)
	}
}

func TestClassifyNotInterestedIgnoredOnInbound(t *testing.T) {
	if got := Classify("not interested in that one", "How about another listing?", false); got != ReasonNone {
		t.Fatalf("not-interested should only end outbound calls, got %q", got)
	}
}

func TestClassifyNoFurtherQuestionsEitherDirection(t *testing.T) {
	if got := Classify("no more questions, thanks", "Great talking to you.", true); got != ReasonNoFurtherQuestions {
		t.Fatalf("expected no_further_questions on outbound, got %q", got)
	}
	if got := Classify("that's all I needed", "Happy to help.", false); got != ReasonNoFurtherQuestions {
		t.Fatalf("expected no_further_questions on inbound, got %q", got)
	}
}

func TestClassifyTwoClosingPhrasesInModelReply(t *testing.T) {
	reply := "I apologize for the inconvenience. I must have the wrong number. Have a good day."
	if got := Classify("hmm", reply, true); got != ReasonClosingLanguage {
		t.Fatalf("expected closing_language for two closing phrases, got %q", got)
	}
}

func TestClassifySingleClosingPhraseContinues(t *testing.T) {
	reply := "Thank you for your time. Now, about the property condition, any repairs needed?"
	if got := Classify("sure", reply, true); got != ReasonNone {
		t.Fatalf("one closing phrase should not end the call, got %q", got)
	}
}

func TestClassifyOrdinaryExchangeContinues(t *testing.T) {
	got := Classify("yes this is Ali", "Great, I'm calling about your property at 12 Canal Road.", true)
	if got != ReasonNone {
		t.Fatalf("expected call to continue, got %q", got)
	}
}

func TestShouldEndCallBooleanView(t *testing.T) {
	if !ShouldEndCall("no questions", "Thanks.", false) {
		t.Fatalf("expected true for no-questions phrase")
	}
	if ShouldEndCall("tell me more", "It has three bedrooms.", false) {
		t.Fatalf("expected false for ordinary exchange")
	}
}
