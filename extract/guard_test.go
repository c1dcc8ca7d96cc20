package extract

import "testing"

func TestGuardReplyBlocksMedicalAdvice(t *testing.T) {
	blocked := []string{
		"You probably have pneumonia.",
		"That sounds like a case of appendicitis to me.",
		"Take ibuprofen 400 mg and rest.",
		"I recommend amoxicillin for that.",
		"A diagnosis of bronchitis fits your symptoms.",
	}
	for _, reply := range blocked {
		got, wasBlocked := GuardReply(reply)
		if !wasBlocked {
			t.Errorf("GuardReply(%q) should block", reply)
		}
		if got != GuardedReply {
			t.Errorf("GuardReply(%q) = %q, want the neutral replacement", reply, got)
		}
	}
}

func TestGuardReplyPassesIntakeQuestions(t *testing.T) {
	allowed := []string{
		"How long have you been feeling this way?",
		"On a scale of 0 to 10, how intense is the pain?",
		"Thank you, I noted that down. What else can you tell me?",
	}
	for _, reply := range allowed {
		got, wasBlocked := GuardReply(reply)
		if wasBlocked {
			t.Errorf("GuardReply(%q) should pass through", reply)
		}
		if got != reply {
			t.Errorf("GuardReply(%q) changed the text to %q", reply, got)
		}
	}
}
