package conversation

// Status is where a session currently sits in its lifecycle. Completed and
// Failed are terminal; no transition leaves them.
type Status string

const (
	StatusInit              Status = "init"
	StatusSelectingLanguage Status = "selecting_language"
	StatusAsking            Status = "asking"
	StatusAwaitingAnswer    Status = "awaiting_answer"
	StatusValidating        Status = "validating"
	StatusConfirming        Status = "confirming"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress counts how far through the interview a session is.
type Progress struct {
	Asked int `json:"asked"`
	Total int `json:"total"`
}

// State is a point-in-time snapshot of one session. Maps and slices are
// copies; callers may hold them across transitions.
type State struct {
	SessionID string `json:"session_id"`
	Status    Status `json:"status"`

	// Language is what prompts are delivered in. Degraded flags record
	// that a fallback kicked in and prompts or answers may have passed
	// through untranslated.
	Language            string `json:"language"`
	LanguageDegraded    bool   `json:"language_degraded,omitempty"`
	TranslationDegraded bool   `json:"translation_degraded,omitempty"`

	CurrentFieldID string `json:"current_field_id,omitempty"`
	Retries        int    `json:"retries"`

	Answers  map[string]string `json:"answers"`
	Skipped  []string          `json:"skipped,omitempty"`
	Progress Progress          `json:"progress"`

	// FailureReason is set only when Status is failed.
	FailureReason string `json:"failure_reason,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	out.Skipped = append([]string(nil), s.Skipped...)
	return out
}
