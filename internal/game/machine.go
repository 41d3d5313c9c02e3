package game

import (
	"fmt"
	"strconv"
)

// Machine applies game-flow transitions to sessions held in a Store.
// Wrong answers and out-of-range indexes are data-carrying results, never
// errors; only session absence is surfaced as a missing result.
type Machine struct {
	store    *Store
	catalog  []Question
	currency string

	// OnReset, when set, runs after a successful Reset with the session
	// lock released. The server wires it to tutor context reinitialization.
	OnReset func(*Session)
}

// NewMachine creates a Machine over the given store. catalog is the static
// question sequence; currency is the symbol used on question views and
// formatted prizes.
func NewMachine(store *Store, catalog []Question, currency string) *Machine {
	if currency == "" {
		currency = "$"
	}
	return &Machine{store: store, catalog: catalog, currency: currency}
}

// AnswerResult reports the effect of one answer submission.
type AnswerResult struct {
	// Accepted is false when the submission was rejected with no mutation:
	// the session was not active or the option index was out of range.
	Accepted bool

	Correct          bool
	Explanation      string
	AccumulatedPrize float64
	Status           Status
}

// questions returns the active question sequence for the session.
// Caller must hold the session lock.
func (m *Machine) questions(s *Session) []Question {
	if s.Mode == ModeGenerated {
		return s.Generated
	}
	return m.catalog
}

// Currency returns the configured currency symbol.
func (m *Machine) Currency() string { return m.currency }

// FormatPrize renders an amount with the currency symbol, e.g. "R$ 300".
func (m *Machine) FormatPrize(amount float64) string {
	return fmt.Sprintf("%s %s", m.currency, strconv.FormatFloat(amount, 'f', -1, 64))
}

// CurrentQuestion returns the question view at the session cursor.
// won reports the WIN sentinel: the cursor ran past the end of the active
// sequence. Reaching the end flips an active session to won exactly once;
// repeated calls are idempotent. ok is false when the session is absent.
func (m *Machine) CurrentQuestion(id string) (view *QuestionView, won bool, ok bool) {
	s, ok := m.store.Get(id)
	if !ok {
		return nil, false, false
	}

	s.Lock()
	defer s.Unlock()

	source := m.questions(s)
	if s.QuestionIndex >= len(source) {
		if s.Status == StatusActive {
			s.Status = StatusWon
		}
		return nil, true, true
	}

	q := source[s.QuestionIndex]
	return &QuestionView{
		ID:       q.ID,
		Text:     q.Text,
		Options:  q.Options,
		Prize:    q.Prize,
		Currency: m.currency,
	}, false, true
}

// SubmitAnswer scores the option at optionIndex against the current question.
// The comparison is by option text, not position: the stored correct answer
// is a value, so reordering options never invalidates it. Exactly one
// AttemptRecord is appended per accepted submission. ok is false when the
// session is absent.
func (m *Machine) SubmitAnswer(id string, optionIndex int) (*AnswerResult, bool) {
	s, ok := m.store.Get(id)
	if !ok {
		return nil, false
	}

	s.Lock()
	defer s.Unlock()

	res := &AnswerResult{
		AccumulatedPrize: s.AccumulatedPrize,
		Status:           s.Status,
	}

	if s.Status != StatusActive {
		return res, true
	}

	source := m.questions(s)
	if s.QuestionIndex >= len(source) {
		return res, true
	}

	q := source[s.QuestionIndex]
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return res, true
	}

	selected := q.Options[optionIndex]
	correct := selected == q.CorrectOption

	outcome := OutcomeMiss
	if correct {
		outcome = OutcomeHit
	}
	s.History = append(s.History, AttemptRecord{
		Question: q.Text,
		Selected: selected,
		Correct:  q.CorrectOption,
		Result:   outcome,
	})

	res.Accepted = true
	res.Correct = correct
	res.Explanation = q.Explanation

	if correct {
		s.AccumulatedPrize += q.Prize
		s.QuestionIndex++
	} else {
		s.Status = StatusLost
	}

	res.AccumulatedPrize = s.AccumulatedPrize
	res.Status = s.Status
	return res, true
}

// Reset restarts the current level: index and prize zeroed, history cleared,
// status back to active. The question set and mode are preserved. Returns
// the id of the first question in the active sequence (nil for an empty
// sequence) and false when the session is absent.
func (m *Machine) Reset(id string) (firstQuestionID any, ok bool) {
	s, ok := m.store.Get(id)
	if !ok {
		return nil, false
	}

	s.Lock()
	s.QuestionIndex = 0
	s.AccumulatedPrize = 0
	s.History = nil
	s.Status = StatusActive
	source := m.questions(s)
	if len(source) > 0 {
		firstQuestionID = source[0].ID
	}
	s.Unlock()

	if m.OnReset != nil {
		m.OnReset(s)
	}

	return firstQuestionID, true
}
