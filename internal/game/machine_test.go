package game

import "testing"

func testCatalog() []Question {
	return []Question{
		{
			ID:            1,
			Text:          "What is the capital of France?",
			Options:       []string{"Lyon", "Paris", "Nice", "Marseille"},
			CorrectOption: "Paris",
			Explanation:   "Paris has been the French capital since the 10th century.",
			Prize:         100,
		},
		{
			ID:            2,
			Text:          "Which ocean is the largest?",
			Options:       []string{"Atlantic", "Indian", "Pacific", "Arctic"},
			CorrectOption: "Pacific",
			Explanation:   "The Pacific covers about a third of the Earth's surface.",
			Prize:         200,
		},
	}
}

func testMachine() (*Machine, *Session) {
	store := NewStore()
	m := NewMachine(store, testCatalog(), "R$")
	return m, store.Create()
}

func TestCurrentQuestion_WithholdsAnswer(t *testing.T) {
	m, s := testMachine()

	view, won, ok := m.CurrentQuestion(s.ID)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if won {
		t.Fatal("fresh session should not be won")
	}
	if view.Text != "What is the capital of France?" {
		t.Errorf("Text = %q, want first catalog question", view.Text)
	}
	if len(view.Options) != 4 {
		t.Errorf("len(Options) = %d, want 4", len(view.Options))
	}
	if view.Currency != "R$" {
		t.Errorf("Currency = %q, want R$", view.Currency)
	}
}

func TestCurrentQuestion_AbsentSession(t *testing.T) {
	m, _ := testMachine()

	if _, _, ok := m.CurrentQuestion("no-such-id"); ok {
		t.Error("expected ok=false for unknown session id")
	}
}

func TestSubmitAnswer_WinSequence(t *testing.T) {
	m, s := testMachine()

	// Paris, then Pacific.
	res, ok := m.SubmitAnswer(s.ID, 1)
	if !ok || !res.Accepted {
		t.Fatalf("first answer not accepted: ok=%v res=%+v", ok, res)
	}
	if !res.Correct {
		t.Fatal("expected first answer correct")
	}
	if res.AccumulatedPrize != 100 {
		t.Errorf("AccumulatedPrize = %v, want 100", res.AccumulatedPrize)
	}
	if res.Status != StatusActive {
		t.Errorf("Status = %v, want active", res.Status)
	}

	res, _ = m.SubmitAnswer(s.ID, 2)
	if !res.Correct {
		t.Fatal("expected second answer correct")
	}
	if res.AccumulatedPrize != 300 {
		t.Errorf("AccumulatedPrize = %v, want 300 (100+200)", res.AccumulatedPrize)
	}

	// Cursor is past the end: the WIN sentinel flips status exactly once.
	view, won, _ := m.CurrentQuestion(s.ID)
	if view != nil || !won {
		t.Fatalf("expected WIN sentinel, got view=%v won=%v", view, won)
	}
	if s.Status != StatusWon {
		t.Errorf("Status = %v, want won", s.Status)
	}

	// Idempotent on repeat.
	_, won, _ = m.CurrentQuestion(s.ID)
	if !won {
		t.Error("WIN sentinel should persist on repeated calls")
	}

	if len(s.History) != 2 {
		t.Errorf("len(History) = %d, want 2", len(s.History))
	}
	for i, rec := range s.History {
		if rec.Result != OutcomeHit {
			t.Errorf("History[%d].Result = %v, want hit", i, rec.Result)
		}
	}
}

func TestSubmitAnswer_WrongAnswerLoses(t *testing.T) {
	m, s := testMachine()

	res, _ := m.SubmitAnswer(s.ID, 0) // Lyon
	if !res.Accepted {
		t.Fatal("expected submission accepted")
	}
	if res.Correct {
		t.Fatal("expected wrong answer")
	}
	if res.Status != StatusLost {
		t.Errorf("Status = %v, want lost", res.Status)
	}
	if res.AccumulatedPrize != 0 {
		t.Errorf("AccumulatedPrize = %v, want 0", res.AccumulatedPrize)
	}
	if res.Explanation == "" {
		t.Error("expected explanation on wrong answer")
	}

	if len(s.History) != 1 {
		t.Fatalf("len(History) = %d, want 1", len(s.History))
	}
	rec := s.History[0]
	if rec.Selected != "Lyon" || rec.Correct != "Paris" || rec.Result != OutcomeMiss {
		t.Errorf("unexpected history record: %+v", rec)
	}
	if s.QuestionIndex != 0 {
		t.Errorf("QuestionIndex = %d, want 0 (no advance on miss)", s.QuestionIndex)
	}
}

func TestSubmitAnswer_FrozenAfterLoss(t *testing.T) {
	m, s := testMachine()

	m.SubmitAnswer(s.ID, 0)

	res, _ := m.SubmitAnswer(s.ID, 1)
	if res.Accepted {
		t.Error("submission on a lost session must be rejected")
	}
	if len(s.History) != 1 {
		t.Errorf("len(History) = %d, want 1 (no mutation after loss)", len(s.History))
	}
	if s.Status != StatusLost {
		t.Errorf("Status = %v, want lost", s.Status)
	}
}

func TestSubmitAnswer_OutOfRangeIndex(t *testing.T) {
	m, s := testMachine()

	for _, idx := range []int{-1, 4, 100} {
		res, _ := m.SubmitAnswer(s.ID, idx)
		if res.Accepted {
			t.Errorf("index %d: expected rejection", idx)
		}
	}
	if len(s.History) != 0 {
		t.Errorf("len(History) = %d, want 0 after rejected submissions", len(s.History))
	}
	if s.Status != StatusActive {
		t.Errorf("Status = %v, want active", s.Status)
	}
}

func TestSubmitAnswer_ScoresByTextNotPosition(t *testing.T) {
	store := NewStore()
	catalog := testCatalog()
	// Shuffle the first question's options; the stored correct answer is a
	// value, so position 3 is now the hit.
	catalog[0].Options = []string{"Nice", "Marseille", "Lyon", "Paris"}
	m := NewMachine(store, catalog, "R$")
	s := store.Create()

	res, _ := m.SubmitAnswer(s.ID, 3)
	if !res.Correct {
		t.Error("expected correct answer after option reorder")
	}
}

func TestSubmitAnswer_AbsentSession(t *testing.T) {
	m, _ := testMachine()

	if _, ok := m.SubmitAnswer("no-such-id", 0); ok {
		t.Error("expected ok=false for unknown session id")
	}
}

func TestReset_RestartsLevel(t *testing.T) {
	m, s := testMachine()

	m.SubmitAnswer(s.ID, 1)
	m.SubmitAnswer(s.ID, 0) // miss on question 2, session lost

	firstID, ok := m.Reset(s.ID)
	if !ok {
		t.Fatal("expected reset to succeed")
	}
	if firstID != 1 {
		t.Errorf("firstQuestionID = %v, want 1", firstID)
	}
	if s.Status != StatusActive {
		t.Errorf("Status = %v, want active", s.Status)
	}
	if s.QuestionIndex != 0 || s.AccumulatedPrize != 0 {
		t.Errorf("index=%d prize=%v, want both zero", s.QuestionIndex, s.AccumulatedPrize)
	}
	if len(s.History) != 0 {
		t.Errorf("len(History) = %d, want 0 after reset", len(s.History))
	}
	if s.Mode != ModeStatic {
		t.Errorf("Mode = %v, want static (preserved)", s.Mode)
	}
}

func TestReset_FiresHook(t *testing.T) {
	m, s := testMachine()

	var hooked *Session
	m.OnReset = func(sess *Session) { hooked = sess }

	m.Reset(s.ID)
	if hooked != s {
		t.Error("expected OnReset hook to receive the session")
	}
}

func TestReset_GeneratedModePreserved(t *testing.T) {
	m, s := testMachine()

	s.Mode = ModeGenerated
	s.Generated = []Question{{
		ID:            "gen_1",
		Text:          "Generated question",
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: "a",
		Prize:         500,
	}}
	s.QuestionIndex = 1
	s.Status = StatusWon

	firstID, _ := m.Reset(s.ID)
	if firstID != "gen_1" {
		t.Errorf("firstQuestionID = %v, want gen_1 from the generated batch", firstID)
	}
	if s.Mode != ModeGenerated {
		t.Errorf("Mode = %v, want generated", s.Mode)
	}
}

func TestFormatPrize(t *testing.T) {
	m, _ := testMachine()

	cases := map[float64]string{
		0:      "R$ 0",
		300:    "R$ 300",
		1500.5: "R$ 1500.5",
	}
	for amount, want := range cases {
		if got := m.FormatPrize(amount); got != want {
			t.Errorf("FormatPrize(%v) = %q, want %q", amount, got, want)
		}
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore()

	s := store.Create()
	if s.ID == "" {
		t.Fatal("expected non-empty session id")
	}
	if s.Status != StatusActive || s.Mode != ModeStatic || s.GenerationStatus != GenerationIdle {
		t.Errorf("unexpected initial session state: %+v", s)
	}

	got, ok := store.Get(s.ID)
	if !ok || got != s {
		t.Error("expected Get to return the created session")
	}
	if _, ok := store.Get("missing"); ok {
		t.Error("expected ok=false for unknown id")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestTranscriptSnapshot_VisibleOnly(t *testing.T) {
	s := &Session{Transcript: []ChatMessage{
		{Role: RoleSystem, Content: "framing"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}}

	s.Lock()
	visible := s.TranscriptSnapshot(true)
	full := s.TranscriptSnapshot(false)
	s.Unlock()

	if len(visible) != 2 {
		t.Fatalf("len(visible) = %d, want 2", len(visible))
	}
	if visible[0].Role != RoleUser {
		t.Errorf("visible[0].Role = %v, want user", visible[0].Role)
	}
	if len(full) != 3 {
		t.Errorf("len(full) = %d, want 3", len(full))
	}
}
