package genlevel

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/milhao/internal/game"
	"github.com/abhisek/milhao/internal/llm"
)

const validBatch = `{
	"questions": [
		{
			"id": "gen_1",
			"text": "Which gas do plants absorb for photosynthesis?",
			"options": ["Oxygen", "Nitrogen", "Carbon dioxide", "Helium"],
			"correct_option": "Carbon dioxide",
			"explanation": "Plants take in carbon dioxide and release oxygen.",
			"prize": 300
		},
		{
			"id": "gen_2",
			"text": "What is the smallest prime number?",
			"options": ["0", "1", "2", "3"],
			"correct_option": "2",
			"explanation": "2 is the only even prime.",
			"prize": 600
		}
	]
}`

func wonSession() *game.Session {
	store := game.NewStore()
	s := store.Create()
	s.Status = game.StatusWon
	s.QuestionIndex = 2
	s.AccumulatedPrize = 300
	s.History = []game.AttemptRecord{
		{Question: "q1", Selected: "a", Correct: "a", Result: game.OutcomeHit},
	}
	return s
}

// waitForGeneration polls until the background run leaves the generating
// state.
func waitForGeneration(t *testing.T, s *game.Session) game.GenerationStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.Lock()
		status := s.GenerationStatus
		s.Unlock()
		if status != game.GenerationGenerating {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("generation did not finish in time")
	return ""
}

func TestTrigger_NotWon(t *testing.T) {
	store := game.NewStore()
	s := store.Create()

	p := New(llm.NewMockGenerator(), Config{Quantity: 2}, nil)
	if err := p.Trigger(s); !errors.Is(err, ErrNotWon) {
		t.Fatalf("Trigger on active session: err = %v, want ErrNotWon", err)
	}
	if s.GenerationStatus != game.GenerationIdle {
		t.Errorf("GenerationStatus = %v, want idle", s.GenerationStatus)
	}
}

func TestTrigger_InstallsBatch(t *testing.T) {
	s := wonSession()
	gen := llm.NewMockGenerator(llm.MockDocument{Content: json.RawMessage(validBatch)})

	p := New(gen, Config{Quantity: 2}, nil)
	if err := p.Trigger(s); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if status := waitForGeneration(t, s); status != game.GenerationCompleted {
		t.Fatalf("GenerationStatus = %v, want completed", status)
	}

	s.Lock()
	defer s.Unlock()
	if s.Mode != game.ModeGenerated {
		t.Errorf("Mode = %v, want generated", s.Mode)
	}
	if len(s.Generated) != 2 {
		t.Fatalf("len(Generated) = %d, want 2", len(s.Generated))
	}
	if s.Generated[0].ID != "gen_1" {
		t.Errorf("Generated[0].ID = %v, want gen_1", s.Generated[0].ID)
	}
	if s.QuestionIndex != 0 {
		t.Errorf("QuestionIndex = %d, want 0", s.QuestionIndex)
	}
	if s.Status != game.StatusActive {
		t.Errorf("Status = %v, want active", s.Status)
	}
	if len(s.History) != 0 {
		t.Errorf("len(History) = %d, want 0 (cleared on install)", len(s.History))
	}
	if s.AccumulatedPrize != 300 {
		t.Errorf("AccumulatedPrize = %v, want 300 (carried over)", s.AccumulatedPrize)
	}
}

func TestTrigger_RetriesMalformedThenSucceeds(t *testing.T) {
	s := wonSession()
	gen := llm.NewMockGenerator(
		llm.MockDocument{Content: json.RawMessage(`not json at all`)},
		llm.MockDocument{Content: json.RawMessage(`{"questions": []}`)},
		llm.MockDocument{Content: json.RawMessage(validBatch)},
	)

	p := New(gen, Config{Quantity: 2}, nil)
	if err := p.Trigger(s); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if status := waitForGeneration(t, s); status != game.GenerationCompleted {
		t.Fatalf("GenerationStatus = %v, want completed after retries", status)
	}
	if got := gen.DocumentCallCount(); got != 3 {
		t.Errorf("DocumentCallCount = %d, want 3", got)
	}
}

func TestTrigger_ExhaustsAttempts(t *testing.T) {
	s := wonSession()
	gen := llm.NewMockGenerator(
		llm.MockDocument{Err: &llm.ErrProviderUnavailable{}},
		llm.MockDocument{Err: &llm.ErrRateLimit{}},
		llm.MockDocument{Content: json.RawMessage(`{"broken": true}`)},
	)

	p := New(gen, Config{Quantity: 2}, nil)
	if err := p.Trigger(s); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if status := waitForGeneration(t, s); status != game.GenerationError {
		t.Fatalf("GenerationStatus = %v, want error", status)
	}
	if got := gen.DocumentCallCount(); got != 3 {
		t.Errorf("DocumentCallCount = %d, want 3", got)
	}

	s.Lock()
	defer s.Unlock()
	if s.Mode != game.ModeStatic {
		t.Errorf("Mode = %v, want static (unchanged on failure)", s.Mode)
	}
	if len(s.Generated) != 0 {
		t.Errorf("len(Generated) = %d, want 0", len(s.Generated))
	}
	if s.Status != game.StatusWon {
		t.Errorf("Status = %v, want won (unchanged on failure)", s.Status)
	}
}

func TestTrigger_NonRecoverableStopsEarly(t *testing.T) {
	s := wonSession()
	gen := llm.NewMockGenerator(
		llm.MockDocument{Err: errors.New("misconfigured request")},
		llm.MockDocument{Content: json.RawMessage(validBatch)},
	)

	p := New(gen, Config{Quantity: 2}, nil)
	if err := p.Trigger(s); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if status := waitForGeneration(t, s); status != game.GenerationError {
		t.Fatalf("GenerationStatus = %v, want error", status)
	}
	if got := gen.DocumentCallCount(); got != 1 {
		t.Errorf("DocumentCallCount = %d, want 1 (no retry on unclassified error)", got)
	}
}

func TestTrigger_TruncationStopsEarly(t *testing.T) {
	s := wonSession()
	// Truncation repeats identically on every attempt; one is enough.
	gen := llm.NewMockGenerator(
		llm.MockDocument{Err: &llm.ErrMaxTokensExceeded{}},
		llm.MockDocument{Content: json.RawMessage(validBatch)},
	)

	p := New(gen, Config{Quantity: 2}, nil)
	if err := p.Trigger(s); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if status := waitForGeneration(t, s); status != game.GenerationError {
		t.Fatalf("GenerationStatus = %v, want error", status)
	}
	if got := gen.DocumentCallCount(); got != 1 {
		t.Errorf("DocumentCallCount = %d, want 1 (no retry on truncation)", got)
	}
}

func TestTrigger_SecondTriggerWhileGenerating(t *testing.T) {
	s := wonSession()
	s.GenerationStatus = game.GenerationGenerating

	p := New(llm.NewMockGenerator(), Config{Quantity: 2}, nil)
	if err := p.Trigger(s); !errors.Is(err, ErrInFlight) {
		t.Fatalf("Trigger during a run: err = %v, want ErrInFlight", err)
	}
	if s.GenerationStatus != game.GenerationGenerating {
		t.Errorf("GenerationStatus = %v, want generating (unchanged)", s.GenerationStatus)
	}
}

func TestGenerate_StripsFences(t *testing.T) {
	s := wonSession()
	fenced := "```json\n" + validBatch + "\n```"
	gen := llm.NewMockGenerator(llm.MockDocument{Content: json.RawMessage(fenced)})

	p := New(gen, Config{Quantity: 2}, nil)
	if err := p.Trigger(s); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if status := waitForGeneration(t, s); status != game.GenerationCompleted {
		t.Fatalf("GenerationStatus = %v, want completed for fenced payload", status)
	}
}

func TestTrigger_StatusFlipsSynchronously(t *testing.T) {
	s := wonSession()
	// Empty queue: every attempt fails, but the flip to generating happens
	// before Trigger returns.
	p := New(llm.NewMockGenerator(), Config{Quantity: 2}, nil)
	if err := p.Trigger(s); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	s.Lock()
	status := s.GenerationStatus
	s.Unlock()
	if status != game.GenerationGenerating && status != game.GenerationError {
		t.Errorf("GenerationStatus = %v immediately after Trigger, want generating (or already error)", status)
	}
	waitForGeneration(t, s)
}

func TestRecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&llm.ErrRateLimit{}, true},
		{&llm.ErrProviderUnavailable{}, true},
		{&llm.ErrInvalidResponse{Err: errors.New("bad json")}, true},
		{&llm.ErrMaxTokensExceeded{}, false},
		{errors.New("unclassified"), false},
	}
	for _, c := range cases {
		if got := recoverable(c.err); got != c.want {
			t.Errorf("recoverable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestBuildUserPrompt_IncludesHistoryAndTranscript(t *testing.T) {
	history := []game.AttemptRecord{
		{Question: "capital of France", Selected: "Paris", Correct: "Paris", Result: game.OutcomeHit},
	}
	transcript := []game.ChatMessage{
		{Role: game.RoleSystem, Content: "hidden framing"},
		{Role: game.RoleUser, Content: "tell me about rivers"},
	}

	prompt := buildUserPrompt(history, transcript)
	if !strings.Contains(prompt, "capital of France") {
		t.Error("expected attempt history in the prompt")
	}
	if !strings.Contains(prompt, "tell me about rivers") {
		t.Error("expected visible chat in the prompt")
	}
	if strings.Contains(prompt, "hidden framing") {
		t.Error("system message must not leak into the prompt")
	}
}
