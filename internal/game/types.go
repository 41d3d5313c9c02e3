package game

import "sync"

// Mode selects which question sequence is authoritative for a session.
type Mode string

const (
	// ModeStatic plays the fixed catalog loaded from the settings file.
	ModeStatic Mode = "static"

	// ModeGenerated plays a batch produced by the generation pipeline.
	ModeGenerated Mode = "generated"
)

// Status is the game state of a session.
type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// GenerationStatus tracks the background level-generation pipeline.
// It is independent of Status and never gates it.
type GenerationStatus string

const (
	GenerationIdle       GenerationStatus = "idle"
	GenerationGenerating GenerationStatus = "generating"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationError      GenerationStatus = "error"
)

// Outcome records whether a submitted answer matched the correct option.
type Outcome string

const (
	OutcomeHit  Outcome = "hit"
	OutcomeMiss Outcome = "miss"
)

// Question is a single multiple-choice question. The static catalog and
// generated batches share this shape.
type Question struct {
	// ID is numeric for catalog questions and a string (e.g. "gen_1") for
	// generated ones, so it stays untyped.
	ID            any      `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
	Explanation   string   `json:"explanation"`
	Prize         float64  `json:"prize"`
}

// QuestionView is the player-facing projection of a Question. The correct
// option and explanation are withheld until the answer is submitted.
type QuestionView struct {
	ID       any      `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Prize    float64  `json:"prize"`
	Currency string   `json:"currency"`
}

// AttemptRecord is one answer submission, appended to the session history
// in submission order. The JSON keys are the wire shape the tutor prompt
// serializes.
type AttemptRecord struct {
	Question string  `json:"question"`
	Selected string  `json:"selected"`
	Correct  string  `json:"correct"`
	Result   Outcome `json:"result"`
}

// ChatRole is the sender of a transcript message.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry in the tutor transcript.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// Session is one player attempt. All mutable fields are guarded by the
// session's own mutex; callers outside this package use Lock/Unlock.
// Sessions live for the process lifetime and are never shared across ids.
type Session struct {
	ID string

	mu sync.Mutex

	Mode             Mode
	QuestionIndex    int
	AccumulatedPrize float64
	Status           Status
	GenerationStatus GenerationStatus

	// Generated holds the pipeline-produced batch. Empty in static mode.
	Generated []Question

	// History is append-only within a level and cleared on reset or when a
	// generated level is installed.
	History []AttemptRecord

	// Transcript is the tutor conversation. The system message, when
	// present, is always at position 0 and is replaced wholesale on every
	// context (re)initialization.
	Transcript []ChatMessage
}

// Lock acquires the per-session mutex. At most one writer touches a
// session's mutable fields at a time; sessions never contend with each other.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// HistorySnapshot returns a copy of the attempt history.
// Caller must hold the session lock.
func (s *Session) HistorySnapshot() []AttemptRecord {
	out := make([]AttemptRecord, len(s.History))
	copy(out, s.History)
	return out
}

// TranscriptSnapshot returns a copy of the transcript. When visibleOnly is
// set, the system message is filtered out.
// Caller must hold the session lock.
func (s *Session) TranscriptSnapshot(visibleOnly bool) []ChatMessage {
	out := make([]ChatMessage, 0, len(s.Transcript))
	for _, m := range s.Transcript {
		if visibleOnly && m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
