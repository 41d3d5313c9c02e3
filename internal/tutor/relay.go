package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/abhisek/milhao/internal/game"
	"github.com/abhisek/milhao/internal/llm"
)

// errPeerGone marks a failed write mid-exchange: the peer disconnected,
// which is normal termination for the relay loop.
var errPeerGone = errors.New("peer disconnected")

// Conn is the duplex channel the relay speaks over. *websocket.Conn
// satisfies it; tests use an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
}

// Frame shapes. All outbound traffic is JSON objects; inbound traffic that
// does not parse into inboundFrame, or has an empty client_message, is
// silently ignored.
type inboundFrame struct {
	ClientMessage string `json:"client_message"`
}

type historyFrame struct {
	Type    string             `json:"type"`
	Content []game.ChatMessage `json:"content"`
}

type streamFrame struct {
	ResponseStream string `json:"response_stream"`
}

type taggedFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// endOfStream is the control payload marking stream exhaustion.
const endOfStream = "[DONE]"

// Config tunes a Relay.
type Config struct {
	// Persona is the collaborator-supplied framing for the assistant.
	Persona string

	// KnowledgeBase is the opaque retrieval handle forwarded on every
	// streaming call. Empty disables retrieval.
	KnowledgeBase string

	MaxTokens int
}

// Relay drives one exchange at a time per connection: read an utterance,
// stream the generated reply fragment by fragment, then deliver the full
// text once more for redundancy.
type Relay struct {
	gen    llm.Generator
	cfg    Config
	logger *slog.Logger
}

// NewRelay creates a Relay. A nil logger falls back to slog.Default.
func NewRelay(gen llm.Generator, cfg Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Relay{gen: gen, cfg: cfg, logger: logger}
}

// Run owns the connection until the peer disconnects or ctx is cancelled.
// Turns are strictly sequential: no two exchanges interleave on one
// connection. A session with tutor context gets its visible transcript as
// an immediate snapshot; a session without one is initialized lazily when
// the first valid utterance arrives, and the snapshot follows the
// initialization. Peer disconnect is normal termination, not an error.
func (r *Relay) Run(ctx context.Context, conn Conn, s *game.Session) error {
	ctx = llm.WithPurpose(ctx, "tutor-chat")

	s.Lock()
	hasContext := len(s.Transcript) > 0
	visible := s.TranscriptSnapshot(true)
	s.Unlock()

	if hasContext {
		if err := conn.WriteJSON(historyFrame{Type: "history", Content: visible}); err != nil {
			return nil
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return nil
		}

		var in inboundFrame
		if err := json.Unmarshal(raw, &in); err != nil || in.ClientMessage == "" {
			continue
		}

		s.Lock()
		needInit := len(s.Transcript) == 0
		s.Unlock()
		if needInit {
			InitContext(s, r.cfg.Persona)
			s.Lock()
			visible := s.TranscriptSnapshot(true)
			s.Unlock()
			if err := conn.WriteJSON(historyFrame{Type: "history", Content: visible}); err != nil {
				return nil
			}
		}

		s.Lock()
		s.Transcript = append(s.Transcript, game.ChatMessage{Role: game.RoleUser, Content: in.ClientMessage})
		transcript := s.TranscriptSnapshot(false)
		s.Unlock()

		fullText, err := r.exchange(ctx, conn, transcript)
		if err != nil {
			if errors.Is(err, errPeerGone) || ctx.Err() != nil {
				return nil
			}
			r.logger.Error("tutor exchange failed", "session", s.ID, "error", err)
			return err
		}

		s.Lock()
		s.Transcript = append(s.Transcript, game.ChatMessage{Role: game.RoleAssistant, Content: fullText})
		s.Unlock()
	}
}

// exchange streams one reply: each fragment is forwarded as it arrives,
// then the end-of-stream marker, then the concatenated full text as a
// redundant whole-message delivery for unreliable transports.
func (r *Relay) exchange(ctx context.Context, conn Conn, transcript []game.ChatMessage) (string, error) {
	stream, err := r.gen.StreamChat(ctx, llm.ChatRequest{
		Messages:      toLLMMessages(transcript),
		KnowledgeBase: r.cfg.KnowledgeBase,
		MaxTokens:     r.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var full []byte
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		full = append(full, frag...)
		if err := conn.WriteJSON(streamFrame{ResponseStream: frag}); err != nil {
			return "", fmt.Errorf("%w: %v", errPeerGone, err)
		}
	}

	if err := conn.WriteJSON(taggedFrame{Type: "control", Content: endOfStream}); err != nil {
		return "", fmt.Errorf("%w: %v", errPeerGone, err)
	}
	if err := conn.WriteJSON(taggedFrame{Type: "full_text", Content: string(full)}); err != nil {
		return "", fmt.Errorf("%w: %v", errPeerGone, err)
	}

	return string(full), nil
}

func toLLMMessages(transcript []game.ChatMessage) []llm.Message {
	out := make([]llm.Message, len(transcript))
	for i, m := range transcript {
		out[i] = llm.Message{Role: llm.Role(m.Role), Content: m.Content}
	}
	return out
}
