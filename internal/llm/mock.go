package llm

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// MockDocument is a canned structured response for the MockGenerator.
type MockDocument struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockChat is a canned streaming reply: the fragments are yielded one per
// Recv call. A non-nil Err fails the StreamChat open instead.
type MockChat struct {
	Fragments []string
	Err       error
}

// MockGenerator is a deterministic Generator for testing. Canned responses
// are consumed in FIFO order, one queue per operation, and every request is
// recorded for assertions.
type MockGenerator struct {
	mu        sync.Mutex
	documents []MockDocument
	chats     []MockChat

	DocumentCalls []DocumentRequest
	ChatCalls     []ChatRequest
}

// NewMockGenerator creates a MockGenerator with the given canned documents.
func NewMockGenerator(documents ...MockDocument) *MockGenerator {
	return &MockGenerator{documents: documents}
}

// GenerateDocument returns the next canned document or
// ErrProviderUnavailable if the queue is empty.
func (m *MockGenerator) GenerateDocument(_ context.Context, req DocumentRequest) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DocumentCalls = append(m.DocumentCalls, req)

	if len(m.documents) == 0 {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	doc := m.documents[0]
	m.documents = m.documents[1:]

	if doc.Err != nil {
		return nil, doc.Err
	}

	return &Document{
		Content:    doc.Content,
		Usage:      doc.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// StreamChat returns the next canned chat as a fragment stream, or
// ErrProviderUnavailable if the queue is empty.
func (m *MockGenerator) StreamChat(_ context.Context, req ChatRequest) (ChatStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, req)

	if len(m.chats) == 0 {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	chat := m.chats[0]
	m.chats = m.chats[1:]

	if chat.Err != nil {
		return nil, chat.Err
	}

	return &mockStream{fragments: chat.Fragments}, nil
}

// ModelID returns "mock".
func (m *MockGenerator) ModelID() string {
	return "mock"
}

// AddDocument appends a canned document to the queue.
func (m *MockGenerator) AddDocument(doc MockDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, doc)
}

// AddChat appends a canned chat reply to the queue.
func (m *MockGenerator) AddChat(chat MockChat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats = append(m.chats, chat)
}

// DocumentCallCount returns the number of GenerateDocument calls made.
func (m *MockGenerator) DocumentCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DocumentCalls)
}

type mockStream struct {
	fragments []string
	pos       int
	closed    bool
}

func (s *mockStream) Recv() (string, error) {
	if s.closed || s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	frag := s.fragments[s.pos]
	s.pos++
	return frag, nil
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}
