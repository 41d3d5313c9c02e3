package llm

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abhisek/milhao/internal/requestlog"
)

// LoggingGenerator is a decorator that records every generator request in
// the request log. Document requests are recorded on return; chat streams
// are recorded once the stream is exhausted or closed, so latency covers
// the full reply.
type LoggingGenerator struct {
	inner Generator
	log   *requestlog.Store
}

// WithLogging wraps a Generator with request logging.
func WithLogging(g Generator, log *requestlog.Store) Generator {
	return &LoggingGenerator{inner: g, log: log}
}

func (l *LoggingGenerator) GenerateDocument(ctx context.Context, req DocumentRequest) (*Document, error) {
	start := time.Now()

	doc, err := l.inner.GenerateDocument(ctx, req)

	entry := requestlog.Entry{
		Provider:  l.inner.ModelID(),
		Model:     l.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}

	if doc != nil {
		entry.InputTokens = doc.Usage.InputTokens
		entry.OutputTokens = doc.Usage.OutputTokens
		entry.Model = doc.Model
		if cost := LookupCost(doc.Model); cost != nil {
			entry.CostUSD = cost.Cost(doc.Usage.InputTokens, doc.Usage.OutputTokens)
		}
	}

	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	l.append(ctx, entry)
	return doc, err
}

func (l *LoggingGenerator) StreamChat(ctx context.Context, req ChatRequest) (ChatStream, error) {
	start := time.Now()

	stream, err := l.inner.StreamChat(ctx, req)
	if err != nil {
		l.append(ctx, requestlog.Entry{
			Provider:     l.inner.ModelID(),
			Model:        l.inner.ModelID(),
			Purpose:      PurposeFrom(ctx),
			LatencyMs:    time.Since(start).Milliseconds(),
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	return &loggedStream{
		inner:   stream,
		logger:  l,
		ctx:     ctx,
		purpose: PurposeFrom(ctx),
		start:   start,
	}, nil
}

func (l *LoggingGenerator) ModelID() string {
	return l.inner.ModelID()
}

// append records the entry but never fails the request if logging fails.
func (l *LoggingGenerator) append(ctx context.Context, e requestlog.Entry) {
	if err := l.log.Append(context.WithoutCancel(ctx), e); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to log generator request: %v\n", err)
	}
}

// loggedStream records one entry when the stream ends, whichever of EOF,
// error or Close happens first.
type loggedStream struct {
	inner   ChatStream
	logger  *LoggingGenerator
	ctx     context.Context
	purpose string
	start   time.Time
	done    bool
	failure string
}

func (s *loggedStream) Recv() (string, error) {
	frag, err := s.inner.Recv()
	if err == io.EOF {
		s.finish("")
	} else if err != nil {
		s.finish(err.Error())
	}
	return frag, err
}

func (s *loggedStream) Close() error {
	err := s.inner.Close()
	s.finish(s.failure)
	return err
}

func (s *loggedStream) finish(errMsg string) {
	if s.done {
		return
	}
	s.done = true
	s.failure = errMsg
	s.logger.append(s.ctx, requestlog.Entry{
		Provider:     s.logger.inner.ModelID(),
		Model:        s.logger.inner.ModelID(),
		Purpose:      s.purpose,
		LatencyMs:    time.Since(s.start).Milliseconds(),
		Success:      errMsg == "",
		ErrorMessage: errMsg,
	})
}
