package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ResponseHandler turns agent output into events on a Hook
type ResponseHandler interface {
	EmitTextBlock(ctx context.Context, eventName, text string) error
	EmitJSON(ctx context.Context, eventName string, data map[string]interface{}) error
	EmitError(ctx context.Context, message string, code int, details map[string]interface{}) error
	CreateTextStream(eventName string) *TextStream
	Complete(ctx context.Context) error
	IsComplete() bool
}

// DefaultResponseHandler emits events attributed to a single Identity.
// Once Complete has been called every further emit fails.
type DefaultResponseHandler struct {
	source    Identity
	hook      Hook
	ids       IDGenerator
	telemetry Telemetry
	now       func() time.Time

	mu       sync.Mutex
	complete bool
}

// ResponseHandlerOption customizes a DefaultResponseHandler
type ResponseHandlerOption func(*DefaultResponseHandler)

// WithEventIDGenerator sets the generator used for event ids
func WithEventIDGenerator(gen IDGenerator) ResponseHandlerOption {
	return func(h *DefaultResponseHandler) {
		if gen != nil {
			h.ids = gen
		}
	}
}

// WithHandlerTelemetry wraps every emit in a span
func WithHandlerTelemetry(t Telemetry) ResponseHandlerOption {
	return func(h *DefaultResponseHandler) {
		if t != nil {
			h.telemetry = t
		}
	}
}

// NewDefaultResponseHandler binds a handler to source and hook
func NewDefaultResponseHandler(source Identity, hook Hook, opts ...ResponseHandlerOption) (*DefaultResponseHandler, error) {
	if source.ID == "" {
		return nil, &FrameworkError{
			Op:      "NewDefaultResponseHandler",
			Kind:    "response",
			Message: "source identity id is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if hook == nil {
		return nil, &FrameworkError{
			Op:      "NewDefaultResponseHandler",
			Kind:    "response",
			ID:      source.ID,
			Message: "hook is required",
			Err:     ErrMissingConfiguration,
		}
	}

	h := &DefaultResponseHandler{
		source:    source,
		hook:      hook,
		ids:       NewULIDGenerator(),
		telemetry: &NoOpTelemetry{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Source returns the identity events are attributed to
func (h *DefaultResponseHandler) Source() Identity {
	return h.source
}

// EmitTextBlock emits a complete block of text
func (h *DefaultResponseHandler) EmitTextBlock(ctx context.Context, eventName, text string) error {
	return h.emit(ctx, "ResponseHandler.EmitTextBlock", Event{
		EventName:   eventName,
		ContentType: ContentTypeTextBlock,
		Content:     text,
	})
}

// EmitJSON emits a structured payload
func (h *DefaultResponseHandler) EmitJSON(ctx context.Context, eventName string, data map[string]interface{}) error {
	return h.emit(ctx, "ResponseHandler.EmitJSON", Event{
		EventName:   eventName,
		ContentType: ContentTypeJSON,
		Content:     data,
	})
}

// EmitError emits an error event. It does not complete the response.
func (h *DefaultResponseHandler) EmitError(ctx context.Context, message string, code int, details map[string]interface{}) error {
	return h.emit(ctx, "ResponseHandler.EmitError", Event{
		EventName:   EventNameError,
		ContentType: ContentTypeError,
		Content: ErrorContent{
			Message: message,
			Code:    code,
			Details: details,
		},
	})
}

// CreateTextStream starts a chunked text stream. Its chunks share one stream id.
func (h *DefaultResponseHandler) CreateTextStream(eventName string) *TextStream {
	return &TextStream{handler: h, eventName: eventName}
}

// Complete emits the final done event and closes the response
func (h *DefaultResponseHandler) Complete(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.emitLocked(ctx, "ResponseHandler.Complete", Event{
		EventName:   EventNameDone,
		ContentType: ContentTypeDone,
	}); err != nil {
		return err
	}
	h.complete = true
	return nil
}

// IsComplete reports whether Complete has succeeded
func (h *DefaultResponseHandler) IsComplete() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.complete
}

func (h *DefaultResponseHandler) emit(ctx context.Context, op string, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.emitLocked(ctx, op, ev)
}

// emitLocked requires h.mu to be held so events reach the hook in order
func (h *DefaultResponseHandler) emitLocked(ctx context.Context, op string, ev Event) error {
	if h.complete {
		return &FrameworkError{Op: op, Kind: "response", ID: h.source.ID, Err: ErrResponseComplete}
	}
	if ev.EventName == "" {
		return &FrameworkError{
			Op:      op,
			Kind:    "response",
			ID:      h.source.ID,
			Message: "event name is required",
			Err:     ErrInvalidEvent,
		}
	}

	ctx, span := h.telemetry.StartSpan(ctx, fmt.Sprintf("response.%s", ev.ContentType))
	defer span.End()

	id, err := h.ids.NewID()
	if err != nil {
		err = &FrameworkError{Op: op, Kind: "response", ID: h.source.ID, Err: fmt.Errorf("%w: %v", ErrIDGeneration, err)}
		span.RecordError(err)
		return err
	}

	ev.ID = id
	ev.Source = h.source.ID
	ev.Timestamp = h.now().UTC()

	span.SetAttribute("event.id", ev.ID)
	span.SetAttribute("event.name", ev.EventName)
	span.SetAttribute("event.source", ev.Source)

	if err := h.hook.Emit(ctx, ev); err != nil {
		span.RecordError(err)
		return &FrameworkError{Op: op, Kind: "response", ID: h.source.ID, Err: err}
	}

	h.telemetry.RecordMetric("agent.events.emitted", 1, map[string]string{
		"content_type": string(ev.ContentType),
	})
	return nil
}

// TextStream emits text in chunks under a single stream id
type TextStream struct {
	handler   *DefaultResponseHandler
	eventName string

	mu       sync.Mutex
	streamID string
	complete bool
}

// ID returns the stream id, empty until the first chunk is emitted
func (s *TextStream) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// EmitChunk emits the next piece of text
func (s *TextStream) EmitChunk(ctx context.Context, chunk string) error {
	return s.send(ctx, "TextStream.EmitChunk", chunk, false)
}

// Complete emits the closing chunk of the stream
func (s *TextStream) Complete(ctx context.Context) error {
	return s.send(ctx, "TextStream.Complete", "", true)
}

// IsComplete reports whether the stream has been completed
func (s *TextStream) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

func (s *TextStream) send(ctx context.Context, op, chunk string, last bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return &FrameworkError{Op: op, Kind: "response", ID: s.streamID, Err: ErrStreamComplete}
	}
	if s.streamID == "" {
		id, err := s.handler.ids.NewID()
		if err != nil {
			return &FrameworkError{Op: op, Kind: "response", Err: fmt.Errorf("%w: %v", ErrIDGeneration, err)}
		}
		s.streamID = id
	}

	if err := s.handler.emit(ctx, op, Event{
		EventName:   s.eventName,
		ContentType: ContentTypeTextChunk,
		Content:     chunk,
		StreamID:    s.streamID,
		IsComplete:  last,
	}); err != nil {
		return err
	}
	if last {
		s.complete = true
	}
	return nil
}
