package core

import (
	"time"
)

// EventContentType tells consumers how to interpret Event.Content
type EventContentType string

const (
	ContentTypeTextBlock EventContentType = "atomic.textblock"
	ContentTypeJSON      EventContentType = "atomic.json"
	ContentTypeError     EventContentType = "atomic.error"
	ContentTypeTextChunk EventContentType = "chunked.text"
	ContentTypeDone      EventContentType = "atomic.done"
)

// Event names used by the framework itself
const (
	EventNameDone  = "done"
	EventNameError = "error"
)

// Event is the unit a ResponseHandler pushes through a Hook
type Event struct {
	ID          string           `json:"id"`
	Source      string           `json:"source"`
	EventName   string           `json:"event_name"`
	ContentType EventContentType `json:"content_type"`
	Content     interface{}      `json:"content,omitempty"`
	StreamID    string           `json:"stream_id,omitempty"`
	IsComplete  bool             `json:"is_complete,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// ErrorContent is the payload of an atomic.error event
type ErrorContent struct {
	Message string                 `json:"error_message"`
	Code    int                    `json:"error_code"`
	Details map[string]interface{} `json:"details,omitempty"`
}
