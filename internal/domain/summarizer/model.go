package summarizer

import (
	"time"

	"github.com/yanqian/meeting-summarizer/pkg/metrics"
)

const (
	// FallbackMessage is returned whenever the provider yields no usable text.
	FallbackMessage = "Summary could not be generated at this time. Please check the transcript or try a different prompt."
	// StreamErrorMessage is carried by the in-band error event of a failed stream.
	StreamErrorMessage = "Summary generation was interrupted. Please try again."

	minTranscriptLen = 20
	minPromptLen     = 5
)

// Config configures generation and history behaviour.
type Config struct {
	Model             string
	Temperature       float32
	HistoryLimit      int
	HeartbeatInterval time.Duration
	EstimateTokens    bool
}

// Request represents the incoming summarization payload.
type Request struct {
	Transcript string `json:"transcript" validate:"required,min=20"`
	Prompt     string `json:"prompt" validate:"required,min=5"`
}

// Response is returned by the sync endpoint.
type Response struct {
	Summary    string              `json:"summary"`
	DurationMs int64               `json:"durationMs,omitempty"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// Record is a persisted prompt/summary pair.
type Record struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is one server-sent event payload of a streamed summary.
type Event struct {
	Chunk   string `json:"chunk,omitempty"`
	Event   string `json:"event,omitempty"`
	Message string `json:"message,omitempty"`
}

// ChunkEvent carries one generated fragment.
func ChunkEvent(fragment string) Event {
	return Event{Chunk: fragment}
}

// DoneEvent terminates a successful stream.
func DoneEvent() Event {
	return Event{Event: "done"}
}

// ErrorEvent terminates a failed stream.
func ErrorEvent(message string) Event {
	return Event{Event: "error", Message: message}
}
