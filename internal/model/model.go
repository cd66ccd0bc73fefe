// Package model defines the core retrieval and conversation data types.
package model

import "time"

// EmbeddingRecord pairs a stored vector with the text it was computed from.
// Records are immutable once loaded and shared read-only between turns.
type EmbeddingRecord struct {
	Vector []float32 `json:"vector"`
	Text   string    `json:"text"`
}

// ScoredText is a search hit with its cosine similarity and store position.
type ScoredText struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// SessionTurn is one user input paired with the assistant's response.
type SessionTurn struct {
	UserText        string    `json:"user_text"`
	AssistantText   string    `json:"assistant_text"`
	Timestamp       time.Time `json:"timestamp"`
	IntentTag       string    `json:"intent_tag,omitempty"`
	RetrievedChunks []string  `json:"retrieved_chunks"`
	Source          string    `json:"source,omitempty"`
}

// Response sources recorded on each turn.
const (
	SourceOutOfScope    = "out_of_scope"
	SourceFarewell      = "farewell"
	SourceClarification = "clarification"
	SourceGenerated     = "generated"
)

// IntentSignal holds the flags detected for a single input. It is recomputed
// every turn and never persisted; only the summary tag is.
type IntentSignal struct {
	Greeting        bool   `json:"greeting"`
	Urgent          bool   `json:"urgent"`
	Frustrated      bool   `json:"frustrated"`
	Inquiry         bool   `json:"inquiry"`
	TimeRelated     bool   `json:"time_related"`
	Appointment     bool   `json:"appointment"`
	Thanks          bool   `json:"thanks"`
	Goodbye         bool   `json:"goodbye"`
	Acknowledgement bool   `json:"acknowledgement"`
	Closing         bool   `json:"closing"`
	OutOfScope      bool   `json:"out_of_scope"`
	OutOfScopeTopic string `json:"out_of_scope_topic,omitempty"`
}

// Flags returns the names of the flags that are set, in a fixed order.
func (s IntentSignal) Flags() []string {
	var out []string
	add := func(on bool, name string) {
		if on {
			out = append(out, name)
		}
	}
	add(s.Greeting, "greeting")
	add(s.Urgent, "urgent")
	add(s.Frustrated, "frustrated")
	add(s.Inquiry, "inquiry")
	add(s.TimeRelated, "time_related")
	add(s.Appointment, "appointment")
	add(s.Thanks, "thanks")
	add(s.Goodbye, "goodbye")
	add(s.Acknowledgement, "acknowledgement")
	add(s.Closing, "closing")
	add(s.OutOfScope, "out_of_scope")
	return out
}

// FlowResult is the outcome of the keyword-scored conversation flow selector.
type FlowResult struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Next       []string `json:"next_intents,omitempty"`
}
