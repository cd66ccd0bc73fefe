// Package intent extracts rule-based intent signals from raw user text.
// Classification is pure and never fails; empty input sets no flags.
package intent

import (
	"strings"
	"unicode"

	"github.com/rcliao/frontdesk/internal/model"
)

// Intent tags persisted on each session turn.
const (
	TagOutOfScope  = "out_of_scope"
	TagClosing     = "closing"
	TagUrgent      = "urgent"
	TagFrustrated  = "frustrated"
	TagAppointment = "appointment"
	TagTimeRelated = "time_related"
	TagGreeting    = "greeting"
	TagInquiry     = "inquiry"
	TagGeneral     = "general"
)

type topicSet struct {
	topic string
	set   phraseSet
}

// Classifier computes IntentSignal flags from keyword tables.
type Classifier struct {
	greeting        phraseSet
	urgent          phraseSet
	frustrated      phraseSet
	questionWords   phraseSet
	timeRelated     phraseSet
	appointment     phraseSet
	thanks          phraseSet
	goodbye         phraseSet
	acknowledgement phraseSet
	topics          []topicSet
}

func NewClassifier(t *Tables) *Classifier {
	c := &Classifier{
		greeting:        newPhraseSet(t.Signals.Greeting),
		urgent:          newPhraseSet(t.Signals.Urgent),
		frustrated:      newPhraseSet(t.Signals.Frustrated),
		questionWords:   newPhraseSet(t.Signals.QuestionWords),
		timeRelated:     newPhraseSet(t.Signals.TimeRelated),
		appointment:     newPhraseSet(t.Signals.Appointment),
		thanks:          newPhraseSet(t.Signals.Thanks),
		goodbye:         newPhraseSet(t.Signals.Goodbye),
		acknowledgement: newPhraseSet(t.Signals.Acknowledgement),
	}
	for _, tt := range t.OutOfScope {
		c.topics = append(c.topics, topicSet{topic: tt.Topic, set: newPhraseSet(tt.Keywords)})
	}
	return c
}

// Classify computes the flags for one input.
func (c *Classifier) Classify(text string) model.IntentSignal {
	in := newInput(text)
	if len(in.tokens) == 0 {
		return model.IntentSignal{}
	}

	s := model.IntentSignal{
		Greeting:        c.greeting.match(in),
		Urgent:          c.urgent.match(in),
		Frustrated:      c.frustrated.match(in),
		TimeRelated:     c.timeRelated.match(in),
		Appointment:     c.appointment.match(in),
		Thanks:          c.thanks.match(in),
		Goodbye:         c.goodbye.match(in),
		Acknowledgement: c.acknowledgement.match(in),
	}
	s.Inquiry = strings.Contains(text, "?") || c.questionWords.words[in.tokens[0]]
	s.Closing = s.Thanks || s.Goodbye || s.Acknowledgement
	for _, ts := range c.topics {
		if ts.set.match(in) {
			s.OutOfScope = true
			s.OutOfScopeTopic = ts.topic
			break
		}
	}
	return s
}

// Tag summarises a signal as a single intent tag.
func Tag(s model.IntentSignal) string {
	switch {
	case s.OutOfScope:
		return TagOutOfScope
	case s.Closing:
		return TagClosing
	case s.Urgent:
		return TagUrgent
	case s.Frustrated:
		return TagFrustrated
	case s.Appointment:
		return TagAppointment
	case s.TimeRelated:
		return TagTimeRelated
	case s.Greeting:
		return TagGreeting
	case s.Inquiry:
		return TagInquiry
	default:
		return TagGeneral
	}
}

// input is a normalized view of one user text.
type input struct {
	tokens []string
	has    map[string]bool
	joined string
}

func newInput(text string) *input {
	toks := tokenize(text)
	in := &input{
		tokens: toks,
		has:    make(map[string]bool, len(toks)),
		joined: " " + strings.Join(toks, " ") + " ",
	}
	for _, t := range toks {
		in.has[t] = true
	}
	return in
}

// tokenize lowercases text and splits on anything but letters, digits and
// apostrophes.
func tokenize(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
