package intent

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/frontdesk/internal/model"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultTables())

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, s model.IntentSignal)
	}{
		{"empty", "", func(t *testing.T, s model.IntentSignal) {
			assert.Equal(t, model.IntentSignal{}, s)
		}},
		{"punctuation only", "?!...", func(t *testing.T, s model.IntentSignal) {
			assert.Equal(t, model.IntentSignal{}, s)
		}},
		{"greeting", "Hello there", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Greeting)
			assert.False(t, s.Inquiry)
		}},
		{"greeting is whole word", "This is about shipping", func(t *testing.T, s model.IntentSignal) {
			assert.False(t, s.Greeting)
		}},
		{"greeting phrase", "good morning!", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Greeting)
		}},
		{"weather is out of scope", "What's the weather like today?", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.OutOfScope)
			assert.Equal(t, "weather", s.OutOfScopeTopic)
			assert.True(t, s.Inquiry)
		}},
		{"medical is out of scope", "which medication should I take for my symptoms", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.OutOfScope)
			assert.Equal(t, "medical", s.OutOfScopeTopic)
			assert.True(t, s.Inquiry, "leading question word")
		}},
		{"closing variants", "thanks, bye", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Thanks)
			assert.True(t, s.Goodbye)
			assert.False(t, s.Acknowledgement)
			assert.True(t, s.Closing)
		}},
		{"acknowledgement closes", "ok got it", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Acknowledgement)
			assert.True(t, s.Closing)
		}},
		{"thank you phrase", "Thank you so much", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Thanks)
		}},
		{"urgent appointment", "I need an appointment ASAP", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Urgent)
			assert.True(t, s.Appointment)
		}},
		{"frustrated", "This is ridiculous, I'm still waiting", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Frustrated)
		}},
		{"time related inquiry", "What time do you open?", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.TimeRelated)
			assert.True(t, s.Inquiry)
			assert.False(t, s.OutOfScope)
			assert.False(t, s.Closing)
		}},
		{"curly apostrophe", "What’s your address", func(t *testing.T, s model.IntentSignal) {
			assert.True(t, s.Inquiry)
		}},
		{"unrelated", "xyzzy completely unrelated token string", func(t *testing.T, s model.IntentSignal) {
			assert.Empty(t, s.Flags())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, c.Classify(tt.input))
		})
	}
}

func TestTag_Priority(t *testing.T) {
	tests := []struct {
		signal model.IntentSignal
		want   string
	}{
		{model.IntentSignal{}, TagGeneral},
		{model.IntentSignal{Inquiry: true}, TagInquiry},
		{model.IntentSignal{Inquiry: true, Greeting: true}, TagGreeting},
		{model.IntentSignal{Greeting: true, TimeRelated: true}, TagTimeRelated},
		{model.IntentSignal{TimeRelated: true, Appointment: true}, TagAppointment},
		{model.IntentSignal{Appointment: true, Frustrated: true}, TagFrustrated},
		{model.IntentSignal{Frustrated: true, Urgent: true}, TagUrgent},
		{model.IntentSignal{Urgent: true, Closing: true, Thanks: true}, TagClosing},
		{model.IntentSignal{Closing: true, OutOfScope: true}, TagOutOfScope},
	}
	for _, tt := range tests {
		if got := Tag(tt.signal); got != tt.want {
			t.Errorf("Tag(%v) = %q, want %q", tt.signal.Flags(), got, tt.want)
		}
	}
}

func TestFlowClassifier_Analyze(t *testing.T) {
	f := NewFlowClassifier(DefaultTables())

	tests := []struct {
		input      string
		intent     string
		confidence float64
	}{
		{"hey hi hello", "greeting", 0.5},
		{"I want to book an appointment", "appointment", 2 / 5.5},
		{"urgent appointment asap", "appointment", 2 / 5.5},
		{"where is your location, what's the address", "location", 0.6},
		{"thanks, bye", "farewell", 0.4},
		{"what hours are you open and when do you close", "business_hours", 0.6},
		{"What time do you open?", FallbackIntent, 0.2},
		{"xyzzy", FallbackIntent, 0},
		{"", FallbackIntent, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := f.Analyze(tt.input)
			assert.Equal(t, tt.intent, got.Intent)
			assert.InDelta(t, tt.confidence, got.Confidence, 1e-9)
		})
	}
}

func TestFlowClassifier_TieKeepsEarliest(t *testing.T) {
	tables := &Tables{Flow: FlowTable{
		Threshold: 0.3,
		Fallback:  []string{"pardon?"},
		Intents: []FlowIntent{
			{Name: "first", Keywords: []string{"shared"}, Responses: []string{"one"}},
			{Name: "second", Keywords: []string{"shared"}, Responses: []string{"two"}},
		},
	}}
	got := NewFlowClassifier(tables).Analyze("shared")
	assert.Equal(t, "first", got.Intent)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
}

func TestFlowClassifier_RespondAndNext(t *testing.T) {
	tables := DefaultTables()
	f := NewFlowClassifier(tables)
	rng := rand.New(rand.NewSource(1))

	greet := f.Analyze("hello hi")
	require.Equal(t, "greeting", greet.Intent)
	assert.Equal(t, []string{"appointment", "business_hours", "location"}, greet.Next)
	assert.Equal(t, f.Next(greet.Intent), greet.Next)
	assert.Contains(t, tables.Flow.Intents[0].Responses, f.Respond(greet, rng))

	fb := f.Analyze("xyzzy")
	assert.Empty(t, fb.Next)
	for i := 0; i < 10; i++ {
		assert.Contains(t, tables.Flow.Fallback, f.Respond(fb, rng))
	}

	assert.Equal(t, []string{"appointment", "location"}, f.Next("business_hours"))
	assert.Nil(t, f.Next("unknown"))
	assert.Equal(t, tables.Flow.Fallback[0], f.Respond(fb, nil))
}

func TestLoadTables(t *testing.T) {
	def, err := LoadTables("")
	require.NoError(t, err)
	assert.Len(t, def.Flow.Intents, 5)
	assert.InDelta(t, 0.3, def.Flow.Threshold, 1e-9)

	dir := t.TempDir()
	custom := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(custom, []byte(`
signals:
  greeting: [aloha]
out_of_scope:
  - topic: sports
    keywords: [football]
flow:
  threshold: 0.5
  fallback: ["Sorry?"]
  intents:
    - name: hello
      keywords: [aloha]
      responses: ["Aloha!"]
`), 0o644))
	tables, err := LoadTables(custom)
	require.NoError(t, err)

	c := NewClassifier(tables)
	assert.True(t, c.Classify("Aloha friend").Greeting)
	assert.False(t, c.Classify("hello").Greeting)
	s := c.Classify("who won the football game")
	assert.True(t, s.OutOfScope)
	assert.Equal(t, "sports", s.OutOfScopeTopic)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("flow:\n  fallback: []\n"), 0o644))
	_, err = LoadTables(bad)
	assert.Error(t, err)

	_, err = LoadTables(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
