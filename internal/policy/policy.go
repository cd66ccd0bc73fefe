// Package policy decides how a turn is answered: a canned response or a
// grounded generation call.
package policy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/frontdesk/internal/config"
	"github.com/rcliao/frontdesk/internal/generation"
	"github.com/rcliao/frontdesk/internal/model"
)

// farewellMaxTokens is the longest closing input answered with a farewell.
const farewellMaxTokens = 4

// Searcher retrieves stored texts relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]string, error)
}

// Options configure an Engine. Zero values take defaults.
type Options struct {
	TopK          int
	MinSimilarity float64
	HistoryTurns  int
	Persona       string
	OutOfScope    []string
	Farewell      []string
	Clarification []string
}

// OptionsFromConfig maps the retrieval and responses config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
		HistoryTurns:  cfg.Retrieval.HistoryTurns,
		Persona:       cfg.Responses.Persona,
		OutOfScope:    cfg.Responses.OutOfScope,
		Farewell:      cfg.Responses.Farewell,
		Clarification: cfg.Responses.Clarification,
	}
}

func (o *Options) applyDefaults() {
	if o.TopK == 0 {
		o.TopK = 3
	}
	if o.HistoryTurns == 0 {
		o.HistoryTurns = 5
	}
	if o.Persona == "" {
		o.Persona = DefaultPersona
	}
	if len(o.OutOfScope) == 0 {
		o.OutOfScope = DefaultOutOfScope
	}
	if len(o.Farewell) == 0 {
		o.Farewell = DefaultFarewell
	}
	if len(o.Clarification) == 0 {
		o.Clarification = DefaultClarification
	}
}

// Request is everything the engine needs for one turn.
type Request struct {
	UserText string
	Signal   model.IntentSignal
	Flow     model.FlowResult
	// FlowResponse is the flow selector's canned answer, offered to the
	// generator as a suggestion.
	FlowResponse string
	History      []model.SessionTurn
	Now          time.Time
}

// Decision is the chosen response and how it was produced.
type Decision struct {
	Text      string
	Source    string
	Retrieved []string
	Prompt    string
}

type Engine struct {
	searcher  Searcher
	generator generation.Generator
	opts      Options

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an Engine. rng drives canned response selection; nil seeds
// from the clock.
func New(searcher Searcher, generator generation.Generator, opts Options, rng *rand.Rand) *Engine {
	opts.applyDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		searcher:  searcher,
		generator: generator,
		opts:      opts,
		rng:       rng,
	}
}

// Respond applies, in order: out-of-scope deflection, short farewell
// (never for a question), retrieval with clarification when nothing is found, then generation.
// Canned branches never call the searcher or the generator.
func (e *Engine) Respond(ctx context.Context, req Request) (Decision, error) {
	if req.Signal.OutOfScope {
		return Decision{Text: e.pick(e.opts.OutOfScope), Source: model.SourceOutOfScope, Retrieved: []string{}}, nil
	}
	if req.Signal.Closing && !req.Signal.Inquiry && len(strings.Fields(req.UserText)) <= farewellMaxTokens {
		return Decision{Text: e.pick(e.opts.Farewell), Source: model.SourceFarewell, Retrieved: []string{}}, nil
	}

	retrieved, err := e.searcher.Search(ctx, req.UserText, e.opts.TopK, e.opts.MinSimilarity)
	if err != nil {
		return Decision{}, fmt.Errorf("retrieve context: %w", err)
	}
	if len(retrieved) == 0 {
		return Decision{Text: e.pick(e.opts.Clarification), Source: model.SourceClarification, Retrieved: []string{}}, nil
	}

	prompt := e.ComposePrompt(req, retrieved)
	text, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, generation.ErrGenerationFailure) {
			err = fmt.Errorf("%w: %v", generation.ErrGenerationFailure, err)
		}
		return Decision{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Decision{}, fmt.Errorf("%w: empty completion", generation.ErrGenerationFailure)
	}
	return Decision{Text: text, Source: model.SourceGenerated, Retrieved: retrieved, Prompt: prompt}, nil
}

// ComposePrompt renders the generation prompt. History is limited to the
// most recent turns, oldest first; retrieved texts appear verbatim.
func (e *Engine) ComposePrompt(req Request, retrieved []string) string {
	var b strings.Builder
	b.WriteString(e.opts.Persona)
	b.WriteString("\n\n")

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	fmt.Fprintf(&b, "Current Time: %s\n", now.Format("2006-01-02 15:04:05 MST"))

	flags := "none"
	if f := req.Signal.Flags(); len(f) > 0 {
		flags = strings.Join(f, ", ")
	}
	fmt.Fprintf(&b, "Detected Signals: %s\n", flags)
	if req.Flow.Intent != "" {
		fmt.Fprintf(&b, "Detected Intent: %s\n", req.Flow.Intent)
		fmt.Fprintf(&b, "Confidence: %.2f\n", req.Flow.Confidence)
	}
	if req.FlowResponse != "" {
		fmt.Fprintf(&b, "Suggested Response: %s\n", req.FlowResponse)
	}

	b.WriteString("\nPrevious Conversation:\n")
	history := req.History
	if len(history) > e.opts.HistoryTurns {
		history = history[len(history)-e.opts.HistoryTurns:]
	}
	if len(history) == 0 {
		b.WriteString("(none)\n")
	}
	for _, t := range history {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.UserText, t.AssistantText)
	}

	b.WriteString("\nRelevant Information:\n")
	for _, r := range retrieved {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	fmt.Fprintf(&b, "\nCurrent User Input: %s\n\n", req.UserText)
	b.WriteString("Please provide a natural, conversational response based only on the relevant information above, " +
		"following the system constraints. If a suggested response is given and fits, you may enhance it.")
	return b.String()
}

func (e *Engine) pick(pool []string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return pool[e.rng.Intn(len(pool))]
}
