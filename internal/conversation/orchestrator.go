// Package conversation drives one user turn end to end: classify, decide,
// persist, reply.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/frontdesk/internal/embedding"
	"github.com/rcliao/frontdesk/internal/generation"
	"github.com/rcliao/frontdesk/internal/intent"
	"github.com/rcliao/frontdesk/internal/logger"
	"github.com/rcliao/frontdesk/internal/model"
	"github.com/rcliao/frontdesk/internal/policy"
	"github.com/rcliao/frontdesk/internal/session"
	"github.com/rcliao/frontdesk/internal/vectorstore"
)

// ResetMessage confirms a session reset.
const ResetMessage = "Session reset. How can I assist you today?"

const module = "conversation"

// Responder picks the response for a classified turn.
type Responder interface {
	Respond(ctx context.Context, req policy.Request) (policy.Decision, error)
}

// Options tune the orchestrator.
type Options struct {
	// GenerationTimeout bounds the whole decision step. Zero means no limit
	// beyond the caller's context.
	GenerationTimeout time.Duration
	// Rand picks the flow selector's suggested response. Nil seeds from the
	// clock.
	Rand *rand.Rand
}

type Orchestrator struct {
	store      session.Store
	classifier *intent.Classifier
	flow       *intent.FlowClassifier
	responder  Responder
	log        logger.ILogger
	opts       Options

	locks sync.Map // key -> *sync.Mutex

	rngMu   sync.Mutex
	rng     *rand.Rand
	idMu    sync.Mutex
	entropy io.Reader
}

func New(store session.Store, classifier *intent.Classifier, flow *intent.FlowClassifier, responder Responder, log logger.ILogger, opts Options) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Orchestrator{
		store:      store,
		classifier: classifier,
		flow:       flow,
		responder:  responder,
		log:        log,
		opts:       opts,
		rng:        rng,
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (o *Orchestrator) lock(key string) func() {
	m, _ := o.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HandleTurn answers userText within the session and records the turn.
// Turns on one key are serialized. Nothing is recorded when an error is
// returned.
func (o *Orchestrator) HandleTurn(ctx context.Context, userText, key string, now time.Time) (string, error) {
	unlock := o.lock(key)
	defer unlock()
	start := time.Now()

	history, err := o.store.Load(ctx, key)
	if errors.Is(err, session.ErrSessionCorrupt) {
		o.log.Warn(module, "corrupt session treated as empty", map[string]interface{}{
			"session": key,
			"error":   err.Error(),
		})
		history = []model.SessionTurn{}
	} else if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	signal := o.classifier.Classify(userText)
	tag := intent.Tag(signal)
	req := policy.Request{
		UserText: userText,
		Signal:   signal,
		History:  history,
		Now:      now,
	}
	if o.flow != nil {
		req.Flow = o.flow.Analyze(userText)
		if req.Flow.Intent != intent.FallbackIntent {
			o.rngMu.Lock()
			req.FlowResponse = o.flow.Respond(req.Flow, o.rng)
			o.rngMu.Unlock()
		}
	}

	dctx := ctx
	if o.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, o.opts.GenerationTimeout)
		defer cancel()
	}
	decision, err := o.responder.Respond(dctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, generation.ErrGenerationFailure) {
			err = fmt.Errorf("%w: %v", generation.ErrGenerationFailure, err)
		}
		o.log.Error(module, "turn failed", map[string]interface{}{
			"session": key,
			"tag":     tag,
			"error":   err,
		})
		return "", err
	}

	turn := model.SessionTurn{
		UserText:        userText,
		AssistantText:   decision.Text,
		Timestamp:       now,
		IntentTag:       tag,
		RetrievedChunks: decision.Retrieved,
		Source:          decision.Source,
	}
	if turn.RetrievedChunks == nil {
		turn.RetrievedChunks = []string{}
	}
	if err := o.store.Append(ctx, key, turn); err != nil {
		return "", fmt.Errorf("save turn: %w", err)
	}

	o.log.Info(module, "turn handled", map[string]interface{}{
		"session":    key,
		"tag":        tag,
		"flow":       req.Flow.Intent,
		"source":     decision.Source,
		"retrieved":  len(decision.Retrieved),
		"latency_ms": time.Since(start).Milliseconds(),
	})
	return decision.Text, nil
}

// ResetSession clears the session's history and returns the confirmation.
func (o *Orchestrator) ResetSession(ctx context.Context, key string) (string, error) {
	unlock := o.lock(key)
	defer unlock()

	if err := o.store.Reset(ctx, key); err != nil {
		return "", fmt.Errorf("reset session: %w", err)
	}
	o.log.Info(module, "session reset", map[string]interface{}{"session": key})
	return ResetMessage, nil
}

// History returns the recorded turns of a session.
func (o *Orchestrator) History(ctx context.Context, key string) ([]model.SessionTurn, error) {
	return o.store.Load(ctx, key)
}

// NewSessionID returns a fresh "session_<ULID>" key. IDs are unique and
// sort by creation even within one millisecond.
func (o *Orchestrator) NewSessionID() string {
	o.idMu.Lock()
	defer o.idMu.Unlock()
	return "session_" + ulid.MustNew(ulid.Timestamp(time.Now()), o.entropy).String()
}

// UserMessage turns a HandleTurn error into text safe to show the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, vectorstore.ErrStoreNotFound):
		return "Sorry, I don't have any information available yet. Please check back soon."
	case errors.Is(err, embedding.ErrEmbeddingFailure), errors.Is(err, generation.ErrGenerationFailure):
		return "Sorry, I'm having trouble answering right now. Please try again in a moment."
	default:
		return "Sorry, something went wrong. Please try again."
	}
}
