package intent

import (
	"math/rand"

	"github.com/rcliao/frontdesk/internal/model"
)

// FallbackIntent is reported when no flow intent reaches the threshold.
const FallbackIntent = "fallback"

type scoredIntent struct {
	FlowIntent
	keywords   phraseSet
	conditions phraseSet
	weight     float64
}

// FlowClassifier selects one named conversation-flow intent by normalized
// keyword score.
type FlowClassifier struct {
	intents   []scoredIntent
	byName    map[string]int
	fallback  []string
	threshold float64
}

func NewFlowClassifier(t *Tables) *FlowClassifier {
	f := &FlowClassifier{
		byName:    make(map[string]int),
		fallback:  t.Flow.Fallback,
		threshold: t.Flow.Threshold,
	}
	for i, in := range t.Flow.Intents {
		f.intents = append(f.intents, scoredIntent{
			FlowIntent: in,
			keywords:   newPhraseSet(in.Keywords),
			conditions: newPhraseSet(in.Conditions),
			weight:     float64(len(in.Keywords)) + 0.5*float64(len(in.Conditions)),
		})
		f.byName[in.Name] = i
	}
	return f
}

// Analyze scores every intent as (keyword hits + 0.5 * condition hits)
// normalized by the same weights over the full lists. The best score wins
// if it reaches the threshold; ties keep the earlier intent. Below the
// threshold the result is FallbackIntent carrying the best score seen.
func (f *FlowClassifier) Analyze(text string) model.FlowResult {
	in := newInput(text)
	best, bestScore := -1, 0.0
	for i, si := range f.intents {
		if si.weight == 0 {
			continue
		}
		hits := float64(si.keywords.count(in)) + 0.5*float64(si.conditions.count(in))
		score := hits / si.weight
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < f.threshold {
		return model.FlowResult{Intent: FallbackIntent, Confidence: bestScore}
	}
	name := f.intents[best].Name
	return model.FlowResult{
		Intent:     name,
		Confidence: bestScore,
		Next:       f.Next(name),
	}
}

// Respond picks one canned response for the result's intent. rng is not
// safe for concurrent use; callers serialize access.
func (f *FlowClassifier) Respond(r model.FlowResult, rng *rand.Rand) string {
	pool := f.fallback
	if i, ok := f.byName[r.Intent]; ok {
		pool = f.intents[i].Responses
	}
	return pick(pool, rng)
}

// Next lists the follow-up intents of a named intent.
func (f *FlowClassifier) Next(intent string) []string {
	if i, ok := f.byName[intent]; ok {
		return f.intents[i].Next
	}
	return nil
}

func pick(pool []string, rng *rand.Rand) string {
	if len(pool) == 0 {
		return ""
	}
	if rng == nil {
		return pool[0]
	}
	return pool[rng.Intn(len(pool))]
}
