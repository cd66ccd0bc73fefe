package intent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Tables holds every keyword list the classifiers use. Loaded once and not
// modified afterwards.
type Tables struct {
	Signals    SignalTables `yaml:"signals"`
	OutOfScope []TopicTable `yaml:"out_of_scope"`
	Flow       FlowTable    `yaml:"flow"`
}

type SignalTables struct {
	Greeting        []string `yaml:"greeting"`
	Urgent          []string `yaml:"urgent"`
	Frustrated      []string `yaml:"frustrated"`
	QuestionWords   []string `yaml:"question_words"`
	TimeRelated     []string `yaml:"time_related"`
	Appointment     []string `yaml:"appointment"`
	Thanks          []string `yaml:"thanks"`
	Goodbye         []string `yaml:"goodbye"`
	Acknowledgement []string `yaml:"acknowledgement"`
}

// TopicTable is one disallowed topic.
type TopicTable struct {
	Topic    string   `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
}

type FlowTable struct {
	Threshold float64      `yaml:"threshold"`
	Fallback  []string     `yaml:"fallback"`
	Intents   []FlowIntent `yaml:"intents"`
}

// FlowIntent is a named intent of the conversation flow. Conditions count
// half as much as keywords.
type FlowIntent struct {
	Name       string   `yaml:"name"`
	Keywords   []string `yaml:"keywords"`
	Conditions []string `yaml:"conditions"`
	Responses  []string `yaml:"responses"`
	Next       []string `yaml:"next_intents"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() *Tables {
	t, err := parseTables(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("intent: built-in tables: %v", err))
	}
	return t
}

// LoadTables reads tables from path, or the built-in ones when path is empty.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent tables: %w", err)
	}
	t, err := parseTables(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func parseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse intent tables: %w", err)
	}
	if len(t.Flow.Fallback) == 0 {
		return nil, fmt.Errorf("flow.fallback must not be empty")
	}
	seen := map[string]bool{}
	for i, in := range t.Flow.Intents {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("flow intent %d has no name", i)
		}
		if name == FallbackIntent || seen[name] {
			return nil, fmt.Errorf("flow intent %q is reserved or duplicated", name)
		}
		seen[name] = true
		if len(in.Keywords)+len(in.Conditions) == 0 {
			return nil, fmt.Errorf("flow intent %q has no keywords", name)
		}
		if len(in.Responses) == 0 {
			return nil, fmt.Errorf("flow intent %q has no responses", name)
		}
	}
	return &t, nil
}

// phraseSet matches single words against tokens and multi-word entries
// against the space-joined token stream.
type phraseSet struct {
	words   map[string]bool
	phrases []string
}

func newPhraseSet(entries []string) phraseSet {
	ps := phraseSet{words: make(map[string]bool)}
	for _, e := range entries {
		toks := tokenize(e)
		switch len(toks) {
		case 0:
		case 1:
			ps.words[toks[0]] = true
		default:
			ps.phrases = append(ps.phrases, " "+strings.Join(toks, " ")+" ")
		}
	}
	return ps
}

func (ps phraseSet) match(in *input) bool {
	return ps.count(in) > 0
}

// count returns how many distinct entries occur in the input.
func (ps phraseSet) count(in *input) int {
	n := 0
	for w := range ps.words {
		if in.has[w] {
			n++
		}
	}
	for _, p := range ps.phrases {
		if strings.Contains(in.joined, p) {
			n++
		}
	}
	return n
}
