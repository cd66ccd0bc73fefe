package search

import (
	"strings"
	"unicode"

	"github.com/rcliao/frontdesk/internal/config"
)

// Expander appends domain synonyms to a query before it is embedded. The
// table is fixed at construction.
type Expander struct {
	entries []config.SynonymEntry
}

func NewExpander(entries []config.SynonymEntry) *Expander {
	cp := make([]config.SynonymEntry, 0, len(entries))
	for _, e := range entries {
		term := strings.ToLower(strings.TrimSpace(e.Term))
		if term == "" {
			continue
		}
		cp = append(cp, config.SynonymEntry{Term: term, Variants: append([]string(nil), e.Variants...)})
	}
	return &Expander{entries: cp}
}

// Expand returns query followed by the variants of every table term found
// as a whole word, each variant at most once and in table order.
func (x *Expander) Expand(query string) string {
	if x == nil || len(x.entries) == 0 {
		return query
	}
	padded := " " + strings.Join(words(query), " ") + " "

	var extra []string
	seen := map[string]bool{}
	for _, e := range x.entries {
		if !strings.Contains(padded, " "+e.Term+" ") {
			continue
		}
		for _, v := range e.Variants {
			if seen[v] {
				continue
			}
			seen[v] = true
			extra = append(extra, v)
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
