package notes

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type titles []Note

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }

// Filter returns the notes whose title fuzzy-matches query, best match
// first. A blank query returns ns unchanged, in store order.
func Filter(ns []Note, query string) []Note {
	query = strings.TrimSpace(query)
	if query == "" {
		return ns
	}
	matches := fuzzy.FindFrom(query, titles(ns))
	out := make([]Note, 0, len(matches))
	for _, m := range matches {
		out = append(out, ns[m.Index])
	}
	return out
}
