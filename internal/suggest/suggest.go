// Package suggest produces "did you mean" diagnostics for 404 responses.
// It is purely a diagnostic-trace aid: its output never reaches the
// client-visible response body, only the trace sink.
package suggest

import (
	"os"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Nearest returns up to limit sibling filenames in dir that are
// close matches for want, ranked by edit distance (closest first).
// Returns nil if dir can't be read, and an empty slice if no name matches.
func Nearest(dir, want string, limit int) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	ranks := fuzzy.RankFindFold(want, names)
	sort.Sort(ranks)

	out := make([]string, 0, limit)
	for _, r := range ranks {
		if len(out) >= limit {
			break
		}
		out = append(out, r.Target)
	}
	return out
}
