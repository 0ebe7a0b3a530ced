// Package params assembles the Params vector: the argv tail passed
// verbatim to every stage in a pipeline, encoding the
// request's URI, method, headers, and query positionally so a stage can
// parse it without a shared schema beyond "three blocks, each terminated
// by an empty-string separator".
package params

import (
	"sort"
	"strings"

	"github.com/pipeserve/pipeserve/internal/headertext"
)

// Build assembles the Params vector.
//
// Layout, in order:
//  1. URI path (with leading '/').
//  2. HTTP method name.
//  3. "" separator.
//  4. "name=value" entries, one per header whose value is valid
//     single-line text, sorted by header name for determinism.
//  5. "" separator.
//  6. Raw query parameters (query string split on '&', empty entries
//     dropped).
//  7. "" separator.
func Build(uriPath, method string, headers map[string][]string, rawQuery string) []string {
	out := make([]string, 0, len(headers)+8)
	out = append(out, uriPath, method, "")
	out = append(out, headerEntries(headers)...)
	out = append(out, "")
	out = append(out, queryEntries(rawQuery)...)
	out = append(out, "")
	return out
}

func headerEntries(headers map[string][]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]string, 0, len(names))
	for _, name := range names {
		value := strings.Join(headers[name], ", ")
		if !headertext.IsValidSingleLine(value) {
			continue
		}
		entries = append(entries, name+"="+value)
	}
	return entries
}

func queryEntries(rawQuery string) []string {
	if rawQuery == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
