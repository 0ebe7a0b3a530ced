// Package pathwalk descends the request path one segment at a time,
// resolves the leaf through the stage builder, then on the way back up
// lets each ancestor directory's own .index wrap the result, unless a
// .base marker freezes it first.
package pathwalk

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pipeserve/pipeserve/internal/pipestate"
	"github.com/pipeserve/pipeserve/internal/stage"
)

// Walk resolves layers against baseDir, starting from seed (typically a
// StaticFile wrapping the buffered request body). argv is the Params
// vector passed to every stage spawned along the way.
func Walk(baseDir string, layers []string, argv []string, seed pipestate.State) pipestate.State {
	result, _ := walk(baseDir, baseDir, layers, argv, seed)
	return result
}

// walk returns the resolved state for this subtree plus whether a
// descendant raised Done, in which case every enclosing call must pass
// the result through unchanged with no wrapping of its own.
func walk(baseDir, curr string, layers []string, argv []string, state pipestate.State) (pipestate.State, bool) {
	if len(layers) == 0 {
		return stage.HandleFile(curr, state, argv), false
	}

	head, rest := layers[0], layers[1:]
	if strings.HasPrefix(head, ".") {
		return pipestate.ErrorCode{Status: 403}, false
	}

	next := filepath.Join(curr, head)
	if !contained(baseDir, next) {
		return pipestate.ErrorCode{Status: 403}, false
	}

	child, done := walk(baseDir, next, rest, argv, state)
	if done {
		return child, true
	}

	if hasBase(curr) {
		return child, true
	}

	return stage.MaybeWrap(curr, child, argv), false
}

// contained verifies candidate is still a prefix of the canonicalized
// base after symlink resolution, closing off a symlink planted inside
// the tree from escaping it.
func contained(baseDir, candidate string) bool {
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		// Candidate doesn't exist yet (most leaves, and any directory
		// probed before the .index substitution). Dot-segments were
		// already rejected above, so the lexical path is still safe.
		resolved = filepath.Clean(candidate)
	}
	rel, err := filepath.Rel(baseDir, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasBase(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".base"))
	return err == nil && !info.IsDir()
}
