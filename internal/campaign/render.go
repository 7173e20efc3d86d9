package campaign

import (
	"strings"

	"campaigner/internal/domain"
)

// The recognized placeholder set is closed on purpose: a template author can
// only reference subject fields the engine knows about. A token whose value
// is empty, or any token outside this set, stays verbatim in the output.
const (
	tokenName     = "{candidate_name}"
	tokenPosition = "{position}"
)

func Render(pattern string, sub domain.Subject) string {
	out := pattern
	if sub.Name != "" {
		out = strings.ReplaceAll(out, tokenName, sub.Name)
	}
	if sub.Position != "" {
		out = strings.ReplaceAll(out, tokenPosition, sub.Position)
	}
	return out
}
