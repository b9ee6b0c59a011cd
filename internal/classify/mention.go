package classify

import (
	"regexp"
	"strings"
)

// mentionPattern matches a subject mention: a Slack user reference
// (<@U123> or <@U123|name>), an @handle, or a bare handle.
const mentionPattern = `(<@[A-Za-z0-9]+(?:\|[^>]+)?>|@[\w.\-]+|[\w.\-]+)`

var slackRefRe = regexp.MustCompile(`^<@([A-Za-z0-9]+)(?:\|([^>]+))?>$`)

// Mention is a parsed reference to a person.
type Mention struct {
	// ID is the platform user id for Slack references, or the lowercased
	// handle for @name and bare names.
	ID string
	// Name is the display text carried by the mention, if any.
	Name string
	// PlatformID reports whether ID came from a platform user reference.
	PlatformID bool
}

// ParseMention parses one mention token. Returns false for empty input.
func ParseMention(tok string) (Mention, bool) {
	tok = strings.TrimSpace(tok)
	tok = strings.TrimRight(tok, "?!.,:;")
	if tok == "" {
		return Mention{}, false
	}
	if m := slackRefRe.FindStringSubmatch(tok); m != nil {
		return Mention{ID: m[1], Name: m[2], PlatformID: true}, true
	}
	name := strings.TrimPrefix(tok, "@")
	if name == "" {
		return Mention{}, false
	}
	return Mention{ID: strings.ToLower(name), Name: name}, true
}
