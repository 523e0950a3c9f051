package usecase

import (
	"regexp"
	"strings"
)

// Sanitization runs before the payload is hashed or shown to the model. It
// is a security boundary: mentions and URLs must not pass into the prompt or
// the delivered message, and long opaque strings are assumed to be secrets.
var (
	urlPattern     = regexp.MustCompile(`https?://\S+`)
	mentionPattern = regexp.MustCompile(`@[\w.\-]+`)
	tokenPattern   = regexp.MustCompile(`[A-Za-z0-9]{32,}`)
)

var markdownReplacer = strings.NewReplacer("`", "", "*", "", "_", "", "~", "")

// sanitizeText scrubs a task title or example before it leaves the snapshot
// builder. No @ survives, mention-shaped or not: a bare one would still read
// as a mention in the delivered message.
func sanitizeText(s string) string {
	s = urlPattern.ReplaceAllString(s, "")
	s = mentionPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "@", "")
	s = tokenPattern.ReplaceAllString(s, "[TOKEN]")
	s = markdownReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
