// Package message models conventional commit messages: parsing,
// formatting, and draft synthesis from a classification.
package message

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmpty and ErrFormat are returned by Parse.
var (
	ErrEmpty  = errors.New("empty commit message")
	ErrFormat = errors.New("not a conventional commit message")
)

var conventionalRe = regexp.MustCompile(
	`^(?P<type>[a-z]+)(?:\((?P<scope>[^)]+)\))?(?P<breaking>!)?: (?P<subject>.+)$`,
)

// Message is a structured conventional commit message.
type Message struct {
	Type     string
	Scope    string
	Subject  string
	Body     string
	Footer   string
	Breaking bool
}

// Parse splits a commit message into its conventional parts. The first
// line must match `type(scope)!: subject`; body and footer are separated
// by blank lines. A `BREAKING CHANGE` footer also sets Breaking.
func Parse(raw string) (*Message, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmpty
	}

	lines := strings.Split(raw, "\n")
	header := lines[0]

	m := conventionalRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrFormat, header)
	}

	msg := &Message{
		Type:     m[conventionalRe.SubexpIndex("type")],
		Scope:    m[conventionalRe.SubexpIndex("scope")],
		Subject:  m[conventionalRe.SubexpIndex("subject")],
		Breaking: m[conventionalRe.SubexpIndex("breaking")] == "!",
	}

	body, footer := splitBody(lines[1:])
	msg.Body = body
	msg.Footer = footer
	if strings.Contains(footer, "BREAKING CHANGE") {
		msg.Breaking = true
	}

	return msg, nil
}

// splitBody separates the remaining lines into body and footer. The footer
// is the final blank-line-separated block when it starts with a known
// footer token.
func splitBody(lines []string) (body, footer string) {
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return "", ""
	}

	blocks := strings.Split(text, "\n\n")
	last := strings.TrimSpace(blocks[len(blocks)-1])
	if len(blocks) > 1 && isFooter(last) {
		return strings.TrimSpace(strings.Join(blocks[:len(blocks)-1], "\n\n")), last
	}
	if isFooter(last) && len(blocks) == 1 {
		return "", last
	}
	return text, ""
}

var footerTokens = []string{"BREAKING CHANGE:", "Fixes ", "Closes ", "Refs ", "Signed-off-by:", "Co-authored-by:"}

func isFooter(block string) bool {
	for _, tok := range footerTokens {
		if strings.HasPrefix(block, tok) {
			return true
		}
	}
	return false
}

// Header returns the first line of the formatted message.
func (m *Message) Header() string {
	var b strings.Builder
	b.WriteString(m.Type)
	if m.Scope != "" {
		b.WriteString("(")
		b.WriteString(m.Scope)
		b.WriteString(")")
	}
	if m.Breaking {
		b.WriteString("!")
	}
	b.WriteString(": ")
	b.WriteString(m.Subject)
	return b.String()
}

// Format renders the full message text.
func (m *Message) Format() string {
	var b strings.Builder
	b.WriteString(m.Header())
	if m.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(m.Body)
	}
	if m.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(m.Footer)
	}
	return b.String()
}
