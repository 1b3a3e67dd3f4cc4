package render

import (
	"regexp"
	"strings"
)

// SpanKind classifies a piece of enriched text.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanURL
	SpanEmail
	SpanPhone
)

// String returns the string representation of the kind.
func (k SpanKind) String() string {
	switch k {
	case SpanText:
		return "text"
	case SpanURL:
		return "url"
	case SpanEmail:
		return "email"
	case SpanPhone:
		return "phone"
	default:
		return "unknown"
	}
}

// Span is a run of text with an optional actionable reference. The
// concatenation of all span texts always equals the source text.
type Span struct {
	Kind SpanKind
	Text string

	// Ref is the action target: the URL itself, a mailto: address, or a
	// tel: number. Empty for plain text spans.
	Ref string
}

// Matches URLs, emails, and phone-shaped tokens, in that precedence order.
var enrichRe = regexp.MustCompile(
	`(https?://[^\s<>"]+|www\.[^\s<>"]+)` +
		`|([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})` +
		`|(\+?\(?\d[\d\s().-]{5,}\d)`)

// trailing punctuation that reads as prose, not as part of a URL
const urlTrailingCut = ".,;:!?"

var digitRe = regexp.MustCompile(`\d`)

// Enrich splits completed text into spans, marking URLs, email addresses,
// and phone-number-shaped tokens (7+ digits, local or international) as
// actionable references. It is a pure function of the text, so re-enriching
// the concatenated span text yields the identical spans.
func Enrich(text string) []Span {
	var spans []Span
	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].Kind == SpanText {
			spans[n-1].Text += s
			return
		}
		spans = append(spans, Span{Kind: SpanText, Text: s})
	}

	rest := text
	for rest != "" {
		loc := enrichRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			appendText(rest)
			break
		}
		appendText(rest[:loc[0]])
		match := rest[loc[0]:loc[1]]
		rest = rest[loc[1]:]

		switch {
		case loc[2] >= 0: // URL
			trimmed := strings.TrimRight(match, urlTrailingCut)
			ref := trimmed
			if strings.HasPrefix(ref, "www.") {
				ref = "https://" + ref
			}
			spans = append(spans, Span{Kind: SpanURL, Text: trimmed, Ref: ref})
			appendText(match[len(trimmed):])
		case loc[4] >= 0: // email
			spans = append(spans, Span{Kind: SpanEmail, Text: match, Ref: "mailto:" + match})
		default: // phone-shaped
			if len(digitRe.FindAllString(match, -1)) < 7 {
				appendText(match)
				continue
			}
			spans = append(spans, Span{Kind: SpanPhone, Text: match, Ref: "tel:" + compactPhone(match)})
		}
	}
	return spans
}

// compactPhone strips formatting from a phone token, keeping digits and a
// leading plus.
func compactPhone(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// JoinSpans reassembles the source text from spans.
func JoinSpans(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
