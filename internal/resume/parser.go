package resume

import (
	"regexp"
	"strings"
)

// ParsedFields is the best-effort contact profile derived from raw resume
// text. A field the heuristics could not find stays empty; it is never
// guessed, so callers can tell "known" from "unknown" and prompt for it.
type ParsedFields struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

var (
	emailRe = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)

	// Indian mobile numbers: optional +91 country code or trunk zero, a
	// leading digit in 6-9, then nine more digits with optional
	// interleaved spaces/hyphens.
	phoneRe = regexp.MustCompile(`(?:\+?91[\s-]*)?0?\s*[6-9]\d(?:[\s-]?\d){8}`)

	tenDigitRe = regexp.MustCompile(`^[6-9]\d{9}$`)
	nonDigitRe = regexp.MustCompile(`\D`)

	// Obfuscated separators: "at"/"dot" set off by whitespace and/or
	// brackets, as in "jane [at] example [dot] com".
	obfuscatedAtRe  = regexp.MustCompile(`(?i)(?:\s|[(\[{])+at(?:\s|[)\]}])+`)
	obfuscatedDotRe = regexp.MustCompile(`(?i)(?:\s|[(\[{])+dot(?:\s|[)\]}])+`)
	mailtoRe        = regexp.MustCompile(`(?i)mailto:\s*`)

	sectionHeaderRe = regexp.MustCompile(`(?i)email|phone|github|linkedin|education|experience|summary|address|resume|curriculum vitae|^cv$`)
	capitalizedRe   = regexp.MustCompile(`^[A-Z][a-z'.-]+$`)
	acronymRe       = regexp.MustCompile(`^[A-Z]{2,}$`)
	digitRe         = regexp.MustCompile(`\d`)
)

// ParseFields runs the extraction heuristics over raw document text.
func ParseFields(raw string) ParsedFields {
	cleaned := normalize(raw)

	lines := make([]string, 0, 64)
	for _, l := range strings.Split(cleaned, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	out := ParsedFields{
		Email: emailRe.FindString(cleaned),
		Phone: firstPhone(cleaned),
	}
	out.Name = findName(lines, out.Email)
	return out
}

func normalize(raw string) string {
	s := strings.ReplaceAll(raw, "\r", "")
	s = obfuscatedAtRe.ReplaceAllString(s, "@")
	s = obfuscatedDotRe.ReplaceAllString(s, ".")
	return mailtoRe.ReplaceAllString(s, "")
}

// NormalizePhone canonicalizes a matched phone candidate to +91 followed by
// ten digits. It strips non-digits, drops a leading country code or trunk
// zero, and accepts only an exact ten-digit remainder starting with 6-9.
func NormalizePhone(in string) (string, bool) {
	d := nonDigitRe.ReplaceAllString(in, "")
	if strings.HasPrefix(d, "91") && len(d) >= 12 {
		d = d[len(d)-10:]
	}
	if strings.HasPrefix(d, "0") && len(d) == 11 {
		d = d[1:]
	}
	if len(d) == 10 && tenDigitRe.MatchString(d) {
		return "+91" + d, true
	}
	return "", false
}

func firstPhone(cleaned string) string {
	for _, m := range phoneRe.FindAllString(cleaned, -1) {
		if p, ok := NormalizePhone(m); ok {
			return p
		}
	}
	return ""
}

// looksLikeName accepts 2-5 words, each capitalized or an all-caps acronym,
// with no digits and no section-header keywords.
func looksLikeName(s string) bool {
	if s == "" || digitRe.MatchString(s) {
		return false
	}
	if sectionHeaderRe.MatchString(s) {
		return false
	}
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		if !capitalizedRe.MatchString(w) && !acronymRe.MatchString(w) {
			return false
		}
	}
	return true
}

func findName(lines []string, email string) string {
	top := lines
	if len(top) > 10 {
		top = top[:10]
	}
	for _, l := range top {
		if looksLikeName(l) {
			return l
		}
	}

	// No name up top: search around the email line, nearer offsets first,
	// "before" winning over "after" at equal distance.
	if email == "" {
		return ""
	}
	idx := -1
	for i, l := range lines {
		if strings.Contains(l, email) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ""
	}
	for off := 1; off <= 2; off++ {
		if j := idx - off; j >= 0 && looksLikeName(lines[j]) {
			return lines[j]
		}
		if j := idx + off; j < len(lines) && looksLikeName(lines[j]) {
			return lines[j]
		}
	}
	return ""
}
