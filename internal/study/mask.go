package study

import (
	"regexp"
	"strings"
)

// Mask replaces a hidden phrase in an example sentence.
const Mask = "______"

var wordRe = regexp.MustCompile(`[\p{L}\p{N}']+`)

// MaskPhrase hides phrase in example: the whole phrase first, then each of
// its words (longer than one letter) together with simple English inflections.
func MaskPhrase(example, phrase string) string {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return example
	}
	masked := regexp.MustCompile(phrasePattern(phrase)).ReplaceAllLiteralString(example, Mask)

	seen := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(phrase), -1) {
		if len([]rune(w)) <= 1 || seen[w] {
			continue
		}
		seen[w] = true
		re := regexp.MustCompile(`(?i)\b` + wordForms(w) + `\b`)
		masked = re.ReplaceAllLiteralString(masked, Mask)
	}
	return masked
}

// phrasePattern matches the whole phrase case-insensitively. Edges that are
// word characters get a word boundary, and a trailing word character also
// admits an inflection suffix, so "cat" masks "cats" but not "scatter".
func phrasePattern(phrase string) string {
	p := regexp.QuoteMeta(phrase)
	if isWordByte(phrase[0]) {
		p = `\b` + p
	}
	if isWordByte(phrase[len(phrase)-1]) {
		p += `(?:s|es|ed|ing)?\b`
	}
	return `(?i)` + p
}

// isWordByte mirrors the ASCII-only \b of RE2.
func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// wordForms builds an alternation of w and its s/es/ed/ing forms, handling
// the y->ies and silent-e spellings.
func wordForms(w string) string {
	q := regexp.QuoteMeta(w)
	n := len([]rune(w))
	switch {
	case strings.HasSuffix(w, "y") && n > 2:
		stem := regexp.QuoteMeta(strings.TrimSuffix(w, "y"))
		return `(?:` + q + `|` + stem + `ies|` + q + `s|` + q + `ed|` + q + `ing)`
	case strings.HasSuffix(w, "e") && n > 2:
		stem := regexp.QuoteMeta(strings.TrimSuffix(w, "e"))
		return `(?:` + q + `|` + q + `s|` + stem + `ed|` + stem + `ing)`
	default:
		return q + `(?:s|es|ed|ing)?`
	}
}

// MaskExamples applies MaskPhrase to every example.
func MaskExamples(examples []string, phrase string) []string {
	out := make([]string, len(examples))
	for i, e := range examples {
		out[i] = MaskPhrase(e, phrase)
	}
	return out
}
