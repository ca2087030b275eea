// Package study holds the pure logic behind the study modes: the writing
// diff, card filters, example masking and random card selection.
package study

import (
	"slices"
	"strings"
	"unicode"
)

type Tone string

const (
	ToneGood    Tone = "good"
	ToneBad     Tone = "bad"
	ToneMissing Tone = "missing"
)

// Segment is one rendered character of a writing attempt.
type Segment struct {
	Char string `json:"char"`
	Tone Tone   `json:"tone"`
}

// IsCorrect compares an attempt ignoring surrounding whitespace and case.
func IsCorrect(expected, typed string) bool {
	return strings.ToLower(strings.TrimSpace(expected)) == strings.ToLower(strings.TrimSpace(typed))
}

// Diff aligns typed against expected with a case-insensitive edit distance.
// Matched characters are good, substituted or extra typed characters are bad
// and expected characters the user skipped are missing. Good and bad segments
// carry the typed character; missing ones carry the expected character.
func Diff(expected, typed string) []Segment {
	exp := []rune(expected)
	act := []rune(typed)
	n, m := len(exp), len(act)

	same := func(i, j int) bool {
		return unicode.ToLower(exp[i]) == unicode.ToLower(act[j])
	}

	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			sub := 1
			if same(i-1, j-1) {
				sub = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+sub)
		}
	}

	out := make([]Segment, 0, max(n, m))
	i, j := n, m
	for i > 0 || j > 0 {
		if i > 0 && j > 0 {
			sub, tone := 1, ToneBad
			if same(i-1, j-1) {
				sub, tone = 0, ToneGood
			}
			if d[i][j] == d[i-1][j-1]+sub {
				out = append(out, Segment{Char: string(act[j-1]), Tone: tone})
				i--
				j--
				continue
			}
		}
		if j > 0 && d[i][j] == d[i][j-1]+1 {
			out = append(out, Segment{Char: string(act[j-1]), Tone: ToneBad})
			j--
			continue
		}
		// only a vertical step is left, so i > 0
		out = append(out, Segment{Char: string(exp[i-1]), Tone: ToneMissing})
		i--
	}
	slices.Reverse(out)
	return out
}
