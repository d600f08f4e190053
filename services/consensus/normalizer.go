// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package consensus

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// UnknownKey is the sentinel comparison key for text that cannot be
// normalized. It never equals a parseable key and is excluded from vote
// counting, so unparseable answers contribute to disagreement instead of
// crashing the pipeline or forming accidental consensus.
const UnknownKey = "\x00unknown"

// Normalizer canonicalizes raw answers into comparison keys.
//
// # Description
//
// Normalization defines the equality relation used for voting. It strips
// presentation-level differences: whitespace, LaTeX decoration, case,
// numeral notation ("four" vs "4", "1/2" vs "0.5"), and for
// multiple-choice questions, equivalent ways of naming the same option.
//
// Normalization is deterministic and idempotent: Key(Key(x)) == Key(x).
// It never fails; unparseable input maps to UnknownKey.
//
// # Thread Safety
//
// A Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	kind    QuestionKind
	options []string
}

// NewNormalizer builds a normalizer for one question. The option set is
// used only for multiple-choice questions, to fold option bodies onto
// their labels.
func NewNormalizer(q Question) *Normalizer {
	return &Normalizer{kind: q.Kind, options: q.Options}
}

// Normalize is a convenience for callers without an option set.
func Normalize(raw string, kind QuestionKind) string {
	return (&Normalizer{kind: kind}).Key(raw)
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	commaRe      = regexp.MustCompile(`\s*,\s*`)
	equalsRe     = regexp.MustCompile(`\s*=\s*`)
	fractionRe   = regexp.MustCompile(`^[+-]?\d+/\d+$`)
	optionRe     = regexp.MustCompile(`^(?:option|choice|answer)?\s*\(?([a-z])\)?\.?$`)
)

// numberWords maps spelled-out numerals onto digits. Only small cardinals
// appear in practice; anything larger arrives as digits.
var numberWords = map[string]string{
	"zero": "0", "one": "1", "two": "2", "three": "3", "four": "4",
	"five": "5", "six": "6", "seven": "7", "eight": "8", "nine": "9",
	"ten": "10", "eleven": "11", "twelve": "12", "thirteen": "13",
	"fourteen": "14", "fifteen": "15", "sixteen": "16", "seventeen": "17",
	"eighteen": "18", "nineteen": "19", "twenty": "20",
}

// Key returns the canonical comparison key for a raw answer.
func (n *Normalizer) Key(raw string) string {
	if raw == UnknownKey {
		return UnknownKey
	}

	s := foldASCII(raw)

	// Strip LaTeX presentation: dollar delimiters and command backslashes.
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "\\", "")

	s = strings.TrimSpace(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = commaRe.ReplaceAllString(s, ",")
	s = equalsRe.ReplaceAllString(s, "=")
	s = strings.ToLower(s)

	if s == "" || s == "error" {
		return UnknownKey
	}

	if n.kind == KindMultipleChoice {
		if key, ok := n.optionKey(s); ok {
			return key
		}
		// Fall through: a free-text answer to an MC question still gets
		// a stable key so repeated evaluation stays deterministic.
	}

	if canon, ok := canonicalNumber(s); ok {
		return canon
	}
	return s
}

// optionKey folds the many ways of naming an option ("(a)", "A)",
// "option a", or the option body itself) onto the bare option letter.
func (n *Normalizer) optionKey(s string) (string, bool) {
	if m := optionRe.FindStringSubmatch(s); m != nil {
		letter := m[1]
		idx := int(letter[0] - 'a')
		if len(n.options) == 0 || idx < len(n.options) {
			return letter, true
		}
		return "", false
	}

	// Match against option bodies with the free-form rules.
	body := &Normalizer{kind: KindFreeForm}
	target := body.Key(s)
	for i, opt := range n.options {
		if body.Key(opt) == target && target != UnknownKey {
			return string(rune('a' + i)), true
		}
	}
	return "", false
}

// canonicalNumber rewrites numeric answers into one canonical decimal
// form so "1/2", "0.50", and "four"/"4" collapse to the same key.
func canonicalNumber(s string) (string, bool) {
	if d, ok := numberWords[s]; ok {
		return d, true
	}
	if fractionRe.MatchString(s) {
		parts := strings.SplitN(s, "/", 2)
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil && den != 0 {
			return strconv.FormatFloat(num/den, 'g', -1, 64), true
		}
		return "", false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return "", false
}

// foldASCII folds unicode variants onto their ASCII equivalents and drops
// what has none, matching the exam pipeline's text handling.
func foldASCII(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
