// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

// Package efb implements the certification store and the AVV lookup service
// for EfB (Entsorgungsfachbetrieb) certificates.
package efb

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// WasteCode is a single AVV entry of a certificate annex. Text carries the
// restrictions and remarks printed next to the code, possibly merged with the
// Beiblatt notes, and may be empty.
type WasteCode struct {
	Code string `json:"code"`
	Text string `json:"text,omitempty"`
}

// NormalizeAVV canonicalizes user input into the 6-digit AVV form. Everything
// but digits is dropped, so "20 01 08", "20.01.08" and "200108" are the same
// code. Five digits are accepted and left-padded; certificates occasionally
// print codes without the leading zero.
func NormalizeAVV(s string) (string, error) {
	var sb strings.Builder

	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}

	digits := sb.String()

	switch len(digits) {
	case 6:
		return digits, nil
	case 5:
		return "0" + digits, nil
	default:
		return "", ErrInvalidCode
	}
}

// Chapter returns the 2-digit AVV chapter of a canonical code.
func Chapter(code string) string {
	if len(code) < 2 {
		return code
	}

	return code[:2]
}

// Group returns the 4-digit AVV group of a canonical code.
func Group(code string) string {
	if len(code) < 4 {
		return code
	}

	return code[:4]
}

// SuggestSimilar picks codes from the site's permitted list that are close to
// the rejected one: same 4-digit group first, then the rest of the chapter.
// The input slice order is preserved within each bucket.
func SuggestSimilar(codes []*WasteCode, code string, limit int) []*WasteCode {
	group, chapter := Group(code), Chapter(code)

	var sameGroup, sameChapter []*WasteCode

	for _, c := range codes {
		switch {
		case strings.HasPrefix(c.Code, group):
			sameGroup = append(sameGroup, c)
		case strings.HasPrefix(c.Code, chapter):
			sameChapter = append(sameChapter, c)
		}
	}

	out := append(sameGroup, sameChapter...)
	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

// foldGerman normalizes a string for matching: lowercase, trimmed, and with
// diacritics removed so that "Klärschlamm" matches "klarschlamm".
func foldGerman(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// FilterCodes returns the codes whose number or remark text contains the
// query, compared case- and accent-insensitively. An empty query returns the
// input unchanged.
func FilterCodes(codes []*WasteCode, query string) []*WasteCode {
	query = foldGerman(query)
	if query == "" {
		return codes
	}

	var out []*WasteCode

	for _, c := range codes {
		if strings.Contains(c.Code, query) || strings.Contains(foldGerman(c.Text), query) {
			out = append(out, c)
		}
	}

	return out
}
