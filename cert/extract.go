// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

// Package cert extracts sites and their permitted AVV codes from an EfB
// certificate document. The parser is line oriented: it works on the text
// rendering of the certificate, which both the HTML export and PDF text
// dumps produce.
package cert

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/biocycling/efbcheck/efb"
)

var (
	annexStartRegex = regexp.MustCompile(`Anlage\s+(\d+)\s+zum Zertifikat`)
	pageRegex       = regexp.MustCompile(`Seite\s+(\d+)`)

	bezeichnungRegex = regexp.MustCompile(`1\.1\s+Bezeichnung des Standorts:\s*(.+)`)
	strasseRegex     = regexp.MustCompile(`1\.2\s+Straße:\s*(.+)`)
	plzRegex         = regexp.MustCompile(`Postleitzahl:\s*(\d{4,5})`)
	ortRegex         = regexp.MustCompile(`Ort:[ \t]*([A-Za-zÄÖÜäöüß\-/\. ]+)`)
	bundeslandRegex  = regexp.MustCompile(`Bundesland:\s*([A-Z]{2})`)

	taetigkeitRegex = regexp.MustCompile(`(?s)3\.\s+Beschreibung.*?:\s*\n(.+?)(?:\nSeite|\n4\.)`)

	codeOnlyRegex = regexp.MustCompile(`^(\d{2}\s?\d{2}\s?\d{2}|\d{6})(\*?)$`)
	codeTextRegex = regexp.MustCompile(`^(\d{2}\s?\d{2}\s?\d{2}|\d{6})(\*?)\s+(.+)$`)
	codeLineRegex = regexp.MustCompile(`^(\d{2}\s?\d{2}\s?\d{2}|\d{6})(\*?)\s*(.*)$`)
)

// ignoredLines are table headers and section markers interleaved with the
// AVV listing of the certificate.
var ignoredLines = map[string]bool{
	"Abfallschlüssel":                         true,
	"(ggf. mit „*“-Eintrag)":                  true,
	"Abfallbezeichnung":                       true,
	"Einschränkungen/Bemerkungen":             true,
	"4. Abfallarten nach dem Anhang zur AVV:": true,
	"4.1":                             true,
	"4.2":                             true,
	"4.3":                             true,
	"4.4":                             true,
	"alle Abfallarten":                true,
	"alle nicht gefährlichen Abfälle": true,
	"alle gefährlichen Abfälle":       true,
	"bestimmte Abfallarten":           true,
}

// normalizeCode canonicalizes a matched code token, rejecting chapters
// outside 01..20 (anything else is a page number or paragraph reference that
// happens to look like a code).
func normalizeCode(token string) (string, bool) {
	code, err := efb.NormalizeAVV(token)
	if err != nil {
		return "", false
	}

	chapter, err := strconv.Atoi(code[:2])
	if err != nil || chapter < 1 || chapter > 20 {
		return "", false
	}

	return code, true
}

// parseCodesWithContext walks the annex text and collects each AVV code with
// the remark lines that follow it. Repeated codes keep their first entry.
func parseCodesWithContext(text string) []*efb.WasteCode {
	var entries []*efb.WasteCode

	var current *efb.WasteCode

	flush := func() {
		if current != nil {
			entries = append(entries, current)
			current = nil
		}
	}

	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "Seite ") {
			continue
		}

		if m := codeOnlyRegex.FindStringSubmatch(ln); m != nil {
			// implausible chapters (page numbers, paragraph refs) are
			// dropped, not treated as remark text
			if code, ok := normalizeCode(m[1]); ok {
				flush()
				current = &efb.WasteCode{Code: code}
			}

			continue
		}

		if m := codeTextRegex.FindStringSubmatch(ln); m != nil {
			// same as above: an implausible chapter means the line is no
			// code entry, and it is no remark either
			if code, ok := normalizeCode(m[1]); ok {
				flush()
				current = &efb.WasteCode{Code: code, Text: strings.TrimSpace(m[3])}
			}

			continue
		}

		if current != nil && !ignoredLines[ln] {
			current.Text = strings.TrimSpace(current.Text + " " + ln)
		}
	}

	flush()

	seen := make(map[string]bool, len(entries))

	var out []*efb.WasteCode

	for _, e := range entries {
		if !seen[e.Code] {
			seen[e.Code] = true

			out = append(out, e)
		}
	}

	return out
}

// parseBeiblatt collects the per-code remarks of the annex's Beiblatt pages.
func parseBeiblatt(text string, annexNo int) map[string]string {
	beiblatt := make(map[string]string)

	headerRegex := regexp.MustCompile(
		`Beiblatt Einschränkungen/Bemerkungen\s+` + strconv.Itoa(annexNo) + `.*?\n`,
	)

	parts := headerRegex.Split(text, -1)
	if len(parts) <= 1 {
		return beiblatt
	}

	blockEndRegex := regexp.MustCompile(`\nSeite|\n2\. |\nAnlage \d+ zum Zertifikat`)

	for _, part := range parts[1:] {
		block := blockEndRegex.Split(part, 2)[0]

		var current string

		var buf []string

		flush := func() {
			if current == "" {
				return
			}

			joined := strings.TrimSpace(beiblatt[current] + " " + strings.Join(buf, " "))
			if joined != "" {
				beiblatt[current] = joined
			}
		}

		for _, ln := range strings.Split(block, "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				continue
			}

			m := codeLineRegex.FindStringSubmatch(ln)
			if m != nil {
				if code, ok := normalizeCode(m[1]); ok {
					flush()

					current = code

					buf = buf[:0]
					if tail := strings.TrimSpace(m[3]); tail != "" {
						buf = append(buf, tail)
					}

					continue
				}
			}

			if current != "" {
				buf = append(buf, ln)
			}
		}

		flush()
	}

	for code, text := range beiblatt {
		if text == "" {
			delete(beiblatt, code)
		}
	}

	return beiblatt
}

func extractField(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}

func parseAnnex(annexNo int, text string) *efb.CertifiedSite {
	site := efb.Site{
		Annex:       annexNo,
		Bezeichnung: extractField(bezeichnungRegex, text),
		Strasse:     extractField(strasseRegex, text),
		PLZ:         extractField(plzRegex, text),
		Ort:         extractField(ortRegex, text),
		Bundesland:  extractField(bundeslandRegex, text),
	}

	if m := taetigkeitRegex.FindStringSubmatch(text); m != nil {
		var lines []string

		for _, ln := range strings.Split(m[1], "\n") {
			if ln = strings.TrimSpace(ln); ln != "" {
				lines = append(lines, ln)
			}
		}

		site.Taetigkeit = strings.Join(lines, " ")
	}

	if pages := pageRegex.FindAllStringSubmatch(text, -1); pages != nil {
		first, last := 0, 0

		for _, m := range pages {
			p, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}

			if first == 0 || p < first {
				first = p
			}

			if p > last {
				last = p
			}
		}

		site.PagesStart, site.PagesEnd = first, last
	}

	codes := parseCodesWithContext(text)
	beiblatt := parseBeiblatt(text, annexNo)

	for _, c := range codes {
		if extra, ok := beiblatt[c.Code]; ok {
			if c.Text != "" {
				c.Text += " | "
			}

			c.Text += "Beiblatt: " + extra
		}
	}

	return &efb.CertifiedSite{Site: site, Codes: codes}
}

// ParseCertificate splits the certificate text into its "Anlage N zum
// Zertifikat" sections and parses each into a site with its permitted codes.
func ParseCertificate(text string) ([]*efb.CertifiedSite, error) {
	markers := annexStartRegex.FindAllStringSubmatchIndex(text, -1)
	if len(markers) == 0 {
		return nil, fmt.Errorf("no %q sections found in certificate", "Anlage N zum Zertifikat")
	}

	type section struct {
		annex      int
		start, end int
	}

	sections := make([]section, 0, len(markers))

	for i, m := range markers {
		annexNo, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}

		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}

		sections = append(sections, section{annex: annexNo, start: m[0], end: end})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].annex < sections[j].annex
	})

	sites := make([]*efb.CertifiedSite, 0, len(sections))

	for _, sec := range sections {
		sites = append(sites, parseAnnex(sec.annex, text[sec.start:sec.end]))
	}

	return sites, nil
}

// biogasKeywords mark the activity descriptions of the fermentation sites
// this tool is scoped to.
var biogasKeywords = []string{
	"biogasanlage",
	"vergärungsanlage",
	"trockenvergärung",
	"nass-",
	"abfallvergärungsanlage",
}

// IsBiogasSite reports whether the activity description identifies a biogas
// or fermentation plant.
func IsBiogasSite(taetigkeit string) bool {
	if taetigkeit == "" {
		return false
	}

	d := strings.ToLower(taetigkeit)

	for _, k := range biogasKeywords {
		if strings.Contains(d, k) {
			return true
		}
	}

	return false
}
