// Copyright 2026 The BioCycling Authors
// SPDX-License-Identifier: Apache-2.0

package cert

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleCertificate = `Zertifikat über die Entsorgungsfachbetriebseigenschaft
Anlage 1 zum Zertifikat
Seite 4
1.1 Bezeichnung des Standorts: Biogasanlage Musterstadt
1.2 Straße: Musterstr. 1
Postleitzahl: 12345 Ort: Musterstadt
Bundesland: NI
3. Beschreibung der Tätigkeit:
Sammlung und Behandlung von Bioabfällen
in der Biogasanlage
4. Abfallarten nach dem Anhang zur AVV:
Abfallschlüssel
Abfallbezeichnung
170107
200301 Siedlungsabfälle, nur getrennt erfasste Fraktionen
200108 Biologisch abbaubare Küchen- und Kantinenabfälle
Seite 9
Beiblatt Einschränkungen/Bemerkungen 1 von 1
200301 keine Verpackungen
aus Haushalten
Seite 10
Anlage 2 zum Zertifikat
Seite 11
1.2 Straße: Dorfweg 3
Postleitzahl: 84100 Ort: Altheim
Bundesland: BY
3. Beschreibung der Tätigkeit:
Vergärungsanlage
4. Abfallarten nach dem Anhang zur AVV:
20 03 02
Seite 12
`

func TestParseCertificate(t *testing.T) {
	sites, err := ParseCertificate(sampleCertificate)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}

	if len(sites) != 2 {
		t.Fatalf("ParseCertificate() returned %d sites, want 2", len(sites))
	}

	first := sites[0]

	if first.Annex != 1 {
		t.Errorf("Annex = %d, want 1", first.Annex)
	}

	if first.Bezeichnung != "Biogasanlage Musterstadt" {
		t.Errorf("Bezeichnung = %q", first.Bezeichnung)
	}

	if first.Strasse != "Musterstr. 1" || first.PLZ != "12345" || first.Ort != "Musterstadt" {
		t.Errorf("address = %q / %q / %q", first.Strasse, first.PLZ, first.Ort)
	}

	if first.Bundesland != "NI" {
		t.Errorf("Bundesland = %q, want NI", first.Bundesland)
	}

	want := "Sammlung und Behandlung von Bioabfällen in der Biogasanlage"
	if first.Taetigkeit != want {
		t.Errorf("Taetigkeit = %q, want %q", first.Taetigkeit, want)
	}

	if first.PagesStart != 4 || first.PagesEnd != 10 {
		t.Errorf("pages = %d-%d, want 4-10", first.PagesStart, first.PagesEnd)
	}

	second := sites[1]

	if second.Annex != 2 || second.Ort != "Altheim" || second.Bundesland != "BY" {
		t.Errorf("second site = Anlage %d, %s (%s)", second.Annex, second.Ort, second.Bundesland)
	}

	if second.Taetigkeit != "Vergärungsanlage" {
		t.Errorf("Taetigkeit = %q, want Vergärungsanlage", second.Taetigkeit)
	}
}

func TestParseCertificateCodes(t *testing.T) {
	sites, err := ParseCertificate(sampleCertificate)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}

	codes := make(map[string]string, len(sites[0].Codes))
	for _, c := range sites[0].Codes {
		codes[c.Code] = c.Text
	}

	if _, ok := codes["170107"]; !ok {
		t.Error("code 170107 not parsed")
	}

	// the Beiblatt remark is merged into the listing entry, the duplicate
	// Beiblatt line itself does not produce a second entry
	want := "Siedlungsabfälle, nur getrennt erfasste Fraktionen | Beiblatt: keine Verpackungen aus Haushalten"
	if got := codes["200301"]; got != want {
		t.Errorf("200301 text = %q, want %q", got, want)
	}

	if len(sites[0].Codes) != 3 {
		t.Errorf("first site has %d codes, want 3", len(sites[0].Codes))
	}

	// "20 03 02" is stored canonically
	if len(sites[1].Codes) != 1 || sites[1].Codes[0].Code != "200302" {
		t.Errorf("second site codes = %v, want [200302]", sites[1].Codes)
	}
}

func TestParseCertificateNoSections(t *testing.T) {
	if _, err := ParseCertificate("Seite 1\nkein Zertifikat\n"); err == nil {
		t.Error("ParseCertificate() accepted text without annex sections")
	}
}

func TestParseCodesWithContextSkipsImplausibleChapters(t *testing.T) {
	// "210101" is chapter 21, "990101" chapter 99: paragraph references or
	// serial numbers, not AVV codes
	text := "170107 Beton\n210101\n990101\n200301\n"

	got := parseCodesWithContext(text)

	want := []string{"170107", "200301"}

	var gotCodes []string
	for _, c := range got {
		gotCodes = append(gotCodes, c.Code)
	}

	if diff := cmp.Diff(want, gotCodes); diff != "" {
		t.Errorf("parseCodesWithContext() codes mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCodesWithContextDropsImplausibleCodeTextLines(t *testing.T) {
	// a chapter-21 line with trailing text is a paragraph reference; it must
	// neither become an entry nor leak into the previous code's remark
	text := "170107 Beton\n210500 Verweis auf Absatz 5\n200301\n"

	got := parseCodesWithContext(text)

	if len(got) != 2 {
		t.Fatalf("parseCodesWithContext() returned %d entries, want 2", len(got))
	}

	if got[0].Code != "170107" || got[0].Text != "Beton" {
		t.Errorf("first entry = %q %q, want 170107 with unpolluted text", got[0].Code, got[0].Text)
	}

	if got[1].Code != "200301" {
		t.Errorf("second entry = %q, want 200301", got[1].Code)
	}
}

func TestParseCodesWithContextKeepsFirstOccurrence(t *testing.T) {
	text := "170107 erste Nennung\n170107 zweite Nennung\n"

	got := parseCodesWithContext(text)

	if len(got) != 1 || got[0].Text != "erste Nennung" {
		t.Errorf("parseCodesWithContext() = %v, want single entry with first text", got)
	}
}

func TestExtractText(t *testing.T) {
	doc := `<html><head><style>p { color: red }</style></head><body>
<h1>Anlage 1 zum Zertifikat</h1>
<table><tr><td>Postleitzahl:</td><td>12345</td></tr></table>
<p>170107</p>
<p>200301   Siedlungsabfälle,
nur getrennt erfasste Fraktionen</p>
</body></html>`

	text, err := ExtractText(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(text), "\n")

	want := []string{
		"Anlage 1 zum Zertifikat",
		"Postleitzahl:",
		"12345",
		"170107",
		"200301 Siedlungsabfälle, nur getrennt erfasste Fraktionen",
	}

	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("ExtractText() lines mismatch (-want +got):\n%s", diff)
	}

	if strings.Contains(text, "color") {
		t.Error("ExtractText() leaked style content")
	}
}

func TestIsBiogasSite(t *testing.T) {
	tests := []struct {
		taetigkeit string
		want       bool
	}{
		{"Behandlung in der Biogasanlage", true},
		{"Vergärungsanlage mit Nachrotte", true},
		{"Trockenvergärung von Bioabfällen", true},
		{"Sortierung von Altpapier", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsBiogasSite(tt.taetigkeit); got != tt.want {
			t.Errorf("IsBiogasSite(%q) = %v, want %v", tt.taetigkeit, got, tt.want)
		}
	}
}
