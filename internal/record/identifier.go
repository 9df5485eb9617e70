package record

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Identifier turns arbitrary column text into an exported Go identifier:
// accents are stripped, anything outside [a-z0-9] separates words and the
// words are joined in CamelCase.
//
//	"Datum 1. registrace" -> "Datum1Registrace"
//	"značka"              -> "Znacka"
//	"2024_total"          -> "F2024Total"
//	"###"                 -> "Col"
func Identifier(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	upper := true
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z':
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			upper = true
		default:
			// separator: start a new word
			upper = true
		}
	}

	id := b.String()
	switch {
	case id == "":
		return "Col"
	case id[0] >= '0' && id[0] <= '9':
		return "F" + id
	}
	return id
}

// uniqueIdentifiers maps names to distinct identifiers, suffixing repeats
// with 2, 3, ... in order of appearance.
func uniqueIdentifiers(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		base := Identifier(n)
		id := base
		for k := 2; seen[id]; k++ {
			id = base + strconv.Itoa(k)
		}
		seen[id] = true
		out[i] = id
	}
	return out
}
