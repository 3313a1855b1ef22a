// Package topic gates incoming messages on whether they belong to the
// assistant's HR domain and produces deterministic fallback answers.
//
// Classification is a keyword heuristic over lowercase substring
// containment, not a learned model: false positives and negatives are
// expected and acceptable, with a deliberate bias toward accepting.
package topic

import (
	"strings"
	"unicode/utf8"
)

// ShortMessageThreshold is the rune length below which a message with no
// keyword signal is treated as an elliptical continuation of an
// in-domain conversation and accepted.
const ShortMessageThreshold = 50

// domainKeywords accept a message outright. Stems cover Polish inflection.
var domainKeywords = []string{
	"urlop",
	"wypowiedzen",
	"umow",
	"wynagrodzen",
	"pensj",
	"wypłat", "wyplat",
	"nadgodzin",
	"rekrutacj",
	"rodo",
	"mobbing",
	"bhp",
	"zwolnien",
	"etat",
	"składk", "skladk",
	"zasiłk", "zasilk",
	"macierzyńsk", "macierzynsk",
	"ojcowsk",
	"wychowawcz",
	"pracodawc",
	"pracownik",
	"kodeks pracy",
	"staż pracy", "staz pracy",
	"chorobow",
	"premia", "premii",
	"kadr",
	"hr",
}

// offDomainKeywords reject a message when no domain keyword co-occurs.
var offDomainKeywords = []string{
	"pogoda", "pogodę", "pogode",
	"prognoza",
	"sport",
	"mecz",
	"piłka nożna", "pilka nozna",
	"film",
	"serial",
	"muzyk",
	"koncert",
	"przepis na",
	"gotowan",
	"kuchni",
	"polityk",
	"wybory",
	"sejm",
	"horoskop",
	"bitcoin",
	"krypto",
}

// metaPatterns match questions about the assistant itself; always accepted.
var metaPatterns = []string{
	"co potrafisz",
	"w czym możesz", "w czym mozesz",
	"jak działasz", "jak dzialasz",
	"o co mogę zapytać", "o co moge zapytac",
	"czym się zajmujesz", "czym sie zajmujesz",
	"kim jesteś", "kim jestes",
	"pomoc",
	"help",
}

// continuationPrefixes accept elliptical follow-ups that carry no keyword
// signal, e.g. "byłem 2 tygodnie na zwolnieniu a teraz...".
var continuationPrefixes = []string{
	"byłem", "bylem",
	"byłam", "bylam",
	"pracuję", "pracuje",
	"pracowałem", "pracowalem",
	"pracowałam", "pracowalam",
	"mam ",
	"a co z",
	"a ile",
	"a jeśli", "a jesli",
	"czyli",
}

// IsInDomain reports whether a message should be sent to the completion
// provider. Precedence: meta question > off-domain-exclusive reject >
// domain keyword accept > short message or continuation phrase accept.
func IsInDomain(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	if lower == "" {
		return false
	}

	if containsAny(lower, metaPatterns) {
		return true
	}

	hasDomain := containsAny(lower, domainKeywords)
	hasOffDomain := containsAny(lower, offDomainKeywords)

	if hasOffDomain && !hasDomain {
		return false
	}
	if hasDomain {
		return true
	}

	if utf8.RuneCountInString(lower) < ShortMessageThreshold {
		return true
	}
	for _, p := range continuationPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
