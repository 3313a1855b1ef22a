package topic

import "strings"

// RedirectResponse is returned verbatim for off-domain messages.
const RedirectResponse = "Jestem asystentem HR i odpowiadam na pytania o polskie prawo pracy: " +
	"urlopy, umowy o pracę, wynagrodzenia, nadgodziny, rekrutację i RODO. " +
	"O co z tego zakresu chciałbyś zapytać?"

// GenericFallback is returned when no canned sub-topic answer matches.
const GenericFallback = "Nie mam pewności co do tej kwestii. Skonsultuj się z działem kadr " +
	"lub prawnikiem prawa pracy."

// cannedAnswer pairs sub-topic trigger substrings with a factual answer
// drawn from the knowledge compendium's summary facts.
type cannedAnswer struct {
	triggers []string
	answer   string
}

// cannedAnswers are matched in order; the first hit wins.
var cannedAnswers = []cannedAnswer{
	{
		triggers: []string{"urlop"},
		answer: "W Polsce przysługuje ci urlop wypoczynkowy: 20 dni (staż pracy do 10 lat) " +
			"lub 26 dni (powyżej 10 lat). Urlop macierzyński wynosi 20 tygodni. " +
			"W razie wątpliwości skonsultuj się z działem kadr.",
	},
	{
		triggers: []string{"wypowiedzen"},
		answer: "Okresy wypowiedzenia zależą od stażu u pracodawcy: do 6 miesięcy — 2 tygodnie, " +
			"od 6 miesięcy do 3 lat — 1 miesiąc, powyżej 3 lat — 3 miesiące. " +
			"W skomplikowanych sprawach skonsultuj się z prawnikiem.",
	},
	{
		triggers: []string{"nadgodzin"},
		answer: "Limit nadgodzin to 150 godzin rocznie i maksymalnie 4 godziny na dobę. " +
			"Dodatek: 50% za pierwsze 2 godziny, 100% za kolejne oraz za pracę " +
			"w niedziele i święta.",
	},
	{
		triggers: []string{"minimalne wynagrodzenie", "minimalna krajowa", "najniższa krajowa", "najnizsza krajowa"},
		answer: "Wynagrodzenie minimalne jest ustalane corocznie rozporządzeniem i " +
			"waloryzowane. Aktualną stawkę znajdziesz w obwieszczeniu na dany rok.",
	},
}

// Fallback returns a deterministic local answer for an in-domain message
// when the completion provider is unavailable. Never empty.
func Fallback(message string) string {
	lower := strings.ToLower(message)
	for _, c := range cannedAnswers {
		for _, trig := range c.triggers {
			if strings.Contains(lower, trig) {
				return c.answer
			}
		}
	}
	return GenericFallback
}
