// Package prompt assembles the ordered message sequence sent to the
// completion provider: one system entry carrying the full knowledge
// document, the last K persisted turns, and the current user message.
package prompt

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/wpietrzak/kadrio/internal/knowledge"
	"github.com/wpietrzak/kadrio/internal/models"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Defaults for prompt assembly.
const (
	DefaultHistoryPairs = 4
	MaxCurrentMessage   = 5000 // runes; the current message is capped, not rejected
)

// Message is one role-tagged entry of the prompt sequence.
type Message struct {
	Role    string
	Content string
}

// HistoryProvider supplies the most recent turns of a session in
// chronological order.
type HistoryProvider interface {
	GetRecentContext(ctx context.Context, sessionID string, pairs int) ([]models.Turn, error)
}

// KnowledgeProvider supplies the current knowledge snapshot.
type KnowledgeProvider interface {
	Current() knowledge.Snapshot
}

// Builder assembles prompts for chat requests.
type Builder struct {
	history   HistoryProvider
	knowledge KnowledgeProvider
	pairs     int
}

// NewBuilder creates a Builder. A non-positive pairs count falls back to
// DefaultHistoryPairs.
func NewBuilder(history HistoryProvider, kn KnowledgeProvider, pairs int) *Builder {
	if pairs <= 0 {
		pairs = DefaultHistoryPairs
	}
	return &Builder{history: history, knowledge: kn, pairs: pairs}
}

// Build returns the ordered prompt sequence for a session and current
// message: system entry, up to pairs user/assistant pairs oldest-first,
// then the capped current message. A history fetch failure degrades to
// an empty history; the request continues.
func (b *Builder) Build(ctx context.Context, sessionID, currentMessage string) []Message {
	msgs := make([]Message, 0, 2+2*b.pairs)
	msgs = append(msgs, Message{Role: RoleSystem, Content: b.systemPrompt()})

	turns, err := b.history.GetRecentContext(ctx, sessionID, b.pairs)
	if err != nil {
		log.Printf("prompt: recent context for %s: %v (continuing without history)", sessionID, err)
		turns = nil
	}
	for _, turn := range turns {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: turn.UserMessage},
			Message{Role: RoleAssistant, Content: turn.AssistantResponse},
		)
	}

	msgs = append(msgs, Message{Role: RoleUser, Content: capRunes(currentMessage, MaxCurrentMessage)})
	return msgs
}

// systemPrompt renders the system entry from the current knowledge
// snapshot: the document verbatim, the hard answer-only-from-document
// rule, and guidance for elliptical follow-ups.
func (b *Builder) systemPrompt() string {
	snap := b.knowledge.Current()

	var sb strings.Builder
	sb.WriteString("Jesteś ekspertem HR w Polsce. Odpowiadasz wyłącznie na podstawie poniższej bazy wiedzy.\n\n")
	sb.WriteString("BAZA WIEDZY:\n")
	sb.WriteString(snap.Text)
	sb.WriteString("\n\nZASADA TWARDA: Odpowiadaj TYLKO na podstawie powyższego tekstu. ")
	sb.WriteString("Jeśli w bazie nie ma informacji, odpowiedz dokładnie: \"Brak danych w bazie\".\n\n")
	sb.WriteString("KONTEKST ROZMOWY: Krótkie, eliptyczne odpowiedzi użytkownika interpretuj ")
	sb.WriteString("w świetle wcześniejszych pytań. Przykład: sama liczba po pytaniu o staż pracy ")
	sb.WriteString("jest odpowiedzią na to pytanie, a nie nowym pytaniem.")
	return sb.String()
}

// capRunes truncates s to at most n runes.
func capRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
