// Package chat orchestrates a single conversational turn: session
// handling, topic gating, prompt assembly, completion, and persistence.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wpietrzak/kadrio/internal/ai"
	"github.com/wpietrzak/kadrio/internal/prompt"
	"github.com/wpietrzak/kadrio/internal/topic"
)

// SourceRedirect marks replies that redirect off-topic questions back to
// the HR domain without consulting the model.
const SourceRedirect = "redirect"

// ConversationStore is the persistence surface the orchestrator needs.
type ConversationStore interface {
	CreateSessionIfAbsent(ctx context.Context, sessionID, name string) error
	AppendTurn(ctx context.Context, sessionID, userMessage, assistantResponse string, responseTimeMs int) (uint, error)
}

// Reply is the outcome of one handled turn.
type Reply struct {
	Response       string
	SessionID      string
	TurnID         uint
	ResponseTimeMs int
	Source         string
	Timestamp      time.Time
}

// Opts configures an Orchestrator.
type Opts struct {
	Store   ConversationStore
	Builder *prompt.Builder
	Client  *ai.Client
}

// Orchestrator runs the chat turn state machine. Persistence is
// best-effort: a storage failure degrades the turn but never loses the
// reply.
type Orchestrator struct {
	store   ConversationStore
	builder *prompt.Builder
	client  *ai.Client
}

// New creates an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("chat: store is required")
	}
	if opts.Builder == nil {
		return nil, fmt.Errorf("chat: prompt builder is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("chat: ai client is required")
	}
	return &Orchestrator{
		store:   opts.Store,
		builder: opts.Builder,
		client:  opts.Client,
	}, nil
}

// NewSessionID mints a unique session identifier.
func NewSessionID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), raw[:8])
}

// HandleMessage processes one sanitized, validated user message and
// always returns a reply. An empty sessionID starts a new session.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, message string) Reply {
	start := time.Now()

	if sessionID == "" {
		sessionID = NewSessionID()
	}
	if err := o.store.CreateSessionIfAbsent(ctx, sessionID, ""); err != nil {
		log.Printf("chat: ensure session %s: %v", sessionID, err)
	}

	// elapsed is the completion-call duration when the provider runs,
	// and the turn-handling time for redirected messages.
	var text, source string
	var elapsed int
	if topic.IsInDomain(message) {
		messages := o.builder.Build(ctx, sessionID, message)
		reply := o.client.Reply(ctx, messages, message)
		text = reply.Text
		source = reply.Source
		elapsed = reply.ResponseTimeMs
	} else {
		text = topic.RedirectResponse
		source = SourceRedirect
		elapsed = int(time.Since(start).Milliseconds())
	}

	// Redirect and fallback turns are persisted too, so reloaded
	// history matches what the user saw.
	turnID, err := o.store.AppendTurn(ctx, sessionID, message, text, elapsed)
	if err != nil {
		log.Printf("chat: persist turn for %s: %v", sessionID, err)
	}

	return Reply{
		Response:       text,
		SessionID:      sessionID,
		TurnID:         turnID,
		ResponseTimeMs: elapsed,
		Source:         source,
		Timestamp:      time.Now(),
	}
}
