package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/wpietrzak/kadrio/internal/ai"
	"github.com/wpietrzak/kadrio/internal/knowledge"
	"github.com/wpietrzak/kadrio/internal/models"
	"github.com/wpietrzak/kadrio/internal/prompt"
	"github.com/wpietrzak/kadrio/internal/topic"
)

type memoryStore struct {
	sessions  map[string]bool
	turns     []models.Turn
	appendErr error
	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string]bool{}}
}

func (m *memoryStore) CreateSessionIfAbsent(_ context.Context, sessionID, _ string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.sessions[sessionID] = true
	return nil
}

func (m *memoryStore) AppendTurn(_ context.Context, sessionID, user, assistant string, responseTimeMs int) (uint, error) {
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.turns = append(m.turns, models.Turn{
		SessionID:         sessionID,
		UserMessage:       user,
		AssistantResponse: assistant,
		ResponseTimeMs:    responseTimeMs,
	})
	return uint(len(m.turns)), nil
}

func (m *memoryStore) GetRecentContext(_ context.Context, sessionID string, pairs int) ([]models.Turn, error) {
	var out []models.Turn
	for _, turn := range m.turns {
		if turn.SessionID == sessionID {
			out = append(out, turn)
		}
	}
	if len(out) > pairs {
		out = out[len(out)-pairs:]
	}
	return out, nil
}

type fixedKnowledge struct{}

func (fixedKnowledge) Current() knowledge.Snapshot {
	return knowledge.Snapshot{Text: "Urlop wypoczynkowy: 20 lub 26 dni.", SourceName: "test"}
}

type scriptedProvider struct {
	text  string
	err   error
	calls int
}

func (s *scriptedProvider) Complete(_ context.Context, _ []prompt.Message) (string, error) {
	s.calls++
	return s.text, s.err
}

func newOrchestrator(t *testing.T, store *memoryStore, provider ai.Provider) *Orchestrator {
	t.Helper()

	builder := prompt.NewBuilder(store, fixedKnowledge{}, 4)
	client := ai.NewClient(ai.ClientOpts{Provider: provider, Source: "gemini-1.5-flash"})
	o, err := New(Opts{Store: store, Builder: builder, Client: client})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}
	return o
}

// ---------------------------------------------------------------------------
// SessionIDTests
// ---------------------------------------------------------------------------

func TestNewSessionIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^session_\d+_[0-9a-f]{8}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewSessionID()
		if !pattern.MatchString(id) {
			t.Fatalf("unexpected session id format %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

// ---------------------------------------------------------------------------
// HandleMessageTests
// ---------------------------------------------------------------------------

func TestHandleMessageInDomain(t *testing.T) {
	store := newMemoryStore()
	provider := &scriptedProvider{text: "Przysługuje 20 lub 26 dni urlopu rocznie."}
	o := newOrchestrator(t, store, provider)

	reply := o.HandleMessage(context.Background(), "", "Ile dni urlopu mi przysługuje?")

	if reply.Response != "Przysługuje 20 lub 26 dni urlopu rocznie." {
		t.Errorf("unexpected response %q", reply.Response)
	}
	if reply.Source != "gemini-1.5-flash" {
		t.Errorf("expected model source, got %q", reply.Source)
	}
	if reply.SessionID == "" {
		t.Error("expected a generated session id")
	}
	if reply.TurnID == 0 {
		t.Error("expected persisted turn id")
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
	if len(store.turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(store.turns))
	}
	if store.turns[0].AssistantResponse != reply.Response {
		t.Error("persisted response differs from returned response")
	}
}

func TestHandleMessageOffDomainSkipsProvider(t *testing.T) {
	store := newMemoryStore()
	provider := &scriptedProvider{text: "should not be used"}
	o := newOrchestrator(t, store, provider)

	reply := o.HandleMessage(context.Background(), "session_1_aa", "Jaka będzie jutro pogoda?")

	if provider.calls != 0 {
		t.Errorf("expected provider untouched for off-topic message, got %d calls", provider.calls)
	}
	if reply.Source != SourceRedirect {
		t.Errorf("expected redirect source, got %q", reply.Source)
	}
	if reply.Response != topic.RedirectResponse {
		t.Errorf("expected redirect text, got %q", reply.Response)
	}
	if len(store.turns) != 1 {
		t.Errorf("expected redirect turn persisted, got %d", len(store.turns))
	}
}

func TestHandleMessageFallbackOnProviderError(t *testing.T) {
	store := newMemoryStore()
	provider := &scriptedProvider{err: errors.New("deadline exceeded")}
	o := newOrchestrator(t, store, provider)

	reply := o.HandleMessage(context.Background(), "session_2_bb", "Ile wynosi okres wypowiedzenia?")

	if reply.Source != ai.SourceFallback {
		t.Errorf("expected fallback source, got %q", reply.Source)
	}
	if reply.Response == "" {
		t.Fatal("reply must never be empty")
	}
	if !strings.Contains(reply.Response, "wypowiedzenia") {
		t.Errorf("expected topical fallback, got %q", reply.Response)
	}
	if len(store.turns) != 1 {
		t.Errorf("expected fallback turn persisted, got %d", len(store.turns))
	}
}

func TestHandleMessageKeepsExistingSessionID(t *testing.T) {
	store := newMemoryStore()
	o := newOrchestrator(t, store, &scriptedProvider{text: "ok"})

	reply := o.HandleMessage(context.Background(), "session_3_cc", "Ile dni urlopu?")

	if reply.SessionID != "session_3_cc" {
		t.Errorf("expected session id preserved, got %q", reply.SessionID)
	}
	if !store.sessions["session_3_cc"] {
		t.Error("expected session ensured in store")
	}
}

func TestHandleMessageSurvivesStorageFailure(t *testing.T) {
	store := newMemoryStore()
	store.createErr = errors.New("db gone")
	store.appendErr = errors.New("db gone")
	o := newOrchestrator(t, store, &scriptedProvider{text: "Odpowiedź."})

	reply := o.HandleMessage(context.Background(), "session_4_dd", "Ile dni urlopu?")

	if reply.Response != "Odpowiedź." {
		t.Errorf("expected reply despite storage failure, got %q", reply.Response)
	}
	if reply.TurnID != 0 {
		t.Errorf("expected zero turn id on persistence failure, got %d", reply.TurnID)
	}
}

// slowCreateStore delays session creation to separate turn-handling time
// from the completion-call time.
type slowCreateStore struct {
	*memoryStore
	delay time.Duration
}

func (s *slowCreateStore) CreateSessionIfAbsent(ctx context.Context, sessionID, name string) error {
	time.Sleep(s.delay)
	return s.memoryStore.CreateSessionIfAbsent(ctx, sessionID, name)
}

func TestHandleMessageReportsCompletionTime(t *testing.T) {
	inner := newMemoryStore()
	store := &slowCreateStore{memoryStore: inner, delay: 50 * time.Millisecond}
	builder := prompt.NewBuilder(inner, fixedKnowledge{}, 4)
	client := ai.NewClient(ai.ClientOpts{Provider: &scriptedProvider{text: "ok"}, Source: "gemini-1.5-flash"})
	o, err := New(Opts{Store: store, Builder: builder, Client: client})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}

	reply := o.HandleMessage(context.Background(), "session_6_ff", "Ile dni urlopu?")

	// The reported time covers only the completion call, not the slow
	// session write before it.
	if reply.ResponseTimeMs >= 50 {
		t.Errorf("ResponseTimeMs = %d, want the near-instant completion time", reply.ResponseTimeMs)
	}
	if len(inner.turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(inner.turns))
	}
	if inner.turns[0].ResponseTimeMs != reply.ResponseTimeMs {
		t.Errorf("persisted time %d differs from reported time %d",
			inner.turns[0].ResponseTimeMs, reply.ResponseTimeMs)
	}
}

func TestHandleMessageUsesHistoryInPrompt(t *testing.T) {
	store := newMemoryStore()
	var got []prompt.Message
	provider := &captureProvider{capture: &got, text: "ok"}
	o := newOrchestrator(t, store, provider)

	o.HandleMessage(context.Background(), "session_5_ee", "Ile dni urlopu mi przysługuje?")
	o.HandleMessage(context.Background(), "session_5_ee", "A ile przy stażu 12 lat?")

	// system + 1 prior pair + current message.
	if len(got) != 4 {
		t.Fatalf("expected 4 prompt entries on second turn, got %d", len(got))
	}
	if got[1].Content != "Ile dni urlopu mi przysługuje?" {
		t.Errorf("expected prior user message in history, got %q", got[1].Content)
	}
}

type captureProvider struct {
	capture *[]prompt.Message
	text    string
}

func (c *captureProvider) Complete(_ context.Context, messages []prompt.Message) (string, error) {
	*c.capture = messages
	return c.text, nil
}
