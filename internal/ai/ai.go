// Package ai produces assistant responses. A Provider talks to a model
// backend; the Client wraps a Provider with a timeout and a guaranteed
// Polish fallback so callers always receive a usable answer.
package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/wpietrzak/kadrio/internal/prompt"
	"github.com/wpietrzak/kadrio/internal/topic"
)

// SourceFallback marks replies produced locally instead of by a model.
const SourceFallback = "fallback"

// Provider generates a completion for an assembled prompt.
type Provider interface {
	Complete(ctx context.Context, messages []prompt.Message) (string, error)
}

// Reply is a finished assistant response with its provenance.
type Reply struct {
	Text           string
	Source         string
	ResponseTimeMs int
}

// ClientOpts configures a Client.
type ClientOpts struct {
	Provider Provider
	// Source labels successful provider replies, e.g. "gemini-1.5-flash".
	Source  string
	Timeout time.Duration
}

// Client calls a Provider under a deadline and substitutes a canned
// answer whenever the provider fails or returns nothing.
type Client struct {
	provider Provider
	source   string
	timeout  time.Duration
}

// NewClient creates a Client. The provider may be nil, in which case
// every reply is a fallback.
func NewClient(opts ClientOpts) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	source := opts.Source
	if source == "" {
		source = SourceFallback
	}
	return &Client{
		provider: opts.Provider,
		source:   source,
		timeout:  timeout,
	}
}

// Reply generates a response for the assembled messages. userMessage is
// the raw user text, used to pick a topical fallback when the provider
// cannot answer. Reply never returns an empty text.
func (c *Client) Reply(ctx context.Context, messages []prompt.Message, userMessage string) Reply {
	start := time.Now()

	if c.provider == nil {
		return Reply{
			Text:           topic.Fallback(userMessage),
			Source:         SourceFallback,
			ResponseTimeMs: int(time.Since(start).Milliseconds()),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.provider.Complete(ctx, messages)
	elapsed := int(time.Since(start).Milliseconds())
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			log.Printf("ai: completion failed after %dms: %v", elapsed, err)
		} else {
			log.Printf("ai: provider returned empty response after %dms", elapsed)
		}
		return Reply{
			Text:           topic.Fallback(userMessage),
			Source:         SourceFallback,
			ResponseTimeMs: elapsed,
		}
	}

	return Reply{
		Text:           strings.TrimSpace(text),
		Source:         c.source,
		ResponseTimeMs: elapsed,
	}
}

// SourceForModel is the provenance label for a given model name.
func SourceForModel(model string) string {
	if strings.HasPrefix(model, "gemini") {
		return model
	}
	return fmt.Sprintf("gemini-%s", model)
}
